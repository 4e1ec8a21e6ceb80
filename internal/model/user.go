package model

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// User is an administrative account, not a student record. Students do not
// log in to this backend.
type User struct {
	BaseModel
	Username     string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
	Role         string `gorm:"size:20;not null;default:staff" json:"role"`
}
