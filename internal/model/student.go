package model

import "time"

type StudentStatus string

const (
	StatusActive      StudentStatus = "Active"
	StatusInactive    StudentStatus = "Inactive"
	StatusSuspended   StudentStatus = "Suspended"
	StatusGraduated   StudentStatus = "Graduated"
	StatusTransferred StudentStatus = "Transferred"
	StatusWithdrawn   StudentStatus = "Withdrawn"
)

// StudentStatuses lists every defined status value, in display order.
var StudentStatuses = []StudentStatus{
	StatusActive,
	StatusInactive,
	StatusSuspended,
	StatusGraduated,
	StatusTransferred,
	StatusWithdrawn,
}

func (s StudentStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended, StatusGraduated, StatusTransferred, StatusWithdrawn:
		return true
	}
	return false
}

// Student is a learner registered in the institution.
//
// StudentID and Email are business-unique among non-deleted students. The
// uniqueness check lives in the service layer so a soft-deleted student does
// not block re-registration, hence no uniqueIndex here.
type Student struct {
	BaseModel
	StudentID        string        `gorm:"size:20;index;not null" json:"student_id"`
	Name             string        `gorm:"size:100;not null" json:"name"`
	Email            string        `gorm:"size:100;index;not null" json:"email"`
	Grade            string        `gorm:"size:20;not null" json:"grade"`
	Section          string        `gorm:"size:20;not null" json:"section"`
	EnrollmentDate   time.Time     `gorm:"not null" json:"enrollment_date"`
	Status           StudentStatus `gorm:"size:20;not null" json:"status"`
	AvatarURL        *string       `gorm:"type:text" json:"avatar_url,omitempty"`
	Phone            *string       `gorm:"size:20" json:"phone,omitempty"`
	Address          *string       `gorm:"type:text" json:"address,omitempty"`
	DateOfBirth      *time.Time    `json:"date_of_birth,omitempty"`
	EmergencyContact *string       `gorm:"size:100" json:"emergency_contact,omitempty"`
	Notes            *string       `gorm:"type:text" json:"notes,omitempty"`
}
