package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides identity, audit timestamps and the soft-delete pair
// shared by every persisted record. IDs and timestamps are owned by the
// persistence layer; callers never supply them.
//
// Invariant: DeletedAt is non-nil exactly when IsDeleted is true.
type BaseModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time  `gorm:"index;not null;autoCreateTime:false" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime:false" json:"updated_at"`
	IsDeleted bool       `gorm:"not null;default:false;index" json:"-"`
	DeletedAt *time.Time `json:"-"`
}

// Base exposes the embedded BaseModel so generic persistence code can reach
// it through any concrete entity type.
func (b *BaseModel) Base() *BaseModel { return b }

// BeforeCreate guards against records slipping in without an identifier or
// timestamps, e.g. rows created directly through gorm in migrations or
// seeds. Values assigned by the repository layer are left alone.
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	return nil
}

// Entity is satisfied by the pointer type of any model embedding BaseModel.
type Entity interface {
	Base() *BaseModel
}
