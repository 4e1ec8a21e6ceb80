package model

import (
	"time"

	"github.com/google/uuid"
)

type Announcement struct {
	BaseModel
	Title       string                   `gorm:"size:200;not null" json:"title"`
	Content     string                   `gorm:"type:text;not null" json:"content"`
	Category    string                   `gorm:"size:50" json:"category"`
	IsPinned    bool                     `gorm:"not null;default:false" json:"is_pinned"`
	PublishedAt *time.Time               `json:"published_at,omitempty"`
	Attachments []AnnouncementAttachment `gorm:"foreignKey:AnnouncementID" json:"attachments,omitempty"`
}

type AnnouncementAttachment struct {
	BaseModel
	AnnouncementID uuid.UUID `gorm:"type:uuid;index;not null" json:"announcement_id"`
	FileURL        string    `gorm:"type:text;not null" json:"file_url"`
	FileName       string    `gorm:"size:255;not null" json:"file_name"`
	FileType       string    `gorm:"size:100" json:"file_type"`
	FileSize       int64     `json:"file_size"`
}
