package dto

import "wiyata.com/edurecords/internal/model"

type AnnouncementListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	Category string `form:"category"`
	Pinned   bool   `form:"pinned"`
}

type AnnouncementRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	IsPinned bool   `json:"is_pinned"`
}

func (r AnnouncementRequest) ToModel() *model.Announcement {
	return &model.Announcement{
		Title:    r.Title,
		Content:  r.Content,
		Category: r.Category,
		IsPinned: r.IsPinned,
	}
}
