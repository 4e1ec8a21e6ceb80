package dto

import "wiyata.com/edurecords/internal/model"

type DocumentListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	Category string `form:"category"`
}

type DocumentRequest struct {
	Title       string `form:"title" json:"title"`
	Description string `form:"description" json:"description"`
	Category    string `form:"category" json:"category"`
}

func (r DocumentRequest) ToModel() *model.Document {
	return &model.Document{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
	}
}
