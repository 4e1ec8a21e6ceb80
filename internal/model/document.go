package model

type Document struct {
	BaseModel
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"size:50" json:"category"`
	FileURL     string `gorm:"type:text;not null" json:"file_url"`
	FileName    string `gorm:"size:255;not null" json:"file_name"`
	FileType    string `gorm:"size:100" json:"file_type"`
	FileSize    int64  `json:"file_size"`
}
