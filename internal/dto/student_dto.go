package dto

import (
	"time"

	"wiyata.com/edurecords/internal/model"
)

type StudentListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
	Grade  string `form:"grade"`
	Status string `form:"status"`
}

type StudentExportQuery struct {
	Search string `form:"search"`
	Grade  string `form:"grade"`
	Status string `form:"status"`
}

// StudentRequest carries the business fields of a student on create and
// update. Field-level rules live in the service, which reports every
// violation at once.
type StudentRequest struct {
	StudentID        string     `json:"student_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email"`
	Grade            string     `json:"grade"`
	Section          string     `json:"section"`
	Status           string     `json:"status"`
	EnrollmentDate   *time.Time `json:"enrollment_date"`
	Phone            *string    `json:"phone"`
	Address          *string    `json:"address"`
	DateOfBirth      *time.Time `json:"date_of_birth"`
	EmergencyContact *string    `json:"emergency_contact"`
	Notes            *string    `json:"notes"`
}

func (r StudentRequest) ToModel() *model.Student {
	s := &model.Student{
		StudentID:        r.StudentID,
		Name:             r.Name,
		Email:            r.Email,
		Grade:            r.Grade,
		Section:          r.Section,
		Status:           model.StudentStatus(r.Status),
		Phone:            r.Phone,
		Address:          r.Address,
		DateOfBirth:      r.DateOfBirth,
		EmergencyContact: r.EmergencyContact,
		Notes:            r.Notes,
	}
	if r.EnrollmentDate != nil {
		s.EnrollmentDate = *r.EnrollmentDate
	}
	return s
}
