package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/repository"
	"wiyata.com/edurecords/pkg/apperror"
)

const (
	statsCacheKey = "edurecords:stats:students"
	statsCacheTTL = 5 * time.Minute
)

// StudentStatistics is a one-pass aggregation over the non-deleted student
// set.
type StudentStatistics struct {
	TotalStudents        int            `json:"total_students"`
	ActiveStudents       int            `json:"active_students"`
	InactiveStudents     int            `json:"inactive_students"`
	SuspendedStudents    int            `json:"suspended_students"`
	GraduatedStudents    int            `json:"graduated_students"`
	TransferredStudents  int            `json:"transferred_students"`
	WithdrawnStudents    int            `json:"withdrawn_students"`
	StudentsByGrade      map[string]int `json:"students_by_grade"`
	StudentsByStatus     map[string]int `json:"students_by_status"`
	NewStudentsThisMonth int            `json:"new_students_this_month"`
	NewStudentsThisYear  int            `json:"new_students_this_year"`
}

type StudentService interface {
	GetStudents(ctx context.Context, pageNumber, pageSize int, searchTerm, grade string, status model.StudentStatus) (*repository.PagedResult[*model.Student], error)
	GetStudentByID(ctx context.Context, id uuid.UUID) (*model.Student, error)
	GetStudentByStudentID(ctx context.Context, studentID string) (*model.Student, error)
	CreateStudent(ctx context.Context, student *model.Student) (*model.Student, error)
	UpdateStudent(ctx context.Context, id uuid.UUID, student *model.Student) (*model.Student, error)
	DeleteStudent(ctx context.Context, id uuid.UUID) (bool, error)
	UpdateStudentAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (bool, error)
	GetStudentStatistics(ctx context.Context) (*StudentStatistics, error)
	IsStudentIDUnique(ctx context.Context, studentID string, excludeID *uuid.UUID) (bool, error)
	IsEmailUnique(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error)
	ExportStudentsToCSV(ctx context.Context, searchTerm, grade string, status model.StudentStatus) ([]byte, error)
}

type studentService struct {
	uow *repository.Factory
	rdb *redis.Client
}

// NewStudentService builds the student service over a unit-of-work factory.
// The redis client is optional; without it statistics are recomputed on
// every call.
func NewStudentService(uow *repository.Factory, rdb *redis.Client) (StudentService, error) {
	if uow == nil {
		return nil, fmt.Errorf("%w: nil unit of work factory", apperror.ErrInvalidArgument)
	}
	return &studentService{uow: uow, rdb: rdb}, nil
}

// studentFilter composes the optional search term, grade and status into one
// conjunction. The search term matches name, email or student id
// case-insensitively.
func studentFilter(searchTerm, grade string, status model.StudentStatus) *repository.Filter {
	f := repository.NewFilter()

	if term := strings.TrimSpace(searchTerm); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		f.Where("(LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(student_id) LIKE ?)", pattern, pattern, pattern)
	}
	if grade != "" {
		f.Where("grade = ?", grade)
	}
	if status != "" {
		f.Where("status = ?", status)
	}

	return f
}

func (s *studentService) GetStudents(ctx context.Context, pageNumber, pageSize int, searchTerm, grade string, status model.StudentStatus) (*repository.PagedResult[*model.Student], error) {
	uow := s.uow.New()
	defer uow.Close()

	f := studentFilter(searchTerm, grade, status)
	return uow.Students.GetPaged(ctx, pageNumber, pageSize, f, "name ASC", "student_id ASC")
}

func (s *studentService) GetStudentByID(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	uow := s.uow.New()
	defer uow.Close()

	return uow.Students.GetByID(ctx, id)
}

func (s *studentService) GetStudentByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	if strings.TrimSpace(studentID) == "" {
		return nil, nil
	}

	uow := s.uow.New()
	defer uow.Close()

	return uow.Students.FindFirst(ctx, repository.NewFilter().Where("student_id = ?", studentID))
}

func (s *studentService) CreateStudent(ctx context.Context, student *model.Student) (*model.Student, error) {
	if student == nil {
		return nil, fmt.Errorf("%w: nil student", apperror.ErrInvalidArgument)
	}

	uow := s.uow.New()
	defer uow.Close()

	if err := s.validateStudent(ctx, uow, student, nil); err != nil {
		return nil, err
	}

	if !student.Status.Valid() {
		student.Status = model.StatusActive
	}
	if student.EnrollmentDate.IsZero() {
		student.EnrollmentDate = time.Now()
	}

	if _, err := uow.Students.Add(ctx, student); err != nil {
		return nil, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	s.invalidateStatsCache(ctx)
	return student, nil
}

func (s *studentService) UpdateStudent(ctx context.Context, id uuid.UUID, student *model.Student) (*model.Student, error) {
	if student == nil {
		return nil, fmt.Errorf("%w: nil student", apperror.ErrInvalidArgument)
	}

	uow := s.uow.New()
	defer uow.Close()

	existing, err := uow.Students.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	if err := s.validateStudent(ctx, uow, student, &id); err != nil {
		return nil, err
	}

	// Copy every business field; identity, creation time, enrollment date
	// and avatar stay as they are.
	existing.StudentID = student.StudentID
	existing.Name = student.Name
	existing.Email = student.Email
	existing.Grade = student.Grade
	existing.Section = student.Section
	existing.Phone = student.Phone
	existing.Address = student.Address
	existing.DateOfBirth = student.DateOfBirth
	existing.EmergencyContact = student.EmergencyContact
	existing.Notes = student.Notes
	if student.Status.Valid() {
		existing.Status = student.Status
	}

	if _, err := uow.Students.Update(ctx, existing); err != nil {
		return nil, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	s.invalidateStatsCache(ctx)
	return existing, nil
}

func (s *studentService) DeleteStudent(ctx context.Context, id uuid.UUID) (bool, error) {
	uow := s.uow.New()
	defer uow.Close()

	existing, err := uow.Students.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if err := uow.Students.SoftDelete(ctx, existing); err != nil {
		return false, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return false, err
	}

	s.invalidateStatsCache(ctx)
	return true, nil
}

func (s *studentService) UpdateStudentAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (bool, error) {
	uow := s.uow.New()
	defer uow.Close()

	existing, err := uow.Students.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	existing.AvatarURL = &avatarURL
	if _, err := uow.Students.Update(ctx, existing); err != nil {
		return false, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return false, err
	}

	return true, nil
}

func (s *studentService) GetStudentStatistics(ctx context.Context) (*StudentStatistics, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, statsCacheKey).Bytes()
		if err == nil {
			var stats StudentStatistics
			if err := json.Unmarshal(cached, &stats); err == nil {
				return &stats, nil
			}
		}
	}

	uow := s.uow.New()
	defer uow.Close()

	students, err := uow.Students.GetAll(ctx, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	stats := &StudentStatistics{
		TotalStudents:    len(students),
		StudentsByGrade:  make(map[string]int),
		StudentsByStatus: make(map[string]int),
	}

	for _, st := range students {
		switch st.Status {
		case model.StatusActive:
			stats.ActiveStudents++
		case model.StatusInactive:
			stats.InactiveStudents++
		case model.StatusSuspended:
			stats.SuspendedStudents++
		case model.StatusGraduated:
			stats.GraduatedStudents++
		case model.StatusTransferred:
			stats.TransferredStudents++
		case model.StatusWithdrawn:
			stats.WithdrawnStudents++
		}

		stats.StudentsByGrade[st.Grade]++
		stats.StudentsByStatus[string(st.Status)]++

		if !st.EnrollmentDate.Before(monthStart) {
			stats.NewStudentsThisMonth++
		}
		if !st.EnrollmentDate.Before(yearStart) {
			stats.NewStudentsThisYear++
		}
	}

	if s.rdb != nil {
		if b, err := json.Marshal(stats); err == nil {
			if err := s.rdb.Set(ctx, statsCacheKey, b, statsCacheTTL).Err(); err != nil {
				log.Printf("failed to cache student statistics: %v", err)
			}
		}
	}

	return stats, nil
}

func (s *studentService) IsStudentIDUnique(ctx context.Context, studentID string, excludeID *uuid.UUID) (bool, error) {
	if strings.TrimSpace(studentID) == "" {
		// Blank input fails closed.
		return false, nil
	}

	uow := s.uow.New()
	defer uow.Close()

	return s.isStudentIDUnique(ctx, uow, studentID, excludeID)
}

func (s *studentService) IsEmailUnique(ctx context.Context, email string, excludeID *uuid.UUID) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}

	uow := s.uow.New()
	defer uow.Close()

	return s.isEmailUnique(ctx, uow, email, excludeID)
}

func (s *studentService) isStudentIDUnique(ctx context.Context, uow *repository.UnitOfWork, studentID string, excludeID *uuid.UUID) (bool, error) {
	f := repository.NewFilter().Where("student_id = ?", studentID)
	if excludeID != nil {
		f.Where("id <> ?", *excludeID)
	}

	taken, err := uow.Students.Any(ctx, f)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

func (s *studentService) isEmailUnique(ctx context.Context, uow *repository.UnitOfWork, email string, excludeID *uuid.UUID) (bool, error) {
	f := repository.NewFilter().Where("email = ?", email)
	if excludeID != nil {
		f.Where("id <> ?", *excludeID)
	}

	taken, err := uow.Students.Any(ctx, f)
	if err != nil {
		return false, err
	}
	return !taken, nil
}

// validateStudent collects every violated rule before failing so the caller
// sees all problems at once. excludeID is set on update so the record does
// not collide with itself.
func (s *studentService) validateStudent(ctx context.Context, uow *repository.UnitOfWork, student *model.Student, excludeID *uuid.UUID) error {
	var violations []string

	studentID := strings.TrimSpace(student.StudentID)
	switch {
	case studentID == "":
		violations = append(violations, "student ID is required")
	case len(studentID) > 20:
		violations = append(violations, "student ID must be at most 20 characters")
	}
	if strings.TrimSpace(student.Name) == "" {
		violations = append(violations, "name is required")
	}
	email := strings.TrimSpace(student.Email)
	if email == "" {
		violations = append(violations, "email is required")
	}
	if strings.TrimSpace(student.Grade) == "" {
		violations = append(violations, "grade is required")
	}
	if strings.TrimSpace(student.Section) == "" {
		violations = append(violations, "section is required")
	}

	if studentID != "" {
		unique, err := s.isStudentIDUnique(ctx, uow, studentID, excludeID)
		if err != nil {
			return err
		}
		if !unique {
			violations = append(violations, fmt.Sprintf("student ID %q is already in use", studentID))
		}
	}
	if email != "" {
		unique, err := s.isEmailUnique(ctx, uow, email, excludeID)
		if err != nil {
			return err
		}
		if !unique {
			violations = append(violations, fmt.Sprintf("email %q is already in use", email))
		}
	}

	if len(violations) > 0 {
		return apperror.NewValidationError(violations)
	}
	return nil
}

// csvHeader is the fixed export column order. This is the one bit-exact
// external contract of the service.
var csvHeader = []string{
	"Student ID", "Name", "Email", "Grade", "Section", "Status",
	"Enrollment Date", "Phone", "Address",
}

func (s *studentService) ExportStudentsToCSV(ctx context.Context, searchTerm, grade string, status model.StudentStatus) ([]byte, error) {
	uow := s.uow.New()
	defer uow.Close()

	students, err := uow.Students.GetAll(ctx, studentFilter(searchTerm, grade, status))
	if err != nil {
		return nil, err
	}

	sort.Slice(students, func(i, j int) bool {
		return students[i].Name < students[j].Name
	})

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, st := range students {
		record := []string{
			st.StudentID,
			st.Name,
			st.Email,
			st.Grade,
			st.Section,
			string(st.Status),
			st.EnrollmentDate.Format("2006-01-02"),
			stringOrEmpty(st.Phone),
			stringOrEmpty(st.Address),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *studentService) invalidateStatsCache(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, statsCacheKey).Err(); err != nil {
		log.Printf("failed to invalidate student statistics cache: %v", err)
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
