package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/repository"
	"wiyata.com/edurecords/internal/service"
	"wiyata.com/edurecords/pkg/apperror"
)

func newTestService(t *testing.T) (service.StudentService, *repository.Factory) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Student{}))

	factory := repository.NewFactory(db)
	svc, err := service.NewStudentService(factory, nil)
	require.NoError(t, err)
	return svc, factory
}

func validStudent(studentID, name string) *model.Student {
	return &model.Student{
		StudentID:      studentID,
		Name:           name,
		Email:          strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@school.test",
		Grade:          "10",
		Section:        "A",
		EnrollmentDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:         model.StatusActive,
	}
}

func TestNewStudentServiceRequiresFactory(t *testing.T) {
	_, err := service.NewStudentService(nil, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestCreateStudentReportsAllViolationsAtOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateStudent(ctx, &model.Student{})
	require.Error(t, err)

	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 5)
	assert.Contains(t, verr.Violations, "student ID is required")
	assert.Contains(t, verr.Violations, "name is required")
	assert.Contains(t, verr.Violations, "email is required")
	assert.Contains(t, verr.Violations, "grade is required")
	assert.Contains(t, verr.Violations, "section is required")
}

func TestCreateStudentRejectsOverlongStudentID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	st := validStudent(strings.Repeat("X", 21), "Alice")
	_, err := svc.CreateStudent(ctx, st)

	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "student ID must be at most 20 characters")
}

func TestCreateStudentDuplicateStudentID(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.CreateStudent(ctx, validStudent("STU001", "Alice"))
	require.NoError(t, err)

	dup := validStudent("STU001", "Bob")
	_, err = svc.CreateStudent(ctx, dup)

	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, `student ID "STU001" is already in use`)

	// Soft deletion frees the student id for re-registration.
	deleted, err := svc.DeleteStudent(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = svc.CreateStudent(ctx, dup)
	require.NoError(t, err)
}

func TestGetStudentsFiltersAndOrdersByName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	alice := validStudent("STU001", "Alice")
	bob := validStudent("STU002", "Bob")
	bob.Status = model.StatusInactive
	carol := validStudent("STU003", "Carol")
	carol.Grade = "11"
	zoe := validStudent("STU004", "Zoe")

	for _, st := range []*model.Student{zoe, carol, bob, alice} {
		_, err := svc.CreateStudent(ctx, st)
		require.NoError(t, err)
	}

	// Grade and status compose with AND.
	page, err := svc.GetStudents(ctx, 1, 10, "", "10", model.StatusActive)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Alice", page.Items[0].Name)
	assert.Equal(t, "Zoe", page.Items[1].Name)

	// The search term is case-insensitive and matches name, email or
	// student id.
	page, err = svc.GetStudents(ctx, 1, 10, "CAROL", "", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Carol", page.Items[0].Name)

	page, err = svc.GetStudents(ctx, 1, 10, "stu002", "", "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Bob", page.Items[0].Name)

	page, err = svc.GetStudents(ctx, 1, 10, "", "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.TotalCount)
	assert.Equal(t, "Alice", page.Items[0].Name)
	assert.Equal(t, "Zoe", page.Items[3].Name)
}

func TestGetStudentByStudentIDBlankReturnsNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	got, err := svc.GetStudentByStudentID(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpdateStudentPreservesImmutableFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	st := validStudent("STU001", "Alice")
	created, err := svc.CreateStudent(ctx, st)
	require.NoError(t, err)

	avatar := "https://cdn.test/alice.webp"
	ok, err := svc.UpdateStudentAvatar(ctx, created.ID, avatar)
	require.NoError(t, err)
	assert.True(t, ok)

	patch := validStudent("STU001", "Alice Brown")
	patch.Grade = "11"
	patch.EnrollmentDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	updated, err := svc.UpdateStudent(ctx, created.ID, patch)
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "Alice Brown", updated.Name)
	assert.Equal(t, "11", updated.Grade)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
	assert.True(t, updated.EnrollmentDate.Equal(created.EnrollmentDate))
	require.NotNil(t, updated.AvatarURL)
	assert.Equal(t, avatar, *updated.AvatarURL)
}

func TestUpdateStudentMissingReturnsNil(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	updated, err := svc.UpdateStudent(ctx, uuid.New(), validStudent("STU001", "Alice"))
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestDeleteStudentMissingReturnsFalse(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	deleted, err := svc.DeleteStudent(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestUniquenessChecks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateStudent(ctx, validStudent("STU001", "Alice"))
	require.NoError(t, err)

	unique, err := svc.IsStudentIDUnique(ctx, "STU001", nil)
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = svc.IsStudentIDUnique(ctx, "STU999", nil)
	require.NoError(t, err)
	assert.True(t, unique)

	// A record never collides with itself on update.
	unique, err = svc.IsStudentIDUnique(ctx, "STU001", &created.ID)
	require.NoError(t, err)
	assert.True(t, unique)

	unique, err = svc.IsEmailUnique(ctx, created.Email, nil)
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = svc.IsEmailUnique(ctx, created.Email, &created.ID)
	require.NoError(t, err)
	assert.True(t, unique)

	// Blank input fails closed.
	unique, err = svc.IsStudentIDUnique(ctx, "  ", nil)
	require.NoError(t, err)
	assert.False(t, unique)

	unique, err = svc.IsEmailUnique(ctx, "", nil)
	require.NoError(t, err)
	assert.False(t, unique)
}

func TestGetStudentStatistics(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, now.Location())

	thisMonth := validStudent("STU001", "Alice")
	thisMonth.EnrollmentDate = monthStart.Add(12 * time.Hour)

	thisYear := validStudent("STU002", "Bob")
	thisYear.EnrollmentDate = yearStart.Add(12 * time.Hour)
	thisYear.Status = model.StatusGraduated
	thisYear.Grade = "12"

	lastYear := validStudent("STU003", "Carol")
	lastYear.EnrollmentDate = now.AddDate(-1, 0, 0)

	for _, st := range []*model.Student{thisMonth, thisYear, lastYear} {
		_, err := svc.CreateStudent(ctx, st)
		require.NoError(t, err)
	}

	stats, err := svc.GetStudentStatistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalStudents)
	assert.Equal(t, 2, stats.ActiveStudents)
	assert.Equal(t, 1, stats.GraduatedStudents)
	assert.Equal(t, map[string]int{"10": 2, "12": 1}, stats.StudentsByGrade)
	assert.Equal(t, 2, stats.StudentsByStatus[string(model.StatusActive)])
	assert.Equal(t, 1, stats.StudentsByStatus[string(model.StatusGraduated)])

	// In January the year-start enrollment also falls in the current month.
	expectedMonth := 1
	if monthStart.Equal(yearStart) {
		expectedMonth = 2
	}
	assert.Equal(t, expectedMonth, stats.NewStudentsThisMonth)
	assert.Equal(t, 2, stats.NewStudentsThisYear)

	// Deleted students drop out of the aggregation.
	var ids []uuid.UUID
	page, err := svc.GetStudents(ctx, 1, 10, "", "", "")
	require.NoError(t, err)
	for _, st := range page.Items {
		ids = append(ids, st.ID)
	}
	require.NotEmpty(t, ids)
	_, err = svc.DeleteStudent(ctx, ids[0])
	require.NoError(t, err)

	stats, err = svc.GetStudentStatistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalStudents)
}

func TestExportStudentsToCSV(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	plain := validStudent("STU001", "Alice")
	plain.EnrollmentDate = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	phone := "+62-811-0001"
	plain.Phone = &phone

	quoted := validStudent("STU002", `O'Brien, Jr.`)
	quoted.Email = "obrien@school.test"
	quoted.EnrollmentDate = time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

	other := validStudent("STU003", "Zoe")
	other.Grade = "11"

	for _, st := range []*model.Student{quoted, other, plain} {
		_, err := svc.CreateStudent(ctx, st)
		require.NoError(t, err)
	}

	out, err := svc.ExportStudentsToCSV(ctx, "", "", "")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Student ID,Name,Email,Grade,Section,Status,Enrollment Date,Phone,Address", lines[0])

	// Rows come out sorted by name; fields with commas are quoted.
	assert.Equal(t, `STU001,Alice,alice@school.test,10,A,Active,2026-03-02,+62-811-0001,`, lines[1])
	assert.Equal(t, `STU002,"O'Brien, Jr.",obrien@school.test,10,A,Active,2025-08-20,,`, lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "STU003,Zoe,"))

	// The export honours the same filters as the listing.
	out, err = svc.ExportStudentsToCSV(ctx, "", "11", "")
	require.NoError(t, err)
	lines = strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "STU003,Zoe,"))
}
