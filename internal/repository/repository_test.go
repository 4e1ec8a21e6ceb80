package repository_test

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
	"wiyata.com/edurecords/pkg/apperror"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Student{},
		&model.Announcement{},
		&model.AnnouncementAttachment{},
		&model.Document{},
	))
	return db
}

// testClock is an adjustable wall-clock source for timestamp assertions.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestFactory(t *testing.T) (*repository.Factory, *testClock) {
	t.Helper()
	clock := newTestClock()
	return repository.NewFactory(openTestDB(t)).WithClock(clock.Now), clock
}

func newStudent(studentID, name string) *model.Student {
	return &model.Student{
		StudentID:      studentID,
		Name:           name,
		Email:          strings.ToLower(name) + "@school.test",
		Grade:          "10",
		Section:        "A",
		EnrollmentDate: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Status:         model.StatusActive,
	}
}

func TestAddAssignsIdentityAndTimestamps(t *testing.T) {
	factory, clock := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	st := newStudent("STU001", "Alice")
	// Caller-supplied identity and timestamps must be overwritten.
	st.ID = uuid.New()
	callerID := st.ID
	st.CreatedAt = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := uow.Students.Add(ctx, st)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, st.ID)
	assert.NotEqual(t, callerID, st.ID)
	assert.True(t, st.CreatedAt.Equal(clock.Now()))
	assert.True(t, st.UpdatedAt.Equal(st.CreatedAt))

	affected, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	reader := factory.New()
	defer reader.Close()

	got, err := reader.Students.GetByID(ctx, st.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "STU001", got.StudentID)
	assert.True(t, got.CreatedAt.Equal(clock.Now()))
}

func TestUpdateRefreshesUpdatedAtOnly(t *testing.T) {
	factory, clock := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	st := newStudent("STU001", "Alice")
	_, err := uow.Students.Add(ctx, st)
	require.NoError(t, err)
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	createdAt := st.CreatedAt
	clock.Advance(time.Hour)

	st.Name = "Alice B."
	_, err = uow.Students.Update(ctx, st)
	require.NoError(t, err)
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	reader := factory.New()
	defer reader.Close()

	got, err := reader.Students.GetByID(ctx, st.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice B.", got.Name)
	assert.True(t, got.CreatedAt.Equal(createdAt))
	assert.True(t, got.UpdatedAt.Equal(clock.Now()))
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestMutationsAreStagedUntilSave(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	st := newStudent("STU001", "Alice")
	_, err := uow.Students.Add(ctx, st)
	require.NoError(t, err)

	// Not yet durable: another unit of work must not see it.
	reader := factory.New()
	defer reader.Close()

	got, err := reader.Students.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	got, err = reader.Students.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestSoftDeleteHidesRecordButKeepsRow(t *testing.T) {
	factory, clock := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	st := newStudent("STU001", "Alice")
	_, err := uow.Students.Add(ctx, st)
	require.NoError(t, err)
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	clock.Advance(time.Minute)
	require.NoError(t, uow.Students.SoftDelete(ctx, st))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	assert.True(t, st.IsDeleted)
	require.NotNil(t, st.DeletedAt)
	assert.True(t, st.DeletedAt.Equal(clock.Now()))

	// Default reads no longer return it.
	got, err := uow.Students.GetByID(ctx, st.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := uow.Students.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	// The row itself is retained.
	db := openTestDB(t)
	var raw model.Student
	require.NoError(t, db.First(&raw, "id = ?", st.ID).Error)
	assert.True(t, raw.IsDeleted)
	assert.NotNil(t, raw.DeletedAt)
}

func TestSoftDeleteByIDIsIdempotent(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	st := newStudent("STU001", "Alice")
	_, err := uow.Students.Add(ctx, st)
	require.NoError(t, err)
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, uow.Students.SoftDeleteByID(ctx, st.ID))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	// The target is already hidden from default reads, but the by-id
	// variant still finds it and succeeds.
	require.NoError(t, uow.Students.SoftDeleteByID(ctx, st.ID))
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	err = uow.Students.SoftDeleteByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestHardDeleteRemovesRow(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	st := newStudent("STU001", "Alice")
	_, err := uow.Students.Add(ctx, st)
	require.NoError(t, err)
	_, err = uow.SaveChanges(ctx)
	require.NoError(t, err)

	require.NoError(t, uow.Students.DeleteByID(ctx, st.ID))
	affected, err := uow.SaveChanges(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	db := openTestDB(t)
	var raw model.Student
	err = db.First(&raw, "id = ?", st.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNilEntityIsRejected(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	_, err := uow.Students.Add(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	_, err = uow.Students.Update(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	err = uow.Students.Delete(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	err = uow.Students.SoftDelete(ctx, nil)
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)

	err = uow.Students.AddRange(ctx, []*model.Student{newStudent("STU001", "Alice"), nil})
	assert.ErrorIs(t, err, apperror.ErrInvalidArgument)
}

func TestGetPagedClampsAndCounts(t *testing.T) {
	factory, clock := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	for i := 0; i < 7; i++ {
		clock.Advance(time.Minute)
		_, err := uow.Students.Add(ctx, newStudent(fmt.Sprintf("STU%03d", i+1), fmt.Sprintf("Student%d", i+1)))
		require.NoError(t, err)
	}
	_, err := uow.SaveChanges(ctx)
	require.NoError(t, err)

	// Page number and size below 1 are clamped.
	page, err := uow.Students.GetPaged(ctx, 0, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, 10, page.PageSize)
	assert.Equal(t, int64(7), page.TotalCount)
	assert.Len(t, page.Items, 7)

	// Oversized page size is clamped to the ceiling.
	page, err = uow.Students.GetPaged(ctx, 1, 1000, nil)
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
}

func TestGetPagedConcatenationMatchesFind(t *testing.T) {
	factory, clock := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	var ids []uuid.UUID
	for i := 0; i < 7; i++ {
		clock.Advance(time.Minute)
		st := newStudent(fmt.Sprintf("STU%03d", i+1), fmt.Sprintf("Student%d", i+1))
		_, err := uow.Students.Add(ctx, st)
		require.NoError(t, err)
		ids = append(ids, st.ID)
	}
	_, err := uow.SaveChanges(ctx)
	require.NoError(t, err)

	// Default ordering is newest-first by creation time.
	var wantIDs []uuid.UUID
	for i := len(ids) - 1; i >= 0; i-- {
		wantIDs = append(wantIDs, ids[i])
	}

	var gotIDs []uuid.UUID
	for pageNumber := 1; ; pageNumber++ {
		page, err := uow.Students.GetPaged(ctx, pageNumber, 3, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(7), page.TotalCount)
		assert.Equal(t, 3, page.TotalPages())

		for _, st := range page.Items {
			gotIDs = append(gotIDs, st.ID)
		}
		if pageNumber >= page.TotalPages() {
			break
		}
	}

	assert.Equal(t, wantIDs, gotIDs)
}

func TestFilterFoldsConditionsWithAnd(t *testing.T) {
	factory, _ := newTestFactory(t)
	ctx := context.Background()

	uow := factory.New()
	defer uow.Close()

	a := newStudent("STU001", "Alice")
	b := newStudent("STU002", "Bob")
	b.Status = model.StatusInactive
	c := newStudent("STU003", "Carol")
	c.Grade = "11"

	require.NoError(t, uow.Students.AddRange(ctx, []*model.Student{a, b, c}))
	_, err := uow.SaveChanges(ctx)
	require.NoError(t, err)

	f := repository.NewFilter().
		Where("grade = ?", "10").
		Where("status = ?", model.StatusActive)

	matches, err := uow.Students.Find(ctx, f)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, a.ID, matches[0].ID)

	first, err := uow.Students.FindFirst(ctx, f)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, a.ID, first.ID)

	exists, err := uow.Students.Any(ctx, f)
	require.NoError(t, err)
	assert.True(t, exists)

	count, err := uow.Students.Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	none, err := uow.Students.FindFirst(ctx, repository.NewFilter().Where("grade = ?", "12"))
	require.NoError(t, err)
	assert.Nil(t, none)
}
