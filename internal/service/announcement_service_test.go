package service_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

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

// fakeStorage records uploads in memory.
type fakeStorage struct {
	uploads []string
	deleted []string
}

func (f *fakeStorage) UploadFile(ctx context.Context, r io.Reader, folder, fileName string) (string, error) {
	url := fmt.Sprintf("https://files.test/%s/%s", folder, fileName)
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeStorage) DeleteFile(ctx context.Context, fileURL string) error {
	f.deleted = append(f.deleted, fileURL)
	return nil
}

func newAnnouncementService(t *testing.T) (service.AnnouncementService, *fakeStorage) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Announcement{}, &model.AnnouncementAttachment{}))

	files := &fakeStorage{}
	svc, err := service.NewAnnouncementService(repository.NewFactory(db), files, nil)
	require.NoError(t, err)
	return svc, files
}

func TestCreateAnnouncementValidates(t *testing.T) {
	svc, _ := newAnnouncementService(t)
	ctx := context.Background()

	_, err := svc.CreateAnnouncement(ctx, &model.Announcement{})

	var verr *apperror.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Violations, "title is required")
	assert.Contains(t, verr.Violations, "content is required")
}

func TestCreateAnnouncementStampsPublishedAt(t *testing.T) {
	svc, _ := newAnnouncementService(t)
	ctx := context.Background()

	a, err := svc.CreateAnnouncement(ctx, &model.Announcement{Title: "Welcome", Content: "Term starts Monday."})
	require.NoError(t, err)
	require.NotNil(t, a.PublishedAt)
}

func TestPinnedAnnouncementsListFirst(t *testing.T) {
	svc, _ := newAnnouncementService(t)
	ctx := context.Background()

	_, err := svc.CreateAnnouncement(ctx, &model.Announcement{Title: "Regular", Content: "body"})
	require.NoError(t, err)
	_, err = svc.CreateAnnouncement(ctx, &model.Announcement{Title: "Pinned", Content: "body", IsPinned: true})
	require.NoError(t, err)

	page, err := svc.GetAnnouncements(ctx, 1, 10, "", "", false)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Pinned", page.Items[0].Title)

	page, err = svc.GetAnnouncements(ctx, 1, 10, "", "", true)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Pinned", page.Items[0].Title)
}

func TestDeleteAnnouncementHidesAttachments(t *testing.T) {
	svc, files := newAnnouncementService(t)
	ctx := context.Background()

	a, err := svc.CreateAnnouncement(ctx, &model.Announcement{Title: "Trip", Content: "Forms attached."})
	require.NoError(t, err)

	att, err := svc.AddAttachment(ctx, a.ID, service.AttachmentUpload{
		Reader:   bytes.NewReader([]byte("pdf")),
		FileName: "form.pdf",
		FileType: "application/pdf",
		FileSize: 3,
	})
	require.NoError(t, err)
	require.Len(t, files.uploads, 1)

	got, err := svc.GetAnnouncementByID(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, got.Attachments, 1)
	assert.Equal(t, att.ID, got.Attachments[0].ID)

	deleted, err := svc.DeleteAnnouncement(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = svc.GetAnnouncementByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// Attachment rows are hidden too, so removing one again is a no-op.
	removed, err := svc.RemoveAttachment(ctx, att.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRemoveAttachmentDeletesFile(t *testing.T) {
	svc, files := newAnnouncementService(t)
	ctx := context.Background()

	a, err := svc.CreateAnnouncement(ctx, &model.Announcement{Title: "Trip", Content: "Forms attached."})
	require.NoError(t, err)

	att, err := svc.AddAttachment(ctx, a.ID, service.AttachmentUpload{
		Reader:   bytes.NewReader([]byte("pdf")),
		FileName: "form.pdf",
	})
	require.NoError(t, err)

	removed, err := svc.RemoveAttachment(ctx, att.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	require.Len(t, files.deleted, 1)
	assert.Equal(t, att.FileURL, files.deleted[0])
}
