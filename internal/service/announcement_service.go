package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/repository"
	"wiyata.com/edurecords/pkg/apperror"
	"wiyata.com/edurecords/pkg/storage"
)

type AttachmentUpload struct {
	Reader   io.Reader
	FileName string
	FileType string
	FileSize int64
}

type AnnouncementService interface {
	GetAnnouncements(ctx context.Context, pageNumber, pageSize int, searchTerm, category string, pinnedOnly bool) (*repository.PagedResult[*model.Announcement], error)
	GetAnnouncementByID(ctx context.Context, id uuid.UUID) (*model.Announcement, error)
	CreateAnnouncement(ctx context.Context, a *model.Announcement) (*model.Announcement, error)
	UpdateAnnouncement(ctx context.Context, id uuid.UUID, a *model.Announcement) (*model.Announcement, error)
	DeleteAnnouncement(ctx context.Context, id uuid.UUID) (bool, error)
	AddAttachment(ctx context.Context, announcementID uuid.UUID, upload AttachmentUpload) (*model.AnnouncementAttachment, error)
	RemoveAttachment(ctx context.Context, attachmentID uuid.UUID) (bool, error)
}

type announcementService struct {
	uow    *repository.Factory
	files  storage.FileStorage
	search SearchService
}

// NewAnnouncementService builds the announcement service. File storage and
// search are optional; without them attachments cannot be uploaded and
// announcements are not indexed.
func NewAnnouncementService(uow *repository.Factory, files storage.FileStorage, search SearchService) (AnnouncementService, error) {
	if uow == nil {
		return nil, fmt.Errorf("%w: nil unit of work factory", apperror.ErrInvalidArgument)
	}
	return &announcementService{uow: uow, files: files, search: search}, nil
}

func (s *announcementService) GetAnnouncements(ctx context.Context, pageNumber, pageSize int, searchTerm, category string, pinnedOnly bool) (*repository.PagedResult[*model.Announcement], error) {
	uow := s.uow.New()
	defer uow.Close()

	f := repository.NewFilter()
	if term := strings.TrimSpace(searchTerm); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		f.Where("(LOWER(title) LIKE ? OR LOWER(content) LIKE ?)", pattern, pattern)
	}
	if category != "" {
		f.Where("category = ?", category)
	}
	if pinnedOnly {
		f.Where("is_pinned = ?", true)
	}

	return uow.Announcements.GetPaged(ctx, pageNumber, pageSize, f, "is_pinned DESC", "created_at DESC")
}

func (s *announcementService) GetAnnouncementByID(ctx context.Context, id uuid.UUID) (*model.Announcement, error) {
	uow := s.uow.New()
	defer uow.Close()

	a, err := uow.Announcements.GetByID(ctx, id)
	if err != nil || a == nil {
		return a, err
	}

	attachments, err := uow.Attachments.Find(ctx, repository.NewFilter().Where("announcement_id = ?", id))
	if err != nil {
		return nil, err
	}
	a.Attachments = make([]model.AnnouncementAttachment, 0, len(attachments))
	for _, att := range attachments {
		a.Attachments = append(a.Attachments, *att)
	}

	return a, nil
}

func (s *announcementService) CreateAnnouncement(ctx context.Context, a *model.Announcement) (*model.Announcement, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil announcement", apperror.ErrInvalidArgument)
	}
	if err := validateAnnouncement(a); err != nil {
		return nil, err
	}

	uow := s.uow.New()
	defer uow.Close()

	if a.PublishedAt == nil {
		now := time.Now()
		a.PublishedAt = &now
	}

	if _, err := uow.Announcements.Add(ctx, a); err != nil {
		return nil, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	s.index(a)
	return a, nil
}

func (s *announcementService) UpdateAnnouncement(ctx context.Context, id uuid.UUID, a *model.Announcement) (*model.Announcement, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil announcement", apperror.ErrInvalidArgument)
	}
	if err := validateAnnouncement(a); err != nil {
		return nil, err
	}

	uow := s.uow.New()
	defer uow.Close()

	existing, err := uow.Announcements.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	existing.Title = a.Title
	existing.Content = a.Content
	existing.Category = a.Category
	existing.IsPinned = a.IsPinned

	if _, err := uow.Announcements.Update(ctx, existing); err != nil {
		return nil, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	s.index(existing)
	return existing, nil
}

func (s *announcementService) DeleteAnnouncement(ctx context.Context, id uuid.UUID) (bool, error) {
	uow := s.uow.New()
	defer uow.Close()

	existing, err := uow.Announcements.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if err := uow.Announcements.SoftDelete(ctx, existing); err != nil {
		return false, err
	}

	// Attachments follow their announcement out of view.
	attachments, err := uow.Attachments.Find(ctx, repository.NewFilter().Where("announcement_id = ?", id))
	if err != nil {
		return false, err
	}
	for _, att := range attachments {
		if err := uow.Attachments.SoftDelete(ctx, att); err != nil {
			return false, err
		}
	}

	if _, err := uow.SaveChanges(ctx); err != nil {
		return false, err
	}

	if s.search != nil {
		if err := s.search.DeleteAnnouncement(id.String()); err != nil {
			log.Printf("failed to deindex announcement %s: %v", id, err)
		}
	}
	return true, nil
}

func (s *announcementService) AddAttachment(ctx context.Context, announcementID uuid.UUID, upload AttachmentUpload) (*model.AnnouncementAttachment, error) {
	if upload.Reader == nil {
		return nil, fmt.Errorf("%w: nil attachment reader", apperror.ErrInvalidArgument)
	}
	if s.files == nil {
		return nil, fmt.Errorf("file storage is not configured")
	}

	uow := s.uow.New()
	defer uow.Close()

	announcement, err := uow.Announcements.GetByID(ctx, announcementID)
	if err != nil {
		return nil, err
	}
	if announcement == nil {
		return nil, apperror.ErrNotFound
	}

	fileURL, err := s.files.UploadFile(ctx, upload.Reader, "announcements", upload.FileName)
	if err != nil {
		return nil, err
	}

	attachment := &model.AnnouncementAttachment{
		AnnouncementID: announcementID,
		FileURL:        fileURL,
		FileName:       upload.FileName,
		FileType:       upload.FileType,
		FileSize:       upload.FileSize,
	}

	if _, err := uow.Attachments.Add(ctx, attachment); err != nil {
		return nil, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	return attachment, nil
}

func (s *announcementService) RemoveAttachment(ctx context.Context, attachmentID uuid.UUID) (bool, error) {
	uow := s.uow.New()
	defer uow.Close()

	attachment, err := uow.Attachments.GetByID(ctx, attachmentID)
	if err != nil {
		return false, err
	}
	if attachment == nil {
		return false, nil
	}

	if err := uow.Attachments.SoftDelete(ctx, attachment); err != nil {
		return false, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return false, err
	}

	if s.files != nil {
		if err := s.files.DeleteFile(ctx, attachment.FileURL); err != nil {
			log.Printf("failed to delete attachment file %s: %v", attachment.FileURL, err)
		}
	}
	return true, nil
}

func (s *announcementService) index(a *model.Announcement) {
	if s.search == nil {
		return
	}
	if err := s.search.IndexAnnouncement(a); err != nil {
		log.Printf("failed to index announcement %s: %v", a.ID, err)
	}
}

func validateAnnouncement(a *model.Announcement) error {
	var violations []string
	if strings.TrimSpace(a.Title) == "" {
		violations = append(violations, "title is required")
	}
	if strings.TrimSpace(a.Content) == "" {
		violations = append(violations, "content is required")
	}
	if len(violations) > 0 {
		return apperror.NewValidationError(violations)
	}
	return nil
}
