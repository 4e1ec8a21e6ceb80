package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/google/uuid"

	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/internal/repository"
	"wiyata.com/edurecords/pkg/apperror"
	"wiyata.com/edurecords/pkg/storage"
)

type DocumentUpload struct {
	Reader   io.Reader
	FileName string
	FileType string
	FileSize int64
}

type DocumentService interface {
	GetDocuments(ctx context.Context, pageNumber, pageSize int, searchTerm, category string) (*repository.PagedResult[*model.Document], error)
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*model.Document, error)
	CreateDocument(ctx context.Context, doc *model.Document, upload DocumentUpload) (*model.Document, error)
	UpdateDocument(ctx context.Context, id uuid.UUID, doc *model.Document) (*model.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error)
}

type documentService struct {
	uow   *repository.Factory
	files storage.FileStorage
}

func NewDocumentService(uow *repository.Factory, files storage.FileStorage) (DocumentService, error) {
	if uow == nil {
		return nil, fmt.Errorf("%w: nil unit of work factory", apperror.ErrInvalidArgument)
	}
	return &documentService{uow: uow, files: files}, nil
}

func (s *documentService) GetDocuments(ctx context.Context, pageNumber, pageSize int, searchTerm, category string) (*repository.PagedResult[*model.Document], error) {
	uow := s.uow.New()
	defer uow.Close()

	f := repository.NewFilter()
	if term := strings.TrimSpace(searchTerm); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		f.Where("(LOWER(title) LIKE ? OR LOWER(description) LIKE ? OR LOWER(file_name) LIKE ?)", pattern, pattern, pattern)
	}
	if category != "" {
		f.Where("category = ?", category)
	}

	return uow.Documents.GetPaged(ctx, pageNumber, pageSize, f)
}

func (s *documentService) GetDocumentByID(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	uow := s.uow.New()
	defer uow.Close()

	return uow.Documents.GetByID(ctx, id)
}

func (s *documentService) CreateDocument(ctx context.Context, doc *model.Document, upload DocumentUpload) (*model.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", apperror.ErrInvalidArgument)
	}

	var violations []string
	if strings.TrimSpace(doc.Title) == "" {
		violations = append(violations, "title is required")
	}
	if upload.Reader == nil {
		violations = append(violations, "file is required")
	}
	if len(violations) > 0 {
		return nil, apperror.NewValidationError(violations)
	}

	if s.files == nil {
		return nil, fmt.Errorf("file storage is not configured")
	}

	fileURL, err := s.files.UploadFile(ctx, upload.Reader, "documents", upload.FileName)
	if err != nil {
		return nil, err
	}

	doc.FileURL = fileURL
	doc.FileName = upload.FileName
	doc.FileType = upload.FileType
	doc.FileSize = upload.FileSize

	uow := s.uow.New()
	defer uow.Close()

	if _, err := uow.Documents.Add(ctx, doc); err != nil {
		return nil, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	return doc, nil
}

func (s *documentService) UpdateDocument(ctx context.Context, id uuid.UUID, doc *model.Document) (*model.Document, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", apperror.ErrInvalidArgument)
	}
	if strings.TrimSpace(doc.Title) == "" {
		return nil, apperror.NewValidationError([]string{"title is required"})
	}

	uow := s.uow.New()
	defer uow.Close()

	existing, err := uow.Documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}

	// Metadata only; the stored file is immutable.
	existing.Title = doc.Title
	existing.Description = doc.Description
	existing.Category = doc.Category

	if _, err := uow.Documents.Update(ctx, existing); err != nil {
		return nil, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return nil, err
	}

	return existing, nil
}

func (s *documentService) DeleteDocument(ctx context.Context, id uuid.UUID) (bool, error) {
	uow := s.uow.New()
	defer uow.Close()

	existing, err := uow.Documents.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	if err := uow.Documents.SoftDelete(ctx, existing); err != nil {
		return false, err
	}
	if _, err := uow.SaveChanges(ctx); err != nil {
		return false, err
	}

	// The row is only soft-deleted; keep the stored file so the record can
	// be restored by hand if needed.
	log.Printf("document %s soft-deleted, file retained at %s", id, existing.FileURL)
	return true, nil
}
