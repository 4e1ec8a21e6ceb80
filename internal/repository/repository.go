package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/pkg/apperror"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// PagedResult is one page of a filtered query plus the total match count.
// TotalCount is computed before paging, so it reflects all matches regardless
// of the requested page.
type PagedResult[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	PageNumber int   `json:"page_number"`
	PageSize   int   `json:"page_size"`
}

// TotalPages derives the page count from TotalCount and PageSize.
func (p *PagedResult[T]) TotalPages() int {
	if p.PageSize <= 0 {
		return 0
	}
	return int((p.TotalCount + int64(p.PageSize) - 1) / int64(p.PageSize))
}

// Repository provides CRUD, filtering and paging over one entity type. All
// mutations are staged on the owning UnitOfWork and become durable only when
// its SaveChanges succeeds.
//
// Every read excludes soft-deleted records; SoftDeleteByID is the one
// operation that bypasses that filter to locate its target row.
type Repository[T any, P interface {
	*T
	model.Entity
}] struct {
	uow *UnitOfWork
}

func newRepository[T any, P interface {
	*T
	model.Entity
}](uow *UnitOfWork) *Repository[T, P] {
	return &Repository[T, P]{uow: uow}
}

func (r *Repository[T, P]) query(ctx context.Context, includeDeleted bool) *gorm.DB {
	q := r.uow.conn().WithContext(ctx).Model(new(T))
	if !includeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	return q
}

// GetByID returns the entity with the given id, or nil when absent.
func (r *Repository[T, P]) GetByID(ctx context.Context, id uuid.UUID) (P, error) {
	var e T
	err := r.query(ctx, false).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// GetAll returns every matching entity. It materializes the whole set, so it
// is intended for small result sets such as statistics and export.
func (r *Repository[T, P]) GetAll(ctx context.Context, f *Filter) ([]P, error) {
	var items []P
	if err := f.apply(r.query(ctx, false)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// GetPaged returns one page of the filtered set. Page number below 1 is
// clamped to 1; page size is clamped to [defaultPageSize, maxPageSize].
// Without an explicit ordering, results are newest-first by creation time so
// pagination stays deterministic.
func (r *Repository[T, P]) GetPaged(ctx context.Context, pageNumber, pageSize int, f *Filter, orderBy ...string) (*PagedResult[P], error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	q := f.apply(r.query(ctx, false))

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	if len(orderBy) == 0 {
		q = q.Order("created_at DESC")
	} else {
		for _, o := range orderBy {
			q = q.Order(o)
		}
	}

	var items []P
	offset := (pageNumber - 1) * pageSize
	if err := q.Offset(offset).Limit(pageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &PagedResult[P]{
		Items:      items,
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}, nil
}

// Find returns every entity matching the filter.
func (r *Repository[T, P]) Find(ctx context.Context, f *Filter) ([]P, error) {
	return r.GetAll(ctx, f)
}

// FindFirst returns the first entity matching the filter, or nil when none do.
func (r *Repository[T, P]) FindFirst(ctx context.Context, f *Filter) (P, error) {
	var e T
	err := f.apply(r.query(ctx, false)).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Any reports whether at least one entity matches the filter.
func (r *Repository[T, P]) Any(ctx context.Context, f *Filter) (bool, error) {
	count, err := r.Count(ctx, f)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of matching entities. A nil filter counts all
// non-deleted entities.
func (r *Repository[T, P]) Count(ctx context.Context, f *Filter) (int64, error) {
	var count int64
	if err := f.apply(r.query(ctx, false)).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Add stages the entity for insertion. A fresh identifier and both
// timestamps are assigned here; caller-supplied values are overwritten. The
// row is not durable until SaveChanges succeeds.
func (r *Repository[T, P]) Add(ctx context.Context, entity P) (P, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil entity", apperror.ErrInvalidArgument)
	}

	now := r.uow.clock()
	b := entity.Base()
	b.ID = uuid.New()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.IsDeleted = false
	b.DeletedAt = nil

	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Create(entity)
		return res.RowsAffected, res.Error
	})
	return entity, nil
}

// AddRange stages a batch of entities, assigning each a fresh identifier and
// timestamps.
func (r *Repository[T, P]) AddRange(ctx context.Context, entities []P) error {
	for _, e := range entities {
		if e == nil {
			return fmt.Errorf("%w: nil entity in batch", apperror.ErrInvalidArgument)
		}
	}

	now := r.uow.clock()
	for _, e := range entities {
		b := e.Base()
		b.ID = uuid.New()
		b.CreatedAt = now
		b.UpdatedAt = now
		b.IsDeleted = false
		b.DeletedAt = nil
	}

	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Create(entities)
		return res.RowsAffected, res.Error
	})
	return nil
}

// Update stages the entity for a full update. UpdatedAt is refreshed;
// CreatedAt is left untouched.
func (r *Repository[T, P]) Update(ctx context.Context, entity P) (P, error) {
	if entity == nil {
		return nil, fmt.Errorf("%w: nil entity", apperror.ErrInvalidArgument)
	}

	entity.Base().UpdatedAt = r.uow.clock()

	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Save(entity)
		return res.RowsAffected, res.Error
	})
	return entity, nil
}

// Delete stages hard removal of the entity's row.
func (r *Repository[T, P]) Delete(ctx context.Context, entity P) error {
	if entity == nil {
		return fmt.Errorf("%w: nil entity", apperror.ErrInvalidArgument)
	}

	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Delete(entity)
		return res.RowsAffected, res.Error
	})
	return nil
}

// DeleteByID stages hard removal of the row with the given id.
func (r *Repository[T, P]) DeleteByID(ctx context.Context, id uuid.UUID) error {
	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Delete(new(T), "id = ?", id)
		return res.RowsAffected, res.Error
	})
	return nil
}

// SoftDelete marks the entity logically absent: IsDeleted is set, DeletedAt
// and UpdatedAt are stamped, and the row is retained. Default reads will no
// longer return it.
func (r *Repository[T, P]) SoftDelete(ctx context.Context, entity P) error {
	if entity == nil {
		return fmt.Errorf("%w: nil entity", apperror.ErrInvalidArgument)
	}

	now := r.uow.clock()
	b := entity.Base()
	b.IsDeleted = true
	b.DeletedAt = &now
	b.UpdatedAt = now

	r.uow.stage(func(tx *gorm.DB) (int64, error) {
		res := tx.Model(entity).Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
			"updated_at": now,
		})
		return res.RowsAffected, res.Error
	})
	return nil
}

// SoftDeleteByID looks up the row by id ignoring the soft-delete filter, so
// an already-deleted row is found and re-marking it succeeds idempotently.
func (r *Repository[T, P]) SoftDeleteByID(ctx context.Context, id uuid.UUID) error {
	var e T
	err := r.query(ctx, true).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.ErrNotFound
	}
	if err != nil {
		return err
	}
	return r.SoftDelete(ctx, &e)
}
