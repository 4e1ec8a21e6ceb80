package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"wiyata.com/edurecords/internal/model"
	"wiyata.com/edurecords/pkg/apperror"
)

type pendingOp func(tx *gorm.DB) (int64, error)

// UnitOfWork coordinates every repository sharing one persistence session.
// Mutations staged through its repositories are flushed together by
// SaveChanges, in staging order, inside a single transaction.
//
// A UnitOfWork belongs to one request and must not be shared across
// concurrent operations.
type UnitOfWork struct {
	db      *gorm.DB
	tx      *gorm.DB
	pending []pendingOp
	closed  bool
	clock   func() time.Time

	Students      *Repository[model.Student, *model.Student]
	Announcements *Repository[model.Announcement, *model.Announcement]
	Attachments   *Repository[model.AnnouncementAttachment, *model.AnnouncementAttachment]
	Documents     *Repository[model.Document, *model.Document]
	Users         *Repository[model.User, *model.User]
}

// Factory creates one UnitOfWork per request over a shared gorm connection
// pool.
type Factory struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db, clock: time.Now}
}

// WithClock overrides the wall-clock source. Used by tests to control
// timestamp assignment.
func (f *Factory) WithClock(clock func() time.Time) *Factory {
	f.clock = clock
	return f
}

// New constructs a UnitOfWork with all repositories built eagerly, so there
// is no hidden lazy state.
func (f *Factory) New() *UnitOfWork {
	u := &UnitOfWork{db: f.db, clock: f.clock}
	u.Students = newRepository[model.Student](u)
	u.Announcements = newRepository[model.Announcement](u)
	u.Attachments = newRepository[model.AnnouncementAttachment](u)
	u.Documents = newRepository[model.Document](u)
	u.Users = newRepository[model.User](u)
	return u
}

// conn returns the open explicit transaction when there is one, so reads and
// staged writes inside a transaction observe each other.
func (u *UnitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWork) stage(op pendingOp) {
	u.pending = append(u.pending, op)
}

// SaveChanges flushes all staged mutations in staging order and returns the
// number of affected rows. Without an explicit transaction the flush runs in
// its own transaction; with one, it applies onto the open transaction and
// becomes durable at commit. Failures are propagated unchanged and never
// retried.
func (u *UnitOfWork) SaveChanges(ctx context.Context) (int64, error) {
	ops := u.pending
	u.pending = nil

	var affected int64
	run := func(tx *gorm.DB) error {
		for _, op := range ops {
			n, err := op(tx.WithContext(ctx))
			if err != nil {
				return err
			}
			affected += n
		}
		return nil
	}

	if u.tx != nil {
		if err := run(u.tx); err != nil {
			return 0, err
		}
		return affected, nil
	}

	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return run(tx)
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

// BeginTransaction opens an explicit transaction scope. Transactions do not
// nest: beginning while one is open is a usage error.
func (u *UnitOfWork) BeginTransaction(ctx context.Context) error {
	if u.tx != nil {
		return apperror.ErrTransactionActive
	}

	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

// CommitTransaction commits the open transaction. A failed commit is
// followed by an automatic rollback before the failure is returned, so the
// transaction handle is never left open on any exit path.
func (u *UnitOfWork) CommitTransaction(ctx context.Context) error {
	if u.tx == nil {
		return apperror.ErrNoTransaction
	}

	if err := u.tx.Commit().Error; err != nil {
		u.tx.Rollback()
		u.tx = nil
		return err
	}
	u.tx = nil
	return nil
}

// RollbackTransaction rolls back and releases the open transaction.
func (u *UnitOfWork) RollbackTransaction(ctx context.Context) error {
	if u.tx == nil {
		return apperror.ErrNoTransaction
	}

	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Close releases the unit of work: any open transaction is rolled back and
// staged-but-unsaved mutations are discarded. Safe to call more than once.
// The underlying connection pool is shared and stays open.
func (u *UnitOfWork) Close() error {
	if u.closed {
		return nil
	}
	u.closed = true
	u.pending = nil

	if u.tx != nil {
		err := u.tx.Rollback().Error
		u.tx = nil
		return err
	}
	return nil
}
