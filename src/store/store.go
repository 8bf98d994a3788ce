// Package store defines the persistence contracts the lifecycle engine and
// the notification dispatcher depend on.
package store

import (
	"context"
	"time"

	"vpass/src/models"
	"vpass/src/types"

	"github.com/google/uuid"
)

// PassStore persists passes under optimistic concurrency. Update is
// conditioned on the Version the caller read; a stale version yields
// types.ErrConcurrentModification and nothing is written.
type PassStore interface {
	Create(ctx context.Context, pass *models.Pass) error
	Get(ctx context.Context, id uuid.UUID) (*models.Pass, error)
	FindByCode(ctx context.Context, tenantID uint, code string) (*models.Pass, error)
	Update(ctx context.Context, pass *models.Pass) error
	ListOverdueApproved(ctx context.Context, now time.Time) ([]*models.Pass, error)
	ListByTenant(ctx context.Context, tenantID uint, status types.PassStatus, page, size int) ([]*models.Pass, error)
	ListByCreator(ctx context.Context, tenantID, userID uint, page, size int) ([]*models.Pass, error)
	// ListVisitingBetween and CountVisitingBetween match passes whose visit
	// time falls in [from, to).
	ListVisitingBetween(ctx context.Context, tenantID uint, from, to time.Time, status types.PassStatus, page, size int) ([]*models.Pass, error)
	CountVisitingBetween(ctx context.Context, tenantID uint, from, to time.Time, status types.PassStatus) (int64, error)
}

// AuditLog is append/update only. UpdateStatus resolves a PENDING row once.
type AuditLog interface {
	Append(ctx context.Context, entry *models.EmailAuditLog) error
	UpdateStatus(ctx context.Context, correlationID uuid.UUID, status types.EmailStatus, failureReason *string, processedAt time.Time) error
	ListByPass(ctx context.Context, passID uuid.UUID) ([]models.EmailAuditLog, error)
}

// UserDirectory resolves the user ids a pass refers to.
type UserDirectory interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetTenantAdmin(ctx context.Context, tenantID uint) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

type TrailStore interface {
	Record(ctx context.Context, entry *models.TrailLog) error
}

// Outbox parks envelopes the broker refused so they can be republished.
// MarkFailed with a zero retryAt abandons the job.
type Outbox interface {
	Park(ctx context.Context, job *models.JobTask) error
	Pending(ctx context.Context, now time.Time, limit int) ([]models.JobTask, error)
	MarkDone(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, retryAt time.Time) error
}
