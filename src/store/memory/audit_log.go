package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vpass/src/models"
	"vpass/src/types"

	"github.com/google/uuid"
)

type AuditLog struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]models.EmailAuditLog
}

func NewAuditLog() *AuditLog {
	return &AuditLog{rows: make(map[uuid.UUID]models.EmailAuditLog)}
}

func (a *AuditLog) Append(_ context.Context, entry *models.EmailAuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.rows[entry.CorrelationID]; exists {
		return fmt.Errorf("audit entry %s already exists", entry.CorrelationID)
	}
	a.rows[entry.CorrelationID] = *entry
	return nil
}

func (a *AuditLog) UpdateStatus(_ context.Context, correlationID uuid.UUID, status types.EmailStatus, failureReason *string, processedAt time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.rows[correlationID]
	if !ok {
		return fmt.Errorf("audit entry %s: %w", correlationID, types.ErrNotFound)
	}
	if row.Status != types.EMAIL_PENDING {
		return fmt.Errorf("audit entry %s already %s: %w", correlationID, row.Status, types.ErrConcurrentModification)
	}
	row.Status = status
	row.FailureReason = failureReason
	row.ProcessedAt = &processedAt
	a.rows[correlationID] = row
	return nil
}

func (a *AuditLog) ListByPass(_ context.Context, passID uuid.UUID) ([]models.EmailAuditLog, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := []models.EmailAuditLog{}
	for _, row := range a.rows {
		if row.AssociatedPassID != nil && *row.AssociatedPassID == passID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// All returns every row, oldest first.
func (a *AuditLog) All() []models.EmailAuditLog {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]models.EmailAuditLog, 0, len(a.rows))
	for _, row := range a.rows {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
