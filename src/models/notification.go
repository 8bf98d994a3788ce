package models

import (
	"time"
	"vpass/src/types"

	"github.com/google/uuid"
)

// EmailAuditLog is one notification attempt. It is written PENDING before the
// send and resolved to SENT or FAILED afterwards.
type EmailAuditLog struct {
	CorrelationID    uuid.UUID         `gorm:"primarykey;type:uuid" json:"correlation_id"`
	AssociatedPassID *uuid.UUID        `gorm:"type:uuid;index" json:"associated_pass_id,omitempty"`
	EventID          string            `gorm:"index" json:"event_id,omitempty"`
	RecipientAddress string            `gorm:"not null" json:"recipient_address"`
	Subject          string            `json:"subject"`
	Body             string            `gorm:"type:text" json:"-"`
	Status           types.EmailStatus `gorm:"type:text;index" json:"status"`
	FailureReason    *string           `json:"failure_reason,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	ProcessedAt      *time.Time        `json:"processed_at,omitempty"`
}
