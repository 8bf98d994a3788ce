package models

import (
	"time"
	"vpass/src/types"

	"github.com/google/uuid"
)

// JobTask holds an event envelope that could not be handed to the broker.
// The republisher drains pending rows.
type JobTask struct {
	ID         uuid.UUID       `gorm:"primarykey;type:uuid" json:"id"`
	Name       string          `json:"name"`
	Topic      string          `json:"topic"`
	RoutingKey string          `json:"routing_key"`
	Payload    []byte          `gorm:"type:bytea" json:"-"`
	Status     types.JobStatus `gorm:"type:text;index;default:'pending'" json:"status"`
	Attempts   int             `json:"attempts"`
	LastError  *string         `json:"last_error,omitempty"`
	RunsAt     time.Time       `gorm:"index" json:"runs_at"`

	types.Timestamps
}
