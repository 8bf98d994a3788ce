package models

import (
	"time"
	"vpass/src/types"

	"github.com/google/uuid"
)

// TrailLog records who moved a pass and when.
type TrailLog struct {
	ID        uuid.UUID         `gorm:"primarykey;type:uuid" json:"id"`
	Action    types.TrailAction `gorm:"type:text" json:"action"`
	ActorID   *uint             `json:"actor_id,omitempty"`
	TenantID  uint              `gorm:"index" json:"tenant_id"`
	PassID    uuid.UUID         `gorm:"type:uuid;index" json:"pass_id"`
	Details   types.JSONB       `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
