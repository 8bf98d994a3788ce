package models

import (
	"time"
	"vpass/src/types"

	"github.com/google/uuid"
)

type Pass struct {
	ID              uuid.UUID        `gorm:"primarykey;type:uuid" json:"id"`
	TenantID        uint             `gorm:"not null;uniqueIndex:idx_tenant_pass_code;<-:create" json:"tenant_id"`
	VisitorName     string           `gorm:"not null" json:"visitor_name"`
	VisitorEmail    string           `json:"visitor_email,omitempty"`
	VisitorPhone    string           `json:"visitor_phone,omitempty"`
	Purpose         string           `json:"purpose,omitempty"`
	VisitDateTime   time.Time        `gorm:"index" json:"visit_date_time"`
	PassCode        string           `gorm:"size:8;not null;uniqueIndex:idx_tenant_pass_code;<-:create" json:"pass_code"`
	Status          types.PassStatus `gorm:"type:text;index;default:'PENDING'" json:"status"`
	RejectionReason *string          `json:"rejection_reason,omitempty"`
	CreatedBy       uint             `gorm:"<-:create" json:"created_by"`
	ApprovedBy      *uint            `json:"approved_by,omitempty"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt     *time.Time       `json:"processed_at,omitempty"`
	Version         uint             `gorm:"not null;default:0" json:"-"`

	Creator  *User `gorm:"foreignKey:created_by" json:"-"`
	Approver *User `gorm:"foreignKey:approved_by" json:"-"`
}

// PassDetails is what an employee supplies when requesting a pass.
type PassDetails struct {
	VisitorName   string
	VisitorEmail  string
	VisitorPhone  string
	Purpose       string
	VisitDateTime time.Time
}
