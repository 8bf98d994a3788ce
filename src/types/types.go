package types

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type Timestamps struct {
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at,omitempty"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at,omitempty"`
}

type JSONB map[string]any

func (a JSONB) Value() (driver.Value, error) {
	valueString, err := json.Marshal(a)
	return string(valueString), err
}
func (a *JSONB) Scan(value any) error {
	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	return nil
}

type PassStatus string

const (
	PASS_PENDING     PassStatus = "PENDING"
	PASS_APPROVED    PassStatus = "APPROVED"
	PASS_REJECTED    PassStatus = "REJECTED"
	PASS_CHECKED_IN  PassStatus = "CHECKED_IN"
	PASS_CHECKED_OUT PassStatus = "CHECKED_OUT"
	PASS_EXPIRED     PassStatus = "EXPIRED"
)

var passTransitions = map[PassStatus][]PassStatus{
	PASS_PENDING:    {PASS_APPROVED, PASS_REJECTED},
	PASS_APPROVED:   {PASS_CHECKED_IN, PASS_EXPIRED},
	PASS_CHECKED_IN: {PASS_CHECKED_OUT},
}

// CanTransitionTo reports whether next is a legal edge from s.
func (s PassStatus) CanTransitionTo(next PassStatus) bool {
	for _, allowed := range passTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PassStatus) IsTerminal() bool {
	return len(passTransitions[s]) == 0
}

func (s PassStatus) Valid() bool {
	switch s {
	case PASS_PENDING, PASS_APPROVED, PASS_REJECTED, PASS_CHECKED_IN, PASS_CHECKED_OUT, PASS_EXPIRED:
		return true
	}
	return false
}

type EmailStatus string

const (
	EMAIL_PENDING EmailStatus = "PENDING"
	EMAIL_SENT    EmailStatus = "SENT"
	EMAIL_FAILED  EmailStatus = "FAILED"
)

type Role string

const (
	ROLE_ADMIN    Role = "ADMIN"
	ROLE_EMPLOYEE Role = "EMPLOYEE"
	ROLE_APPROVER Role = "APPROVER"
	ROLE_SECURITY Role = "SECURITY"
)

type TrailAction string

const (
	TRAIL_PASS_CREATED     TrailAction = "PASS_CREATED"
	TRAIL_PASS_APPROVED    TrailAction = "PASS_APPROVED"
	TRAIL_PASS_REJECTED    TrailAction = "PASS_REJECTED"
	TRAIL_PASS_CHECKED_IN  TrailAction = "PASS_CHECKED_IN"
	TRAIL_PASS_CHECKED_OUT TrailAction = "PASS_CHECKED_OUT"
	TRAIL_PASS_EXPIRED     TrailAction = "PASS_EXPIRED"
)

type JobStatus string

const (
	JOB_PENDING JobStatus = "pending"
	JOB_DONE    JobStatus = "done"
	JOB_FAILED  JobStatus = "failed"
)

type SimpleRequestParams struct {
	ID string `uri:"id" binding:"required,uuid"`
}

type CreatePassRequestBody struct {
	VisitorName   string `json:"visitor_name" binding:"required"`
	VisitorEmail  string `json:"visitor_email,omitempty" binding:"omitempty,email"`
	VisitorPhone  string `json:"visitor_phone" binding:"required"`
	Purpose       string `json:"purpose" binding:"required"`
	VisitDateTime string `json:"visit_date_time" binding:"required,visitdate" time_format:"2006-01-02 15:04:05 -07:00"`
}

type RejectPassRequestBody struct {
	Reason string `json:"reason"`
}

type CreateUserRequestBody struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
	Role  Role   `json:"role" binding:"required,oneof=ADMIN EMPLOYEE APPROVER SECURITY"`
}

type PasswordResetRequestBody struct {
	Email string `json:"email" binding:"required,email"`
}

type PageQuery struct {
	Page int `form:"page,default=0" binding:"min=0,max=10000"`
	Size int `form:"size,default=20" binding:"min=1,max=100"`
}

type ListPassesQuery struct {
	Status PassStatus `form:"status"`
	PageQuery
}
