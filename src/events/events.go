// Package events defines the lifecycle facts published to the broker and
// the envelope they travel in.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

const Exchange = "visitor_pass_exchange"

type Type string

const (
	TypePassApproved           Type = "PassApproved"
	TypePassRejected           Type = "PassRejected"
	TypePassExpired            Type = "PassExpired"
	TypeUserCreated            Type = "UserCreated"
	TypePasswordResetRequested Type = "PasswordResetRequested"
)

// Event is closed over the types in this file.
type Event interface {
	Type() Type
	event()
}

// PassApproved carries what both the employee and the visitor mails need.
type PassApproved struct {
	PassID        uuid.UUID `json:"pass_id"`
	TenantID      uint      `json:"tenant_id"`
	PassCode      string    `json:"pass_code"`
	VisitorName   string    `json:"visitor_name"`
	VisitorEmail  string    `json:"visitor_email,omitempty"`
	VisitDateTime time.Time `json:"visit_date_time"`
	EmployeeName  string    `json:"employee_name"`
	EmployeeEmail string    `json:"employee_email"`
}

type PassRejected struct {
	PassID        uuid.UUID `json:"pass_id"`
	TenantID      uint      `json:"tenant_id"`
	VisitorName   string    `json:"visitor_name"`
	VisitDateTime time.Time `json:"visit_date_time"`
	EmployeeName  string    `json:"employee_name"`
	EmployeeEmail string    `json:"employee_email"`
	Reason        string    `json:"reason"`
}

type PassExpired struct {
	PassID        uuid.UUID `json:"pass_id"`
	TenantID      uint      `json:"tenant_id"`
	PassCode      string    `json:"pass_code"`
	VisitorName   string    `json:"visitor_name"`
	VisitDateTime time.Time `json:"visit_date_time"`
	EmployeeName  string    `json:"employee_name"`
	EmployeeEmail string    `json:"employee_email"`
	AdminEmail    string    `json:"admin_email,omitempty"`
}

type UserCreated struct {
	UserID   uint   `json:"user_id"`
	TenantID uint   `json:"tenant_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type PasswordResetRequested struct {
	UserID   uint      `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	ResetURL string    `json:"reset_url"`
	Expires  time.Time `json:"expires"`
}

func (PassApproved) Type() Type           { return TypePassApproved }
func (PassRejected) Type() Type           { return TypePassRejected }
func (PassExpired) Type() Type            { return TypePassExpired }
func (UserCreated) Type() Type            { return TypeUserCreated }
func (PasswordResetRequested) Type() Type { return TypePasswordResetRequested }

func (PassApproved) event()           {}
func (PassRejected) event()           {}
func (PassExpired) event()            {}
func (UserCreated) event()            {}
func (PasswordResetRequested) event() {}

type Route struct {
	Topic      string
	RoutingKey string
	Queue      string
}

var Routes = map[Type]Route{
	TypePassApproved:           {Exchange, "pass.event.approved", "pass.approved.queue"},
	TypePassRejected:           {Exchange, "pass.event.rejected", "pass.rejected.queue"},
	TypePassExpired:            {Exchange, "pass.event.expired", "pass.expired.queue"},
	TypeUserCreated:            {Exchange, "user.event.created", "user.created.queue"},
	TypePasswordResetRequested: {Exchange, "password.event.reset", "password.reset.queue"},
}

// QueueFor resolves the queue a routing key is bound to.
func QueueFor(routingKey string) (string, bool) {
	for _, r := range Routes {
		if r.RoutingKey == routingKey {
			return r.Queue, true
		}
	}
	return "", false
}

func Queues() []string {
	queues := make([]string, 0, len(Routes))
	for _, t := range []Type{TypePassApproved, TypePassRejected, TypePassExpired, TypeUserCreated, TypePasswordResetRequested} {
		queues = append(queues, Routes[t].Queue)
	}
	return queues
}

// Envelope is the wire form of an event. ID is stable across redeliveries.
type Envelope struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

func NewEnvelope(e Event, now time.Time) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		ID:         uuid.NewString(),
		Type:       e.Type(),
		OccurredAt: now.UTC(),
		Payload:    payload,
	}, nil
}

func Encode(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func DecodeEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if !gjson.ValidBytes(body) {
		return env, fmt.Errorf("envelope is not valid json")
	}
	if _, known := Routes[Type(gjson.GetBytes(body, "type").String())]; !known {
		return env, fmt.Errorf("unknown event type %q", gjson.GetBytes(body, "type").String())
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return env, err
	}
	return env, nil
}

// Decode returns the concrete event carried by env.
func (env Envelope) Decode() (Event, error) {
	var (
		e   Event
		err error
	)
	switch env.Type {
	case TypePassApproved:
		var v PassApproved
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case TypePassRejected:
		var v PassRejected
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case TypePassExpired:
		var v PassExpired
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case TypeUserCreated:
		var v UserCreated
		err = json.Unmarshal(env.Payload, &v)
		e = v
	case TypePasswordResetRequested:
		var v PasswordResetRequested
		err = json.Unmarshal(env.Payload, &v)
		e = v
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return e, nil
}
