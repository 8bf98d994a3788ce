// Package lifecycle applies visitor pass state transitions and emits the
// events that drive notifications.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vpass/src/events"
	"vpass/src/guard"
	"vpass/src/models"
	"vpass/src/store"
	"vpass/src/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DashboardNotifier signals that a tenant's dashboard data changed. Calls
// are fire-and-forget.
type DashboardNotifier interface {
	NotifyDashboard(tenantID uint)
}

type noopDashboard struct{}

func (noopDashboard) NotifyDashboard(uint) {}

var errNoActor = fmt.Errorf("no actor credential: %w", types.ErrTenantAccessDenied)

type Engine struct {
	passes    store.PassStore
	users     store.UserDirectory
	trail     store.TrailStore
	publisher events.Publisher
	guard     guard.Guard
	dashboard DashboardNotifier
	tracer    trace.Tracer
	now       func() time.Time
	newCode   func() (string, error)
}

type Option func(*Engine)

func WithTrail(t store.TrailStore) Option {
	return func(e *Engine) { e.trail = t }
}

func WithDashboard(d DashboardNotifier) Option {
	return func(e *Engine) {
		if d != nil {
			e.dashboard = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithCodeGenerator(gen func() (string, error)) Option {
	return func(e *Engine) { e.newCode = gen }
}

func New(passes store.PassStore, users store.UserDirectory, publisher events.Publisher, g guard.Guard, opts ...Option) *Engine {
	e := &Engine{
		passes:    passes,
		users:     users,
		publisher: publisher,
		guard:     g,
		dashboard: noopDashboard{},
		tracer:    otel.Tracer("vpass/lifecycle"),
		now:       time.Now,
		newCode:   NewPassCode,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Create(ctx context.Context, actor *types.Claims, details models.PassDetails) (_ *models.Pass, err error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.Create")
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, errNoActor
	}
	if err := e.authorize(ctx, actor, actor.TenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(details.VisitorName) == "" {
		return nil, fmt.Errorf("visitor name is required: %w", types.ErrValidation)
	}

	var pass *models.Pass
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := e.newCode()
		if err != nil {
			return nil, err
		}
		pass = &models.Pass{
			ID:            uuid.New(),
			TenantID:      actor.TenantID,
			VisitorName:   details.VisitorName,
			VisitorEmail:  details.VisitorEmail,
			VisitorPhone:  details.VisitorPhone,
			Purpose:       details.Purpose,
			VisitDateTime: details.VisitDateTime,
			PassCode:      code,
			Status:        types.PASS_PENDING,
			CreatedBy:     actor.UserID,
			CreatedAt:     e.now().UTC(),
		}
		err = e.passes.Create(ctx, pass)
		if err == nil {
			break
		}
		if !errors.Is(err, types.ErrDuplicatePassCode) || attempt == maxCodeAttempts {
			return nil, err
		}
		log.Printf("[Lifecycle] pass code collision on tenant %d, retrying (%d)", actor.TenantID, attempt)
	}

	span.SetAttributes(attribute.String("pass.id", pass.ID.String()))
	e.after(ctx, pass, types.TRAIL_PASS_CREATED, &actor.UserID, nil)
	return pass, nil
}

func (e *Engine) Approve(ctx context.Context, actor *types.Claims, passID uuid.UUID) (_ *models.Pass, err error) {
	ctx, span := e.startSpan(ctx, "lifecycle.Approve", passID)
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, errNoActor
	}
	pass, err := e.transition(ctx, actor, passID, types.PASS_APPROVED, func(p *models.Pass, now time.Time) {
		p.ApprovedBy = &actor.UserID
		p.ProcessedAt = &now
	})
	if err != nil {
		return nil, err
	}
	e.after(ctx, pass, types.TRAIL_PASS_APPROVED, &actor.UserID, nil)

	employee := e.creator(ctx, pass)
	e.publish(ctx, events.PassApproved{
		PassID:        pass.ID,
		TenantID:      pass.TenantID,
		PassCode:      pass.PassCode,
		VisitorName:   pass.VisitorName,
		VisitorEmail:  pass.VisitorEmail,
		VisitDateTime: pass.VisitDateTime,
		EmployeeName:  employee.Name,
		EmployeeEmail: employee.Email,
	})
	return pass, nil
}

func (e *Engine) Reject(ctx context.Context, actor *types.Claims, passID uuid.UUID, reason string) (_ *models.Pass, err error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, types.ErrReasonRequired
	}
	if actor == nil {
		return nil, errNoActor
	}
	ctx, span := e.startSpan(ctx, "lifecycle.Reject", passID)
	defer func() { endSpan(span, err) }()

	pass, err := e.transition(ctx, actor, passID, types.PASS_REJECTED, func(p *models.Pass, now time.Time) {
		p.RejectionReason = &reason
		p.ApprovedBy = &actor.UserID
		p.ProcessedAt = &now
	})
	if err != nil {
		return nil, err
	}
	e.after(ctx, pass, types.TRAIL_PASS_REJECTED, &actor.UserID, types.JSONB{"reason": reason})

	employee := e.creator(ctx, pass)
	e.publish(ctx, events.PassRejected{
		PassID:        pass.ID,
		TenantID:      pass.TenantID,
		VisitorName:   pass.VisitorName,
		VisitDateTime: pass.VisitDateTime,
		EmployeeName:  employee.Name,
		EmployeeEmail: employee.Email,
		Reason:        reason,
	})
	return pass, nil
}

func (e *Engine) CheckIn(ctx context.Context, actor *types.Claims, passID uuid.UUID) (_ *models.Pass, err error) {
	ctx, span := e.startSpan(ctx, "lifecycle.CheckIn", passID)
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, errNoActor
	}
	pass, err := e.transition(ctx, actor, passID, types.PASS_CHECKED_IN, nil)
	if err != nil {
		return nil, err
	}
	e.after(ctx, pass, types.TRAIL_PASS_CHECKED_IN, &actor.UserID, nil)
	return pass, nil
}

func (e *Engine) CheckOut(ctx context.Context, actor *types.Claims, passID uuid.UUID) (_ *models.Pass, err error) {
	ctx, span := e.startSpan(ctx, "lifecycle.CheckOut", passID)
	defer func() { endSpan(span, err) }()

	if actor == nil {
		return nil, errNoActor
	}
	pass, err := e.transition(ctx, actor, passID, types.PASS_CHECKED_OUT, nil)
	if err != nil {
		return nil, err
	}
	e.after(ctx, pass, types.TRAIL_PASS_CHECKED_OUT, &actor.UserID, nil)
	return pass, nil
}

func (e *Engine) Get(ctx context.Context, actor *types.Claims, passID uuid.UUID) (*models.Pass, error) {
	pass, err := e.passes.Get(ctx, passID)
	if err != nil {
		return nil, err
	}
	if err := e.authorize(ctx, actor, pass.TenantID); err != nil {
		return nil, err
	}
	return pass, nil
}

// FindByCode only ever searches the actor's own tenant.
func (e *Engine) FindByCode(ctx context.Context, actor *types.Claims, code string) (*models.Pass, error) {
	if actor == nil {
		return nil, fmt.Errorf("pass code %s: %w", code, types.ErrNotFound)
	}
	return e.passes.FindByCode(ctx, actor.TenantID, strings.ToUpper(strings.TrimSpace(code)))
}

func (e *Engine) List(ctx context.Context, actor *types.Claims, status types.PassStatus, page, size int) ([]*models.Pass, error) {
	if actor == nil {
		return nil, types.ErrTenantAccessDenied
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", status, types.ErrValidation)
	}
	return e.passes.ListByTenant(ctx, actor.TenantID, status, page, size)
}

// ListMine is the actor's own pass history, newest first.
func (e *Engine) ListMine(ctx context.Context, actor *types.Claims, page, size int) ([]*models.Pass, error) {
	if actor == nil {
		return nil, types.ErrTenantAccessDenied
	}
	return e.passes.ListByCreator(ctx, actor.TenantID, actor.UserID, page, size)
}

// TodaysVisitors is the front desk view of passes whose visit falls on
// the current day.
type TodaysVisitors struct {
	Day              time.Time      `json:"day"`
	ApprovedForEntry []*models.Pass `json:"approved_for_entry"`
	OnSite           []*models.Pass `json:"on_site"`
	ApprovedCount    int64          `json:"approved_count"`
	OnSiteCount      int64          `json:"on_site_count"`
}

// Today lists the actor tenant's APPROVED and CHECKED_IN passes visiting
// today, each paged by page/size, with full counts. The day follows the
// engine clock's location.
func (e *Engine) Today(ctx context.Context, actor *types.Claims, page, size int) (*TodaysVisitors, error) {
	if actor == nil {
		return nil, types.ErrTenantAccessDenied
	}
	now := e.now()
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	to := from.AddDate(0, 0, 1)

	out := &TodaysVisitors{Day: from}
	var err error
	if out.ApprovedForEntry, err = e.passes.ListVisitingBetween(ctx, actor.TenantID, from, to, types.PASS_APPROVED, page, size); err != nil {
		return nil, err
	}
	if out.OnSite, err = e.passes.ListVisitingBetween(ctx, actor.TenantID, from, to, types.PASS_CHECKED_IN, page, size); err != nil {
		return nil, err
	}
	if out.ApprovedCount, err = e.passes.CountVisitingBetween(ctx, actor.TenantID, from, to, types.PASS_APPROVED); err != nil {
		return nil, err
	}
	if out.OnSiteCount, err = e.passes.CountVisitingBetween(ctx, actor.TenantID, from, to, types.PASS_CHECKED_IN); err != nil {
		return nil, err
	}
	return out, nil
}

// transition reads the pass, checks tenant and source state, applies mutate
// and writes conditioned on the version read. A nil actor is the system
// sweep and skips the guard.
func (e *Engine) transition(ctx context.Context, actor *types.Claims, passID uuid.UUID, target types.PassStatus, mutate func(*models.Pass, time.Time)) (*models.Pass, error) {
	pass, err := e.passes.Get(ctx, passID)
	if err != nil {
		return nil, err
	}
	if actor != nil {
		if err := e.authorize(ctx, actor, pass.TenantID); err != nil {
			return nil, err
		}
	}
	if !pass.Status.CanTransitionTo(target) {
		return nil, invalidTransition(pass, target)
	}
	next := *pass
	next.Status = target
	if mutate != nil {
		mutate(&next, e.now().UTC())
	}
	if err := e.passes.Update(ctx, &next); err != nil {
		if errors.Is(err, types.ErrConcurrentModification) {
			log.Warnf("[Lifecycle] %s -> %s lost a race: %s", pass.ID, target, err.Error())
		}
		return nil, err
	}
	return &next, nil
}

func invalidTransition(pass *models.Pass, target types.PassStatus) error {
	switch target {
	case types.PASS_CHECKED_IN:
		return fmt.Errorf("pass must be approved before check-in (status %s): %w", pass.Status, types.ErrInvalidTransition)
	case types.PASS_CHECKED_OUT:
		return fmt.Errorf("pass must be checked-in before it can be checked-out (status %s): %w", pass.Status, types.ErrInvalidTransition)
	}
	return fmt.Errorf("pass %s cannot move from %s to %s: %w", pass.ID, pass.Status, target, types.ErrInvalidTransition)
}

// authorize hides a cross-tenant access behind NotFound.
func (e *Engine) authorize(ctx context.Context, actor *types.Claims, tenantID uint) error {
	if err := e.guard.AssertTenantAccess(ctx, actor, tenantID); err != nil {
		log.WithFields(log.Fields{"tenant": tenantID}).Warnf("[Lifecycle] %s", err.Error())
		return fmt.Errorf("pass: %w", types.ErrNotFound)
	}
	return nil
}

func (e *Engine) after(ctx context.Context, pass *models.Pass, action types.TrailAction, actorID *uint, details types.JSONB) {
	if e.trail != nil {
		entry := &models.TrailLog{
			Action:    action,
			ActorID:   actorID,
			TenantID:  pass.TenantID,
			PassID:    pass.ID,
			Details:   details,
			CreatedAt: e.now().UTC(),
		}
		if err := e.trail.Record(ctx, entry); err != nil {
			log.Printf("[Lifecycle] trail %s for %s not recorded: %s", action, pass.ID, err.Error())
		}
	}
	go e.dashboard.NotifyDashboard(pass.TenantID)
}

// creator resolves the employee who requested the pass. A missing user
// yields an empty snapshot and the dispatcher skips the blank address.
func (e *Engine) creator(ctx context.Context, pass *models.Pass) models.User {
	user, err := e.users.GetUser(ctx, pass.CreatedBy)
	if err != nil {
		log.Warnf("[Lifecycle] creator %d of pass %s: %s", pass.CreatedBy, pass.ID, err.Error())
		return models.User{}
	}
	return *user
}

// publish never fails the transition, which is already committed.
func (e *Engine) publish(ctx context.Context, ev events.Event) {
	if err := e.publisher.Publish(ctx, ev); err != nil {
		log.Errorf("[Lifecycle] %s", err.Error())
	}
}

func (e *Engine) startSpan(ctx context.Context, name string, passID uuid.UUID) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("pass.id", passID.String())))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
	}
	span.End()
}
