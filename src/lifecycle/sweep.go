package lifecycle

import (
	"context"
	"time"

	"vpass/src/events"
	"vpass/src/models"
	"vpass/src/types"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type SweepFailure struct {
	PassID uuid.UUID
	Err    error
}

type SweepReport struct {
	Scanned  int
	Expired  []uuid.UUID
	Failures []SweepFailure
}

// ExpireOverdue moves every APPROVED pass whose visit time is before now to
// EXPIRED. Each pass commits on its own; a failing pass is reported and the
// sweep moves on. Cancellation stops the sweep between passes.
func (e *Engine) ExpireOverdue(ctx context.Context, now time.Time) (report SweepReport, err error) {
	ctx, span := e.tracer.Start(ctx, "lifecycle.ExpireOverdue")
	defer func() { endSpan(span, err) }()

	overdue, err := e.passes.ListOverdueApproved(ctx, now)
	if err != nil {
		log.Printf("[Sweep] Error listing overdue passes: %s", err.Error())
		return report, err
	}
	report.Scanned = len(overdue)

	admins := map[uint]string{}
	for _, candidate := range overdue {
		if err := ctx.Err(); err != nil {
			log.Warnf("[Sweep] interrupted after %d of %d passes", len(report.Expired)+len(report.Failures), report.Scanned)
			return report, err
		}
		pass, err := e.transition(ctx, nil, candidate.ID, types.PASS_EXPIRED, func(p *models.Pass, at time.Time) {
			p.ProcessedAt = &at
		})
		if err != nil {
			report.Failures = append(report.Failures, SweepFailure{PassID: candidate.ID, Err: err})
			log.Printf("[Sweep] pass %s not expired: %s", candidate.ID, err.Error())
			continue
		}
		report.Expired = append(report.Expired, pass.ID)
		e.after(ctx, pass, types.TRAIL_PASS_EXPIRED, nil, nil)

		adminEmail, seen := admins[pass.TenantID]
		if !seen {
			if admin, err := e.users.GetTenantAdmin(ctx, pass.TenantID); err == nil {
				adminEmail = admin.Email
			}
			admins[pass.TenantID] = adminEmail
		}
		employee := e.creator(ctx, pass)
		e.publish(ctx, events.PassExpired{
			PassID:        pass.ID,
			TenantID:      pass.TenantID,
			PassCode:      pass.PassCode,
			VisitorName:   pass.VisitorName,
			VisitDateTime: pass.VisitDateTime,
			EmployeeName:  employee.Name,
			EmployeeEmail: employee.Email,
			AdminEmail:    adminEmail,
		})
	}
	if report.Scanned > 0 {
		log.Printf("[Sweep] expired %d of %d overdue passes, %d failed", len(report.Expired), report.Scanned, len(report.Failures))
	}
	return report, nil
}
