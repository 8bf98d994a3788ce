package notify

import (
	"fmt"

	"vpass/src/events"

	"github.com/google/uuid"
)

const friendlyTimeFormat = "Monday, January 2, 2006 at 3:04 PM"

// Recipient roles. One event never mails the same role twice, so
// (event, role, recipient) names a single request.
const (
	roleEmployee = "employee"
	roleVisitor  = "visitor"
	roleAdmin    = "admin"
	roleUser     = "user"
)

// message is one (recipient, subject, body) request derived from an event.
type message struct {
	passID  *uuid.UUID
	role    string
	to      string
	subject string
	body    string
}

// compose derives the outbound mails for ev. Recipients may be blank; the
// dispatcher skips those.
func compose(ev events.Event, year int) ([]message, error) {
	switch e := ev.(type) {
	case events.PassApproved:
		return composeApproved(e, year)
	case events.PassRejected:
		return composeRejected(e, year)
	case events.PassExpired:
		return composeExpired(e, year)
	case events.UserCreated:
		return composeUserCreated(e, year)
	case events.PasswordResetRequested:
		return composePasswordReset(e, year)
	default:
		return nil, fmt.Errorf("no notification for %T", ev)
	}
}

func render(role, to string, passID *uuid.UUID, subject string, l Layout) (message, error) {
	body, err := Render(l)
	if err != nil {
		return message{}, fmt.Errorf("render %q: %w", subject, err)
	}
	return message{passID: passID, role: role, to: to, subject: subject, body: body}, nil
}

func composeApproved(e events.PassApproved, year int) ([]message, error) {
	passID := e.PassID
	employee, err := render(roleEmployee, e.EmployeeEmail, &passID, "Your Visitor Pass Request has been Approved!", Layout{
		Title:   "Visitor Pass Approved",
		Heading: greeting(e.EmployeeName),
		Intro:   fmt.Sprintf("The visitor pass for %s has been approved.", e.VisitorName),
		Details: []Detail{
			{"Visitor", e.VisitorName},
			{"Pass Code", e.PassCode},
			{"Date & Time", e.VisitDateTime.Format(friendlyTimeFormat)},
		},
		Outro: "Thank you.",
		Year:  year,
	})
	if err != nil {
		return nil, err
	}
	visitor, err := render(roleVisitor, e.VisitorEmail, &passID, "Your Visitor Pass is Confirmed!", Layout{
		Title:   "Visitor Pass Confirmed",
		Heading: "Dear " + e.VisitorName + ",",
		Intro:   "Your visitor pass for your upcoming visit has been confirmed. Please find the details below:",
		Details: []Detail{
			{"Pass Code", e.PassCode},
			{"Date & Time", e.VisitDateTime.Format(friendlyTimeFormat)},
		},
		Outro: "Please be ready to present this pass code to security upon arrival. We look forward to seeing you.",
		Year:  year,
	})
	if err != nil {
		return nil, err
	}
	return []message{employee, visitor}, nil
}

func composeRejected(e events.PassRejected, year int) ([]message, error) {
	passID := e.PassID
	m, err := render(roleEmployee, e.EmployeeEmail, &passID, "Update on Your Visitor Pass Request", Layout{
		Title:   "Visitor Pass Rejected",
		Heading: greeting(e.EmployeeName),
		Intro:   fmt.Sprintf("Unfortunately, the visitor pass request for %s has been rejected.", e.VisitorName),
		Details: []Detail{
			{"Visitor", e.VisitorName},
			{"Reason", e.Reason},
		},
		Outro: "Thank you.",
		Year:  year,
	})
	if err != nil {
		return nil, err
	}
	return []message{m}, nil
}

func composeExpired(e events.PassExpired, year int) ([]message, error) {
	passID := e.PassID
	subject := "Visitor Pass Expired: " + e.VisitorName
	layout := Layout{
		Title:   "Visitor Pass Expired",
		Heading: "This is an automated notification.",
		Intro: fmt.Sprintf("The visitor pass for %s (scheduled for %s) was not used and has been automatically expired by the system.",
			e.VisitorName, e.VisitDateTime.Format("2006-01-02")),
		Details: []Detail{
			{"Visitor", e.VisitorName},
			{"Pass Code", e.PassCode},
		},
		Year: year,
	}
	out := []message{}
	for _, r := range []struct{ role, to string }{{roleEmployee, e.EmployeeEmail}, {roleAdmin, e.AdminEmail}} {
		m, err := render(r.role, r.to, &passID, subject, layout)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func composeUserCreated(e events.UserCreated, year int) ([]message, error) {
	m, err := render(roleUser, e.Email, nil, "Welcome to the Visitor Pass Management System!", Layout{
		Title:   "Welcome",
		Heading: greeting(e.Name),
		Intro:   "An account has been created for you.",
		Details: []Detail{
			{"Email", e.Email},
			{"Role", e.Role},
		},
		Outro: "Use the password reset link on the sign-in page to set your password.",
		Year:  year,
	})
	if err != nil {
		return nil, err
	}
	return []message{m}, nil
}

func composePasswordReset(e events.PasswordResetRequested, year int) ([]message, error) {
	m, err := render(roleUser, e.Email, nil, "Your Password Reset Request", Layout{
		Title:       "Password Reset Request",
		Heading:     greeting(e.Name),
		Intro:       fmt.Sprintf("We received a request to reset the password for your account associated with the email: %s. Please click the button below to set a new password.", e.Email),
		ActionLabel: "Reset Your Password",
		ActionURL:   e.ResetURL,
		Outro:       "This link is valid for 15 minutes for security reasons. If you did not request a password reset, please ignore this email. Your account remains secure.",
		Year:        year,
	})
	if err != nil {
		return nil, err
	}
	return []message{m}, nil
}

func greeting(name string) string {
	if name == "" {
		return "Hello,"
	}
	return "Hello " + name + ","
}
