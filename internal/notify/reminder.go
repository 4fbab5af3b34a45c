package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackgods/mindcare/internal/appointment"
	"github.com/hackgods/mindcare/internal/reminder"
)

// ViewLookup loads the appointment a reminder belongs to.
type ViewLookup func(ctx context.Context, id uuid.UUID) (*appointment.View, error)

// ReminderSender renders and mails queued reminders for the dispatcher.
type ReminderSender struct {
	lookup   ViewLookup
	mailer   Mailer
	renderer *Renderer
}

func NewReminderSender(lookup ViewLookup, mailer Mailer, renderer *Renderer) *ReminderSender {
	return &ReminderSender{lookup: lookup, mailer: mailer, renderer: renderer}
}

func (s *ReminderSender) SendReminder(ctx context.Context, e reminder.ScheduledEmail) error {
	v, err := s.lookup(ctx, e.AppointmentID)
	if err != nil {
		return fmt.Errorf("load appointment %s: %w", e.AppointmentID, err)
	}
	if v.Status != appointment.StatusConfirmed {
		return fmt.Errorf("appointment %s is %s, not confirmed", e.AppointmentID, v.Status)
	}

	var name string
	switch e.EmailType {
	case reminder.TypeUser24h:
		if v.Detail != nil {
			name = v.Detail.Name
		}
	case reminder.TypeTherapist24h:
		if v.Therapist != nil {
			name = v.Therapist.Name
		}
	}

	msg, err := s.renderer.Render(string(e.EmailType), s.renderer.Data(v, name, nil))
	if err != nil {
		return err
	}
	return s.mailer.Send(ctx, e.RecipientEmail, msg.Subject, msg.Body)
}
