package ops

import (
	"context"
	"fmt"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// DefaultReminderLead is used when no lead time is given.
const DefaultReminderLead = 24 * time.Hour

// SendFormRemindersInput contains parameters for the SendFormReminders operation.
type SendFormRemindersInput struct {
	Lead time.Duration // bookings starting within this window are reminded; default 24h
}

// Reminder is one reminder sent for a booking.
type Reminder struct {
	BookingID string            `json:"booking_id"`
	ContactID string            `json:"contact_id"`
	Message   workspace.Message `json:"message"`
}

// SendFormRemindersOutput contains the result of the SendFormReminders operation.
type SendFormRemindersOutput struct {
	Reminded []Reminder `json:"reminded"`
	Skipped  string     `json:"skipped,omitempty"`
}

// SendFormReminders sends an automated reminder for every confirmed booking that
// starts within the lead window and whose intake form is still pending.
// Each booking is reminded at most once. Nothing is sent before activation.
func SendFormReminders(ctx context.Context, st *store.Store, input SendFormRemindersInput) (*SendFormRemindersOutput, error) {
	if err := checkCtx(ctx, "form reminders"); err != nil {
		return nil, err
	}
	if input.Lead < 0 {
		return nil, errors.NewInvalidRequest("lead must not be negative")
	}
	lead := input.Lead
	if lead == 0 {
		lead = DefaultReminderLead
	}

	snap := st.Snapshot()
	out := &SendFormRemindersOutput{Reminded: []Reminder{}}
	if !snap.Workspace.Activated {
		out.Skipped = "workspace not activated"
		return out, nil
	}

	loc := Location(snap.Workspace)
	now := st.Now()
	until := now.Add(lead)

	for _, b := range snap.Bookings {
		if err := checkCtx(ctx, "form reminders"); err != nil {
			return out, err
		}
		if !dueForReminder(b, now, until) {
			continue
		}

		msg, sent, err := st.SendReminder(b.ID, workspace.Message{
			ContactID: b.ContactID,
			Direction: workspace.Outbound,
			Content:   ReminderMessage(b.ServiceName, b.Date.In(loc)),
			Type:      workspace.ChannelEmail,
			Automated: true,
		}, now)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return out, err
		}
		if !sent {
			continue
		}
		out.Reminded = append(out.Reminded, Reminder{BookingID: b.ID, ContactID: b.ContactID, Message: msg})
	}

	if len(out.Reminded) > 0 {
		log.WithField("count", len(out.Reminded)).Info("form reminders sent")
	}
	return out, nil
}

func dueForReminder(b workspace.Booking, now, until time.Time) bool {
	if b.Status != workspace.BookingConfirmed || b.FormStatus != workspace.FormPending {
		return false
	}
	if b.ReminderSentAt != nil {
		return false
	}
	return !b.Date.Before(now) && !b.Date.After(until)
}

// ReminderMessage is the automated intake form reminder text.
func ReminderMessage(serviceName string, at time.Time) string {
	return fmt.Sprintf("Reminder: please complete your intake form before your %s on %s: [Link]",
		serviceName, at.Format(BookingTimeLayout))
}
