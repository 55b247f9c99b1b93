package ops

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// SubmitContactInput contains parameters for the public contact form.
type SubmitContactInput struct {
	Name    string // required
	Email   string // required
	Phone   string
	Message string // required
}

// SubmitContactOutput contains the result of the SubmitContact operation.
type SubmitContactOutput struct {
	Contact    workspace.Contact `json:"contact"`
	NewContact bool              `json:"new_contact"`
	Inbound    workspace.Message `json:"inbound"`
	Reply      workspace.Message `json:"reply"`
}

// SubmitContact records a public contact request: the contact (reused when the
// email is already known), the inbound message, and the automated welcome reply.
func SubmitContact(ctx context.Context, st *store.Store, input SubmitContactInput) (*SubmitContactOutput, error) {
	if err := checkCtx(ctx, "contact"); err != nil {
		return nil, err
	}

	name, email, err := validateContactFields(input.Name, input.Email)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(input.Message)
	if body == "" {
		return nil, errors.NewInvalidRequest("message is required")
	}

	contact, created, err := findOrCreateContact(st, name, email, strings.TrimSpace(input.Phone))
	if err != nil {
		return nil, err
	}

	inbound, err := st.AddMessage(workspace.Message{
		ContactID: contact.ID,
		Direction: workspace.Inbound,
		Content:   body,
		Type:      workspace.ChannelEmail,
	})
	if err != nil {
		return nil, err
	}

	reply, err := st.AddMessage(workspace.Message{
		ContactID: contact.ID,
		Direction: workspace.Outbound,
		Content:   WelcomeReply,
		Type:      workspace.ChannelEmail,
		Automated: true,
	})
	if err != nil {
		return nil, err
	}

	log.WithField("contact_id", contact.ID).Info("public contact received")
	return &SubmitContactOutput{
		Contact:    contact,
		NewContact: created,
		Inbound:    inbound,
		Reply:      reply,
	}, nil
}

// SubmitBookingInput contains parameters for the public booking form.
type SubmitBookingInput struct {
	ServiceID string    // required, from the catalogue
	Date      time.Time // required, one of the offered slots
	Name      string    // required
	Email     string    // required
	Notes     string
}

// SubmitBookingOutput contains the result of the SubmitBooking operation.
type SubmitBookingOutput struct {
	Contact      workspace.Contact   `json:"contact"`
	NewContact   bool                `json:"new_contact"`
	Booking      workspace.Booking   `json:"booking"`
	Form         workspace.Form      `json:"form"`
	Confirmation workspace.Message   `json:"confirmation"`
	Messages     []workspace.Message `json:"messages"`
}

// SubmitBooking books a slot from the public page: contact, booking with the
// service name copied in, a confirmation message, the intake form linked to the
// booking, and the form request message.
func SubmitBooking(ctx context.Context, st *store.Store, input SubmitBookingInput) (*SubmitBookingOutput, error) {
	if err := checkCtx(ctx, "booking"); err != nil {
		return nil, err
	}

	svc, ok := FindService(strings.TrimSpace(input.ServiceID))
	if !ok {
		return nil, errors.NewInvalidRequest("unknown service: " + input.ServiceID)
	}
	if input.Date.IsZero() {
		return nil, errors.NewInvalidRequest("date is required")
	}
	loc := Location(st.Workspace())
	if !isOfferedSlot(input.Date, st.Now().In(loc)) {
		return nil, errors.NewInvalidRequest("date is not an available slot")
	}
	name, email, err := validateContactFields(input.Name, input.Email)
	if err != nil {
		return nil, err
	}

	contact, created, err := findOrCreateContact(st, name, email, "")
	if err != nil {
		return nil, err
	}

	booking, err := st.AddBooking(workspace.Booking{
		ContactID:   contact.ID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Date:        input.Date.UTC(),
		Duration:    svc.Duration,
		Notes:       strings.TrimSpace(input.Notes),
	})
	if err != nil {
		return nil, err
	}

	confirmation, err := st.AddMessage(workspace.Message{
		ContactID: contact.ID,
		Direction: workspace.Outbound,
		Content:   ConfirmationMessage(svc.Name, input.Date.In(loc)),
		Type:      workspace.ChannelEmail,
		Automated: true,
	})
	if err != nil {
		return nil, err
	}

	form, err := st.AddForm(workspace.Form{
		ContactID:        contact.ID,
		Title:            IntakeFormTitle,
		RelatedBookingID: booking.ID,
	})
	if err != nil {
		return nil, err
	}

	request, err := st.AddMessage(workspace.Message{
		ContactID: contact.ID,
		Direction: workspace.Outbound,
		Content:   FormRequestMessage,
		Type:      workspace.ChannelEmail,
		Automated: true,
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"service":    svc.ID,
	}).Info("public booking created")

	return &SubmitBookingOutput{
		Contact:      contact,
		NewContact:   created,
		Booking:      booking,
		Form:         form,
		Confirmation: confirmation,
		Messages:     []workspace.Message{confirmation, request},
	}, nil
}

// ConfirmationMessage is the automated booking confirmation text.
func ConfirmationMessage(serviceName string, at time.Time) string {
	return fmt.Sprintf("Booking Confirmed for %s on %s. Please reply if you need to reschedule.",
		serviceName, at.Format(BookingTimeLayout))
}

func validateContactFields(name, email string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", errors.NewInvalidRequest("name is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return "", "", errors.NewInvalidRequest("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", "", errors.NewInvalidRequest("email is not a valid address")
	}
	return name, email, nil
}

// findOrCreateContact reuses the contact with the same normalised email, or adds one.
func findOrCreateContact(st *store.Store, name, email, phone string) (workspace.Contact, bool, error) {
	if c, ok := workspace.FindContactByEmail(st.Snapshot().Contacts, email); ok {
		return c, false, nil
	}
	c, err := st.AddContact(workspace.Contact{Name: name, Email: email, Phone: phone})
	if err != nil {
		return workspace.Contact{}, false, err
	}
	return c, true, nil
}
