package ops

import (
	"context"
	"strings"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/errors"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
	"github.com/Kritarthpandey2003/unified-ops-platform/internal/workspace"
)

// ListBookingsInput contains parameters for the ListBookings operation.
type ListBookingsInput struct {
	Filter string // upcoming (default), past, all
}

// ListBookingsOutput contains the result of the ListBookings operation.
type ListBookingsOutput struct {
	Filter   workspace.BookingFilter     `json:"filter"`
	Bookings []workspace.EnrichedBooking `json:"bookings"`
}

// ListBookings returns bookings joined with their contacts, date ascending.
func ListBookings(ctx context.Context, st *store.Store, input ListBookingsInput) (*ListBookingsOutput, error) {
	if err := checkCtx(ctx, "bookings"); err != nil {
		return nil, err
	}
	filter, ok := workspace.ParseBookingFilter(strings.ToLower(strings.TrimSpace(input.Filter)))
	if !ok {
		return nil, errors.NewInvalidRequest("filter must be one of: upcoming, past, all")
	}

	snap := st.Snapshot()
	enriched := workspace.EnrichBookings(snap.Bookings, snap.Contacts)
	return &ListBookingsOutput{
		Filter:   filter,
		Bookings: workspace.FilterBookings(enriched, filter, st.Now()),
	}, nil
}

// SetBookingStatusInput contains parameters for the SetBookingStatus operation.
type SetBookingStatusInput struct {
	ID     string // required
	Status string // confirmed|cancelled|completed
}

// SetBookingStatus changes a booking's status.
func SetBookingStatus(ctx context.Context, st *store.Store, input SetBookingStatusInput) (*workspace.Booking, error) {
	if err := checkCtx(ctx, "booking status"); err != nil {
		return nil, err
	}
	if err := requireActivated(st); err != nil {
		return nil, err
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, errors.NewInvalidRequest("id is required")
	}
	status := workspace.BookingStatus(strings.ToLower(strings.TrimSpace(input.Status)))
	switch status {
	case workspace.BookingConfirmed, workspace.BookingCancelled, workspace.BookingCompleted:
	default:
		return nil, errors.NewInvalidRequest("status must be one of: confirmed, cancelled, completed")
	}

	b, err := st.SetBookingStatus(id, status)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
