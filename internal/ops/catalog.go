package ops

import (
	"context"
	"time"

	"github.com/Kritarthpandey2003/unified-ops-platform/internal/store"
)

// Service is a bookable offering.
type Service struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"` // minutes
	Price    int    `json:"price"`    // whole dollars
}

var services = []Service{
	{ID: "srv-1", Name: "Consultation", Duration: 60, Price: 100},
	{ID: "srv-2", Name: "Service Repair", Duration: 120, Price: 250},
	{ID: "srv-3", Name: "Installation", Duration: 180, Price: 400},
}

// Slot hours offered on each bookable day, in workspace local time.
var slotHours = []int{9, 13, 16}

// SlotDays is how many days ahead (starting tomorrow) slots are offered.
const SlotDays = 3

// Services returns the service catalogue.
func Services() []Service {
	return append([]Service{}, services...)
}

// FindService looks a service up by id.
func FindService(id string) (Service, bool) {
	for _, s := range services {
		if s.ID == id {
			return s, true
		}
	}
	return Service{}, false
}

// SlotsOutput contains the result of the AvailableSlots operation.
type SlotsOutput struct {
	Timezone string      `json:"timezone"`
	Slots    []time.Time `json:"slots"`
}

// AvailableSlots lists bookable start times: the next SlotDays days at each of
// slotHours, in the workspace timezone.
func AvailableSlots(ctx context.Context, st *store.Store) (*SlotsOutput, error) {
	if err := checkCtx(ctx, "slots"); err != nil {
		return nil, err
	}
	loc := Location(st.Workspace())
	return &SlotsOutput{
		Timezone: loc.String(),
		Slots:    slotsFrom(st.Now().In(loc)),
	}, nil
}

func slotsFrom(now time.Time) []time.Time {
	y, m, d := now.Date()
	out := make([]time.Time, 0, SlotDays*len(slotHours))
	for i := 1; i <= SlotDays; i++ {
		for _, h := range slotHours {
			out = append(out, time.Date(y, m, d+i, h, 0, 0, 0, now.Location()))
		}
	}
	return out
}

// isOfferedSlot reports whether t is one of the slots offered at now.
func isOfferedSlot(t, now time.Time) bool {
	for _, s := range slotsFrom(now) {
		if s.Equal(t) {
			return true
		}
	}
	return false
}
