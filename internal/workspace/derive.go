package workspace

import (
	"sort"
	"time"
)

// IsLowStock reports whether an item is at or below its threshold.
func IsLowStock(item InventoryItem) bool {
	return item.Quantity <= item.Threshold
}

// LowStock returns the low-stock items in stored order.
func LowStock(items []InventoryItem) []InventoryItem {
	out := make([]InventoryItem, 0)
	for _, it := range items {
		if IsLowStock(it) {
			out = append(out, it)
		}
	}
	return out
}

// UnreadMessages returns messages with read=false in stored order.
func UnreadMessages(msgs []Message) []Message {
	out := make([]Message, 0)
	for _, m := range msgs {
		if !m.Read {
			out = append(out, m)
		}
	}
	return out
}

// PendingForms returns forms still waiting on the contact.
func PendingForms(forms []Form) []Form {
	out := make([]Form, 0)
	for _, f := range forms {
		if f.Status == FormPending {
			out = append(out, f)
		}
	}
	return out
}

// TodaysBookings returns bookings whose date falls on now's day and month in
// now's location. The year is not compared.
func TodaysBookings(bookings []Booking, now time.Time) []Booking {
	out := make([]Booking, 0)
	for _, b := range bookings {
		d := b.Date.In(now.Location())
		if d.Day() == now.Day() && d.Month() == now.Month() {
			out = append(out, b)
		}
	}
	return out
}

// EnrichedBooking is a booking joined with its contact.
type EnrichedBooking struct {
	Booking
	Contact ContactRef `json:"contact"`
}

// IsPast reports whether the booking date is strictly before now.
func (b Booking) IsPast(now time.Time) bool {
	return b.Date.Before(now)
}

// EnrichBookings joins each booking with its contact and sorts by date ascending.
// Bookings with equal dates keep their stored order.
func EnrichBookings(bookings []Booking, contacts []Contact) []EnrichedBooking {
	idx := contactIndex(contacts)
	out := make([]EnrichedBooking, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, EnrichedBooking{Booking: b, Contact: resolve(idx, b.ContactID)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// BookingFilter selects a time window over bookings.
type BookingFilter string

const (
	FilterUpcoming BookingFilter = "upcoming"
	FilterPast     BookingFilter = "past"
	FilterAll      BookingFilter = "all"
)

// ParseBookingFilter maps a raw filter name to a BookingFilter. Empty means upcoming.
func ParseBookingFilter(s string) (BookingFilter, bool) {
	switch BookingFilter(s) {
	case "", FilterUpcoming:
		return FilterUpcoming, true
	case FilterPast:
		return FilterPast, true
	case FilterAll:
		return FilterAll, true
	}
	return "", false
}

// FilterBookings keeps the bookings in the requested window, preserving order.
// A booking is past when its date is strictly before now; otherwise it is upcoming.
func FilterBookings(list []EnrichedBooking, filter BookingFilter, now time.Time) []EnrichedBooking {
	out := make([]EnrichedBooking, 0, len(list))
	for _, b := range list {
		past := b.IsPast(now)
		switch filter {
		case FilterPast:
			if past {
				out = append(out, b)
			}
		case FilterUpcoming:
			if !past {
				out = append(out, b)
			}
		default:
			out = append(out, b)
		}
	}
	return out
}

// Conversation is every message exchanged with one contact.
type Conversation struct {
	ContactID   string     `json:"contactId"`
	Contact     ContactRef `json:"contact"`
	Messages    []Message  `json:"messages"`
	LastMessage Message    `json:"lastMessage"`
	UnreadCount int        `json:"unreadCount"`
}

// HasUnread reports whether any message in the conversation is unread.
func (c Conversation) HasUnread() bool {
	return c.UnreadCount > 0
}

// GroupConversations groups messages by contactId. Messages within a
// conversation are sorted by timestamp ascending; conversations are sorted by
// their last message, newest first.
func GroupConversations(messages []Message, contacts []Contact) []Conversation {
	idx := contactIndex(contacts)
	byContact := make(map[string]*Conversation)
	order := make([]string, 0)

	for _, m := range messages {
		c, ok := byContact[m.ContactID]
		if !ok {
			c = &Conversation{ContactID: m.ContactID, Contact: resolve(idx, m.ContactID)}
			byContact[m.ContactID] = c
			order = append(order, m.ContactID)
		}
		c.Messages = append(c.Messages, m)
		if !m.Read {
			c.UnreadCount++
		}
	}

	out := make([]Conversation, 0, len(order))
	for _, id := range order {
		c := byContact[id]
		sort.SliceStable(c.Messages, func(i, j int) bool {
			return c.Messages[i].Timestamp.Before(c.Messages[j].Timestamp)
		})
		c.LastMessage = c.Messages[len(c.Messages)-1]
		out = append(out, *c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.Timestamp.After(out[j].LastMessage.Timestamp)
	})
	return out
}

// FindConversation returns the conversation for contactID.
func FindConversation(convs []Conversation, contactID string) (Conversation, bool) {
	for _, c := range convs {
		if c.ContactID == contactID {
			return c, true
		}
	}
	return Conversation{}, false
}

// EnrichedForm is a form joined with its contact.
type EnrichedForm struct {
	Form
	Contact ContactRef `json:"contact"`
}

// EnrichForms joins forms with their contacts, newest sentAt first.
func EnrichForms(forms []Form, contacts []Contact) []EnrichedForm {
	idx := contactIndex(contacts)
	out := make([]EnrichedForm, 0, len(forms))
	for _, f := range forms {
		out = append(out, EnrichedForm{Form: f, Contact: resolve(idx, f.ContactID)})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.After(out[j].SentAt)
	})
	return out
}

// Dashboard is the summary shown on the home page.
type Dashboard struct {
	TodaysBookings []EnrichedBooking `json:"todaysBookings"`
	UnreadMessages []Message         `json:"unreadMessages"`
	PendingForms   []Form            `json:"pendingForms"`
	LowStock       []InventoryItem   `json:"lowStock"`
}

// BuildDashboard computes every dashboard view from one snapshot.
func BuildDashboard(s Snapshot, now time.Time) Dashboard {
	return Dashboard{
		TodaysBookings: EnrichBookings(TodaysBookings(s.Bookings, now), s.Contacts),
		UnreadMessages: UnreadMessages(s.Messages),
		PendingForms:   PendingForms(s.Forms),
		LowStock:       LowStock(s.Inventory),
	}
}
