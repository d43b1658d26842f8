package domain

import (
	"sort"
	"strings"
	"time"
)

type Service struct {
	ID       int64
	Slug     string
	Title    string
	Pricing  Pricing
	IsActive bool
}

// ScheduleEvent is a bookable occurrence of a service with finite capacity.
type ScheduleEvent struct {
	ID                  int64
	ServiceID           int64
	ServiceSlug         string
	ServiceTitle        string
	StartTime           time.Time
	EndTime             time.Time
	MaxParticipants     int
	CurrentParticipants int
	IsIndividual        bool
	IsActive            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AvailableSpots is max-current clamped to zero.
func (e ScheduleEvent) AvailableSpots() int {
	if n := e.MaxParticipants - e.CurrentParticipants; n > 0 {
		return n
	}
	return 0
}

// Bookable reports whether the event may be offered for a new booking.
func (e ScheduleEvent) Bookable() bool {
	return e.IsActive && e.AvailableSpots() > 0
}

// FilterBookable returns the bookable events, earliest first.
func FilterBookable(events []ScheduleEvent) []ScheduleEvent {
	out := make([]ScheduleEvent, 0, len(events))
	for _, e := range events {
		if e.Bookable() {
			out = append(out, e)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})

	return out
}

type Consent struct {
	PrivacyPolicy bool
	PersonalData  bool
	Terms         bool
}

func (c Consent) Complete() bool {
	return c.PrivacyPolicy && c.PersonalData && c.Terms
}

// Contact holds the customer fields of a booking.
type Contact struct {
	Name    string
	Phone   string
	Email   string
	Comment string
}

// Normalize trims surrounding whitespace from every field.
func (c Contact) Normalize() Contact {
	return Contact{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Email:   strings.TrimSpace(c.Email),
		Comment: strings.TrimSpace(c.Comment),
	}
}

// MissingField returns the name of the first empty required field, or "".
func (c Contact) MissingField() string {
	switch {
	case strings.TrimSpace(c.Name) == "":
		return "name"
	case strings.TrimSpace(c.Phone) == "":
		return "phone"
	case strings.TrimSpace(c.Email) == "":
		return "email"
	}
	return ""
}

type NewBooking struct {
	ScheduleEventID int64
	Contact         Contact
	Consent         Consent
}

type Booking struct {
	ID              int64
	ScheduleEventID int64
	Contact
	Status BookingStatus

	PaymentID              string
	PaymentStatus          string
	PaymentAmount          Money
	PaymentConfirmationURL string
	PaidAt                 *time.Time

	ServiceID      int64
	ServiceTitle   string
	EventStartTime time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingReceipt is what a customer gets back after submitting a booking.
type BookingReceipt struct {
	BookingID       int64
	Status          BookingStatus
	PaymentID       string
	PaymentStatus   string
	ConfirmationURL string
	Message         string
}

type BookingFilter struct {
	Status    BookingStatus
	ServiceID int64
	Search    string
	DateFrom  *time.Time
	DateTo    *time.Time
}

type Payment struct {
	ID                int64
	BookingID         int64
	Provider          string
	ProviderPaymentID string
	Amount            Money
	Currency          string
	Status            string
	PaymentMethod     string
	ConfirmationURL   string
	PaidAt            *time.Time
	RawPayload        []byte
	CreatedAt         time.Time
}

// PaymentSnapshot is the reconciled view of one payment and its booking.
type PaymentSnapshot struct {
	PaymentID     string
	Status        string
	BookingID     int64
	BookingStatus BookingStatus
	RedirectURL   string
}

const (
	BookingEventCreated       = "booking.created"
	BookingEventStatusChanged = "booking.status_changed"
	BookingEventDeleted       = "booking.deleted"
)

// BookingEvent is published after a booking change is committed.
type BookingEvent struct {
	Type            string        `json:"type"`
	BookingID       int64         `json:"booking_id"`
	ScheduleEventID int64         `json:"schedule_event_id"`
	Status          BookingStatus `json:"status"`
	PreviousStatus  BookingStatus `json:"previous_status,omitempty"`
	PaymentID       string        `json:"payment_id,omitempty"`
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	OccurredAt      time.Time     `json:"occurred_at"`
}

func NewBookingEvent(typ string, b Booking, previous BookingStatus) BookingEvent {
	return BookingEvent{
		Type:            typ,
		BookingID:       b.ID,
		ScheduleEventID: b.ScheduleEventID,
		Status:          b.Status,
		PreviousStatus:  previous,
		PaymentID:       b.PaymentID,
		Name:            b.Name,
		Email:           b.Email,
		OccurredAt:      time.Now().UTC(),
	}
}
