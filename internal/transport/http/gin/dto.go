package httpgin

import (
	"time"

	"github.com/atmanstudio/booking/internal/domain"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type ScheduleEventResponse struct {
	ID                  int64     `json:"id"`
	ServiceID           int64     `json:"service_id"`
	ServiceSlug         string    `json:"service_slug"`
	ServiceTitle        string    `json:"service_title"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	MaxParticipants     int       `json:"max_participants"`
	CurrentParticipants int       `json:"current_participants"`
	AvailableSpots      int       `json:"available_spots"`
	IsIndividual        bool      `json:"is_individual"`
	IsActive            bool      `json:"is_active"`
}

func toScheduleEventResponse(e domain.ScheduleEvent) ScheduleEventResponse {
	return ScheduleEventResponse{
		ID:                  e.ID,
		ServiceID:           e.ServiceID,
		ServiceSlug:         e.ServiceSlug,
		ServiceTitle:        e.ServiceTitle,
		StartTime:           e.StartTime,
		EndTime:             e.EndTime,
		MaxParticipants:     e.MaxParticipants,
		CurrentParticipants: e.CurrentParticipants,
		AvailableSpots:      e.AvailableSpots(),
		IsIndividual:        e.IsIndividual,
		IsActive:            e.IsActive,
	}
}

func toScheduleResponse(events []domain.ScheduleEvent) []ScheduleEventResponse {
	out := make([]ScheduleEventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toScheduleEventResponse(e))
	}
	return out
}

// ScheduleEventRequest is the admin create/update payload. Updates ignore
// current_participants, which only bookings change. Omitted
// is_active means active.
type ScheduleEventRequest struct {
	ServiceID           int64     `json:"service_id" binding:"required,gt=0"`
	StartTime           time.Time `json:"start_time" binding:"required"`
	EndTime             time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
	MaxParticipants     int       `json:"max_participants" binding:"required,gte=1"`
	CurrentParticipants int       `json:"current_participants" binding:"gte=0,ltefield=MaxParticipants"`
	IsIndividual        bool      `json:"is_individual"`
	IsActive            *bool     `json:"is_active"`
}

func (r ScheduleEventRequest) toDomain(id int64) domain.ScheduleEvent {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return domain.ScheduleEvent{
		ID:                  id,
		ServiceID:           r.ServiceID,
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		MaxParticipants:     r.MaxParticipants,
		CurrentParticipants: r.CurrentParticipants,
		IsIndividual:        r.IsIndividual,
		IsActive:            active,
	}
}

type CreateScheduleEventResponse struct {
	ID int64 `json:"id"`
}

// CreateBookingRequest leaves contact and consent checks to the booking
// service so that the client gets one human readable message per field.
type CreateBookingRequest struct {
	ScheduleEventID     int64  `json:"schedule_event_id" binding:"required,gt=0"`
	Name                string `json:"name"`
	Phone               string `json:"phone"`
	Email               string `json:"email"`
	Comment             string `json:"comment"`
	AcceptPrivacyPolicy bool   `json:"accept_privacy_policy"`
	AcceptPersonalData  bool   `json:"accept_personal_data"`
	AcceptTerms         bool   `json:"accept_terms"`
}

func (r CreateBookingRequest) toDomain() domain.NewBooking {
	return domain.NewBooking{
		ScheduleEventID: r.ScheduleEventID,
		Contact: domain.Contact{
			Name:    r.Name,
			Phone:   r.Phone,
			Email:   r.Email,
			Comment: r.Comment,
		},
		Consent: domain.Consent{
			PrivacyPolicy: r.AcceptPrivacyPolicy,
			PersonalData:  r.AcceptPersonalData,
			Terms:         r.AcceptTerms,
		},
	}
}

type CreateBookingResponse struct {
	OK              bool   `json:"ok"`
	BookingID       int64  `json:"booking_id"`
	Status          string `json:"status"`
	PaymentID       string `json:"payment_id,omitempty"`
	PaymentStatus   string `json:"payment_status,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
	Message         string `json:"message"`
}

func toCreateBookingResponse(r *domain.BookingReceipt) CreateBookingResponse {
	return CreateBookingResponse{
		OK:              true,
		BookingID:       r.BookingID,
		Status:          string(r.Status),
		PaymentID:       r.PaymentID,
		PaymentStatus:   r.PaymentStatus,
		ConfirmationURL: r.ConfirmationURL,
		Message:         r.Message,
	}
}

type PaymentStatusResponse struct {
	PaymentID     string `json:"payment_id"`
	Status        string `json:"status"`
	BookingID     int64  `json:"booking_id"`
	BookingStatus string `json:"booking_status"`
	RedirectURL   string `json:"redirect_url,omitempty"`
}

func toPaymentStatusResponse(s *domain.PaymentSnapshot) PaymentStatusResponse {
	return PaymentStatusResponse{
		PaymentID:     s.PaymentID,
		Status:        s.Status,
		BookingID:     s.BookingID,
		BookingStatus: string(s.BookingStatus),
		RedirectURL:   s.RedirectURL,
	}
}

type BookingResponse struct {
	ID              int64        `json:"id"`
	ScheduleEventID int64        `json:"schedule_event_id"`
	Name            string       `json:"name"`
	Phone           string       `json:"phone"`
	Email           string       `json:"email"`
	Comment         string       `json:"comment,omitempty"`
	Status          string       `json:"status"`
	PaymentID       string       `json:"payment_id,omitempty"`
	PaymentStatus   string       `json:"payment_status,omitempty"`
	PaymentAmount   domain.Money `json:"payment_amount,omitempty"`
	PaidAt          *time.Time   `json:"paid_at,omitempty"`
	ServiceID       int64        `json:"service_id"`
	ServiceTitle    string       `json:"service_title"`
	EventStartTime  time.Time    `json:"event_start_time"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func toBookingResponse(b domain.Booking) BookingResponse {
	return BookingResponse{
		ID:              b.ID,
		ScheduleEventID: b.ScheduleEventID,
		Name:            b.Name,
		Phone:           b.Phone,
		Email:           b.Email,
		Comment:         b.Comment,
		Status:          string(b.Status),
		PaymentID:       b.PaymentID,
		PaymentStatus:   b.PaymentStatus,
		PaymentAmount:   b.PaymentAmount,
		PaidAt:          b.PaidAt,
		ServiceID:       b.ServiceID,
		ServiceTitle:    b.ServiceTitle,
		EventStartTime:  b.EventStartTime,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

type UpdateBookingStatusRequest struct {
	Status string `json:"status" binding:"required,booking_status"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}
