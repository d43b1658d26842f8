package httpgin

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/atmanstudio/booking/internal/domain"
	"github.com/atmanstudio/booking/internal/service"
)

// @Summary  List bookings
// @Security BearerAuth
// @Param    status     query  string  false  "pending | waiting_payment | confirmed | cancelled"
// @Param    service_id query  int     false  "Service ID"
// @Param    search     query  string  false  "name, phone, email or payment id"
// @Param    date_from  query  string  false  "RFC3339 or YYYY-MM-DD, on the event start time"
// @Param    date_to    query  string  false  "RFC3339 or YYYY-MM-DD, inclusive"
// @Success  200  {array}   BookingResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /api/admin/bookings [get]
func handleAdminListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := domain.BookingFilter{
			Status: domain.BookingStatus(strings.TrimSpace(c.Query("status"))),
			Search: strings.TrimSpace(c.Query("search")),
		}

		if raw := strings.TrimSpace(c.Query("service_id")); raw != "" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || id <= 0 {
				badRequest(c, "invalid service_id")
				return
			}
			f.ServiceID = id
		}

		var ok bool
		if f.DateFrom, ok = parseDateQuery(c, "date_from", false); !ok {
			return
		}
		if f.DateTo, ok = parseDateQuery(c, "date_to", true); !ok {
			return
		}

		list, err := svcs.Admin.ListBookings(c.Request.Context(), f)
		if err != nil {
			respondErr(c, err)
			return
		}

		out := make([]BookingResponse, 0, len(list))
		for _, b := range list {
			out = append(out, toBookingResponse(b))
		}
		c.Header("Cache-Control", cacheNoStore)
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Get booking
// @Security BearerAuth
// @Param    id  path  int  true  "Booking ID"
// @Success  200  {object}  BookingResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/bookings/{id} [get]
func handleAdminGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Admin.GetBooking(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(*b))
	}
}

// @Summary  Override booking status
// @Description Any status may be set regardless of the payment state; only capacity can reject it.
// @Security BearerAuth
// @Param    id   path  int                         true  "Booking ID"
// @Param    req  body  UpdateBookingStatusRequest  true  "payload"
// @Success  200  {object}  BookingResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "event is full"
// @Router   /api/admin/bookings/{id}/status [patch]
func handleAdminUpdateStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateBookingStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "status must be one of pending, waiting_payment, confirmed, cancelled")
			return
		}

		b, err := svcs.Admin.UpdateStatus(c.Request.Context(), id, domain.BookingStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toBookingResponse(*b))
	}
}

// @Summary  Delete booking
// @Security BearerAuth
// @Param    id  path  int  true  "Booking ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/bookings/{id} [delete]
func handleAdminDeleteBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Admin.Delete(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  List schedule (admin)
// @Security BearerAuth
// @Param    service_slug  query  string  false  "Service slug"
// @Success  200  {array}  ScheduleEventResponse
// @Router   /api/admin/schedule [get]
func handleAdminListSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := svcs.Ledger.ListSchedule(c.Request.Context(), c.Query("service_slug"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", cacheNoStore)
		c.JSON(http.StatusOK, toScheduleResponse(events))
	}
}

// @Summary  Create schedule event
// @Security BearerAuth
// @Param    req  body  ScheduleEventRequest  true  "payload"
// @Success  201  {object}  CreateScheduleEventResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse  "service not found"
// @Router   /api/admin/schedule [post]
func handleAdminCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ScheduleEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		id, err := svcs.Ledger.CreateEvent(c.Request.Context(), req.toDomain(0))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, CreateScheduleEventResponse{ID: id})
	}
}

// @Summary  Update schedule event
// @Security BearerAuth
// @Param    id   path  int                   true  "Event ID"
// @Param    req  body  ScheduleEventRequest  true  "payload"
// @Success  200  {object}  ScheduleEventResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/admin/schedule/{id} [put]
func handleAdminUpdateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		var req ScheduleEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		if err := svcs.Ledger.UpdateEvent(c.Request.Context(), req.toDomain(id)); err != nil {
			respondErr(c, err)
			return
		}

		e, err := svcs.Ledger.GetEvent(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, toScheduleEventResponse(*e))
	}
}

// @Summary  Delete schedule event
// @Security BearerAuth
// @Param    id  path  int  true  "Event ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Failure  409  {object}  ErrorResponse  "event has bookings"
// @Router   /api/admin/schedule/{id} [delete]
func handleAdminDeleteEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		if err := svcs.Ledger.DeleteEvent(c.Request.Context(), id); err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
