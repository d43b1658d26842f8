package httpgin

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
	"github.com/atmanstudio/booking/internal/service"
	"github.com/atmanstudio/booking/internal/service/admin"
	"github.com/atmanstudio/booking/internal/service/booking"
	"github.com/atmanstudio/booking/internal/service/ledger"
	"github.com/atmanstudio/booking/internal/service/payments"
)

type RouterConfig struct {
	// AdminSecret signs admin bearer tokens. Empty disables the admin API.
	AdminSecret string
	CORSOrigins []string
	// IdemLockTTL bounds how long a booking submission holds its
	// Idempotency-Key before a retry may take over.
	IdemLockTTL time.Duration
	// SSEKeepAlive is the ping interval of the schedule change stream.
	SSEKeepAlive time.Duration
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.IdemLockTTL <= 0 {
		c.IdemLockTTL = 60 * time.Second
	}
	if c.SSEKeepAlive <= 0 {
		c.SSEKeepAlive = 25 * time.Second
	}
	return c
}

// NewRouter builds the HTTP API. idem may be nil, in which case the
// Idempotency-Key header is ignored.
func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	cfg RouterConfig,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	cfg = cfg.withDefaults()
	registerValidators()

	r := gin.New()

	r.Use(gin.Recovery(), TracingMiddleware(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS(cfg.CORSOrigins))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/schedule", handleListSchedule(svcs))
		api.GET("/schedule/bookable", handleListBookable(svcs))
		api.GET("/schedule/changes", handleScheduleChanges(svcs, cfg.SSEKeepAlive))

		api.POST("/bookings", handleCreateBooking(svcs, idem, cfg.IdemLockTTL))

		api.GET("/payments/:payment_id/status", handlePaymentStatus(svcs))
		api.POST("/payments/webhook", handlePaymentWebhook(svcs))
	}

	adm := api.Group("/admin", AdminAuth(cfg.AdminSecret))
	{
		adm.GET("/bookings", handleAdminListBookings(svcs))
		adm.GET("/bookings/:id", handleAdminGetBooking(svcs))
		adm.PATCH("/bookings/:id/status", handleAdminUpdateStatus(svcs))
		adm.DELETE("/bookings/:id", handleAdminDeleteBooking(svcs))

		adm.GET("/schedule", handleAdminListSchedule(svcs))
		adm.POST("/schedule", handleAdminCreateEvent(svcs))
		adm.PUT("/schedule/:id", handleAdminUpdateEvent(svcs))
		adm.DELETE("/schedule/:id", handleAdminDeleteEvent(svcs))
	}

	return r
}

// --- helpers ---

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

// parseDateQuery accepts RFC3339 or YYYY-MM-DD. A bare date used as an
// upper bound covers the whole day.
func parseDateQuery(c *gin.Context, name string, upper bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, true
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		badRequest(c, fmt.Sprintf("invalid %s, expected RFC3339 or YYYY-MM-DD", name))
		return nil, false
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// detailOf returns the part of err's message starting at sentinel, which
// drops the operation prefixes added on the way up.
func detailOf(err, sentinel error) string {
	msg := err.Error()
	if i := strings.Index(msg, sentinel.Error()); i >= 0 {
		return msg[i:]
	}
	return sentinel.Error()
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var contactErr booking.ContactError
	var rateErr booking.RateLimitedError

	switch {
	// booking service
	case errors.Is(err, booking.ErrConsentRequired):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "Please accept the privacy policy, the personal data consent and the terms of service"})
	case errors.As(err, &contactErr):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: contactErr.Error()})
	case errors.As(err, &rateErr):
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(rateErr.RetryAfter.Seconds()))))
		c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many booking attempts, please try again later"})
	case errors.Is(err, booking.ErrSlotNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "Schedule event not found"})
	case errors.Is(err, booking.ErrSlotInactive):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "This class is not available for booking"})
	case errors.Is(err, booking.ErrNoSeats):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "No seats available"})
	case errors.Is(err, booking.ErrIndividualSlot):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "Individual sessions are booked by contacting the administrator directly"})
	case errors.Is(err, booking.ErrPaymentUnavailable):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Payment could not be created, please try again later"})
	// payments service
	case errors.Is(err, payments.ErrPaymentsDisabled):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "online payments are not configured"})
	case errors.Is(err, payments.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "payment not found"})
	case errors.Is(err, payments.ErrProviderUnavailable):
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "payment provider unavailable"})
	case errors.Is(err, payments.ErrInvalidSignature):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid signature"})
	case errors.Is(err, payments.ErrMalformedWebhook):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed notification"})
	// admin service
	case errors.Is(err, admin.ErrBookingNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "booking not found"})
	case errors.Is(err, admin.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid booking status"})
	case errors.Is(err, admin.ErrNoSeats):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "no seats available for this status"})
	// ledger service
	case errors.Is(err, ledger.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "schedule event not found"})
	case errors.Is(err, ledger.ErrServiceNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "service not found"})
	case errors.Is(err, ledger.ErrInvalidEvent):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: detailOf(err, ledger.ErrInvalidEvent)})
	case errors.Is(err, ledger.ErrEventHasBooking):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "schedule event has bookings"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
