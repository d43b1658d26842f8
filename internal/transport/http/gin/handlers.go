package httpgin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	redisrepo "github.com/atmanstudio/booking/internal/repository/redis"
	"github.com/atmanstudio/booking/internal/service"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerWebhookHash    = "X-Payment-Sha1-Hash"

	maxWebhookBody = 1 << 20
)

// @Summary  List schedule
// @Description Every event of active services, including full and inactive ones, earliest first.
// @Param    service_slug  query  string  false  "Service slug"
// @Success  200  {array}   ScheduleEventResponse
// @Router   /api/schedule [get]
func handleListSchedule(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := svcs.Ledger.ListSchedule(c.Request.Context(), c.Query("service_slug"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, toScheduleResponse(events), cacheSchedule)
	}
}

// @Summary  List bookable schedule
// @Description Active events with at least one free seat, earliest first.
// @Param    service_slug  query  string  false  "Service slug"
// @Success  200  {array}   ScheduleEventResponse
// @Router   /api/schedule/bookable [get]
func handleListBookable(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := svcs.Ledger.ListBookable(c.Request.Context(), c.Query("service_slug"))
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, toScheduleResponse(events), cacheSchedule)
	}
}

// @Summary  Create booking (idempotent)
// @Param    req  body  CreateBookingRequest  true  "payload"
// @Param    Idempotency-Key  header  string  false  "retry key"
// @Success  201  {object}  CreateBookingResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse  "schedule event not found"
// @Failure  409  {object}  ErrorResponse  "no seats / inactive / idempotency key in progress"
// @Failure  422  {object}  ErrorResponse  "consent or contact missing"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Failure  502  {object}  ErrorResponse  "payment provider"
// @Router   /api/bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	lockTTL time.Duration,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader(headerIdempotencyKey))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemBooking(req.ScheduleEventID, idemKey)

			state, payload, err := idem.Claim(c.Request.Context(), idemStorageKey, lockTTL)
			if err != nil {
				respondErr(c, err)
				return
			}

			switch state {
			case redisrepo.Replayed:
				c.Header(headerIdempotencyKey, idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			case redisrepo.InProgress:
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "Your booking is already being processed"})
				return
			}
		}

		receipt, err := svcs.Booking.Create(c.Request.Context(), req.toDomain(), "ip:"+c.ClientIP())
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := toCreateBookingResponse(receipt)

		if idemStorageKey != "" {
			b, _ := json.Marshal(resp)
			if err := idem.SaveResult(c.Request.Context(), idemStorageKey, string(b)); err != nil {
				_ = c.Error(err)
			}
			c.Header(headerIdempotencyKey, idemKey)
		}

		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Reconcile payment status
// @Description Fetches the provider status, applies it to the booking and returns the snapshot.
// @Param    payment_id  path  string  true  "Provider payment ID"
// @Success  200  {object}  PaymentStatusResponse
// @Failure  404  {object}  ErrorResponse
// @Failure  502  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse  "payments disabled"
// @Router   /api/payments/{payment_id}/status [get]
func handlePaymentStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID := strings.TrimSpace(c.Param("payment_id"))
		if paymentID == "" {
			badRequest(c, "invalid payment_id")
			return
		}

		snap, err := svcs.Payments.CheckStatus(c.Request.Context(), paymentID)
		if err != nil {
			respondErr(c, err)
			return
		}

		c.Header("Cache-Control", cacheNoStore)
		c.JSON(http.StatusOK, toPaymentStatusResponse(snap))
	}
}

// @Summary  Payment provider notification
// @Param    X-Payment-Sha1-Hash  header  string  false  "HMAC-SHA1 of the body"
// @Success  200  {object}  OKResponse
// @Failure  400  {object}  ErrorResponse
// @Failure  401  {object}  ErrorResponse
// @Router   /api/payments/webhook [post]
func handlePaymentWebhook(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "notification too large"})
				return
			}
			badRequest(c, "cannot read body")
			return
		}

		if err := svcs.Payments.HandleWebhook(c.Request.Context(), body, c.GetHeader(headerWebhookHash)); err != nil {
			respondErr(c, err)
			return
		}

		c.JSON(http.StatusOK, OKResponse{OK: true})
	}
}
