package httpgin

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/atmanstudio/booking/internal/domain"
)

var registerOnce sync.Once

// registerValidators adds the booking_status tag to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("booking_status", func(fl validator.FieldLevel) bool {
			return domain.BookingStatus(fl.Field().String()).Valid()
		})
	})
}
