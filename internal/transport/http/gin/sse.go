package httpgin

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atmanstudio/booking/internal/service"
)

type ScheduleChangedMessage struct {
	ScheduleEventID int64 `json:"schedule_event_id"`
}

// @Summary  Schedule change stream
// @Description Server-sent events. "ready" once subscribed, then "schedule_changed" after every committed capacity change and "ping" as keep-alive. Clients re-fetch the schedule on each change.
// @Produce  text/event-stream
// @Success  200
// @Router   /api/schedule/changes [get]
func handleScheduleChanges(svcs *service.Services, keepAlive time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		changes, unsubscribe := svcs.Hub.Subscribe()
		defer unsubscribe()

		c.Header("Cache-Control", "no-cache")
		c.Header("Connection", "keep-alive")
		c.Header("X-Accel-Buffering", "no")
		c.Status(http.StatusOK)

		c.SSEvent("ready", gin.H{})
		c.Writer.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		ctx := c.Request.Context()
		c.Stream(func(io.Writer) bool {
			select {
			case <-ctx.Done():
				return false
			case id, ok := <-changes:
				if !ok {
					return false
				}
				c.SSEvent("schedule_changed", ScheduleChangedMessage{ScheduleEventID: id})
				return true
			case <-ticker.C:
				c.SSEvent("ping", time.Now().Unix())
				return true
			}
		})
	}
}
