package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ds124wfegd/hotel-booking/pkg/queue"
	"github.com/gin-gonic/gin"
)

// QueueMonitor is the read side of the notification queue.
type QueueMonitor interface {
	HealthCheck(ctx context.Context) error
	GetQueueStats(ctx context.Context) (*queue.QueueStats, error)
	FailedTasks(ctx context.Context, limit int) ([]*queue.FailedTask, error)
}

type HealthHandler struct {
	queue QueueMonitor
}

// NewHealthHandler accepts a nil monitor when notifications are not queued.
func NewHealthHandler(q QueueMonitor) *HealthHandler {
	return &HealthHandler{queue: q}
}

func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	}
	if h.queue == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	if err := h.queue.HealthCheck(c.Request.Context()); err != nil {
		body["status"] = "degraded"
		body["queue"] = err.Error()
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	if stats, err := h.queue.GetQueueStats(c.Request.Context()); err == nil {
		body["queue"] = stats
	}
	c.JSON(http.StatusOK, body)
}

// FailedNotifications lists dead-lettered notification tasks for operators.
func (h *HealthHandler) FailedNotifications(c *gin.Context) {
	if h.queue == nil {
		respond(c, http.StatusOK, "Notification queue is disabled", []*queue.FailedTask{})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}

	tasks, err := h.queue.FailedTasks(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Failed notifications retrieved successfully", tasks)
}
