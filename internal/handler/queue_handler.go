package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"buildline/internal/service"
)

type QueueHandler struct {
	queueSvc *service.QueueService
}

func NewQueueHandler(queueSvc *service.QueueService) *QueueHandler {
	return &QueueHandler{queueSvc: queueSvc}
}

// Get returns the ranked queue recomputed from the live open-item snapshot.
func (h *QueueHandler) Get(c *gin.Context) {
	snap, err := h.queueSvc.Snapshot(c.Request.Context())
	if err != nil {
		slog.Error("queue: snapshot failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch queue"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
