package handlers

import (
	"log/slog"
	"net/http"

	"artarena/internal/services"
	"artarena/internal/utils"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	notifier *services.Notifier
	logger   *slog.Logger
}

func NewNotificationHandler(svc *services.Services, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifier: svc.Notifier, logger: services.ResolveLogger(logger)}
}

func (h *NotificationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	actor := actorID(c)
	list, err := h.notifier.List(ctx, actor, utils.StringToInt(c.Query("limit")))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	unread, err := h.notifier.Unread(ctx, actor)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, gin.H{"notifications": list, "unread": unread})
}

type markReadRequest struct {
	IDs []uint `json:"ids"`
}

// MarkRead ids 为空时全部标为已读
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req markReadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.Error(c, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	n, err := h.notifier.MarkRead(c.Request.Context(), actorID(c), req.IDs)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, gin.H{"updated": n})
}
