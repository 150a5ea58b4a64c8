package handlers

import (
	"log/slog"

	"artarena/internal/models"
	"artarena/internal/services"
	"artarena/internal/utils"

	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	users   *services.UserService
	follows *services.FollowService
	entries *services.EntryService
	points  *services.PointsLedger
	logger  *slog.Logger
}

func NewUserHandler(svc *services.Services, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:   svc.Users,
		follows: svc.Follows,
		entries: svc.Entries,
		points:  svc.Points,
		logger:  services.ResolveLogger(logger),
	}
}

// Profile 用户主页：计数、等级和已通过的作品
func (h *UserHandler) Profile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	profile, err := h.users.Profile(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	entries, err := h.entries.ListByUser(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	visible := entries[:0]
	for _, e := range entries {
		if e.Status == models.EntryApproved || e.UserID == actorID(c) {
			visible = append(visible, e)
		}
	}
	utils.Success(c, gin.H{"user": profile, "entries": visible})
}

func (h *UserHandler) Me(c *gin.Context) {
	profile, err := h.users.Profile(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, profile)
}

// Points 当前用户的积分明细
func (h *UserHandler) Points(c *gin.Context) {
	logs, err := h.points.History(c.Request.Context(), actorID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, logs)
}

func (h *UserHandler) Follow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	created, err := h.follows.Follow(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, gin.H{"following": true, "changed": created})
}

func (h *UserHandler) Unfollow(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	removed, err := h.follows.Unfollow(c.Request.Context(), actorID(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, gin.H{"following": false, "changed": removed})
}
