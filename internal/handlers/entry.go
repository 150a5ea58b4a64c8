package handlers

import (
	"log/slog"
	"net/http"

	"artarena/internal/middleware"
	"artarena/internal/models"
	"artarena/internal/services"
	"artarena/internal/utils"

	"github.com/gin-gonic/gin"
)

type EntryHandler struct {
	entries   *services.EntryService
	reactions *services.ReactionLedger
	comments  *services.CommentService
	logger    *slog.Logger
}

func NewEntryHandler(svc *services.Services, logger *slog.Logger) *EntryHandler {
	return &EntryHandler{
		entries:   svc.Entries,
		reactions: svc.Reactions,
		comments:  svc.Comments,
		logger:    services.ResolveLogger(logger),
	}
}

type submitEntryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Phase1URL   string `json:"phase_1_url"`
	Phase2URL   string `json:"phase_2_url"`
	Phase3URL   string `json:"phase_3_url"`
	Phase4URL   string `json:"phase_4_url"`
}

// Submit 提交作品到比赛
func (h *EntryHandler) Submit(c *gin.Context) {
	contestID, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req submitEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := h.entries.Submit(c.Request.Context(), actorID(c), services.SubmitEntryInput{
		ContestID:   contestID,
		Title:       req.Title,
		Description: req.Description,
		PhaseURLs:   [models.MaxPhases]string{req.Phase1URL, req.Phase2URL, req.Phase3URL, req.Phase4URL},
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, utils.Response{Code: 0, Msg: "ok", Data: entry})
}

func (h *EntryHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entry, err := h.entries.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	// 未通过审核的作品只对作者本人和管理员可见
	if entry.Status != models.EntryApproved && entry.UserID != actorID(c) && !middleware.CurrentUser(c).IsAdmin() {
		writeError(c, h.logger, services.ErrNotFound)
		return
	}
	utils.Success(c, entry)
}

type reactRequest struct {
	Type *models.ReactionType `json:"type"`
}

// React 设置点评类型，type 为 null 时清除
func (h *EntryHandler) React(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	actor := actorID(c)
	res, err := h.reactions.React(c.Request.Context(), actor, id, actor, req.Type)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, res)
}

func (h *EntryHandler) ClearReaction(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	actor := actorID(c)
	res, err := h.reactions.ClearReaction(c.Request.Context(), actor, id, actor)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, res)
}

func (h *EntryHandler) Comments(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	comments, err := h.comments.List(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, comments)
}

type commentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parent_id"`
}

func (h *EntryHandler) CreateComment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	comment, err := h.comments.Create(c.Request.Context(), actorID(c), id, req.ParentID, req.Content)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, utils.Response{Code: 0, Msg: "ok", Data: comment})
}
