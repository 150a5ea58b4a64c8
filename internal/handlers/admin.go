package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"artarena/internal/middleware"
	"artarena/internal/models"
	"artarena/internal/services"
	"artarena/internal/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	contests  *services.ContestService
	entries   *services.EntryService
	finalizer services.ContestFinalizer
	scheduler *services.Scheduler
	cache     *utils.TTLCache
	logger    *slog.Logger
}

func NewAdminHandler(svc *services.Services, cache *utils.TTLCache, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		contests:  svc.Contests,
		entries:   svc.Entries,
		finalizer: svc.Finalizer,
		scheduler: svc.Scheduler,
		cache:     cache,
		logger:    services.ResolveLogger(logger),
	}
}

func (h *AdminHandler) CreateContest(c *gin.Context) {
	var in services.ContestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	contest, err := h.contests.Create(c.Request.Context(), middleware.CurrentUser(c), in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	invalidateContests(h.cache)
	c.JSON(http.StatusCreated, utils.Response{Code: 0, Msg: "ok", Data: contest})
}

func (h *AdminHandler) UpdateContest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in services.ContestInput
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	contest, err := h.contests.Update(c.Request.Context(), middleware.CurrentUser(c), id, in)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	invalidateContests(h.cache)
	utils.Success(c, contest)
}

func (h *AdminHandler) DeleteContest(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.contests.Delete(c.Request.Context(), middleware.CurrentUser(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	invalidateContests(h.cache)
	utils.Success(c, gin.H{"contest_id": id, "deleted": true})
}

// ContestEntries 审核队列，?status=pending 只看待审核，不传返回全部
func (h *AdminHandler) ContestEntries(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	status := models.EntryStatus(c.Query("status"))
	entries, err := h.entries.ListForReview(c.Request.Context(), middleware.CurrentUser(c), id, status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, entries)
}

// Finalize 对外的 finalizeContest，?force=true 可提前结算进行中的比赛
func (h *AdminHandler) Finalize(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))
	res, err := h.finalizer.Finalize(c.Request.Context(), id, services.FinalizeOptions{Force: force})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	invalidateContests(h.cache)
	h.logger.Info("admin finalized contest",
		"event", "admin_finalize",
		"module", "handlers",
		"contest_id", id,
		"admin_id", actorID(c),
		"forced", force,
	)
	utils.Success(c, res)
}

type reviewRequest struct {
	Approve bool   `json:"approve"`
	Reason  string `json:"reason"`
}

func (h *AdminHandler) ReviewEntry(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "invalid request body")
		return
	}
	entry, err := h.entries.Review(c.Request.Context(), middleware.CurrentUser(c), id, req.Approve, req.Reason)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, entry)
}

// Sweep 手动触发一次结算扫描
func (h *AdminHandler) Sweep(c *gin.Context) {
	outcomes, err := h.scheduler.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	invalidateContests(h.cache)
	utils.Success(c, outcomes)
}
