package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"artarena/internal/models"
	"artarena/internal/services"
	"artarena/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	contestListTTL = 15 * time.Second
	winnersTTL     = 10 * time.Minute
	cacheKeyList   = "contests:list:"
	cacheKeyWinner = "contests:winners:"
)

type ContestHandler struct {
	contests *services.ContestService
	entries  *services.EntryService
	cache    *utils.TTLCache
	logger   *slog.Logger
}

func NewContestHandler(svc *services.Services, cache *utils.TTLCache, logger *slog.Logger) *ContestHandler {
	return &ContestHandler{
		contests: svc.Contests,
		entries:  svc.Entries,
		cache:    cache,
		logger:   services.ResolveLogger(logger),
	}
}

// List 比赛列表，可按 status 过滤。短 TTL 缓存
func (h *ContestHandler) List(c *gin.Context) {
	filter := models.ContestStatus(c.Query("status"))
	switch filter {
	case "", models.StatusUpcoming, models.StatusActive, models.StatusEnded, models.StatusFinalized:
	default:
		utils.Error(c, http.StatusBadRequest, "unknown status filter")
		return
	}

	key := cacheKeyList + string(filter)
	if cached, ok := h.cache.Get(key); ok {
		utils.Success(c, cached)
		return
	}
	list, err := h.contests.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	h.cache.Set(key, list, contestListTTL)
	utils.Success(c, list)
}

func (h *ContestHandler) Detail(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	contest, err := h.contests.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, contest)
}

// Status 对外的 getContestStatus
func (h *ContestHandler) Status(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	status, err := h.contests.Status(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, gin.H{"contest_id": id, "status": status})
}

func (h *ContestHandler) Entries(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	entries, err := h.entries.ListApproved(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	utils.Success(c, entries)
}

// Winners 结算后的获奖名单不会再变，可以长时间缓存
func (h *ContestHandler) Winners(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	key := cacheKeyWinner + utils.FormatID(id)
	if cached, ok := h.cache.Get(key); ok {
		utils.Success(c, cached)
		return
	}
	winners, err := h.contests.Winners(c.Request.Context(), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if len(winners) > 0 {
		h.cache.Set(key, winners, winnersTTL)
	}
	utils.Success(c, winners)
}

// invalidateContests 比赛创建、修改或结算后清掉列表缓存
func invalidateContests(cache *utils.TTLCache) {
	cache.DeletePrefix(cacheKeyList)
}
