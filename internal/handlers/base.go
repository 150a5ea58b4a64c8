package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"artarena/internal/middleware"
	"artarena/internal/services"
	"artarena/internal/utils"

	"github.com/gin-gonic/gin"
)

// statusFor 把服务层错误映射为 HTTP 状态码，只在这一处维护
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotEligible),
		errors.Is(err, services.ErrDuplicateEntry),
		errors.Is(err, services.ErrContestClosed),
		errors.Is(err, services.ErrAlreadyReviewed),
		errors.Is(err, services.ErrContestFinalized),
		errors.Is(err, services.ErrContestHasEntries),
		errors.Is(err, services.ErrSweepLocked):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"event", "http_request_failed",
			"module", "handlers",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.GetString(middleware.RequestIDKey),
			"error", err,
		)
		utils.Error(c, status, "internal error")
		return
	}
	utils.Error(c, status, err.Error())
}

// paramID 解析路径中的 id，失败时已经写好 400
func paramID(c *gin.Context, name string) (uint, bool) {
	id, ok := utils.ParseID(c.Param(name))
	if !ok {
		utils.Error(c, http.StatusBadRequest, "invalid "+name)
	}
	return id, ok
}

// actorID 未登录时为 0，由服务层拒绝
func actorID(c *gin.Context) uint {
	if u := middleware.CurrentUser(c); u != nil {
		return u.ID
	}
	return 0
}
