package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/TIANLI0/reefmask/annotation"
	"github.com/TIANLI0/reefmask/backend"
	"github.com/TIANLI0/reefmask/model"
	"github.com/TIANLI0/reefmask/session"
	"github.com/TIANLI0/reefmask/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func ok(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func badRequest(c *gin.Context, message string, err error) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

// fail 按错误类型选择状态码
func fail(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		utils.Logger.Error(message,
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Message: message,
		Error:   err.Error(),
	})
}

func statusFor(err error) int {
	var remote *backend.RemoteError
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, session.ErrUnknownLayer):
		return http.StatusNotFound
	case errors.Is(err, annotation.ErrUnknownCategory),
		errors.Is(err, session.ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNoData),
		errors.Is(err, session.ErrBusy),
		errors.Is(err, session.ErrNoCandidate),
		errors.Is(err, session.ErrNothingToUndo),
		errors.Is(err, session.ErrNothingToRedo),
		errors.Is(err, session.ErrExportRunning),
		errors.Is(err, session.ErrSessionLimit),
		errors.Is(err, session.ErrCandidateSize),
		errors.Is(err, annotation.ErrDuplicateCategory):
		return http.StatusConflict
	case errors.Is(err, backend.ErrNoData):
		return http.StatusNotFound
	case errors.As(err, &remote):
		return http.StatusBadGateway
	case errors.Is(err, backend.ErrClosed),
		errors.Is(err, session.ErrLoopClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
