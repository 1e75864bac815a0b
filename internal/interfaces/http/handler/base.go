package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stocker/backend/internal/application/mediator"
	"github.com/stocker/backend/internal/domain/shared"
	"github.com/stocker/backend/internal/infrastructure/logger"
	"github.com/stocker/backend/internal/interfaces/http/dto"
	"github.com/stocker/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler carries the mediator every API handler dispatches through.
type BaseHandler struct {
	mediator *mediator.Mediator
}

func getRequestID(c *gin.Context) string {
	return c.GetString(middleware.RequestIDKey)
}

func getTenantID(c *gin.Context) uuid.UUID {
	return middleware.GetTenantID(c)
}

func getUserID(c *gin.Context) *uuid.UUID {
	return middleware.GetUserID(c)
}

// send dispatches req and writes its result with status.
func send[Req any, Res any](c *gin.Context, m *mediator.Mediator, req Req, status int) {
	res, err := mediator.Send[Req, Res](c.Request.Context(), m, req)
	if err != nil {
		handleError(c, err)
		return
	}
	if status == http.StatusNoContent {
		c.Status(status)
		return
	}
	c.JSON(status, dto.NewSuccessResponse(res))
}

// sendPage dispatches a list query and writes items plus page meta.
func sendPage[Req any, T any](c *gin.Context, m *mediator.Mediator, req Req) {
	page, err := mediator.Send[Req, shared.Paginated[T]](c.Request.Context(), m, req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewPageResponse(page))
}

// handleError writes the envelope for err. Internal errors are logged with
// their cause; clients only see a generic message.
func handleError(c *gin.Context, err error) {
	status, body := dto.FromError(err, getRequestID(c))
	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("request failed", zap.Error(err))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message, getRequestID(c)))
}

// bindJSON decodes the request body into dst. It writes the error response
// and returns false when the body is unusable.
func bindJSON(c *gin.Context, dst any) bool {
	err := json.NewDecoder(c.Request.Body).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		badRequest(c, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
	case errors.Is(err, io.EOF):
		badRequest(c, dto.ErrCodeInvalidJSON, "Request body is required")
	default:
		badRequest(c, dto.ErrCodeInvalidJSON, "Malformed JSON body: "+err.Error())
	}
	return false
}

// pathUUID parses the named path parameter.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, dto.ErrCodeInvalidInput, "Invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// queryUUID parses an optional UUID query parameter.
func queryUUID(c *gin.Context, name string) (*uuid.UUID, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		badRequest(c, dto.ErrCodeInvalidInput, "Invalid "+name+": must be a UUID")
		return nil, false
	}
	return &id, true
}

// queryDecimal parses an optional decimal query parameter, defaulting to zero.
func queryDecimal(c *gin.Context, name string) (decimal.Decimal, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return decimal.Zero, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		badRequest(c, dto.ErrCodeInvalidInput, "Invalid "+name+": must be a number")
		return decimal.Zero, false
	}
	return d, true
}

// bindQuery binds page, sort and filter query parameters into dst.
func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		badRequest(c, dto.ErrCodeInvalidInput, "Invalid query parameters: "+err.Error())
		return false
	}
	return true
}
