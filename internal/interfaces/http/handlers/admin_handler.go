package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/application/services"
	"github.com/08star/my-auth-app/internal/interfaces/http/middleware"
	"github.com/08star/my-auth-app/pkg/errors"
	"github.com/08star/my-auth-app/pkg/logger"
)

// AdminHandler serves the operator endpoints under /admin.
type AdminHandler struct {
	accounts *services.AccountService
	devices  *services.DeviceService
	logs     *logger.SQLiteWriter
}

// NewAdminHandler creates a new admin handler. logs may be nil, in which
// case the log query endpoint reports 404.
func NewAdminHandler(accounts *services.AccountService, devices *services.DeviceService, logs *logger.SQLiteWriter) *AdminHandler {
	return &AdminHandler{
		accounts: accounts,
		devices:  devices,
		logs:     logs,
	}
}

// ListUsers returns every account.
// GET /admin/users
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.accounts.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// DisableUser deactivates an account and ends its sessions.
// POST /admin/users/:user_id/disable
func (h *AdminHandler) DisableUser(c *gin.Context) {
	h.setActive(c, false)
}

// EnableUser reactivates an account.
// POST /admin/users/:user_id/enable
func (h *AdminHandler) EnableUser(c *gin.Context) {
	h.setActive(c, true)
}

func (h *AdminHandler) setActive(c *gin.Context, active bool) {
	userID, ok := userIDParam(c)
	if !ok {
		return
	}

	if err := h.accounts.SetActive(c.Request.Context(), userID, active); err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.accounts.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListDevices returns the devices bound to an account.
// GET /admin/users/:user_id/devices
func (h *AdminHandler) ListDevices(c *gin.Context) {
	userID, ok := h.existingUser(c)
	if !ok {
		return
	}

	list, err := h.devices.ListDevices(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// VerifyDevice approves a device on the account's behalf.
// POST /admin/users/:user_id/devices/verify
func (h *AdminHandler) VerifyDevice(c *gin.Context) {
	userID, ok := h.existingUser(c)
	if !ok {
		return
	}

	var req dto.DeviceRequest
	if !bindDeviceRequest(c, &req) {
		return
	}

	resp, err := h.devices.VerifyDevice(c.Request.Context(), userID, req.DeviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SetDeviceVerified(c, resp.Verified)
	c.JSON(http.StatusOK, resp)
}

// QueryLogs searches the structured log sink.
// GET /admin/logs?level=&search=&request_id=&user_id=&device_id=&limit=&offset=
func (h *AdminHandler) QueryLogs(c *gin.Context) {
	if h.logs == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "log storage is disabled",
		})
		return
	}

	filter := logger.QueryFilter{
		Level:     c.Query("level"),
		Search:    c.Query("search"),
		RequestID: c.Query("request_id"),
		UserID:    c.Query("user_id"),
		DeviceID:  c.Query("device_id"),
	}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "100"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	entries, total, err := h.logs.Query(c.Request.Context(), filter)
	if err != nil {
		respondError(c, errors.Wrap(err, "failed to query logs"))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   entries,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *AdminHandler) existingUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := userIDParam(c)
	if !ok {
		return uuid.Nil, false
	}
	if _, err := h.accounts.GetUser(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return uuid.Nil, false
	}
	return userID, true
}

func userIDParam(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		badRequest(c, "user_id must be a UUID")
		return uuid.Nil, false
	}
	return userID, true
}
