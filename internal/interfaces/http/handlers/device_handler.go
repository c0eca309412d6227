package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/08star/my-auth-app/internal/application/dto"
	"github.com/08star/my-auth-app/internal/application/services"
	"github.com/08star/my-auth-app/internal/interfaces/http/middleware"
	"github.com/08star/my-auth-app/pkg/errors"
)

// DeviceHandler exposes the caller's device bindings.
type DeviceHandler struct {
	devices *services.DeviceService
}

// NewDeviceHandler creates a new device handler.
func NewDeviceHandler(devices *services.DeviceService) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

// List returns every device bound to the caller.
// GET /devices
func (h *DeviceHandler) List(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	list, err := h.devices.ListDevices(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, list)
}

// Register binds a device to the caller as pending.
// POST /devices/register
func (h *DeviceHandler) Register(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req dto.DeviceRequest
	if !bindDeviceRequest(c, &req) {
		return
	}

	resp, created, err := h.devices.RegisterDevice(c.Request.Context(), userID, req.DeviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	middleware.SetDeviceOutcome(c, resp.Verified, created)

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

// Verify makes a device the caller's only verified device.
// POST /devices/verify
func (h *DeviceHandler) Verify(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
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

// Status reports one binding without changing it.
// GET /devices/status?device_id=
func (h *DeviceHandler) Status(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	deviceID := c.Query("device_id")
	middleware.SetDeviceID(c, deviceID)

	resp, err := h.devices.DeviceStatus(c.Request.Context(), userID, deviceID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// bindDeviceRequest decodes the body into req and tags the request with the
// device id. An empty body is left to the service's device_id check.
func bindDeviceRequest(c *gin.Context, req *dto.DeviceRequest) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "invalid request body")
		return false
	}
	middleware.SetDeviceID(c, req.DeviceID)
	return true
}
