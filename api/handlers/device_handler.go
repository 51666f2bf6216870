// api/handlers/device_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/service"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DeviceHandler handles device-related requests
type DeviceHandler struct {
	service service.Service
	hub     *ws.Hub
	log     *logrus.Logger
}

// NewDeviceHandler creates a new DeviceHandler instance
func NewDeviceHandler(svc service.Service, hub *ws.Hub, log *logrus.Logger) *DeviceHandler {
	return &DeviceHandler{
		service: svc,
		hub:     hub,
		log:     log,
	}
}

// resolveDevice looks a device up by numeric ID, falling back to UID for
// non-numeric path parameters
func (h *DeviceHandler) resolveDevice(c *gin.Context) (*models.Device, bool) {
	idStr := c.Param("id")
	if id, err := strconv.ParseUint(idStr, 10, 64); err == nil {
		device, err := h.service.GetDevice(c.Request.Context(), uint(id))
		if err != nil {
			h.log.WithError(err).Warnf("Device %s not found", idStr)
			c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
			return nil, false
		}
		return device, true
	}

	device, err := h.service.GetDeviceByUID(c.Request.Context(), idStr)
	if err != nil {
		h.log.WithError(err).Warnf("Device %s not found", idStr)
		c.JSON(http.StatusNotFound, gin.H{"error": "Device not found"})
		return nil, false
	}
	return device, true
}

// ListDevices handles listing devices, optionally filtered by space
func (h *DeviceHandler) ListDevices(c *gin.Context) {
	var spaceID uint
	if spaceIDStr := c.Query("space_id"); spaceIDStr != "" {
		id, err := strconv.ParseUint(spaceIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid space ID"})
			return
		}
		spaceID = uint(id)
	}

	devices, err := h.service.ListDevices(c.Request.Context(), spaceID)
	if err != nil {
		h.log.WithError(err).Error("Failed to list devices")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list devices"})
		return
	}

	c.JSON(http.StatusOK, devices)
}

// GetDevice handles device information retrieval, including live
// connectivity derived from the session registry
func (h *DeviceHandler) GetDevice(c *gin.Context) {
	device, ok := h.resolveDevice(c)
	if !ok {
		return
	}

	_, connected := h.hub.Registry().Lookup(device.UID)
	c.JSON(http.StatusOK, gin.H{
		"device":    device,
		"connected": connected,
	})
}

// ListDeviceEvents returns event log entries for a device. Without a time
// window it returns the most recent entries.
func (h *DeviceHandler) ListDeviceEvents(c *gin.Context) {
	device, ok := h.resolveDevice(c)
	if !ok {
		return
	}

	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr == "" && toStr == "" {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		events, err := h.service.ListRecentDeviceEvents(c.Request.Context(), device.ID, limit)
		if err != nil {
			h.log.WithError(err).Error("Failed to list device events")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list device events"})
			return
		}
		c.JSON(http.StatusOK, events)
		return
	}

	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'from' timestamp, expected RFC3339"})
		return
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'to' timestamp, expected RFC3339"})
		return
	}

	events, err := h.service.ListDeviceEvents(c.Request.Context(), repository.EventQuery{
		DeviceID: device.ID,
		From:     from,
		To:       to,
		Origin:   models.EventOrigin(c.Query("origin")),
		Kind:     models.EventKind(c.Query("kind")),
	})
	if err != nil {
		h.log.WithError(err).Error("Failed to list device events")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list device events"})
		return
	}

	c.JSON(http.StatusOK, events)
}

// SendCommand dispatches the request body to the device's live WebSocket
// session. The body is forwarded verbatim as the command payload.
func (h *DeviceHandler) SendCommand(c *gin.Context) {
	device, ok := h.resolveDevice(c)
	if !ok {
		return
	}

	var command map[string]interface{}
	if err := c.ShouldBindJSON(&command); err != nil {
		h.log.WithError(err).Warn("Invalid command format")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid command format"})
		return
	}

	var initiator *uint
	if userIDStr := c.Query("user_id"); userIDStr != "" {
		id, err := strconv.ParseUint(userIDStr, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		uid := uint(id)
		initiator = &uid
	}

	if err := h.hub.SendCommand(c.Request.Context(), device, command, initiator); err != nil {
		if errors.Is(err, ws.ErrNotConnected) {
			c.JSON(http.StatusConflict, gin.H{"error": "Device is not connected"})
			return
		}
		h.log.WithError(err).Error("Failed to send command")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send command"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}
