// api/handlers/alert_handler.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AlertHandler handles alert listing and resolution
type AlertHandler struct {
	alerts service.AlertService
	log    *logrus.Logger
}

// NewAlertHandler creates a new AlertHandler instance
func NewAlertHandler(alerts service.AlertService, log *logrus.Logger) *AlertHandler {
	return &AlertHandler{
		alerts: alerts,
		log:    log,
	}
}

// ListAlerts returns alerts, optionally filtered by status
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	status := models.AlertStatus(c.Query("status"))
	if status != "" && status != models.AlertStatusUnresolved && status != models.AlertStatusResolved {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	alerts, err := h.alerts.ListAlerts(c.Request.Context(), status)
	if err != nil {
		h.log.WithError(err).Error("Failed to list alerts")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list alerts"})
		return
	}

	c.JSON(http.StatusOK, alerts)
}

// GetAlert returns a single alert by ID
func (h *AlertHandler) GetAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	alert, err := h.alerts.GetAlert(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.log.WithError(err).Error("Failed to get alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get alert"})
		return
	}

	c.JSON(http.StatusOK, alert)
}

// ResolveAlert marks an alert resolved
func (h *AlertHandler) ResolveAlert(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert ID"})
		return
	}

	if err := h.alerts.ResolveAlert(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
			return
		}
		h.log.WithError(err).Error("Failed to resolve alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve alert"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}
