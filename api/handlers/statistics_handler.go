package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// StatisticsHandler handles aggregation requests over the event log
type StatisticsHandler struct {
	stats service.StatisticsService
	log   *logrus.Logger
}

// NewStatisticsHandler creates a new StatisticsHandler instance
func NewStatisticsHandler(stats service.StatisticsService, log *logrus.Logger) *StatisticsHandler {
	return &StatisticsHandler{
		stats: stats,
		log:   log,
	}
}

// subjectID parses the :id path parameter
func subjectID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID"})
		return 0, false
	}
	return uint(id), true
}

// dateParam reads the date query parameter, defaulting to today (UTC)
func dateParam(c *gin.Context) string {
	if date := c.Query("date"); date != "" {
		return date
	}
	return time.Now().UTC().Format("2006-01-02")
}

// rangeParams reads the start_date/end_date query parameters
func rangeParams(c *gin.Context) (string, string, bool) {
	start := c.Query("start_date")
	end := c.Query("end_date")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return "", "", false
	}
	return start, end, true
}

// respond writes the computed statistic or maps the failure to a status code
func (h *StatisticsHandler) respond(c *gin.Context, result interface{}, err error) {
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidPeriod):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date or period"})
		case errors.Is(err, repository.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Device or space not found"})
		case errors.Is(err, service.ErrNoData):
			c.JSON(http.StatusNotFound, gin.H{"error": "No data available for the requested period"})
		case errors.Is(err, service.ErrNoPowerRating):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No power rating configured for this device type"})
		default:
			h.log.WithError(err).Error("Failed to compute statistic")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to compute statistic"})
		}
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *StatisticsHandler) DailySensorAverage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	result, err := h.stats.DailySensorAverage(c.Request.Context(), id, dateParam(c))
	h.respond(c, result, err)
}

func (h *StatisticsHandler) WeeklySensorAverage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	result, err := h.stats.WeeklySensorAverage(c.Request.Context(), id, dateParam(c))
	h.respond(c, result, err)
}

func (h *StatisticsHandler) RangeSensorAverage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	start, end, ok := rangeParams(c)
	if !ok {
		return
	}
	result, err := h.stats.RangeSensorAverage(c.Request.Context(), id, start, end)
	h.respond(c, result, err)
}

func (h *StatisticsHandler) DailySensorAveragesForRange(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	start, end, ok := rangeParams(c)
	if !ok {
		return
	}
	result, err := h.stats.DailySensorAveragesForRange(c.Request.Context(), id, start, end)
	h.respond(c, result, err)
}

func (h *StatisticsHandler) DailyPowerUsage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	result, err := h.stats.DailyPowerUsage(c.Request.Context(), id, dateParam(c))
	h.respond(c, result, err)
}

func (h *StatisticsHandler) WeeklyPowerUsage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	result, err := h.stats.WeeklyPowerUsage(c.Request.Context(), id, dateParam(c))
	h.respond(c, result, err)
}

func (h *StatisticsHandler) MonthlyPowerUsage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}

	now := time.Now().UTC()
	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month"})
		return
	}

	result, err := h.stats.MonthlyPowerUsage(c.Request.Context(), id, year, time.Month(month))
	h.respond(c, result, err)
}

func (h *StatisticsHandler) DailyPowerUsageForRange(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	start, end, ok := rangeParams(c)
	if !ok {
		return
	}
	result, err := h.stats.DailyPowerUsageForRange(c.Request.Context(), id, start, end)
	h.respond(c, result, err)
}

func (h *StatisticsHandler) SpaceDailySensorAverage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	result, err := h.stats.SpaceDailySensorAverage(c.Request.Context(), id, dateParam(c))
	h.respond(c, result, err)
}

func (h *StatisticsHandler) SpaceRangeSensorAverage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	start, end, ok := rangeParams(c)
	if !ok {
		return
	}
	result, err := h.stats.SpaceRangeSensorAverage(c.Request.Context(), id, start, end)
	h.respond(c, result, err)
}

func (h *StatisticsHandler) SpaceDailyPowerUsage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	result, err := h.stats.SpaceDailyPowerUsage(c.Request.Context(), id, dateParam(c))
	h.respond(c, result, err)
}

func (h *StatisticsHandler) SpaceRangePowerUsage(c *gin.Context) {
	id, ok := subjectID(c)
	if !ok {
		return
	}
	start, end, ok := rangeParams(c)
	if !ok {
		return
	}
	result, err := h.stats.SpaceRangePowerUsage(c.Request.Context(), id, start, end)
	h.respond(c, result, err)
}
