package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// stubStats fails every operation with the configured error
type stubStats struct {
	err error
}

func (s *stubStats) DailySensorAverage(context.Context, uint, string) (*models.SensorAverages, error) {
	return nil, s.err
}

func (s *stubStats) WeeklySensorAverage(context.Context, uint, string) (*models.WeeklySensorAverages, error) {
	return nil, s.err
}

func (s *stubStats) RangeSensorAverage(context.Context, uint, string, string) (*models.SensorAverages, error) {
	return nil, s.err
}

func (s *stubStats) DailySensorAveragesForRange(context.Context, uint, string, string) ([]*models.Statistic, error) {
	return nil, s.err
}

func (s *stubStats) DailyPowerUsage(context.Context, uint, string) (*models.PowerUsage, error) {
	return nil, s.err
}

func (s *stubStats) WeeklyPowerUsage(context.Context, uint, string) (*models.WeeklyPowerUsage, error) {
	return nil, s.err
}

func (s *stubStats) MonthlyPowerUsage(context.Context, uint, int, time.Month) (*models.PowerUsage, error) {
	return nil, s.err
}

func (s *stubStats) DailyPowerUsageForRange(context.Context, uint, string, string) ([]*models.Statistic, error) {
	return nil, s.err
}

func (s *stubStats) SpaceDailySensorAverage(context.Context, uint, string) (*models.SensorAverages, error) {
	return nil, s.err
}

func (s *stubStats) SpaceRangeSensorAverage(context.Context, uint, string, string) (*models.SensorAverages, error) {
	return nil, s.err
}

func (s *stubStats) SpaceDailyPowerUsage(context.Context, uint, string) (*models.PowerUsage, error) {
	return nil, s.err
}

func (s *stubStats) SpaceRangePowerUsage(context.Context, uint, string, string) (*models.PowerUsage, error) {
	return nil, s.err
}

func newStatsRouter(stats service.StatisticsService) *gin.Engine {
	gin.SetMode(gin.TestMode)

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	h := NewStatisticsHandler(stats, log)
	r := gin.New()
	r.GET("/statistics/devices/:id/power/daily", h.DailyPowerUsage)
	r.GET("/statistics/devices/:id/sensor/range", h.RangeSensorAverage)
	return r
}

func TestStatisticsUnknownDeviceReturnsNotFound(t *testing.T) {
	r := newStatsRouter(&stubStats{err: repository.ErrNotFound})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/statistics/devices/42/power/daily?date=2025-03-10", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"Device or space not found"}`, rec.Body.String())
}

func TestStatisticsInvalidPeriodReturnsBadRequest(t *testing.T) {
	r := newStatsRouter(&stubStats{err: service.ErrInvalidPeriod})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/statistics/devices/42/power/daily?date=not-a-date", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"error":"Invalid date or period"}`, rec.Body.String())
}

func TestStatisticsNoDataReturnsNotFound(t *testing.T) {
	r := newStatsRouter(&stubStats{err: service.ErrNoData})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/statistics/devices/42/sensor/range?start_date=2025-03-01&end_date=2025-03-10", nil)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"error":"No data available for the requested period"}`, rec.Body.String())
}
