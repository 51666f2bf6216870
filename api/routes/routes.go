package routes

import (
	"github.com/phamanhtuan-coder/homeconnect-api-ws/api/handlers"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/api/middleware"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/service"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupRoutes sets up all the routes for the server
func SetupRoutes(
	r *gin.Engine,
	svc service.Service,
	stats service.StatisticsService,
	alerts service.AlertService,
	hub *ws.Hub,
	repo repository.Repository,
	log *logrus.Logger,
) {
	// Health check
	r.GET("/health", handlers.HealthCheck)

	// Device WebSocket endpoint; devices authenticate by UID, not API key
	r.GET("/ws", handlers.DeviceSocket(hub))

	// API routes
	api := r.Group("/api/v1")
	api.Use(middleware.APIKeyAuth(repo, log, models.ViewerAuthLevel))

	// Device routes
	deviceHandler := handlers.NewDeviceHandler(svc, hub, log)
	devices := api.Group("/devices")
	{
		devices.GET("", deviceHandler.ListDevices)
		devices.GET("/:id", deviceHandler.GetDevice)
		devices.GET("/:id/events", deviceHandler.ListDeviceEvents)
		devices.POST("/:id/commands", middleware.APIKeyAuth(repo, log, models.WriterAuthLevel), deviceHandler.SendCommand)
	}

	// Statistics routes
	statsHandler := handlers.NewStatisticsHandler(stats, log)
	statistics := api.Group("/statistics")
	{
		statistics.GET("/devices/:id/sensor/daily", statsHandler.DailySensorAverage)
		statistics.GET("/devices/:id/sensor/weekly", statsHandler.WeeklySensorAverage)
		statistics.GET("/devices/:id/sensor/range", statsHandler.RangeSensorAverage)
		statistics.GET("/devices/:id/sensor/daily-range", statsHandler.DailySensorAveragesForRange)

		statistics.GET("/devices/:id/power/daily", statsHandler.DailyPowerUsage)
		statistics.GET("/devices/:id/power/weekly", statsHandler.WeeklyPowerUsage)
		statistics.GET("/devices/:id/power/monthly", statsHandler.MonthlyPowerUsage)
		statistics.GET("/devices/:id/power/daily-range", statsHandler.DailyPowerUsageForRange)

		statistics.GET("/spaces/:id/sensor/daily", statsHandler.SpaceDailySensorAverage)
		statistics.GET("/spaces/:id/sensor/range", statsHandler.SpaceRangeSensorAverage)
		statistics.GET("/spaces/:id/power/daily", statsHandler.SpaceDailyPowerUsage)
		statistics.GET("/spaces/:id/power/range", statsHandler.SpaceRangePowerUsage)
	}

	// Alert routes
	alertHandler := handlers.NewAlertHandler(alerts, log)
	alertRoutes := api.Group("/alerts")
	{
		alertRoutes.GET("", alertHandler.ListAlerts)
		alertRoutes.GET("/:id", alertHandler.GetAlert)
		alertRoutes.POST("/:id/resolve", middleware.APIKeyAuth(repo, log, models.WriterAuthLevel), alertHandler.ResolveAlert)
	}
}
