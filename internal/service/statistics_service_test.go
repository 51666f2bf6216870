package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testRatings = map[string]float64{
	"fire alarm":   1.65,
	"led light 16": 5.65,
	"led light 24": 8.05,
}

func testDevice(id uint, typeName string) *models.Device {
	spaceID := uint(7)
	return &models.Device{
		Model:   models.Model{ID: id},
		UID:     "dev-001",
		Type:    &models.DeviceType{Name: typeName},
		SpaceID: &spaceID,
		UserID:  42,
	}
}

func toggleEvent(t *testing.T, at string, on bool) *models.Event {
	t.Helper()
	payload, err := json.Marshal(models.TogglePayload{PowerStatus: on})
	require.NoError(t, err)
	return &models.Event{
		DeviceID:  1,
		Origin:    models.OriginServer,
		Kind:      models.KindToggle,
		Payload:   payload,
		Timestamp: ts(t, at),
	}
}

func sensorEvent(t *testing.T, at string, p models.SensorPayload) *models.Event {
	t.Helper()
	payload, err := json.Marshal(p)
	require.NoError(t, err)
	return &models.Event{
		DeviceID:  1,
		Origin:    models.OriginDevice,
		Kind:      models.KindSensorReading,
		Payload:   payload,
		Timestamp: ts(t, at),
	}
}

func f(v float64) *float64 { return &v }

func newTestStats(repo repository.Repository) StatisticsService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewStatisticsService(repo, testRatings, log)
}

func TestDailyPowerUsageComputesEnergy(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "LED Light 24")

	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.MatchedBy(func(q repository.EventQuery) bool {
		return q.DeviceID == 1 && q.Origin == models.OriginServer && q.Kind == models.KindToggle
	})).Return([]*models.Event{
		toggleEvent(t, "2025-03-10T08:00:00Z", true),
		toggleEvent(t, "2025-03-10T09:30:00Z", false),
	}, nil)

	var saved *models.Statistic
	mockRepo.On("UpsertStatistic", mock.Anything, mock.AnythingOfType("*models.Statistic")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Statistic)
		}).Return(nil)

	stats := newTestStats(mockRepo)
	usage, err := stats.DailyPowerUsage(context.Background(), 1, "2025-03-10")

	require.NoError(t, err)
	require.InDelta(t, 1.5, usage.TotalOnTimeHours, 1e-9)
	require.InDelta(t, 8.05, usage.PowerRating, 1e-9)
	require.InDelta(t, 0.012075, usage.EnergyConsumed, 1e-9)

	require.NotNil(t, saved)
	require.Equal(t, models.SubjectDevice, saved.SubjectType)
	require.Equal(t, models.StatDailyPowerUsage, saved.Kind)
	require.Equal(t, "2025-03-10", saved.Date)

	mockRepo.AssertExpectations(t)
}

func TestDailyPowerUsageCaseInsensitiveRating(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")

	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.Anything).Return([]*models.Event{
		toggleEvent(t, "2025-03-10T00:00:00Z", true),
		toggleEvent(t, "2025-03-10T01:00:00Z", false),
	}, nil)
	mockRepo.On("UpsertStatistic", mock.Anything, mock.Anything).Return(nil)

	stats := newTestStats(mockRepo)
	usage, err := stats.DailyPowerUsage(context.Background(), 1, "2025-03-10")

	require.NoError(t, err)
	require.InDelta(t, 1.65, usage.PowerRating, 1e-9)
}

func TestDailyPowerUsageNoEvents(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "LED Light 16")

	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.Anything).Return([]*models.Event{}, nil)

	stats := newTestStats(mockRepo)
	_, err := stats.DailyPowerUsage(context.Background(), 1, "2025-03-10")

	require.ErrorIs(t, err, ErrNoData)
	mockRepo.AssertNotCalled(t, "UpsertStatistic", mock.Anything, mock.Anything)
}

func TestDailyPowerUsageUnknownRating(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Thermostat")

	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)

	stats := newTestStats(mockRepo)
	_, err := stats.DailyPowerUsage(context.Background(), 1, "2025-03-10")

	require.ErrorIs(t, err, ErrNoPowerRating)
	mockRepo.AssertNotCalled(t, "ListDeviceEvents", mock.Anything, mock.Anything)
}

func TestDailySensorAveragePerFieldDenominators(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")

	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.MatchedBy(func(q repository.EventQuery) bool {
		return q.Origin == models.OriginDevice && q.Kind == models.KindSensorReading
	})).Return([]*models.Event{
		sensorEvent(t, "2025-03-10T10:00:00Z", models.SensorPayload{Gas: f(100)}),
		sensorEvent(t, "2025-03-10T11:00:00Z", models.SensorPayload{Gas: f(200), Temperature: f(30)}),
	}, nil)
	mockRepo.On("UpsertStatistic", mock.Anything, mock.Anything).Return(nil)

	stats := newTestStats(mockRepo)
	avg, err := stats.DailySensorAverage(context.Background(), 1, "2025-03-10")

	require.NoError(t, err)
	// Gas averages over two readings, temperature over one.
	require.InDelta(t, 150, avg.AverageGas, 1e-9)
	require.InDelta(t, 30, avg.AverageTemperature, 1e-9)
	require.InDelta(t, 0, avg.AverageHumidity, 1e-9)
}

func TestWeeklyPowerUsageAveragesPersistedDailies(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "LED Light 24")

	dailyValue := func(energy, hours float64) json.RawMessage {
		raw, err := json.Marshal(models.PowerUsage{EnergyConsumed: energy, PowerRating: 8.05, TotalOnTimeHours: hours})
		require.NoError(t, err)
		return raw
	}

	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)
	// The closing day has no toggles, so the inner daily computation yields
	// no data and the weekly average falls back to persisted records only.
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.Anything).Return([]*models.Event{}, nil)
	mockRepo.On("ListRecentStatistics", mock.Anything, models.SubjectDevice, uint(1), models.StatDailyPowerUsage, 7).
		Return([]*models.Statistic{
			{Date: "2025-03-07", Value: dailyValue(1.0, 1)},
			{Date: "2025-03-08", Value: dailyValue(2.0, 2)},
			{Date: "2025-03-09", Value: dailyValue(3.0, 3)},
		}, nil)

	var saved *models.Statistic
	mockRepo.On("UpsertStatistic", mock.Anything, mock.AnythingOfType("*models.Statistic")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Statistic)
		}).Return(nil)

	stats := newTestStats(mockRepo)
	weekly, err := stats.WeeklyPowerUsage(context.Background(), 1, "2025-03-10")

	require.NoError(t, err)
	// Three dailies exist, so it is a three-day average.
	require.InDelta(t, 2.0, weekly.WeeklyAverageEnergy, 1e-9)
	require.InDelta(t, 2.0, weekly.WeeklyAverageOnTime, 1e-9)
	require.InDelta(t, 8.05, weekly.PowerRating, 1e-9)

	require.NotNil(t, saved)
	require.Equal(t, models.StatWeeklyPowerUsage, saved.Kind)
	require.Equal(t, "2025-03-10", saved.Date)
}

func TestSpaceDailySensorAverageFlatPool(t *testing.T) {
	mockRepo := new(MockRepository)
	spaceID := uint(7)

	dev1 := testDevice(1, "Fire Alarm")
	dev2 := testDevice(2, "Fire Alarm")
	dev2.UID = "dev-002"

	mockRepo.On("ListSpaceDevices", mock.Anything, spaceID).Return([]*models.Device{dev1, dev2}, nil)
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.MatchedBy(func(q repository.EventQuery) bool {
		return q.DeviceID == 1
	})).Return([]*models.Event{
		sensorEvent(t, "2025-03-10T10:00:00Z", models.SensorPayload{Gas: f(100)}),
	}, nil)
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.MatchedBy(func(q repository.EventQuery) bool {
		return q.DeviceID == 2
	})).Return([]*models.Event{
		sensorEvent(t, "2025-03-10T10:05:00Z", models.SensorPayload{Gas: f(200)}),
		sensorEvent(t, "2025-03-10T10:10:00Z", models.SensorPayload{Gas: f(300)}),
	}, nil)
	mockRepo.On("UpsertStatistic", mock.Anything, mock.Anything).Return(nil)

	stats := newTestStats(mockRepo)
	avg, err := stats.SpaceDailySensorAverage(context.Background(), spaceID, "2025-03-10")

	require.NoError(t, err)
	// All readings pool into one denominator: (100+200+300)/3, not the
	// mean of per-device means.
	require.InDelta(t, 200, avg.AverageGas, 1e-9)
}

func TestMonthlyPowerUsageUsesCalendarMonth(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "LED Light 16")

	var gotQuery repository.EventQuery
	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.AnythingOfType("repository.EventQuery")).
		Run(func(args mock.Arguments) {
			gotQuery = args.Get(1).(repository.EventQuery)
		}).Return([]*models.Event{
		toggleEvent(t, "2025-02-10T08:00:00Z", true),
		toggleEvent(t, "2025-02-10T10:00:00Z", false),
	}, nil)

	var saved *models.Statistic
	mockRepo.On("UpsertStatistic", mock.Anything, mock.AnythingOfType("*models.Statistic")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Statistic)
		}).Return(nil)

	stats := newTestStats(mockRepo)
	usage, err := stats.MonthlyPowerUsage(context.Background(), 1, 2025, time.February)

	require.NoError(t, err)
	require.InDelta(t, 2.0, usage.TotalOnTimeHours, 1e-9)

	require.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), gotQuery.From)
	require.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 999000000, time.UTC), gotQuery.To)

	require.NotNil(t, saved)
	require.Equal(t, models.StatMonthlyPowerUsage, saved.Kind)
	require.Equal(t, "2025-02-01", saved.Date)
}

func TestRangeSensorAverageRejectsInvertedRange(t *testing.T) {
	mockRepo := new(MockRepository)

	stats := newTestStats(mockRepo)
	_, err := stats.RangeSensorAverage(context.Background(), 1, "2025-03-10", "2025-03-01")

	require.ErrorIs(t, err, ErrInvalidPeriod)
	mockRepo.AssertNotCalled(t, "FindDeviceByID", mock.Anything, mock.Anything)
}

func TestDailyPowerUsageRejectsMalformedDate(t *testing.T) {
	mockRepo := new(MockRepository)

	stats := newTestStats(mockRepo)
	_, err := stats.DailyPowerUsage(context.Background(), 1, "10-03-2025")

	require.ErrorIs(t, err, ErrInvalidPeriod)
	mockRepo.AssertNotCalled(t, "FindDeviceByID", mock.Anything, mock.Anything)
}

func TestMonthlyPowerUsageRejectsInvalidMonth(t *testing.T) {
	mockRepo := new(MockRepository)

	stats := newTestStats(mockRepo)
	_, err := stats.MonthlyPowerUsage(context.Background(), 1, 2025, time.Month(13))

	require.ErrorIs(t, err, ErrInvalidPeriod)
	mockRepo.AssertNotCalled(t, "FindDeviceByID", mock.Anything, mock.Anything)
}

func TestWeeklySensorAverageUsesWeeklyValueLayout(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")

	mockRepo.On("FindDeviceByID", mock.Anything, uint(1)).Return(device, nil)
	// No readings on the closing day itself; the rolling window still has
	// two persisted dailies.
	mockRepo.On("ListDeviceEvents", mock.Anything, mock.Anything).Return([]*models.Event{}, nil)

	daily := func(gas, temp, hum float64) *models.Statistic {
		value, err := json.Marshal(models.SensorAverages{
			AverageGas:         gas,
			AverageTemperature: temp,
			AverageHumidity:    hum,
		})
		require.NoError(t, err)
		return &models.Statistic{Value: value}
	}
	mockRepo.On("ListRecentStatistics", mock.Anything, models.SubjectDevice, uint(1), models.StatDailyAvgSensor, 7).
		Return([]*models.Statistic{
			daily(100, 20, 50),
			daily(200, 40, 70),
		}, nil)

	var saved *models.Statistic
	mockRepo.On("UpsertStatistic", mock.Anything, mock.AnythingOfType("*models.Statistic")).
		Run(func(args mock.Arguments) {
			saved = args.Get(1).(*models.Statistic)
		}).Return(nil)

	stats := newTestStats(mockRepo)
	avg, err := stats.WeeklySensorAverage(context.Background(), 1, "2025-03-10")

	require.NoError(t, err)
	require.InDelta(t, 150, avg.WeeklyAverageGas, 1e-9)
	require.InDelta(t, 30, avg.WeeklyAverageTemperature, 1e-9)
	require.InDelta(t, 60, avg.WeeklyAverageHumidity, 1e-9)

	require.NotNil(t, saved)
	require.Equal(t, models.StatWeeklyAvgSensor, saved.Kind)
	require.Equal(t, "2025-03-10", saved.Date)
	require.JSONEq(t,
		`{"weeklyAverageGas":150,"weeklyAverageTemperature":30,"weeklyAverageHumidity":60}`,
		string(saved.Value))
}
