package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"

	"github.com/sirupsen/logrus"
)

const dateLayout = "2006-01-02"

// StatisticsService computes sensor averages and power usage from the event
// log and persists the results as upserted statistic records
type StatisticsService interface {
	DailySensorAverage(ctx context.Context, deviceID uint, date string) (*models.SensorAverages, error)
	WeeklySensorAverage(ctx context.Context, deviceID uint, date string) (*models.WeeklySensorAverages, error)
	RangeSensorAverage(ctx context.Context, deviceID uint, startDate, endDate string) (*models.SensorAverages, error)
	DailySensorAveragesForRange(ctx context.Context, deviceID uint, startDate, endDate string) ([]*models.Statistic, error)

	DailyPowerUsage(ctx context.Context, deviceID uint, date string) (*models.PowerUsage, error)
	WeeklyPowerUsage(ctx context.Context, deviceID uint, date string) (*models.WeeklyPowerUsage, error)
	MonthlyPowerUsage(ctx context.Context, deviceID uint, year int, month time.Month) (*models.PowerUsage, error)
	DailyPowerUsageForRange(ctx context.Context, deviceID uint, startDate, endDate string) ([]*models.Statistic, error)

	SpaceDailySensorAverage(ctx context.Context, spaceID uint, date string) (*models.SensorAverages, error)
	SpaceRangeSensorAverage(ctx context.Context, spaceID uint, startDate, endDate string) (*models.SensorAverages, error)
	SpaceDailyPowerUsage(ctx context.Context, spaceID uint, date string) (*models.PowerUsage, error)
	SpaceRangePowerUsage(ctx context.Context, spaceID uint, startDate, endDate string) (*models.PowerUsage, error)
}

type statisticsService struct {
	repo    repository.Repository
	ratings map[string]float64
	log     *logrus.Logger
}

// NewStatisticsService creates a statistics service. The ratings map is
// keyed by lowercased device type name and gives the type's power draw in
// watts.
func NewStatisticsService(repo repository.Repository, ratings map[string]float64, log *logrus.Logger) StatisticsService {
	return &statisticsService{
		repo:    repo,
		ratings: ratings,
		log:     log,
	}
}

// dayWindow returns the UTC bounds of one calendar day
func dayWindow(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, ErrInvalidPeriod)
	}
	end := day.Add(24*time.Hour - time.Millisecond)
	return day, end, nil
}

// rangeWindow returns the UTC bounds of an inclusive date range
func rangeWindow(startDate, endDate string) (time.Time, time.Time, error) {
	start, _, err := dayWindow(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	_, end, err := dayWindow(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date %s precedes start date %s: %w", endDate, startDate, ErrInvalidPeriod)
	}
	return start, end, nil
}

// rangeKey is the date column value for range statistics, combining both
// bounds so distinct ranges upsert into distinct rows
func rangeKey(startDate, endDate string) string {
	return startDate + ":" + endDate
}

// sensorAccumulator averages each sensor field over the readings that
// actually reported it. A reading carrying only gas contributes to the gas
// denominator and to no other.
type sensorAccumulator struct {
	gasSum, tempSum, humSum       float64
	gasCount, tempCount, humCount int
}

func (a *sensorAccumulator) add(p models.SensorPayload) {
	if p.Gas != nil {
		a.gasSum += *p.Gas
		a.gasCount++
	}
	if p.Temperature != nil {
		a.tempSum += *p.Temperature
		a.tempCount++
	}
	if p.Humidity != nil {
		a.humSum += *p.Humidity
		a.humCount++
	}
}

func (a *sensorAccumulator) empty() bool {
	return a.gasCount == 0 && a.tempCount == 0 && a.humCount == 0
}

func (a *sensorAccumulator) averages() models.SensorAverages {
	var out models.SensorAverages
	if a.gasCount > 0 {
		out.AverageGas = a.gasSum / float64(a.gasCount)
	}
	if a.tempCount > 0 {
		out.AverageTemperature = a.tempSum / float64(a.tempCount)
	}
	if a.humCount > 0 {
		out.AverageHumidity = a.humSum / float64(a.humCount)
	}
	return out
}

// ratingFor resolves the configured power rating for a device's type.
// Lookup is case-insensitive because the config layer lowercases map keys.
func (s *statisticsService) ratingFor(device *models.Device) (float64, error) {
	if device.Type == nil {
		return 0, fmt.Errorf("device %s has no type loaded: %w", device.UID, ErrNoPowerRating)
	}
	rating, ok := s.ratings[strings.ToLower(device.Type.Name)]
	if !ok || rating <= 0 {
		return 0, fmt.Errorf("device type %q: %w", device.Type.Name, ErrNoPowerRating)
	}
	return rating, nil
}

// energyKWh converts watts drawn for a duration into kilowatt-hours
func energyKWh(ratingWatts float64, onTime time.Duration) float64 {
	return ratingWatts * onTime.Hours() / 1000
}

// save upserts one statistic record; the value layout depends on kind
func (s *statisticsService) save(ctx context.Context, subjectType models.SubjectType, subjectID uint, kind models.StatisticKind, date string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal statistic value: %w", err)
	}
	stat := &models.Statistic{
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Kind:        kind,
		Date:        date,
		Value:       raw,
	}
	if err := s.repo.UpsertStatistic(ctx, stat); err != nil {
		return fmt.Errorf("failed to persist %s statistic: %w", kind, err)
	}
	return nil
}

// sensorAveragesOver pools sensor readings from the given devices within the
// window into one per-field average
func (s *statisticsService) sensorAveragesOver(ctx context.Context, devices []*models.Device, from, to time.Time) (*models.SensorAverages, error) {
	var acc sensorAccumulator
	for _, device := range devices {
		events, err := s.repo.ListDeviceEvents(ctx, repository.EventQuery{
			DeviceID: device.ID,
			From:     from,
			To:       to,
			Origin:   models.OriginDevice,
			Kind:     models.KindSensorReading,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list sensor events for device %s: %w", device.UID, err)
		}
		for _, event := range events {
			reading, err := event.SensorReading()
			if err != nil {
				s.log.WithError(err).Warnf("Skipping undecodable sensor event %d", event.ID)
				continue
			}
			acc.add(reading)
		}
	}
	if acc.empty() {
		return nil, ErrNoData
	}
	avg := acc.averages()
	return &avg, nil
}

// onTimeOver reconstructs the device's total on-time within the window from
// server-dispatched toggle events
func (s *statisticsService) onTimeOver(ctx context.Context, device *models.Device, from, to time.Time) (time.Duration, int, error) {
	events, err := s.repo.ListDeviceEvents(ctx, repository.EventQuery{
		DeviceID: device.ID,
		From:     from,
		To:       to,
		Origin:   models.OriginServer,
		Kind:     models.KindToggle,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list toggle events for device %s: %w", device.UID, err)
	}

	samples := make([]ToggleSample, 0, len(events))
	for _, event := range events {
		toggle, err := event.Toggle()
		if err != nil {
			s.log.WithError(err).Warnf("Skipping undecodable toggle event %d", event.ID)
			continue
		}
		samples = append(samples, ToggleSample{At: event.Timestamp, On: toggle.PowerStatus})
	}

	return TotalOnTime(samples, to), len(samples), nil
}

func (s *statisticsService) DailySensorAverage(ctx context.Context, deviceID uint, date string) (*models.SensorAverages, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}
	device, err := s.repo.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	avg, err := s.sensorAveragesOver(ctx, []*models.Device{device}, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, models.SubjectDevice, deviceID, models.StatDailyAvgSensor, date, avg); err != nil {
		return nil, err
	}
	return avg, nil
}

// WeeklySensorAverage averages the most recent seven persisted daily sensor
// statistics. Fewer than seven is not an error; a device with three days of
// history gets a three-day average.
func (s *statisticsService) WeeklySensorAverage(ctx context.Context, deviceID uint, date string) (*models.WeeklySensorAverages, error) {
	if _, _, err := dayWindow(date); err != nil {
		return nil, err
	}

	// Make sure the closing day itself is included if it has data.
	if _, err := s.DailySensorAverage(ctx, deviceID, date); err != nil && !isNoData(err) {
		return nil, err
	}

	stats, err := s.repo.ListRecentStatistics(ctx, models.SubjectDevice, deviceID, models.StatDailyAvgSensor, 7)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, ErrNoData
	}

	var gas, temp, hum float64
	for _, stat := range stats {
		var daily models.SensorAverages
		if err := json.Unmarshal(stat.Value, &daily); err != nil {
			return nil, fmt.Errorf("failed to decode daily sensor statistic %d: %w", stat.ID, err)
		}
		gas += daily.AverageGas
		temp += daily.AverageTemperature
		hum += daily.AverageHumidity
	}
	n := float64(len(stats))

	out := &models.WeeklySensorAverages{
		WeeklyAverageGas:         gas / n,
		WeeklyAverageTemperature: temp / n,
		WeeklyAverageHumidity:    hum / n,
	}

	if err := s.save(ctx, models.SubjectDevice, deviceID, models.StatWeeklyAvgSensor, date, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *statisticsService) RangeSensorAverage(ctx context.Context, deviceID uint, startDate, endDate string) (*models.SensorAverages, error) {
	from, to, err := rangeWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}
	device, err := s.repo.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	avg, err := s.sensorAveragesOver(ctx, []*models.Device{device}, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, models.SubjectDevice, deviceID, models.StatRangeAvgSensor, rangeKey(startDate, endDate), avg); err != nil {
		return nil, err
	}
	return avg, nil
}

func (s *statisticsService) DailySensorAveragesForRange(ctx context.Context, deviceID uint, startDate, endDate string) ([]*models.Statistic, error) {
	if _, _, err := rangeWindow(startDate, endDate); err != nil {
		return nil, err
	}
	stats, err := s.repo.ListStatisticsRange(ctx, models.SubjectDevice, deviceID, models.StatDailyAvgSensor, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, ErrNoData
	}
	return stats, nil
}

func (s *statisticsService) DailyPowerUsage(ctx context.Context, deviceID uint, date string) (*models.PowerUsage, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}
	device, err := s.repo.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	rating, err := s.ratingFor(device)
	if err != nil {
		return nil, err
	}

	onTime, sampleCount, err := s.onTimeOver(ctx, device, from, to)
	if err != nil {
		return nil, err
	}
	if sampleCount == 0 {
		return nil, ErrNoData
	}

	usage := &models.PowerUsage{
		EnergyConsumed:   energyKWh(rating, onTime),
		PowerRating:      rating,
		TotalOnTimeHours: onTime.Hours(),
	}

	if err := s.save(ctx, models.SubjectDevice, deviceID, models.StatDailyPowerUsage, date, usage); err != nil {
		return nil, err
	}
	return usage, nil
}

// WeeklyPowerUsage averages the most recent seven persisted daily power
// statistics rather than rescanning raw toggles
func (s *statisticsService) WeeklyPowerUsage(ctx context.Context, deviceID uint, date string) (*models.WeeklyPowerUsage, error) {
	if _, _, err := dayWindow(date); err != nil {
		return nil, err
	}
	device, err := s.repo.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	rating, err := s.ratingFor(device)
	if err != nil {
		return nil, err
	}

	if _, err := s.DailyPowerUsage(ctx, deviceID, date); err != nil && !isNoData(err) {
		return nil, err
	}

	stats, err := s.repo.ListRecentStatistics(ctx, models.SubjectDevice, deviceID, models.StatDailyPowerUsage, 7)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, ErrNoData
	}

	var energy, onHours float64
	for _, stat := range stats {
		var daily models.PowerUsage
		if err := json.Unmarshal(stat.Value, &daily); err != nil {
			return nil, fmt.Errorf("failed to decode daily power statistic %d: %w", stat.ID, err)
		}
		energy += daily.EnergyConsumed
		onHours += daily.TotalOnTimeHours
	}
	n := float64(len(stats))

	out := &models.WeeklyPowerUsage{
		WeeklyAverageEnergy: energy / n,
		WeeklyAverageOnTime: onHours / n,
		PowerRating:         rating,
	}

	if err := s.save(ctx, models.SubjectDevice, deviceID, models.StatWeeklyPowerUsage, date, out); err != nil {
		return nil, err
	}
	return out, nil
}

// MonthlyPowerUsage reconstructs intervals over one full calendar month
func (s *statisticsService) MonthlyPowerUsage(ctx context.Context, deviceID uint, year int, month time.Month) (*models.PowerUsage, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("invalid month %d: %w", month, ErrInvalidPeriod)
	}
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Millisecond)

	device, err := s.repo.FindDeviceByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	rating, err := s.ratingFor(device)
	if err != nil {
		return nil, err
	}

	onTime, sampleCount, err := s.onTimeOver(ctx, device, monthStart, monthEnd)
	if err != nil {
		return nil, err
	}
	if sampleCount == 0 {
		return nil, ErrNoData
	}

	usage := &models.PowerUsage{
		EnergyConsumed:   energyKWh(rating, onTime),
		PowerRating:      rating,
		TotalOnTimeHours: onTime.Hours(),
	}

	if err := s.save(ctx, models.SubjectDevice, deviceID, models.StatMonthlyPowerUsage, monthStart.Format(dateLayout), usage); err != nil {
		return nil, err
	}
	return usage, nil
}

func (s *statisticsService) DailyPowerUsageForRange(ctx context.Context, deviceID uint, startDate, endDate string) ([]*models.Statistic, error) {
	if _, _, err := rangeWindow(startDate, endDate); err != nil {
		return nil, err
	}
	stats, err := s.repo.ListStatisticsRange(ctx, models.SubjectDevice, deviceID, models.StatDailyPowerUsage, startDate, endDate)
	if err != nil {
		return nil, err
	}
	if len(stats) == 0 {
		return nil, ErrNoData
	}
	return stats, nil
}

// SpaceDailySensorAverage pools every reading from every device in the
// space into one flat average; the result is not a mean of per-device means
func (s *statisticsService) SpaceDailySensorAverage(ctx context.Context, spaceID uint, date string) (*models.SensorAverages, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.ListSpaceDevices(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	avg, err := s.sensorAveragesOver(ctx, devices, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, models.SubjectSpace, spaceID, models.StatSpaceDailyAvgSensor, date, avg); err != nil {
		return nil, err
	}
	return avg, nil
}

func (s *statisticsService) SpaceRangeSensorAverage(ctx context.Context, spaceID uint, startDate, endDate string) (*models.SensorAverages, error) {
	from, to, err := rangeWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.ListSpaceDevices(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	avg, err := s.sensorAveragesOver(ctx, devices, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, models.SubjectSpace, spaceID, models.StatSpaceRangeAvgSensor, rangeKey(startDate, endDate), avg); err != nil {
		return nil, err
	}
	return avg, nil
}

// spacePowerOver sums reconstructed energy across the space's devices.
// Devices without a configured rating are skipped with a warning rather
// than failing the whole space.
func (s *statisticsService) spacePowerOver(ctx context.Context, spaceID uint, from, to time.Time) (*models.PowerUsage, error) {
	devices, err := s.repo.ListSpaceDevices(ctx, spaceID)
	if err != nil {
		return nil, err
	}

	var total models.PowerUsage
	samples := 0
	for _, device := range devices {
		rating, err := s.ratingFor(device)
		if err != nil {
			s.log.WithError(err).Warnf("Skipping device %s in space power usage", device.UID)
			continue
		}
		onTime, sampleCount, err := s.onTimeOver(ctx, device, from, to)
		if err != nil {
			return nil, err
		}
		samples += sampleCount
		total.EnergyConsumed += energyKWh(rating, onTime)
		total.TotalOnTimeHours += onTime.Hours()
	}
	if samples == 0 {
		return nil, ErrNoData
	}
	return &total, nil
}

func (s *statisticsService) SpaceDailyPowerUsage(ctx context.Context, spaceID uint, date string) (*models.PowerUsage, error) {
	from, to, err := dayWindow(date)
	if err != nil {
		return nil, err
	}

	usage, err := s.spacePowerOver(ctx, spaceID, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, models.SubjectSpace, spaceID, models.StatSpaceDailyPowerUsage, date, usage); err != nil {
		return nil, err
	}
	return usage, nil
}

func (s *statisticsService) SpaceRangePowerUsage(ctx context.Context, spaceID uint, startDate, endDate string) (*models.PowerUsage, error) {
	from, to, err := rangeWindow(startDate, endDate)
	if err != nil {
		return nil, err
	}

	usage, err := s.spacePowerOver(ctx, spaceID, from, to)
	if err != nil {
		return nil, err
	}

	if err := s.save(ctx, models.SubjectSpace, spaceID, models.StatSpaceRangePowerUsage, rangeKey(startDate, endDate), usage); err != nil {
		return nil, err
	}
	return usage, nil
}

func isNoData(err error) bool {
	return errors.Is(err, ErrNoData)
}
