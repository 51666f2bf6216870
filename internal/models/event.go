package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventOrigin tags where an event came from
type EventOrigin string

const (
	// OriginDevice marks events reported by the device itself
	OriginDevice EventOrigin = "device"
	// OriginServer marks events produced by server-side command dispatch
	OriginServer EventOrigin = "server"
)

// EventKind classifies an event payload. The kind is decided once at
// classification time and never mutated afterwards.
type EventKind string

const (
	// KindToggle is a power on/off transition
	KindToggle EventKind = "toggle"
	// KindSensorReading carries gas/temperature/humidity values
	KindSensorReading EventKind = "sensor_reading"
	// KindOther holds any payload the classifier did not recognize
	KindOther EventKind = "other"
)

// Event model represents one append-only log entry for a device. Rows are
// immutable once written; the statistics path never updates or deletes them.
// SpaceID and UserID are denormalized context captured at write time and are
// not corrected if the device later moves spaces.
type Event struct {
	ID        uint            `json:"id" gorm:"primarykey"`
	Device    *Device         `json:"-" gorm:"foreignKey:DeviceID"`
	DeviceID  uint            `json:"device_id" gorm:"Column:device_id;index:idx_events_device_ts"`
	SpaceID   *uint           `json:"space_id" gorm:"Column:space_id"`
	UserID    *uint           `json:"user_id" gorm:"Column:user_id"`
	Origin    EventOrigin     `json:"origin" gorm:"Column:origin"`
	Kind      EventKind       `json:"kind" gorm:"Column:kind"`
	Payload   json.RawMessage `json:"payload" gorm:"Column:payload;type:jsonb"`
	Timestamp time.Time       `json:"timestamp" gorm:"Column:timestamp;index:idx_events_device_ts"`
	CreatedAt time.Time       `json:"created_at"`
}

// TogglePayload is the payload of a KindToggle event
type TogglePayload struct {
	PowerStatus bool `json:"powerStatus"`
}

// SensorPayload is the payload of a KindSensorReading event. Fields are
// optional per reading; a nil field was simply not reported.
type SensorPayload struct {
	Gas         *float64 `json:"gas,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
}

// Toggle decodes the payload of a toggle event
func (e *Event) Toggle() (TogglePayload, error) {
	var p TogglePayload
	if e.Kind != KindToggle {
		return p, fmt.Errorf("event %d is %q, not a toggle", e.ID, e.Kind)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode toggle payload: %w", err)
	}
	return p, nil
}

// SensorReading decodes the payload of a sensor reading event
func (e *Event) SensorReading() (SensorPayload, error) {
	var p SensorPayload
	if e.Kind != KindSensorReading {
		return p, fmt.Errorf("event %d is %q, not a sensor reading", e.ID, e.Kind)
	}
	if err := json.Unmarshal(e.Payload, &p); err != nil {
		return p, fmt.Errorf("failed to decode sensor payload: %w", err)
	}
	return p, nil
}

// StatisticKind names a persisted aggregate record type
type StatisticKind string

const (
	StatDailyAvgSensor       StatisticKind = "daily_avg_sensor"
	StatWeeklyAvgSensor      StatisticKind = "weekly_avg_sensor"
	StatRangeAvgSensor       StatisticKind = "range_avg_sensor"
	StatDailyPowerUsage      StatisticKind = "daily_power_usage"
	StatWeeklyPowerUsage     StatisticKind = "weekly_power_usage"
	StatMonthlyPowerUsage    StatisticKind = "monthly_power_usage"
	StatSpaceDailyAvgSensor  StatisticKind = "space_daily_avg_sensor"
	StatSpaceDailyPowerUsage StatisticKind = "space_daily_power_usage"
	StatSpaceRangeAvgSensor  StatisticKind = "space_range_avg_sensor"
	StatSpaceRangePowerUsage StatisticKind = "space_range_power_usage"
)

// SubjectType tells whether a statistic belongs to a device or a space
type SubjectType string

const (
	SubjectDevice SubjectType = "device"
	SubjectSpace  SubjectType = "space"
)

// Statistic model represents one persisted aggregate record. Recomputing a
// statistic for the same (subject, kind, date) replaces the prior record,
// so rolling most-recent-N queries never see duplicates for one date.
type Statistic struct {
	Model
	SubjectType SubjectType     `json:"subject_type" gorm:"Column:subject_type;uniqueIndex:idx_stats_subject_kind_date"`
	SubjectID   uint            `json:"subject_id" gorm:"Column:subject_id;uniqueIndex:idx_stats_subject_kind_date"`
	Kind        StatisticKind   `json:"kind" gorm:"Column:kind;uniqueIndex:idx_stats_subject_kind_date"`
	Date        string          `json:"date" gorm:"Column:date;uniqueIndex:idx_stats_subject_kind_date"`
	Value       json.RawMessage `json:"value" gorm:"Column:value;type:jsonb"`
}

// SensorAverages is the value layout for sensor statistics
type SensorAverages struct {
	AverageGas         float64 `json:"averageGas"`
	AverageTemperature float64 `json:"averageTemperature"`
	AverageHumidity    float64 `json:"averageHumidity"`
}

// WeeklySensorAverages is the value layout for rolling weekly sensor
// statistics. The keys differ from the daily layout so both record kinds
// stay self-describing.
type WeeklySensorAverages struct {
	WeeklyAverageGas         float64 `json:"weeklyAverageGas"`
	WeeklyAverageTemperature float64 `json:"weeklyAverageTemperature"`
	WeeklyAverageHumidity    float64 `json:"weeklyAverageHumidity"`
}

// PowerUsage is the value layout for daily/monthly/range power statistics
type PowerUsage struct {
	EnergyConsumed   float64 `json:"energyConsumed"`
	PowerRating      float64 `json:"powerRating"`
	TotalOnTimeHours float64 `json:"totalOnTimeHours"`
}

// WeeklyPowerUsage is the value layout for rolling weekly power statistics
type WeeklyPowerUsage struct {
	WeeklyAverageEnergy float64 `json:"weeklyAverageEnergy"`
	WeeklyAverageOnTime float64 `json:"weeklyAverageOnTime"`
	PowerRating         float64 `json:"powerRating"`
}
