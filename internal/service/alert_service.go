package service

import (
	"context"
	"fmt"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"

	"github.com/sirupsen/logrus"
)

// Notifier fans an alert out to external channels. Implementations are
// best-effort; delivery failures must not surface to the caller.
type Notifier interface {
	AlertRaised(ctx context.Context, alert *models.Alert, device *models.Device)
}

// AlertService evaluates sensor readings against thresholds and manages the
// resulting alert records
type AlertService interface {
	HandleReading(ctx context.Context, device *models.Device, reading models.SensorPayload, at time.Time)
	ListAlerts(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error)
	GetAlert(ctx context.Context, id uint) (*models.Alert, error)
	ResolveAlert(ctx context.Context, id uint) error
}

type alertService struct {
	repo          repository.Repository
	notifier      Notifier
	gasThreshold  float64
	tempThreshold float64
	log           *logrus.Logger
}

// NewAlertService creates an alert service with the given thresholds.
// Readings strictly above a threshold raise the corresponding alert.
func NewAlertService(repo repository.Repository, notifier Notifier, gasThreshold, tempThreshold float64, log *logrus.Logger) AlertService {
	return &alertService{
		repo:          repo,
		notifier:      notifier,
		gasThreshold:  gasThreshold,
		tempThreshold: tempThreshold,
		log:           log,
	}
}

// HandleReading checks each reported field against its threshold. Fields
// are evaluated independently, so one reading can raise both a gas and a
// temperature alert. Persistence failures are logged and swallowed: the
// reading that triggered the alert is already in the event log.
func (s *alertService) HandleReading(ctx context.Context, device *models.Device, reading models.SensorPayload, at time.Time) {
	if reading.Gas != nil && *reading.Gas > s.gasThreshold {
		s.raise(ctx, device, models.AlertGasHigh, *reading.Gas, at,
			fmt.Sprintf("Gas level %.1f exceeds threshold %.1f", *reading.Gas, s.gasThreshold))
	}
	if reading.Temperature != nil && *reading.Temperature > s.tempThreshold {
		s.raise(ctx, device, models.AlertTempHigh, *reading.Temperature, at,
			fmt.Sprintf("Temperature %.1f exceeds threshold %.1f", *reading.Temperature, s.tempThreshold))
	}
}

func (s *alertService) raise(ctx context.Context, device *models.Device, kind models.AlertKind, value float64, at time.Time, message string) {
	alert := &models.Alert{
		DeviceID: device.ID,
		SpaceID:  device.SpaceID,
		Kind:     kind,
		Message:  message,
		Value:    value,
		Status:   models.AlertStatusUnresolved,
		RaisedAt: at,
	}

	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		s.log.WithError(err).Errorf("Failed to persist %s alert for device %s", kind, device.UID)
		return
	}

	s.log.WithFields(logrus.Fields{
		"device_uid": device.UID,
		"kind":       kind,
		"value":      value,
	}).Warn("Alert raised")

	if s.notifier != nil {
		go s.notifier.AlertRaised(context.WithoutCancel(ctx), alert, device)
	}
}

func (s *alertService) ListAlerts(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error) {
	return s.repo.ListAlerts(ctx, status)
}

func (s *alertService) GetAlert(ctx context.Context, id uint) (*models.Alert, error) {
	return s.repo.FindAlertByID(ctx, id)
}

func (s *alertService) ResolveAlert(ctx context.Context, id uint) error {
	return s.repo.ResolveAlert(ctx, id)
}
