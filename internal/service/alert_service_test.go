package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (n *recordingNotifier) AlertRaised(ctx context.Context, alert *models.Alert, device *models.Device) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.alerts)
}

func newTestAlerts(repo *MockRepository, notifier Notifier) AlertService {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return NewAlertService(repo, notifier, 300, 50, log)
}

func TestHandleReadingRaisesGasAlert(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")
	at := ts(t, "2025-03-10T10:00:00Z")

	var created []*models.Alert
	mockRepo.On("CreateAlert", mock.Anything, mock.AnythingOfType("*models.Alert")).
		Run(func(args mock.Arguments) {
			created = append(created, args.Get(1).(*models.Alert))
		}).Return(nil)

	alerts := newTestAlerts(mockRepo, nil)
	alerts.HandleReading(context.Background(), device, models.SensorPayload{Gas: f(350)}, at)

	require.Len(t, created, 1)
	require.Equal(t, models.AlertGasHigh, created[0].Kind)
	require.Equal(t, models.AlertStatusUnresolved, created[0].Status)
	require.InDelta(t, 350, created[0].Value, 1e-9)
	require.Equal(t, at, created[0].RaisedAt)
}

func TestHandleReadingRaisesBothAlertsIndependently(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")

	var created []*models.Alert
	mockRepo.On("CreateAlert", mock.Anything, mock.AnythingOfType("*models.Alert")).
		Run(func(args mock.Arguments) {
			created = append(created, args.Get(1).(*models.Alert))
		}).Return(nil)

	alerts := newTestAlerts(mockRepo, nil)
	alerts.HandleReading(context.Background(), device,
		models.SensorPayload{Gas: f(350), Temperature: f(60)}, ts(t, "2025-03-10T10:00:00Z"))

	require.Len(t, created, 2)
	require.Equal(t, models.AlertGasHigh, created[0].Kind)
	require.Equal(t, models.AlertTempHigh, created[1].Kind)
}

func TestHandleReadingBelowThresholdsIsQuiet(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")

	alerts := newTestAlerts(mockRepo, nil)
	// Exactly at the threshold does not trip it; only strictly above does.
	alerts.HandleReading(context.Background(), device,
		models.SensorPayload{Gas: f(300), Temperature: f(50), Humidity: f(99)}, ts(t, "2025-03-10T10:00:00Z"))

	mockRepo.AssertNotCalled(t, "CreateAlert", mock.Anything, mock.Anything)
}

func TestHandleReadingNotifiesAfterPersist(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")
	notifier := &recordingNotifier{}

	mockRepo.On("CreateAlert", mock.Anything, mock.Anything).Return(nil)

	alerts := newTestAlerts(mockRepo, notifier)
	alerts.HandleReading(context.Background(), device, models.SensorPayload{Gas: f(400)}, ts(t, "2025-03-10T10:00:00Z"))

	require.Eventually(t, func() bool {
		return notifier.count() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandleReadingPersistFailureSkipsNotify(t *testing.T) {
	mockRepo := new(MockRepository)
	device := testDevice(1, "Fire Alarm")
	notifier := &recordingNotifier{}

	mockRepo.On("CreateAlert", mock.Anything, mock.Anything).Return(errors.New("db down"))

	alerts := newTestAlerts(mockRepo, notifier)
	alerts.HandleReading(context.Background(), device, models.SensorPayload{Gas: f(400)}, ts(t, "2025-03-10T10:00:00Z"))

	time.Sleep(50 * time.Millisecond)
	require.Zero(t, notifier.count())
}
