package service

import (
	"context"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockRepository is a testify mock of repository.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo repository.Repository) error) error {
	args := m.Called(ctx, fn)
	return args.Error(0)
}

func (m *MockRepository) FindDeviceByID(ctx context.Context, id uint) (*models.Device, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *MockRepository) FindDeviceByUID(ctx context.Context, uid string) (*models.Device, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Device), args.Error(1)
}

func (m *MockRepository) ListDevices(ctx context.Context, spaceID uint) ([]*models.Device, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Device), args.Error(1)
}

func (m *MockRepository) ListSpaceDevices(ctx context.Context, spaceID uint) ([]*models.Device, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Device), args.Error(1)
}

func (m *MockRepository) UpdateDevicePowerStatus(ctx context.Context, id uint, on bool) error {
	args := m.Called(ctx, id, on)
	return args.Error(0)
}

func (m *MockRepository) AppendEvent(ctx context.Context, event *models.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockRepository) ListDeviceEvents(ctx context.Context, q repository.EventQuery) ([]*models.Event, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockRepository) ListRecentDeviceEvents(ctx context.Context, deviceID uint, limit int) ([]*models.Event, error) {
	args := m.Called(ctx, deviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Event), args.Error(1)
}

func (m *MockRepository) UpsertStatistic(ctx context.Context, stat *models.Statistic) error {
	args := m.Called(ctx, stat)
	return args.Error(0)
}

func (m *MockRepository) ListRecentStatistics(ctx context.Context, subjectType models.SubjectType, subjectID uint, kind models.StatisticKind, limit int) ([]*models.Statistic, error) {
	args := m.Called(ctx, subjectType, subjectID, kind, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Statistic), args.Error(1)
}

func (m *MockRepository) ListStatisticsRange(ctx context.Context, subjectType models.SubjectType, subjectID uint, kind models.StatisticKind, startDate, endDate string) ([]*models.Statistic, error) {
	args := m.Called(ctx, subjectType, subjectID, kind, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Statistic), args.Error(1)
}

func (m *MockRepository) CreateAlert(ctx context.Context, alert *models.Alert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *MockRepository) FindAlertByID(ctx context.Context, id uint) (*models.Alert, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Alert), args.Error(1)
}

func (m *MockRepository) ListAlerts(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Alert), args.Error(1)
}

func (m *MockRepository) ResolveAlert(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockRepository) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.APIKey), args.Error(1)
}

func (m *MockRepository) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	args := m.Called(ctx, apiKey)
	return args.Error(0)
}

func (m *MockRepository) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.APIKey), args.Error(1)
}

func (m *MockRepository) DeleteAPIKey(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
