package repository

import (
	"context"
	"errors"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/database"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when a referenced entity does not exist
var ErrNotFound = errors.New("record not found")

// Repository provides data access methods
type Repository interface {
	// Transaction support
	WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error

	// Device operations
	FindDeviceByID(ctx context.Context, id uint) (*models.Device, error)
	FindDeviceByUID(ctx context.Context, uid string) (*models.Device, error)
	ListDevices(ctx context.Context, spaceID uint) ([]*models.Device, error)
	ListSpaceDevices(ctx context.Context, spaceID uint) ([]*models.Device, error)
	UpdateDevicePowerStatus(ctx context.Context, id uint, on bool) error

	// Event log operations (append-only)
	AppendEvent(ctx context.Context, event *models.Event) error
	ListDeviceEvents(ctx context.Context, q EventQuery) ([]*models.Event, error)
	ListRecentDeviceEvents(ctx context.Context, deviceID uint, limit int) ([]*models.Event, error)

	// Statistic operations
	UpsertStatistic(ctx context.Context, stat *models.Statistic) error
	ListRecentStatistics(ctx context.Context, subjectType models.SubjectType, subjectID uint, kind models.StatisticKind, limit int) ([]*models.Statistic, error)
	ListStatisticsRange(ctx context.Context, subjectType models.SubjectType, subjectID uint, kind models.StatisticKind, startDate, endDate string) ([]*models.Statistic, error)

	// Alert operations
	CreateAlert(ctx context.Context, alert *models.Alert) error
	FindAlertByID(ctx context.Context, id uint) (*models.Alert, error)
	ListAlerts(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error)
	ResolveAlert(ctx context.Context, id uint) error

	// APIKey operations
	CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error)
	UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	DeleteAPIKey(ctx context.Context, id uint) error
}

// EventQuery describes a range query over one device's event log. Zero-value
// Origin or Kind means "any". Events come back sorted by timestamp ascending,
// which the interval reconstruction relies on.
type EventQuery struct {
	DeviceID uint
	From     time.Time
	To       time.Time
	Origin   models.EventOrigin
	Kind     models.EventKind
}

// repo is an implementation of the Repository interface
type repo struct {
	db database.DB
}

// Helper type for transaction support
type dbWrapper struct {
	db *gorm.DB
}

func (w *dbWrapper) DB() (*gorm.DB, error) {
	return w.db, nil
}

func (w *dbWrapper) Close() error {
	return nil
}

// NewRepository creates a new repository instance
func NewRepository(db database.DB) Repository {
	return &repo{
		db: db,
	}
}

// WithTransaction executes the given function within a database transaction
func (r *repo) WithTransaction(ctx context.Context, fn func(ctx context.Context, txRepo Repository) error) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.Transaction(func(tx *gorm.DB) error {
		txRepo := &repo{
			db: &dbWrapper{db: tx},
		}
		return fn(ctx, txRepo)
	})
}

// notFound maps gorm's sentinel onto the repository's own
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// Device operations implementation

func (r *repo) FindDeviceByID(ctx context.Context, id uint) (*models.Device, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var device models.Device
	if err := gormDB.WithContext(ctx).Preload("Type").Preload("Space").First(&device, id).Error; err != nil {
		return nil, notFound(err)
	}

	return &device, nil
}

func (r *repo) FindDeviceByUID(ctx context.Context, uid string) (*models.Device, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var device models.Device
	if err := gormDB.WithContext(ctx).Preload("Type").Preload("Space").Where("uid = ?", uid).First(&device).Error; err != nil {
		return nil, notFound(err)
	}

	return &device, nil
}

func (r *repo) ListDevices(ctx context.Context, spaceID uint) ([]*models.Device, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var devices []*models.Device
	query := gormDB.WithContext(ctx).Preload("Type").Preload("Space")

	if spaceID > 0 {
		query = query.Where("space_id = ?", spaceID)
	}

	if err := query.Find(&devices).Error; err != nil {
		return nil, err
	}

	return devices, nil
}

func (r *repo) ListSpaceDevices(ctx context.Context, spaceID uint) ([]*models.Device, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var devices []*models.Device
	if err := gormDB.WithContext(ctx).Preload("Type").Where("space_id = ?", spaceID).Find(&devices).Error; err != nil {
		return nil, err
	}

	return devices, nil
}

func (r *repo) UpdateDevicePowerStatus(ctx context.Context, id uint, on bool) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Model(&models.Device{}).
		Where("id = ?", id).
		Update("power_status", on).Error
}

// Event log operations implementation

func (r *repo) AppendEvent(ctx context.Context, event *models.Event) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	return gormDB.WithContext(ctx).Create(event).Error
}

func (r *repo) ListDeviceEvents(ctx context.Context, q EventQuery) ([]*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	query := gormDB.WithContext(ctx).
		Where("device_id = ?", q.DeviceID).
		Where("timestamp BETWEEN ? AND ?", q.From, q.To)

	if q.Origin != "" {
		query = query.Where("origin = ?", q.Origin)
	}
	if q.Kind != "" {
		query = query.Where("kind = ?", q.Kind)
	}

	var events []*models.Event
	if err := query.Order("timestamp ASC").Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

func (r *repo) ListRecentDeviceEvents(ctx context.Context, deviceID uint, limit int) ([]*models.Event, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var events []*models.Event
	query := gormDB.WithContext(ctx).Where("device_id = ?", deviceID).Order("timestamp DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}

	return events, nil
}

// Statistic operations implementation

// UpsertStatistic replaces any prior record for the same (subject, kind,
// date) so a rerun of an aggregation job never leaves duplicates behind.
func (r *repo) UpsertStatistic(ctx context.Context, stat *models.Statistic) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "subject_type"},
			{Name: "subject_id"},
			{Name: "kind"},
			{Name: "date"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(stat).Error
}

func (r *repo) ListRecentStatistics(ctx context.Context, subjectType models.SubjectType, subjectID uint, kind models.StatisticKind, limit int) ([]*models.Statistic, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var stats []*models.Statistic
	query := gormDB.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ? AND kind = ?", subjectType, subjectID, kind).
		Order("date DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&stats).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *repo) ListStatisticsRange(ctx context.Context, subjectType models.SubjectType, subjectID uint, kind models.StatisticKind, startDate, endDate string) ([]*models.Statistic, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var stats []*models.Statistic
	err = gormDB.WithContext(ctx).
		Where("subject_type = ? AND subject_id = ? AND kind = ?", subjectType, subjectID, kind).
		Where("date BETWEEN ? AND ?", startDate, endDate).
		Order("date ASC").
		Find(&stats).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// Alert operations implementation

func (r *repo) CreateAlert(ctx context.Context, alert *models.Alert) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	if alert.RaisedAt.IsZero() {
		alert.RaisedAt = time.Now().UTC()
	}
	if alert.Status == "" {
		alert.Status = models.AlertStatusUnresolved
	}

	return gormDB.WithContext(ctx).Create(alert).Error
}

func (r *repo) FindAlertByID(ctx context.Context, id uint) (*models.Alert, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var alert models.Alert
	if err := gormDB.WithContext(ctx).Preload("Device").First(&alert, id).Error; err != nil {
		return nil, notFound(err)
	}

	return &alert, nil
}

func (r *repo) ListAlerts(ctx context.Context, status models.AlertStatus) ([]*models.Alert, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var alerts []*models.Alert
	query := gormDB.WithContext(ctx).Preload("Device").Order("raised_at DESC")

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}

	return alerts, nil
}

func (r *repo) ResolveAlert(ctx context.Context, id uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).Model(&models.Alert{}).
		Where("id = ?", id).
		Update("status", models.AlertStatusResolved)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// APIKey operations implementation

func (r *repo) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Create(apiKey).Error
}

func (r *repo) GetAPIKeyByKey(ctx context.Context, key string) (*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiKey models.APIKey
	if err := gormDB.WithContext(ctx).Where("key = ?", key).First(&apiKey).Error; err != nil {
		return nil, notFound(err)
	}

	return &apiKey, nil
}

func (r *repo) UpdateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Save(apiKey).Error
}

func (r *repo) ListAPIKeys(ctx context.Context) ([]*models.APIKey, error) {
	gormDB, err := r.db.DB()
	if err != nil {
		return nil, err
	}

	var apiKeys []*models.APIKey
	if err := gormDB.WithContext(ctx).Find(&apiKeys).Error; err != nil {
		return nil, err
	}

	return apiKeys, nil
}

func (r *repo) DeleteAPIKey(ctx context.Context, id uint) error {
	gormDB, err := r.db.DB()
	if err != nil {
		return err
	}

	result := gormDB.WithContext(ctx).Delete(&models.APIKey{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
