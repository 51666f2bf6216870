package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/cache"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"

	"github.com/sirupsen/logrus"
)

// Service defines the device read operations backing the HTTP API
type Service interface {
	GetDevice(ctx context.Context, id uint) (*models.Device, error)
	GetDeviceByUID(ctx context.Context, uid string) (*models.Device, error)
	ListDevices(ctx context.Context, spaceID uint) ([]*models.Device, error)

	ListDeviceEvents(ctx context.Context, q repository.EventQuery) ([]*models.Event, error)
	ListRecentDeviceEvents(ctx context.Context, deviceID uint, limit int) ([]*models.Event, error)
}

// service is an implementation of the Service interface
type service struct {
	repo  repository.Repository
	cache cache.RedisClient
	log   *logrus.Logger
}

// ServiceConfig holds the configuration for the service
type ServiceConfig struct {
	Repository repository.Repository
	Cache      cache.RedisClient
	Logger     *logrus.Logger
}

// NewService creates a new service instance
func NewService(config ServiceConfig) (Service, error) {
	if config.Repository == nil {
		return nil, errors.New("repository is required")
	}
	if config.Cache == nil {
		return nil, errors.New("cache is required")
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	return &service{
		repo:  config.Repository,
		cache: config.Cache,
		log:   config.Logger,
	}, nil
}

func (s *service) GetDevice(ctx context.Context, id uint) (*models.Device, error) {
	device, err := s.repo.FindDeviceByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Refresh the by-UID cache entry used by the connect path
	deviceJSON, err := json.Marshal(device)
	if err == nil {
		s.cache.Set(ctx, fmt.Sprintf("device:%s", device.UID), string(deviceJSON), 24*time.Hour)
	}

	return device, nil
}

func (s *service) GetDeviceByUID(ctx context.Context, uid string) (*models.Device, error) {
	// Try to get from cache first
	cacheKey := fmt.Sprintf("device:%s", uid)
	cachedData, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		var device models.Device
		if err := json.Unmarshal([]byte(cachedData), &device); err == nil {
			return &device, nil
		}
	}

	// Fallback to database
	device, err := s.repo.FindDeviceByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	// Update cache
	deviceJSON, err := json.Marshal(device)
	if err == nil {
		s.cache.Set(ctx, cacheKey, string(deviceJSON), 24*time.Hour)
	}

	return device, nil
}

func (s *service) ListDevices(ctx context.Context, spaceID uint) ([]*models.Device, error) {
	return s.repo.ListDevices(ctx, spaceID)
}

func (s *service) ListDeviceEvents(ctx context.Context, q repository.EventQuery) ([]*models.Event, error) {
	return s.repo.ListDeviceEvents(ctx, q)
}

func (s *service) ListRecentDeviceEvents(ctx context.Context, deviceID uint, limit int) ([]*models.Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListRecentDeviceEvents(ctx, deviceID, limit)
}
