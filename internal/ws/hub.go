package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/cache"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/repository"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned when a command is dispatched to a device that
// has no active session. It is a normal outcome, not a fault; callers decide
// whether it is fatal to their operation.
var ErrNotConnected = errors.New("device is not connected")

// AlertSink receives classified sensor readings for threshold evaluation.
// Implementations must never fail the connection loop; their errors are
// observed through logging only.
type AlertSink interface {
	HandleReading(ctx context.Context, device *models.Device, reading models.SensorPayload, at time.Time)
}

// inboundMessage is the discriminated envelope devices send
type inboundMessage struct {
	Type string `json:"type"`
}

// Hub accepts device connections, runs the per-connection message loop and
// dispatches commands to live sessions
type Hub struct {
	registry       *Registry
	repo           repository.Repository
	cache          cache.RedisClient
	alerts         AlertSink
	log            *logrus.Logger
	originPatterns []string
}

// NewHub creates a hub around the given session registry
func NewHub(
	registry *Registry,
	repo repository.Repository,
	cache cache.RedisClient,
	alerts AlertSink,
	log *logrus.Logger,
	originPatterns []string,
) *Hub {
	return &Hub{
		registry:       registry,
		repo:           repo,
		cache:          cache,
		alerts:         alerts,
		log:            log,
		originPatterns: originPatterns,
	}
}

// Registry exposes the session registry for liveness checks
func (h *Hub) Registry() *Registry {
	return h.registry
}

// HandleConnection upgrades the request and runs the device message loop
// until the connection closes. The device identifier is carried as the
// deviceId query parameter and must reference a known device.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	deviceUID := r.URL.Query().Get("deviceId")
	if deviceUID == "" {
		h.log.Warn("WebSocket connect rejected: missing deviceId query parameter")
		http.Error(w, "deviceId query parameter is required", http.StatusBadRequest)
		return
	}

	device, err := h.findDevice(r.Context(), deviceUID)
	if err != nil {
		h.log.WithError(err).Warnf("WebSocket connect rejected: unknown device %s", deviceUID)
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.log.WithError(err).Warn("WebSocket accept failed")
		return
	}

	session := NewSession(deviceUID, device.ID, conn)

	// A reconnect supersedes the old session; close the stale socket so it
	// does not linger.
	if prev := h.registry.Register(deviceUID, session); prev != nil {
		h.log.Infof("Device %s reconnected, closing previous session", deviceUID)
		prev.Close(websocket.StatusPolicyViolation, "superseded by a newer connection")
	}

	h.log.WithFields(logrus.Fields{
		"device_uid": deviceUID,
		"device_id":  device.ID,
	}).Info("Device connected")

	h.readLoop(r.Context(), session, device)

	// The unregister is guarded: if a replacement connection has already
	// registered, this late-firing cleanup must leave it alone.
	if h.registry.Unregister(deviceUID, session) {
		h.presumeOff(device)
	}

	session.Close(websocket.StatusNormalClosure, "connection closed")
	h.log.Infof("Device %s disconnected", deviceUID)
}

// readLoop receives, classifies, logs and evaluates inbound messages until
// the connection errors out
func (h *Hub) readLoop(ctx context.Context, session *Session, device *models.Device) {
	for {
		data, err := session.Read(ctx)
		if err != nil {
			return
		}

		h.handleInbound(ctx, device, data)
	}
}

// handleInbound classifies one raw message, appends it to the event log and
// hands sensor readings to the alert evaluator. Telemetry is persisted
// before any alerting so an alerting failure never loses the reading.
func (h *Hub) handleInbound(ctx context.Context, device *models.Device, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Malformed input is dropped; the connection stays open.
		h.log.WithError(err).Warnf("Dropping malformed message from device %s", device.UID)
		return
	}

	now := time.Now().UTC()
	event := &models.Event{
		DeviceID:  device.ID,
		SpaceID:   device.SpaceID,
		UserID:    &device.UserID,
		Origin:    models.OriginDevice,
		Timestamp: now,
		Payload:   json.RawMessage(data),
	}

	var reading *models.SensorPayload
	switch msg.Type {
	case "sensorData", "smokeSensor":
		var p models.SensorPayload
		if err := json.Unmarshal(data, &p); err != nil {
			h.log.WithError(err).Warnf("Dropping unreadable sensor payload from device %s", device.UID)
			return
		}
		event.Kind = models.KindSensorReading
		reading = &p
	default:
		// Unrecognized types are stored, never rejected.
		event.Kind = models.KindOther
	}

	if err := h.repo.AppendEvent(ctx, event); err != nil {
		h.log.WithError(err).Errorf("Failed to append %s event for device %s", event.Kind, device.UID)
		return
	}

	if reading != nil && h.alerts != nil {
		h.alerts.HandleReading(ctx, device, *reading, now)
	}
}

// SendCommand serializes the command to the device's active session and
// records a server-originated audit event. The audit write is best-effort:
// its failure never rolls back the already-sent command.
func (h *Hub) SendCommand(ctx context.Context, device *models.Device, command map[string]interface{}, initiatorUserID *uint) error {
	session, ok := h.registry.Lookup(device.UID)
	if !ok {
		return ErrNotConnected
	}

	if err := session.Send(ctx, command); err != nil {
		return fmt.Errorf("failed to send command to device %s: %w", device.UID, err)
	}

	go h.auditCommand(device, command, initiatorUserID)

	return nil
}

// auditCommand appends the server-origin audit trail entry for a dispatched
// command. Toggle commands are classified so the statistics path can
// reconstruct power intervals from them.
func (h *Hub) auditCommand(device *models.Device, command map[string]interface{}, initiatorUserID *uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	userID := initiatorUserID
	if userID == nil {
		userID = &device.UserID
	}

	event := &models.Event{
		DeviceID:  device.ID,
		SpaceID:   device.SpaceID,
		UserID:    userID,
		Origin:    models.OriginServer,
		Timestamp: time.Now().UTC(),
	}

	if action, _ := command["action"].(string); action == "toggle" {
		on, _ := command["powerStatus"].(bool)
		payload, err := json.Marshal(models.TogglePayload{PowerStatus: on})
		if err != nil {
			h.log.WithError(err).Error("Failed to marshal toggle audit payload")
			return
		}
		event.Kind = models.KindToggle
		event.Payload = payload
	} else {
		wrapped, err := json.Marshal(map[string]interface{}{
			"commandId": uuid.New().String(),
			"command":   command,
		})
		if err != nil {
			h.log.WithError(err).Error("Failed to marshal command audit payload")
			return
		}
		event.Kind = models.KindOther
		event.Payload = wrapped
	}

	if err := h.repo.AppendEvent(ctx, event); err != nil {
		h.log.WithError(err).Warnf("Failed to write command audit event for device %s", device.UID)
	}
}

// presumeOff records the presumed-off policy action after a disconnect: the
// device is unreachable, so it is assumed off. The status update and audit
// event commit together; a failure is logged and dropped.
func (h *Hub) presumeOff(device *models.Device) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	payload, err := json.Marshal(models.TogglePayload{PowerStatus: false})
	if err != nil {
		h.log.WithError(err).Error("Failed to marshal presumed-off payload")
		return
	}

	event := &models.Event{
		DeviceID:  device.ID,
		SpaceID:   device.SpaceID,
		UserID:    &device.UserID,
		Origin:    models.OriginServer,
		Kind:      models.KindToggle,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	err = h.repo.WithTransaction(ctx, func(ctx context.Context, txRepo repository.Repository) error {
		if err := txRepo.UpdateDevicePowerStatus(ctx, device.ID, false); err != nil {
			return err
		}
		return txRepo.AppendEvent(ctx, event)
	})
	if err != nil {
		h.log.WithError(err).Warnf("Failed to record presumed-off state for device %s", device.UID)
	}
}

// findDevice resolves a device by UID, trying the cache before the database
// (the connect path is hot during reconnect storms)
func (h *Hub) findDevice(ctx context.Context, uid string) (*models.Device, error) {
	cacheKey := fmt.Sprintf("device:%s", uid)

	if h.cache != nil {
		if cached, err := h.cache.Get(ctx, cacheKey); err == nil {
			var device models.Device
			if err := json.Unmarshal([]byte(cached), &device); err == nil {
				return &device, nil
			}
		}
	}

	device, err := h.repo.FindDeviceByUID(ctx, uid)
	if err != nil {
		return nil, err
	}

	if h.cache != nil {
		if deviceJSON, err := json.Marshal(device); err == nil {
			h.cache.Set(ctx, cacheKey, string(deviceJSON), 24*time.Hour)
		}
	}

	return device, nil
}
