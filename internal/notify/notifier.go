package notify

import (
	"context"
	"sync"
	"time"

	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/messaging"
	"github.com/phamanhtuan-coder/homeconnect-api-ws/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// notification is one queued outbound alert notification
type notification struct {
	ID        string           `json:"id"`
	Channel   string           `json:"channel"`
	DeviceUID string           `json:"device_uid"`
	Kind      models.AlertKind `json:"kind"`
	Message   string           `json:"message"`
	Value     float64          `json:"value"`
	RaisedAt  time.Time        `json:"raised_at"`
}

// Notifier fans alert notifications out to the message bus over a worker
// pool. Delivery is best-effort: a failed publish is logged and dropped, it
// never reaches the caller.
type Notifier struct {
	messagingClient messaging.ServiceBusClient
	log             *logrus.Logger
	queue           chan notification
	wg              sync.WaitGroup
	ctx             context.Context
	cancel          context.CancelFunc
}

// NewNotifier creates a notifier with the given number of delivery workers
func NewNotifier(messagingClient messaging.ServiceBusClient, log *logrus.Logger, workers int) *Notifier {
	if workers < 1 {
		workers = 2
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &Notifier{
		messagingClient: messagingClient,
		log:             log,
		queue:           make(chan notification, 1000),
		ctx:             ctx,
		cancel:          cancel,
	}

	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}

	n.log.Infof("Started notifier with %d workers", workers)

	return n
}

// AlertRaised queues push and email notifications for a persisted alert.
// If the queue is full the notification is dropped with a warning.
func (n *Notifier) AlertRaised(ctx context.Context, alert *models.Alert, device *models.Device) {
	for _, channel := range []string{"push", "email"} {
		msg := notification{
			ID:        uuid.New().String(),
			Channel:   channel,
			DeviceUID: device.UID,
			Kind:      alert.Kind,
			Message:   alert.Message,
			Value:     alert.Value,
			RaisedAt:  alert.RaisedAt,
		}
		select {
		case n.queue <- msg:
		default:
			n.log.Warnf("Notification queue full, dropping %s notification for device %s", channel, device.UID)
		}
	}
}

// worker delivers queued notifications until shutdown
func (n *Notifier) worker(id int) {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			n.log.Debugf("Notifier worker %d shutting down", id)
			return
		case msg := <-n.queue:
			n.deliver(msg)
		}
	}
}

func (n *Notifier) deliver(msg notification) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Session per device keeps notifications for one device ordered.
	if err := n.messagingClient.SendMessage(ctx, msg, msg.DeviceUID); err != nil {
		n.log.WithError(err).Warnf("Failed to publish %s notification %s", msg.Channel, msg.ID)
	}
}

// Shutdown stops the workers after draining in-flight deliveries
func (n *Notifier) Shutdown() {
	n.cancel()
	n.wg.Wait()
	n.log.Info("Notifier stopped")
}
