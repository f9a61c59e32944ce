// Package notify keeps the geofence event subscription for the tracked
// device and turns inbound events into alerts.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/autopeer-io/geotrack/internal/pkg/metrics"
	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/pkg/log"
	"github.com/autopeer-io/geotrack/pkg/mqtt"
	"github.com/autopeer-io/geotrack/pkg/mqtt/topic"
)

// DefaultAckTimeout bounds the wait for connect and disconnect acknowledgements.
const DefaultAckTimeout = 5 * time.Second

// ClientFactory creates an MQTT client identified by clientID.
type ClientFactory func(clientID string) (mqtt.Client, error)

// Config configures a Channel.
type Config struct {
	NewClient  ClientFactory
	Topics     *topic.Builder
	Alerts     core.AlertPresenter
	AckTimeout time.Duration
	// Location renders event times. Defaults to time.Local.
	Location *time.Location
}

// Channel is one persistent subscription to a device's event topic.
type Channel struct {
	newClient  ClientFactory
	topics     *topic.Builder
	alerts     core.AlertPresenter
	ackTimeout time.Duration
	loc        *time.Location

	mu       sync.Mutex
	client   mqtt.Client
	cancel   context.CancelFunc
	deviceID string

	decodeErrors atomic.Int64
}

// NewChannel returns a disconnected Channel.
func NewChannel(cfg Config) (*Channel, error) {
	if cfg.NewClient == nil {
		return nil, errors.New("notify: client factory is required")
	}
	if cfg.Alerts == nil {
		return nil, errors.New("notify: alert presenter is required")
	}
	c := &Channel{
		newClient:  cfg.NewClient,
		topics:     cfg.Topics,
		alerts:     cfg.Alerts,
		ackTimeout: cfg.AckTimeout,
		loc:        cfg.Location,
	}
	if c.topics == nil {
		c.topics = topic.NewBuilder("")
	}
	if c.ackTimeout <= 0 {
		c.ackTimeout = DefaultAckTimeout
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	return c, nil
}

// Connect starts the connection and subscribes to the device's event topic.
// It is a no-op while a connection exists. If the broker does not acknowledge
// within the ack timeout, Connect logs and returns nil; the client keeps
// retrying with backoff and subscribes once connected.
func (c *Channel) Connect(ctx context.Context, clientID, deviceID string) error {
	c.mu.Lock()
	if c.client != nil {
		c.mu.Unlock()
		log.Debug("Notification channel already connected", "deviceID", c.deviceID)
		return nil
	}

	client, err := c.newClient(clientID)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("create mqtt client: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	if err := client.Start(runCtx); err != nil {
		cancel()
		c.mu.Unlock()
		return fmt.Errorf("start mqtt client: %w", err)
	}

	eventTopic := c.topics.Device(deviceID)
	if err := client.Subscribe(ctx, eventTopic, 1, c.handleMessage); err != nil {
		log.Error(err, "Failed to subscribe, retrying after reconnect", "topic", eventTopic)
	}

	c.client = client
	c.cancel = cancel
	c.deviceID = deviceID
	c.mu.Unlock()

	waitCtx, waitCancel := context.WithTimeout(ctx, c.ackTimeout)
	defer waitCancel()
	if err := client.AwaitConnection(waitCtx); err != nil {
		log.Warn("Connection not acknowledged in time, retrying in background", "topic", eventTopic, "timeout", c.ackTimeout)
		return nil
	}

	metrics.ChannelConnected.Set(1)
	log.Info("Notification channel connected", "topic", eventTopic, "clientID", clientID)
	return nil
}

// Disconnect stops the connection, waiting at most the ack timeout. It is
// safe to call on a disconnected channel.
func (c *Channel) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	client, cancel, deviceID := c.client, c.cancel, c.deviceID
	c.client, c.cancel, c.deviceID = nil, nil, ""
	c.mu.Unlock()

	if client == nil {
		return nil
	}
	defer cancel()
	metrics.ChannelConnected.Set(0)

	waitCtx, waitCancel := context.WithTimeout(ctx, c.ackTimeout)
	defer waitCancel()
	if err := client.Disconnect(waitCtx); err != nil {
		log.Warn("Disconnect not acknowledged in time", "deviceID", deviceID, "err", err.Error())
		return nil
	}
	log.Info("Notification channel disconnected", "deviceID", deviceID)
	return nil
}

// Connected reports whether a connection is currently up.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	connected := c.client != nil && c.client.IsConnected()
	c.mu.Unlock()

	if connected {
		metrics.ChannelConnected.Set(1)
	} else {
		metrics.ChannelConnected.Set(0)
	}
	return connected
}

// DecodeErrors returns how many inbound payloads were dropped as malformed.
func (c *Channel) DecodeErrors() int64 {
	return c.decodeErrors.Load()
}

func (c *Channel) handleMessage(_ context.Context, topic string, payload []byte) {
	event, err := DecodeEvent(payload)
	if err != nil {
		c.decodeErrors.Add(1)
		metrics.EventsTotal.WithLabelValues("decode_error").Inc()
		log.Debug("Dropping malformed geofence event", "topic", topic, "err", err.Error())
		return
	}
	if event.DeviceID == "" {
		if id, ok := c.topics.DeviceID(topic); ok {
			event.DeviceID = id
		}
	}

	metrics.EventsTotal.WithLabelValues("alerted").Inc()
	log.Info("Geofence event received", "geofenceID", event.GeofenceID, "type", string(event.Type), "deviceID", event.DeviceID)
	c.alerts.ShowAlert(core.AlertFor(event, c.loc))
}
