package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/autopeer-io/geotrack/internal/trackagent/core"
	"github.com/autopeer-io/geotrack/pkg/mqtt"
	"github.com/autopeer-io/geotrack/pkg/mqtt/topic"
)

type fakeClient struct {
	mu          sync.Mutex
	clientID    string
	started     int
	disconnects int
	subscribed  map[string]mqtt.MessageHandler
	connected   bool
	// hang makes AwaitConnection and Disconnect block until ctx expires.
	hang bool
}

func (f *fakeClient) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
	return nil
}

func (f *fakeClient) Disconnect(ctx context.Context) error {
	f.mu.Lock()
	f.disconnects++
	hang := f.hang
	f.connected = false
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	return nil
}

func (f *fakeClient) Subscribe(ctx context.Context, topic string, qos int, handler mqtt.MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subscribed == nil {
		f.subscribed = map[string]mqtt.MessageHandler{}
	}
	f.subscribed[topic] = handler
	return nil
}

func (f *fakeClient) Unsubscribe(ctx context.Context, topic string) error { return nil }

func (f *fakeClient) AwaitConnection(ctx context.Context) error {
	f.mu.Lock()
	hang := f.hang
	if !hang {
		f.connected = true
	}
	f.mu.Unlock()
	if hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeClient) deliver(topic string, payload []byte) {
	f.mu.Lock()
	h := f.subscribed[topic]
	f.mu.Unlock()
	h(context.Background(), topic, payload)
}

type recordingAlerts struct {
	mu     sync.Mutex
	alerts []core.Alert
}

func (r *recordingAlerts) ShowAlert(a core.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func newTestChannel(t *testing.T, hang bool) (*Channel, *[]*fakeClient, *recordingAlerts) {
	t.Helper()
	var clients []*fakeClient
	alerts := &recordingAlerts{}
	ch, err := NewChannel(Config{
		NewClient: func(clientID string) (mqtt.Client, error) {
			c := &fakeClient{clientID: clientID, hang: hang}
			clients = append(clients, c)
			return c, nil
		},
		Topics:     topic.NewBuilder("tracker"),
		Alerts:     alerts,
		AckTimeout: 50 * time.Millisecond,
		Location:   time.UTC,
	})
	if err != nil {
		t.Fatal(err)
	}
	return ch, &clients, alerts
}

func TestConnectIsIdempotent(t *testing.T) {
	ch, clients, _ := newTestChannel(t, false)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := ch.Connect(ctx, "identity-1", "D1"); err != nil {
			t.Fatalf("Connect() error = %v", err)
		}
	}
	if len(*clients) != 1 {
		t.Fatalf("clients created = %d, want 1", len(*clients))
	}
	c := (*clients)[0]
	if c.clientID != "identity-1" || c.started != 1 {
		t.Errorf("clientID=%q started=%d", c.clientID, c.started)
	}
	if _, ok := c.subscribed["D1/tracker"]; !ok {
		t.Errorf("subscriptions = %v", c.subscribed)
	}
	if !ch.Connected() {
		t.Error("Connected() = false")
	}
}

func TestConnectTimeoutDoesNotFail(t *testing.T) {
	ch, clients, _ := newTestChannel(t, true)

	start := time.Now()
	if err := ch.Connect(context.Background(), "identity-1", "D1"); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Connect took %v", elapsed)
	}
	if len(*clients) != 1 {
		t.Fatalf("clients = %d", len(*clients))
	}
	if ch.Connected() {
		t.Error("Connected() = true without acknowledgement")
	}

	// Disconnect is bounded by the same timeout.
	if err := ch.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
}

func TestDisconnectIsSafeAndIdempotent(t *testing.T) {
	ch, clients, _ := newTestChannel(t, false)
	ctx := context.Background()

	if err := ch.Disconnect(ctx); err != nil {
		t.Fatalf("Disconnect() on fresh channel error = %v", err)
	}

	if err := ch.Connect(ctx, "identity-1", "D1"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := ch.Disconnect(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if got := (*clients)[0].disconnects; got != 1 {
		t.Errorf("client disconnects = %d, want 1", got)
	}

	// A new session gets a new client.
	if err := ch.Connect(ctx, "identity-1", "D1"); err != nil {
		t.Fatal(err)
	}
	if len(*clients) != 2 {
		t.Errorf("clients = %d, want 2", len(*clients))
	}
}

func TestInboundEventProducesOneAlert(t *testing.T) {
	ch, clients, alerts := newTestChannel(t, false)
	if err := ch.Connect(context.Background(), "identity-1", "D1"); err != nil {
		t.Fatal(err)
	}
	c := (*clients)[0]

	c.deliver("D1/tracker", []byte(`{"trackerEventType":"enter","geofenceId":"G1","eventTime":"2024-01-01T00:00:00Z","deviceId":"D1"}`))
	c.deliver("D1/tracker", []byte(`not json`))
	c.deliver("D1/tracker", []byte(`{"trackerEventType":"enter","geofenceId":"G1","eventTime":"yesterday","deviceId":"D1"}`))

	if len(alerts.alerts) != 1 {
		t.Fatalf("alerts = %d, want 1", len(alerts.alerts))
	}
	a := alerts.alerts[0]
	if a.Title != "Geofence entered" || a.Message != "Device D1 entered geofence G1 at Jan 1, 2024 at 12:00:00 AM" {
		t.Errorf("alert = %+v", a)
	}
	if ch.DecodeErrors() != 2 {
		t.Errorf("DecodeErrors() = %d, want 2", ch.DecodeErrors())
	}
}

func TestNewChannelRequiresCollaborators(t *testing.T) {
	if _, err := NewChannel(Config{Alerts: &recordingAlerts{}}); err == nil {
		t.Error("expected error without client factory")
	}
	factory := func(string) (mqtt.Client, error) { return nil, errors.New("unused") }
	if _, err := NewChannel(Config{NewClient: factory}); err == nil {
		t.Error("expected error without alert presenter")
	}
}
