package mqtt

import (
	"context"
	"errors"
	"net/url"
	"testing"
)

func TestTopicsMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"D1/tracker", "D1/tracker", true},
		{"+/tracker", "D1/tracker", true},
		{"+/tracker", "D1/other", false},
		{"#", "D1/tracker", true},
		{"D1/#", "D1/tracker/extra", true},
		{"D1/+", "D1/tracker/extra", false},
		{"D1/tracker", "D2/tracker", false},
	}
	for _, tt := range tests {
		if got := topicsMatch(tt.filter, tt.topic); got != tt.want {
			t.Errorf("topicsMatch(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

func TestTopicFilterSharedSubscription(t *testing.T) {
	if got := topicFilter("$share/group/D1/tracker"); got != "D1/tracker" {
		t.Fatalf("topicFilter() = %q", got)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewClient(&ClientConfig{ClientID: "c"}); err == nil {
		t.Fatal("expected error for missing broker")
	}
	if _, err := NewClient(&ClientConfig{BrokerURL: "wss://example.com/mqtt"}); err == nil {
		t.Fatal("expected error for missing client id")
	}

	cfg := &ClientConfig{BrokerURL: "wss://example.com/mqtt", ClientID: "c"}
	if _, err := NewClient(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ConnectTimeout == 0 || cfg.KeepAlive == 0 || cfg.BackoffMin == 0 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestOperationsBeforeStart(t *testing.T) {
	c, err := NewClient(&ClientConfig{BrokerURL: "wss://example.com/mqtt", ClientID: "c"})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := c.Subscribe(ctx, "D1/tracker", 1, func(context.Context, string, []byte) {}); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Subscribe() error = %v, want ErrNotStarted", err)
	}
	if err := c.Publish(ctx, "D1/tracker", 1, false, nil); !errors.Is(err, ErrNotStarted) {
		t.Errorf("Publish() error = %v, want ErrNotStarted", err)
	}
	if err := c.Disconnect(ctx); err != nil {
		t.Errorf("Disconnect() on idle client = %v, want nil", err)
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true before Start")
	}
}

func TestRedactURL(t *testing.T) {
	u, _ := url.Parse("wss://user:pw@example.com/mqtt?X-Amz-Signature=abc")
	if got := redactURL(u); got != "wss://example.com/mqtt" {
		t.Fatalf("redactURL() = %q", got)
	}
}
