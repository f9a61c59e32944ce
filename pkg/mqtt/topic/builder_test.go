package topic

import "testing"

func TestBuilder(t *testing.T) {
	b := NewBuilder("")

	if got := b.Device("D1"); got != "D1/tracker" {
		t.Fatalf("Device() = %q, want %q", got, "D1/tracker")
	}
	if got := b.AllDevices(); got != "+/tracker" {
		t.Fatalf("AllDevices() = %q, want %q", got, "+/tracker")
	}

	tests := []struct {
		topic string
		id    string
		ok    bool
	}{
		{"D1/tracker", "D1", true},
		{"/tracker", "", false},
		{"a/b/tracker", "", false},
		{"D1/other", "", false},
	}
	for _, tt := range tests {
		id, ok := b.DeviceID(tt.topic)
		if id != tt.id || ok != tt.ok {
			t.Errorf("DeviceID(%q) = (%q, %v), want (%q, %v)", tt.topic, id, ok, tt.id, tt.ok)
		}
	}
}

func TestBuilderCustomSuffix(t *testing.T) {
	b := NewBuilder("/events/")
	if got := b.Device("D2"); got != "D2/events" {
		t.Fatalf("Device() = %q, want %q", got, "D2/events")
	}
}
