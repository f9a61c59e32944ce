package persist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "geotrack.yaml")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if active, _ := s.TrackingActive(); active {
		t.Error("fresh store is active")
	}

	if err := s.SetTrackingActive(true); err != nil {
		t.Fatalf("SetTrackingActive() error = %v", err)
	}
	id, err := s.DeviceID("")
	if err != nil || id == "" {
		t.Fatalf("DeviceID() = %q, %v", id, err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if active, _ := reopened.TrackingActive(); !active {
		t.Error("flag not persisted")
	}
	if got, _ := reopened.DeviceID(""); got != id {
		t.Errorf("DeviceID() after reopen = %q, want %q", got, id)
	}

	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "trackingActive: true") {
		t.Errorf("unexpected file content:\n%s", data)
	}
}

func TestDeviceIDPrefersConfigured(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	s, _ := Open(path)

	if id, _ := s.DeviceID("truck-7"); id != "truck-7" {
		t.Errorf("DeviceID() = %q", id)
	}
	reopened, _ := Open(path)
	if id, _ := reopened.DeviceID(""); id != "truck-7" {
		t.Errorf("persisted DeviceID() = %q", id)
	}
}

func TestOpenRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.yaml")
	if err := os.WriteFile(path, []byte("trackingActive: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected parse error")
	}
}
