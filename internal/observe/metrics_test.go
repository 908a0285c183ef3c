package observe

import (
	"context"
	"testing"
	"time"
)

func TestNewCreatesInstruments(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.FramesSeen == nil || m.FramesDropped == nil || m.WindowsProcessed == nil ||
		m.InferDuration == nil || m.DecodeDuration == nil {
		t.Error("instrument missing")
	}
}

func TestRecordHelpers(t *testing.T) {
	m, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	// No-op provider: these must simply not panic.
	m.RecordFrame(ctx, false)
	m.RecordFrame(ctx, true)
	m.RecordWindow(ctx, 5*time.Millisecond)
	m.RecordDecode(ctx, time.Millisecond)
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordFrame(ctx, true)
	m.RecordWindow(ctx, time.Second)
	m.RecordDecode(ctx, time.Second)
}
