package core

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatalf("expected generated name")
	}

	rec.Observe(context.Background(), "save", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "save", true, 30*time.Millisecond)
	rec.Observe(context.Background(), "save", false, 5*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Second)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["save"]; got != 55 {
		t.Fatalf("duration total = %v", got)
	}
	if got := snap.Results["save"]["success"]; got != 2 {
		t.Fatalf("success count = %d", got)
	}
	if got := snap.Results["save"]["error"]; got != 1 {
		t.Fatalf("error count = %d", got)
	}
	if len(snap.Results) != 1 {
		t.Fatalf("unnamed operations must be dropped: %v", snap.Results)
	}
}

func TestExpvarMetricsSnapshotIsCopy(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "load", true, time.Millisecond)

	snap := rec.Snapshot()
	snap.DurationsMS["load"] = 999
	snap.Results["load"]["success"] = 999

	again := rec.Snapshot()
	if again.DurationsMS["load"] == 999 || again.Results["load"]["success"] == 999 {
		t.Fatalf("snapshot shares state with the recorder")
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	rec.Observe(context.Background(), "save", true, 10*time.Millisecond)
	rec.Observe(context.Background(), "save", false, 10*time.Millisecond)
	rec.Observe(context.Background(), "load", true, time.Millisecond)

	expected := strings.NewReader(`
# HELP recordcore_session_operation_results_total Outcomes of record session operations.
# TYPE recordcore_session_operation_results_total counter
recordcore_session_operation_results_total{operation="load",status="success"} 1
recordcore_session_operation_results_total{operation="save",status="error"} 1
recordcore_session_operation_results_total{operation="save",status="success"} 1
`)
	if err := testutil.GatherAndCompare(reg, expected, "recordcore_session_operation_results_total"); err != nil {
		t.Fatalf("unexpected counter state: %v", err)
	}
}

func TestPrometheusMetricsRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMetricsRecorder(reg); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestJSONTracerRecordsSpans(t *testing.T) {
	tracer := NewJSONTracer(nil)

	_, span := tracer.Start(context.Background(), "load")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "save")
	span.End(context.DeadlineExceeded)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].Operation != "load" || entries[0].Status != "success" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error == "" {
		t.Fatalf("second entry = %+v", entries[1])
	}
	if entries[1].EndedAt.Before(entries[1].StartedAt) {
		t.Fatalf("span times inverted: %+v", entries[1])
	}
}

func TestSessionInstrumentation(t *testing.T) {
	backend := &fakeBackend{schema: testSchema()}
	tracer := NewJSONTracer(nil)
	rec := NewExpvarMetricsRecorder("")
	session := NewSession(Config{
		Table:       "Widget",
		Schemas:     backend,
		Data:        backend,
		Permissions: backend,
		Logger:      quietLogger(),
		Metrics:     rec,
		Tracer:      tracer,
		Now:         testClock,
	})

	if err := session.Load(context.Background(), LoadOptions{}); err != nil {
		t.Fatalf("load: %v", err)
	}

	entries := tracer.Entries()
	if len(entries) != 1 || entries[0].Operation != "load" {
		t.Fatalf("trace entries = %+v", entries)
	}
	snap := rec.Snapshot()
	if snap.Results["load"]["success"] != 1 {
		t.Fatalf("metrics = %+v", snap.Results)
	}
}
