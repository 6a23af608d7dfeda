package mapper

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/user/logship/internal/domain"
)

var testContext = domain.LogContext{ProjectID: "proj-1", LogLabel: "app"}

func newTestMapper() *DefaultMapper {
	m := NewDefault()
	m.newID = func() string { return "fixed-id" }
	m.now = func() time.Time {
		return time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	}
	return m
}

func mapEntry(t *testing.T, record string) domain.LogEntry {
	t.Helper()
	entry, ok := newTestMapper().Map(testContext, domain.Record(record)).(domain.LogEntry)
	if !ok {
		t.Fatal("default mapper did not produce a domain.LogEntry")
	}
	return entry
}

func TestDefaultMapper_Shape(t *testing.T) {
	entry := mapEntry(t, `{"message":"hi","severity":"ERROR","time":"2026-08-23T11:59:00Z","span":{"trace_id":"abc123"}}`)

	if entry.LogName != "projects/proj-1/logs/app" {
		t.Errorf("unexpected logName: %s", entry.LogName)
	}
	if entry.Resource.Type != "global" || entry.Resource.Labels.ProjectID != "proj-1" {
		t.Errorf("unexpected resource: %+v", entry.Resource)
	}
	if entry.Severity != "ERROR" {
		t.Errorf("expected severity ERROR, got %s", entry.Severity)
	}
	if entry.Timestamp != "2026-08-23T11:59:00Z" {
		t.Errorf("expected record timestamp to pass through, got %s", entry.Timestamp)
	}
	if entry.Trace != "abc123" {
		t.Errorf("expected trace abc123, got %q", entry.Trace)
	}
	if entry.InsertID != "fixed-id" {
		t.Errorf("expected insertId fixed-id, got %q", entry.InsertID)
	}
	if entry.Labels.Context != "app" || entry.Labels.RequestID != "abc123" {
		t.Errorf("unexpected labels: %+v", entry.Labels)
	}
	if string(entry.JSONPayload) == "" {
		t.Error("expected jsonPayload to carry the record")
	}
}

func TestDefaultMapper_Defaults(t *testing.T) {
	entry := mapEntry(t, `{"message":"hi"}`)

	if entry.Severity != "DEFAULT" {
		t.Errorf("expected severity DEFAULT, got %s", entry.Severity)
	}
	if entry.Timestamp != "2026-08-23T12:00:00Z" {
		t.Errorf("expected mapper clock timestamp, got %s", entry.Timestamp)
	}
	if entry.Trace != "" {
		t.Errorf("expected no trace, got %q", entry.Trace)
	}
	if entry.Labels.RequestID != "" {
		t.Errorf("expected no requestId, got %q", entry.Labels.RequestID)
	}
}

func TestDefaultMapper_NonObjectRecord(t *testing.T) {
	entry := mapEntry(t, `"just a string"`)

	if entry.Severity != "DEFAULT" {
		t.Errorf("expected severity DEFAULT, got %s", entry.Severity)
	}
	if string(entry.JSONPayload) != `"just a string"` {
		t.Errorf("expected payload to pass through untouched, got %s", entry.JSONPayload)
	}
}

func TestDefaultMapper_NonStringSeverityIgnored(t *testing.T) {
	entry := mapEntry(t, `{"severity":42}`)
	if entry.Severity != "DEFAULT" {
		t.Errorf("expected severity DEFAULT for non-string severity, got %s", entry.Severity)
	}
}

func TestDefaultMapper_EntrySerializesWithWireFieldNames(t *testing.T) {
	entry := mapEntry(t, `{"message":"hi"}`)

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatalf("marshal entry: %v", err)
	}
	for _, field := range []string{`"logName"`, `"jsonPayload"`, `"insertId"`, `"severity"`, `"timestamp"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected serialized entry to contain %s: %s", field, data)
		}
	}
}
