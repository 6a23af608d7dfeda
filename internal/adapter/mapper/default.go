// Package mapper provides the default record-to-LogEntry mapping.
package mapper

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/user/logship/internal/domain"
)

// DefaultMapper shapes a raw record into a Cloud Logging entry: the
// record itself becomes the jsonPayload, with severity, timestamp and
// trace id lifted out of well-known fields when present.
type DefaultMapper struct {
	newID func() string
	now   func() time.Time
}

// NewDefault creates the default mapper.
func NewDefault() *DefaultMapper {
	return &DefaultMapper{
		newID: uuid.NewString,
		now:   time.Now,
	}
}

func (m *DefaultMapper) Map(lctx domain.LogContext, record domain.Record) any {
	var fields map[string]json.RawMessage
	// A record that is not a JSON object still ships; it just carries no
	// extractable severity, timestamp or trace.
	_ = json.Unmarshal(record, &fields)

	trace := extractTrace(fields)

	return domain.LogEntry{
		LogName:     "projects/" + lctx.ProjectID + "/logs/" + lctx.LogLabel,
		Resource:    domain.NewGlobalResource(lctx.ProjectID),
		Severity:    extractSeverity(fields),
		Timestamp:   m.extractTimestamp(fields),
		JSONPayload: record,
		InsertID:    m.newID(),
		Trace:       trace,
		Labels: domain.EntryLabels{
			Context:   lctx.LogLabel,
			RequestID: trace,
		},
	}
}

// extractSeverity reads a string "severity" field, defaulting to DEFAULT.
func extractSeverity(fields map[string]json.RawMessage) string {
	raw, ok := fields["severity"]
	if !ok {
		return "DEFAULT"
	}
	var severity string
	if err := json.Unmarshal(raw, &severity); err != nil || severity == "" {
		return "DEFAULT"
	}
	return severity
}

// extractTimestamp reads a string "time" field, defaulting to now.
func (m *DefaultMapper) extractTimestamp(fields map[string]json.RawMessage) string {
	if raw, ok := fields["time"]; ok {
		var ts string
		if err := json.Unmarshal(raw, &ts); err == nil && ts != "" {
			return ts
		}
	}
	return m.now().UTC().Format(time.RFC3339Nano)
}

// extractTrace reads span.trace_id when the record carries one.
func extractTrace(fields map[string]json.RawMessage) string {
	raw, ok := fields["span"]
	if !ok {
		return ""
	}
	var span struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(raw, &span); err != nil {
		return ""
	}
	return span.TraceID
}
