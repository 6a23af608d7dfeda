package domain

import "encoding/json"

// Record is an opaque, caller-supplied structured log document. It is
// handed in by value at enqueue time and never mutated afterwards.
type Record = json.RawMessage

// LogContext carries the stable identity handed to a Mapper for every
// record: the destination project and the logical log name within it.
type LogContext struct {
	ProjectID string
	LogLabel  string
}

// LogEntry is the wire document accepted by the Cloud Logging
// entries.write API.
type LogEntry struct {
	LogName     string            `json:"logName"`
	Resource    MonitoredResource `json:"resource"`
	Severity    string            `json:"severity"`
	Timestamp   string            `json:"timestamp"`
	JSONPayload json.RawMessage   `json:"jsonPayload"`
	InsertID    string            `json:"insertId,omitempty"`
	Trace       string            `json:"trace,omitempty"`
	Labels      EntryLabels       `json:"labels"`
}

// EntryLabels are the user labels attached to every entry.
type EntryLabels struct {
	Context   string `json:"context"`
	RequestID string `json:"requestId,omitempty"`
}

// MonitoredResource identifies the resource an entry originated from.
type MonitoredResource struct {
	Type   string         `json:"type"`
	Labels ResourceLabels `json:"labels"`
}

// ResourceLabels holds the labels of a monitored resource.
type ResourceLabels struct {
	ProjectID string `json:"project_id"`
}

// NewGlobalResource returns the "global" monitored resource for a project,
// the default for entries not tied to a more specific resource type.
func NewGlobalResource(projectID string) MonitoredResource {
	return MonitoredResource{
		Type:   "global",
		Labels: ResourceLabels{ProjectID: projectID},
	}
}
