// Package source provides record sources for the logship forwarder: each
// source reads raw JSON log records from somewhere and feeds them to an
// Enqueuer until its context is cancelled or its input is exhausted.
package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
)

// maxLineSize bounds a single NDJSON record read from the input.
const maxLineSize = 1 << 20

// Enqueuer accepts one record without blocking, reporting acceptance.
type Enqueuer interface {
	Enqueue(record json.RawMessage) bool
}

// StdinSource reads newline-delimited JSON records from a reader,
// typically standard input.
type StdinSource struct {
	r      io.Reader
	logger *slog.Logger
}

// NewStdinSource creates a source over r.
func NewStdinSource(r io.Reader, logger *slog.Logger) *StdinSource {
	return &StdinSource{
		r:      r,
		logger: logger.With("component", "stdin_source"),
	}
}

// Run reads records until EOF or context cancellation. Blank lines are
// skipped; lines that are not valid JSON are logged and skipped.
func (s *StdinSource) Run(ctx context.Context, q Enqueuer) error {
	scanner := bufio.NewScanner(s.r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			s.logger.Warn("skipping line that is not valid JSON", "bytes", len(line))
			continue
		}

		// The scanner reuses its buffer, so the record must be copied
		// before it is handed to the asynchronous writer.
		record := make(json.RawMessage, len(line))
		copy(record, line)
		q.Enqueue(record)
	}

	return scanner.Err()
}
