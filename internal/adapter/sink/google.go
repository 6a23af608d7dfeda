// Package sink writes batches of mapped log entries to the Cloud Logging
// entries.write API.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/user/logship/internal/domain"
)

// maxErrorBody bounds how much of a response body is read when looking
// for the vendor error envelope.
const maxErrorBody = 1 << 20

// responseEnvelope is the vendor error envelope returned by the logging
// API. A response without a parseable envelope is a success.
type responseEnvelope struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// writeRequest is the entries.write request body.
type writeRequest struct {
	Entries []any `json:"entries"`
}

// GoogleSink posts batches of records to a fixed write endpoint, running
// each record through the configured mapper first.
type GoogleSink struct {
	client *http.Client
	url    string
	mapper domain.Mapper
	lctx   domain.LogContext
	logger *slog.Logger
}

// NewGoogleSink creates a sink for the given write endpoint. A nil client
// selects a default with connection pooling and a 30s request timeout.
func NewGoogleSink(client *http.Client, url string, mapper domain.Mapper, lctx domain.LogContext, logger *slog.Logger) *GoogleSink {
	if client == nil {
		client = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &GoogleSink{
		client: client,
		url:    url,
		mapper: mapper,
		lctx:   lctx,
		logger: logger.With("component", "google_sink"),
	}
}

// Send maps every record and issues one authenticated POST carrying the
// whole batch. The call is all-or-nothing: per-entry acceptance is not
// inspected. A parseable error envelope yields a domain.RemoteError; any
// other failure yields domain.ErrTransport.
func (s *GoogleSink) Send(ctx context.Context, records []domain.Record, bearer string) error {
	entries := make([]any, len(records))
	for i, record := range records {
		entries[i] = s.mapper.Map(s.lctx, record)
	}

	body, err := json.Marshal(writeRequest{Entries: entries})
	if err != nil {
		return fmt.Errorf("marshal entries: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build write request: %v", domain.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: write endpoint: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return fmt.Errorf("%w: read write response: %v", domain.ErrTransport, err)
	}

	var envelope responseEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Error != nil {
		return &domain.RemoteError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Status:  envelope.Error.Status,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: write endpoint returned %d", domain.ErrTransport, resp.StatusCode)
	}

	return nil
}
