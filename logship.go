// Package logship ships structured JSON log records to Google Cloud
// Logging in batches. Records are enqueued without blocking, buffered by
// a background goroutine, and flushed when a batch fills up, when a
// delay deadline passes, or at shutdown. Authentication is handled by a
// self-renewing bearer token exchanged from an offline service-account
// key.
//
// Delivery is best-effort by design: failed batches are logged and
// dropped, and a saturated buffer drops new records rather than slowing
// producers down.
package logship

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/user/logship/internal/adapter/gauth"
	"github.com/user/logship/internal/adapter/mapper"
	"github.com/user/logship/internal/adapter/metrics"
	"github.com/user/logship/internal/adapter/sink"
	"github.com/user/logship/internal/domain"
	"github.com/user/logship/internal/usecase"
)

// Public aliases for the types a custom Mapper implementation needs.
type (
	// Record is an opaque JSON log document.
	Record = domain.Record
	// LogContext is the stable context handed to every Map call.
	LogContext = domain.LogContext
	// Mapper converts one raw record into the wire-format document.
	Mapper = domain.Mapper
	// LogEntry is the wire document produced by the default mapper.
	LogEntry = domain.LogEntry
	// RemoteError reports an explicit rejection by the logging service.
	RemoteError = domain.RemoteError
)

// Error classes surfaced by construction and by the token exchange.
var (
	ErrInvalidKey = domain.ErrInvalidKey
	ErrSign       = domain.ErrSign
	ErrTransport  = domain.ErrTransport
	ErrDecode     = domain.ErrDecode
)

const (
	// DefaultWriteURL is the Cloud Logging entries.write endpoint.
	DefaultWriteURL = "https://logging.googleapis.com/v2/entries:write"

	// DefaultScope grants write access to Cloud Logging.
	DefaultScope = "https://www.googleapis.com/auth/logging.write"

	defaultMaxBatch   = 10
	defaultMaxDelay   = 2 * time.Second
	defaultBufferSize = 1000
)

// Config configures a Writer. LogLabel and Credentials are required;
// every other zero value selects a default.
type Config struct {
	// LogLabel is the log name within the project, e.g. "my-service".
	LogLabel string

	// Credentials is the raw service-account key JSON.
	Credentials []byte

	// MaxBatch is the entry count that triggers an immediate flush.
	// Defaults to 10.
	MaxBatch int

	// MaxDelay is the longest an entry may wait in an open batch before
	// a flush is forced. Defaults to 2s.
	MaxDelay time.Duration

	// BufferSize is the ingress queue capacity. Enqueue drops records
	// once it is full. Defaults to 1000.
	BufferSize int

	// Scope is the OAuth scope string claimed by token assertions.
	// Defaults to DefaultScope.
	Scope string

	// Subject, when set, requests delegated tokens for this user.
	Subject string

	// Mapper shapes each record into its wire document. Defaults to the
	// built-in Cloud Logging mapper.
	Mapper Mapper

	// Logger receives the writer's own diagnostics (dropped batches,
	// token failures). Defaults to slog.Default. Do not hand in a logger
	// that itself writes through this Writer.
	Logger *slog.Logger

	// Registerer receives the writer's Prometheus metrics. Defaults to
	// the process-default registry; pass a dedicated registry when
	// running several writers in one process.
	Registerer prometheus.Registerer

	// HTTPClient is used for both the token exchange and batch writes.
	HTTPClient *http.Client

	// WriteURL overrides the write endpoint, e.g. for tests.
	WriteURL string
}

func (c *Config) applyDefaults() {
	if c.MaxBatch == 0 {
		c.MaxBatch = defaultMaxBatch
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.BufferSize == 0 {
		c.BufferSize = defaultBufferSize
	}
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	if c.Mapper == nil {
		c.Mapper = mapper.NewDefault()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.WriteURL == "" {
		c.WriteURL = DefaultWriteURL
	}
}

func (c *Config) validate() error {
	if c.LogLabel == "" {
		return fmt.Errorf("logship: LogLabel must not be empty")
	}
	if c.MaxBatch < 0 {
		return fmt.Errorf("logship: MaxBatch must be positive, got %d", c.MaxBatch)
	}
	if c.MaxDelay < 0 {
		return fmt.Errorf("logship: MaxDelay must be positive, got %s", c.MaxDelay)
	}
	if c.BufferSize < 0 {
		return fmt.Errorf("logship: BufferSize must be positive, got %d", c.BufferSize)
	}
	return nil
}

// Writer is the producer-facing handle of the shipping pipeline. All
// methods are safe for concurrent use.
type Writer struct {
	entries  chan domain.Record
	shutdown chan struct{}
	done     chan struct{}

	closed   atomic.Bool
	stopOnce sync.Once

	dropLog *rate.Limiter
	logger  *slog.Logger
	metrics *metrics.WriterMetrics
}

// New builds the pipeline and starts its background goroutine. Invalid
// key material or configuration fails here, synchronously; the loop
// never starts on error.
func New(cfg Config) (*Writer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	creds, err := gauth.ParseCredentials(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	m := metrics.NewWriterMetrics(cfg.Registerer)

	tokens := gauth.NewTokenSource(creds, gauth.TokenSourceOptions{
		Scope:   cfg.Scope,
		Subject: cfg.Subject,
		Client:  cfg.HTTPClient,
	}, cfg.Logger, m)

	lctx := domain.LogContext{ProjectID: creds.ProjectID, LogLabel: cfg.LogLabel}
	googleSink := sink.NewGoogleSink(cfg.HTTPClient, cfg.WriteURL, cfg.Mapper, lctx, cfg.Logger)

	w := &Writer{
		entries:  make(chan domain.Record, cfg.BufferSize),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		dropLog:  rate.NewLimiter(rate.Every(time.Second), 1),
		logger:   cfg.Logger,
		metrics:  m,
	}

	shipper := usecase.NewBatchShipper(
		w.entries, w.shutdown, w.done,
		tokens, googleSink,
		cfg.MaxBatch, cfg.MaxDelay,
		cfg.Logger, m,
	)
	go shipper.Run()

	return w, nil
}

// Enqueue offers one record to the pipeline without blocking. It reports
// whether the record was accepted; records are rejected when the buffer
// is full or after Shutdown. A rejected record is gone: producers are
// never blocked or slowed by the logging subsystem.
func (w *Writer) Enqueue(record Record) bool {
	if w.closed.Load() {
		w.metrics.DroppedTotal.WithLabelValues(metrics.ReasonClosed).Inc()
		return false
	}

	select {
	case w.entries <- record:
		w.metrics.EnqueuedTotal.Inc()
		return true
	default:
		w.metrics.DroppedTotal.WithLabelValues(metrics.ReasonBufferFull).Inc()
		if w.dropLog.Allow() {
			w.logger.Warn("dropping log record: buffer full")
		}
		return false
	}
}

// Write implements io.Writer for line-oriented JSON loggers: p must hold
// one JSON document, optionally newline-terminated. The record is queued
// asynchronously; a full buffer drops it silently, matching Enqueue.
func (w *Writer) Write(p []byte) (int, error) {
	record := json.RawMessage(bytes.TrimSpace(p))
	if len(record) == 0 {
		return len(p), nil
	}
	if !json.Valid(record) {
		return 0, fmt.Errorf("logship: record is not valid JSON")
	}

	// The caller may reuse p after Write returns.
	cp := make(Record, len(record))
	copy(cp, record)
	w.Enqueue(cp)

	return len(p), nil
}

// Shutdown stops intake, signals the background loop to flush whatever
// is buffered, and blocks until it has terminated. It is idempotent;
// every call blocks until the drain completes. Enqueue after Shutdown
// reports false.
func (w *Writer) Shutdown() {
	w.stopOnce.Do(func() {
		w.closed.Store(true)
		close(w.shutdown)
	})
	<-w.done
}
