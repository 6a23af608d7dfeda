package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/logship/internal/adapter/metrics"
	"github.com/user/logship/internal/domain"
)

// Flush triggers, recorded on metrics and debug logs.
const (
	TriggerSize     = "size"
	TriggerTimeout  = "timeout"
	TriggerShutdown = "shutdown"
)

// BatchShipper owns the background event loop that buffers incoming
// records and flushes them to the sink in batches. A flush fires when the
// buffer reaches maxBatch entries, when maxDelay has elapsed since the
// first entry of the open batch, and finally at shutdown for whatever
// remains buffered.
//
// The loop is the sole owner of the buffer and the deadline timer. A
// flush runs inline: the loop does not consume the next event until the
// send returns, which keeps batches strictly ordered.
type BatchShipper struct {
	entries  <-chan domain.Record
	shutdown <-chan struct{}
	done     chan<- struct{}

	tokens domain.TokenSource
	sink   domain.Sink

	maxBatch int
	maxDelay time.Duration

	logger  *slog.Logger
	metrics *metrics.WriterMetrics
}

// NewBatchShipper creates a shipper reading from entries until shutdown
// is closed. It closes done after the final drain flush.
func NewBatchShipper(
	entries <-chan domain.Record,
	shutdown <-chan struct{},
	done chan<- struct{},
	tokens domain.TokenSource,
	sink domain.Sink,
	maxBatch int,
	maxDelay time.Duration,
	logger *slog.Logger,
	m *metrics.WriterMetrics,
) *BatchShipper {
	return &BatchShipper{
		entries:  entries,
		shutdown: shutdown,
		done:     done,
		tokens:   tokens,
		sink:     sink,
		maxBatch: maxBatch,
		maxDelay: maxDelay,
		logger:   logger.With("component", "batch_shipper"),
		metrics:  m,
	}
}

// Run executes the event loop until a shutdown signal is observed. It is
// intended to run on its own goroutine, exactly once.
func (s *BatchShipper) Run() {
	defer close(s.done)

	buf := make([]domain.Record, 0, s.maxBatch)

	// timerC is nil whenever no deadline is armed; a nil channel never
	// fires in a select. Abandoned timers are stopped so their stale
	// fire is never observed through an old channel.
	var timer *time.Timer
	var timerC <-chan time.Time

	disarm := func() {
		if timer != nil {
			timer.Stop()
			timer = nil
			timerC = nil
		}
	}

	for {
		// A shutdown that is ready simultaneously with a record or a
		// timer fire must win, so check it first without blocking.
		select {
		case <-s.shutdown:
			s.drain(buf)
			return
		default:
		}

		select {
		case <-s.shutdown:
			s.drain(buf)
			return

		case record := <-s.entries:
			if len(buf) == 0 {
				timer = time.NewTimer(s.maxDelay)
				timerC = timer.C
			}
			buf = append(buf, record)
			if len(buf) >= s.maxBatch {
				disarm()
				buf = s.flush(buf, TriggerSize)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if len(buf) > 0 {
				buf = s.flush(buf, TriggerTimeout)
			}
		}
	}
}

// drain performs the final flush before termination.
func (s *BatchShipper) drain(buf []domain.Record) {
	if len(buf) > 0 {
		s.flush(buf, TriggerShutdown)
	}
	s.logger.Debug("batch shipper stopped")
}

// flush takes ownership of the buffered batch and sends it. Errors are
// logged and the batch is dropped; there is no retry queue and no
// re-buffering, so a sustained outage costs logs, never memory.
func (s *BatchShipper) flush(batch []domain.Record, trigger string) []domain.Record {
	s.metrics.FlushesTotal.WithLabelValues(trigger).Inc()
	s.metrics.BatchSize.Observe(float64(len(batch)))

	ctx := context.Background()

	bearer, err := s.tokens.Token(ctx)
	if err != nil {
		s.logger.Error("failed to obtain bearer token, dropping batch",
			"error", err, "entries", len(batch), "trigger", trigger)
		s.metrics.DroppedTotal.WithLabelValues(metrics.ReasonTokenError).Add(float64(len(batch)))
		return make([]domain.Record, 0, s.maxBatch)
	}

	if err := s.sink.Send(ctx, batch, bearer); err != nil {
		s.logger.Error("failed to write log batch, dropping it",
			"error", err, "entries", len(batch), "trigger", trigger)
		s.metrics.DroppedTotal.WithLabelValues(metrics.ReasonSendFailed).Add(float64(len(batch)))
		return make([]domain.Record, 0, s.maxBatch)
	}

	s.metrics.SentEntriesTotal.Add(float64(len(batch)))
	s.logger.Debug("flushed log batch", "entries", len(batch), "trigger", trigger)

	return make([]domain.Record, 0, s.maxBatch)
}
