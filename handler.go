package logship

import "log/slog"

// NewHandler returns an slog.Handler that encodes every record as JSON
// and enqueues it on w, wiring the shipper into a process-wide slog
// pipeline:
//
//	w, _ := logship.New(cfg)
//	slog.SetDefault(slog.New(logship.NewHandler(w, nil)))
//
// Records that do not fit the buffer are dropped, never blocked on. Give
// the Writer itself a separate diagnostic logger via Config.Logger, or
// its own warnings would feed back into the queue they describe.
func NewHandler(w *Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewJSONHandler(w, opts)
}
