package domain

import "context"

// Mapper converts one raw record into the wire-format document carried in
// the entries.write request body. Implementations must be safe for
// concurrent use; a mapper is injected at construction and never replaced.
type Mapper interface {
	Map(ctx LogContext, record Record) any
}

// Sink performs the authenticated network write of one batch of records.
// A send is all-or-nothing: the sink does not report per-entry acceptance.
type Sink interface {
	Send(ctx context.Context, records []Record, bearer string) error
}

// TokenSource yields a currently valid bearer string, refreshing the
// underlying credential only when the cached one is about to expire.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
