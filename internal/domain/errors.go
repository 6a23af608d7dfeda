package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure classes of the shipping pipeline.
// Callers match them with errors.Is.
var (
	// ErrInvalidKey indicates the service-account key material could not
	// be parsed (bad JSON, missing fields, or an unparseable private key).
	ErrInvalidKey = errors.New("invalid service account key")

	// ErrSign indicates the signing primitive rejected its input.
	ErrSign = errors.New("sign assertion")

	// ErrTransport indicates a network or HTTP-level failure reaching the
	// token endpoint or the write endpoint.
	ErrTransport = errors.New("transport failure")

	// ErrDecode indicates a response body that could not be decoded.
	ErrDecode = errors.New("decode response")
)

// RemoteError is returned when the logging service explicitly rejected a
// batch via its error envelope. Match with errors.As.
type RemoteError struct {
	Code    int
	Message string
	Status  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote rejected batch: %s (code=%d, status=%s)", e.Message, e.Code, e.Status)
}
