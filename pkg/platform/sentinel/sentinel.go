package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and sinks return these
// (optionally wrapped) so callers can translate them into domain errors.
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrUnavailable = errors.New("unavailable")
	ErrClosed      = errors.New("closed")
)
