// Package sink fans recorded audit events out to external stores without
// putting them on the recording path. The in-memory log stays authoritative;
// sinks are best effort.
package sink

import (
	"context"

	audit "pedcare/pkg/platform/audit"
)

// Sink persists or forwards a batch of events. Write must be idempotent per
// event id since a batch can be retried after a partial failure.
type Sink interface {
	Name() string
	Write(ctx context.Context, events []audit.Event) error
}
