// Package textstream wraps the model-completion backend behind a common
// event-stream contract consumed by the orchestrator.
package textstream

import (
	"context"

	"github.com/xiaot623/gogo/relay/domain"
)

// Stream is a live handle over one generation. Next returns io.EOF at
// exhaustion; Final reports aggregate usage and the reconstructed text and
// is only meaningful after exhaustion.
type Stream interface {
	Next() (domain.RawEvent, error)
	Final() (domain.FinalResponse, error)
	Close() error
}

// Source opens generation streams. Sources do not retry internally; the
// caller wraps Open in the establishment retry policy.
type Source interface {
	Open(ctx context.Context, conversation []domain.Message, temperature float64) (Stream, error)
}
