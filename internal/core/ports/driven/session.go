package driven

import (
	"context"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// SessionStore keeps bounded conversation history per session.
// Concurrent appends to one session are last-write-wins in order of arrival.
type SessionStore interface {
	// Create starts a new empty session and returns its ID.
	Create(ctx context.Context) (string, error)

	// History returns the retained exchanges for a session, oldest first.
	// Unknown sessions return an empty history, not an error.
	History(ctx context.Context, sessionID string) ([]domain.Exchange, error)

	// Append records an exchange, creating the session if needed.
	Append(ctx context.Context, sessionID string, exchange domain.Exchange) error

	// Delete drops a session.
	Delete(ctx context.Context, sessionID string) error
}
