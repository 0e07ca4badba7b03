package driven

import "context"

// TokenProvider provides bearer tokens for authenticated LLM calls.
// Implementations cache tokens and refresh them before they expire.
type TokenProvider interface {
	// GetToken returns a valid access token.
	GetToken(ctx context.Context) (string, error)
}
