package driven

import (
	"context"

	"github.com/custodia-labs/lectern/internal/core/domain"
)

// ExpertService forwards a question to an external expert endpoint.
type ExpertService interface {
	// Ask returns the expert's answer. Sources are the documents the expert
	// cited, when it cites any.
	Ask(ctx context.Context, question string) (*ExpertAnswer, error)
}

// ExpertAnswer is an expert's reply.
type ExpertAnswer struct {
	Text    string
	Sources []domain.Source
}
