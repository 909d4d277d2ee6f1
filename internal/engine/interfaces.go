package engine

import (
	"context"

	"github.com/Veraticus/scribe/internal/model"
)

// Persister saves the full application state after every mutation.
type Persister interface {
	SaveState(ctx context.Context, state model.AppState) error
}
