package output

import (
	"context"

	"github.com/jobrunner/atlas/internal/domain"
)

// ResultSource defines the secondary port for loading search results.
type ResultSource interface {
	// Name identifies the source in logs and metrics.
	Name() string

	// Load reads every result the source currently holds.
	Load(ctx context.Context) ([]*domain.Result, error)
}

// ResultDecoder decodes a result document.
type ResultDecoder interface {
	// Decode parses data into results. Features without an id are skipped.
	Decode(data []byte) ([]*domain.Result, error)
}
