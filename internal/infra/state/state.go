// Package state persists upload bookkeeping between runs.
package state

import (
	"context"

	"github.com/logship/logship/internal/core/domain"
)

// Store loads and saves UploadState under a key. Loading an absent key yields
// the zero state, never an error.
type Store interface {
	Load(ctx context.Context, key string) (*domain.UploadState, error)
	Save(ctx context.Context, key string, st *domain.UploadState) error
}
