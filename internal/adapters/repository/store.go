// Package repository persists analyses keyed by match and analysis version.
package repository

import (
	"context"

	"github.com/okian/pitchside/internal/domain/model"
)

// Store provides insert-only access to stored analyses.
type Store interface {
	// Save stores a new version. It returns ErrVersionExists if the
	// (matchId, version) pair is already stored; versions are never overwritten.
	Save(ctx context.Context, a model.Analysis) error

	// Get returns one stored version, or ErrNotFound.
	Get(ctx context.Context, matchID, version string) (model.Analysis, error)

	// Latest returns the most recently saved version of a match, or ErrNotFound.
	Latest(ctx context.Context, matchID string) (model.Analysis, error)

	// List returns every stored version of a match in save order.
	List(ctx context.Context, matchID string) ([]model.VersionInfo, error)

	// Close releases the underlying resources.
	Close() error
}
