// Package store holds indexed passages extracted from ingested briefs.
//
// Two implementations exist: an in-memory store (this package) used for
// development and tests, and a Postgres/pgvector-backed one in the
// repository package. Both guarantee that a search never observes a
// partially ingested brief: AddBrief is atomic with respect to visibility.
package store

import (
	"context"
	"errors"

	"github.com/willimj3/brief-bank-tool/models"

	"github.com/google/uuid"
)

var (
	ErrBriefNotFound = errors.New("brief not found")
	ErrChunkNotFound = errors.New("chunk not found")
	ErrBriefExists   = errors.New("brief already exists")
)

// PassageStore is the passage store contract. Ingestion (AddBrief,
// RemoveBrief) is write-heavy and infrequent; everything else is read-only.
type PassageStore interface {
	// AddBrief installs a brief with its sections and chunks all-or-nothing.
	AddBrief(ctx context.Context, brief *models.Brief, sections []models.Section, chunks []models.Chunk) error

	// RemoveBrief deletes the brief and every section and chunk it owns.
	// No orphan chunks may remain afterward.
	RemoveBrief(ctx context.Context, id uuid.UUID) error

	GetBrief(ctx context.Context, id uuid.UUID) (*models.Brief, error)
	ListBriefs(ctx context.Context) ([]*models.Brief, error)

	// AllChunks returns every retrievable chunk in the store.
	AllChunks(ctx context.Context) ([]models.Chunk, error)

	GetChunk(ctx context.Context, id uuid.UUID) (*models.Chunk, error)
	ChunksByBrief(ctx context.Context, briefID uuid.UUID) ([]models.Chunk, error)
	SectionsByBrief(ctx context.Context, briefID uuid.UUID) ([]models.Section, error)
}
