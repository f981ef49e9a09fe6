package store

import (
	"context"
	"sort"
	"sync"

	"github.com/willimj3/brief-bank-tool/models"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory PassageStore. A single RWMutex makes brief
// ingestion and deletion atomic with respect to readers: a search either
// sees all of a brief's chunks or none of them.
type MemoryStore struct {
	mu       sync.RWMutex
	briefs   map[uuid.UUID]*models.Brief
	sections map[uuid.UUID][]models.Section
	chunks   map[uuid.UUID]models.Chunk
	byBrief  map[uuid.UUID][]uuid.UUID
}

// NewMemoryStore creates an empty in-memory passage store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		briefs:   make(map[uuid.UUID]*models.Brief),
		sections: make(map[uuid.UUID][]models.Section),
		chunks:   make(map[uuid.UUID]models.Chunk),
		byBrief:  make(map[uuid.UUID][]uuid.UUID),
	}
}

// AddBrief installs the brief, sections and chunks under one write lock.
func (s *MemoryStore) AddBrief(ctx context.Context, brief *models.Brief, sections []models.Section, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.briefs[brief.ID]; ok {
		return ErrBriefExists
	}

	copied := *brief
	s.briefs[brief.ID] = &copied
	s.sections[brief.ID] = append([]models.Section(nil), sections...)

	ids := make([]uuid.UUID, 0, len(chunks))
	for _, ch := range chunks {
		s.chunks[ch.ID] = ch
		ids = append(ids, ch.ID)
	}
	s.byBrief[brief.ID] = ids

	return nil
}

// RemoveBrief deletes the brief and everything it owns under one lock.
func (s *MemoryStore) RemoveBrief(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.briefs[id]; !ok {
		return ErrBriefNotFound
	}

	for _, chunkID := range s.byBrief[id] {
		delete(s.chunks, chunkID)
	}
	delete(s.byBrief, id)
	delete(s.sections, id)
	delete(s.briefs, id)

	return nil
}

// GetBrief returns a copy of the brief.
func (s *MemoryStore) GetBrief(ctx context.Context, id uuid.UUID) (*models.Brief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	brief, ok := s.briefs[id]
	if !ok {
		return nil, ErrBriefNotFound
	}
	copied := *brief
	return &copied, nil
}

// ListBriefs returns all briefs ordered by ingestion time, most recent
// first.
func (s *MemoryStore) ListBriefs(ctx context.Context) ([]*models.Brief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	briefs := make([]*models.Brief, 0, len(s.briefs))
	for _, b := range s.briefs {
		copied := *b
		briefs = append(briefs, &copied)
	}
	sort.Slice(briefs, func(i, j int) bool {
		if !briefs[i].IngestedAt.Equal(briefs[j].IngestedAt) {
			return briefs[i].IngestedAt.After(briefs[j].IngestedAt)
		}
		return briefs[i].ID.String() < briefs[j].ID.String()
	})
	return briefs, nil
}

// AllChunks returns every chunk in the store in a deterministic order.
func (s *MemoryStore) AllChunks(ctx context.Context) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunks := make([]models.Chunk, 0, len(s.chunks))
	for _, ch := range s.chunks {
		chunks = append(chunks, ch)
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].ID.String() < chunks[j].ID.String()
	})
	return chunks, nil
}

// GetChunk returns one chunk by ID.
func (s *MemoryStore) GetChunk(ctx context.Context, id uuid.UUID) (*models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ch, ok := s.chunks[id]
	if !ok {
		return nil, ErrChunkNotFound
	}
	return &ch, nil
}

// ChunksByBrief returns the chunks owned by a brief in insertion order.
func (s *MemoryStore) ChunksByBrief(ctx context.Context, briefID uuid.UUID) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.briefs[briefID]; !ok {
		return nil, ErrBriefNotFound
	}
	ids := s.byBrief[briefID]
	chunks := make([]models.Chunk, 0, len(ids))
	for _, id := range ids {
		chunks = append(chunks, s.chunks[id])
	}
	return chunks, nil
}

// SectionsByBrief returns the brief's structural sections in document order.
func (s *MemoryStore) SectionsByBrief(ctx context.Context, briefID uuid.UUID) ([]models.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.briefs[briefID]; !ok {
		return nil, ErrBriefNotFound
	}
	return append([]models.Section(nil), s.sections[briefID]...), nil
}
