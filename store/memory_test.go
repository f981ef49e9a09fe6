package store

import (
	"context"
	"testing"
	"time"

	"github.com/willimj3/brief-bank-tool/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBrief(t *testing.T, s *MemoryStore, title string, ingestedAt time.Time, chunkCount int) *models.Brief {
	t.Helper()

	brief := &models.Brief{
		ID:         uuid.New(),
		Title:      title,
		Filename:   title + ".txt",
		IngestedAt: ingestedAt,
	}
	sections := []models.Section{{
		ID:      uuid.New(),
		BriefID: brief.ID,
		Type:    models.SectionArgument,
		Content: "argument text",
	}}
	chunks := make([]models.Chunk, 0, chunkCount)
	for i := 0; i < chunkCount; i++ {
		chunks = append(chunks, models.Chunk{
			ID:         uuid.New(),
			BriefID:    brief.ID,
			Type:       models.SectionArgument,
			Content:    "chunk text",
			IngestedAt: ingestedAt,
		})
	}
	require.NoError(t, s.AddBrief(context.Background(), brief, sections, chunks))
	return brief
}

func TestMemoryStoreAddAndGet(t *testing.T) {
	s := NewMemoryStore()
	brief := seedBrief(t, s, "Smith v. Jones", time.Now(), 2)

	got, err := s.GetBrief(context.Background(), brief.ID)
	require.NoError(t, err)
	assert.Equal(t, brief.Title, got.Title)

	chunks, err := s.ChunksByBrief(context.Background(), brief.ID)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)

	sections, err := s.SectionsByBrief(context.Background(), brief.ID)
	require.NoError(t, err)
	assert.Len(t, sections, 1)
}

func TestMemoryStoreDuplicateBriefRejected(t *testing.T) {
	s := NewMemoryStore()
	brief := seedBrief(t, s, "Smith v. Jones", time.Now(), 1)

	err := s.AddBrief(context.Background(), brief, nil, nil)
	assert.ErrorIs(t, err, ErrBriefExists)
}

func TestMemoryStoreGetMissing(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetBrief(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBriefNotFound)

	_, err = s.GetChunk(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrChunkNotFound)
}

func TestMemoryStoreRemoveBriefLeavesNoOrphans(t *testing.T) {
	s := NewMemoryStore()
	keep := seedBrief(t, s, "Keep", time.Now(), 2)
	remove := seedBrief(t, s, "Remove", time.Now(), 3)

	require.NoError(t, s.RemoveBrief(context.Background(), remove.ID))

	_, err := s.GetBrief(context.Background(), remove.ID)
	assert.ErrorIs(t, err, ErrBriefNotFound)

	chunks, err := s.AllChunks(context.Background())
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
	for _, ch := range chunks {
		assert.Equal(t, keep.ID, ch.BriefID)
	}

	err = s.RemoveBrief(context.Background(), remove.ID)
	assert.ErrorIs(t, err, ErrBriefNotFound)
}

func TestMemoryStoreListBriefsOrdering(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now()
	older := seedBrief(t, s, "Older", now.Add(-time.Hour), 0)
	newer := seedBrief(t, s, "Newer", now, 0)

	briefs, err := s.ListBriefs(context.Background())
	require.NoError(t, err)
	require.Len(t, briefs, 2)
	assert.Equal(t, newer.ID, briefs[0].ID)
	assert.Equal(t, older.ID, briefs[1].ID)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	brief := seedBrief(t, s, "Original", time.Now(), 0)

	got, err := s.GetBrief(context.Background(), brief.ID)
	require.NoError(t, err)
	got.Title = "Mutated"

	again, err := s.GetBrief(context.Background(), brief.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", again.Title)
}
