package rank

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/willimj3/brief-bank-tool/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder returns a fixed vector or a fixed error.
type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return f.vec, f.err
}

func chunkWith(jurisdiction string, posture models.ProceduralPosture, embedding []float64, age time.Duration) models.Chunk {
	return models.Chunk{
		ID:           uuid.New(),
		BriefID:      uuid.New(),
		Type:         models.SectionArgument,
		Content:      "argument text",
		Jurisdiction: jurisdiction,
		Posture:      posture,
		Embedding:    embedding,
		IngestedAt:   time.Now().Add(-age),
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	r := NewRanker(&fakeEmbedder{vec: []float64{1, 0}})

	results, err := r.Rank(context.Background(), QueryProfile{Text: "query"}, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRankPrefersJurisdictionAndPostureMatch(t *testing.T) {
	r := NewRanker(&fakeEmbedder{vec: []float64{1, 0}})

	matching := chunkWith("california", models.PostureMotionToDismiss, []float64{1, 0}, 0)
	offJurisdiction := chunkWith("texas", models.PostureMotionToDismiss, []float64{1, 0}, 0)
	offPosture := chunkWith("california", models.PostureSummaryJudgment, []float64{1, 0}, 0)

	results, err := r.Rank(context.Background(), QueryProfile{
		Text:         "failure to state a claim",
		Jurisdiction: "california",
		Posture:      models.PostureMotionToDismiss,
	}, []models.Chunk{offPosture, offJurisdiction, matching}, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, matching.ID, results[0].Chunk.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Contains(t, results[0].Reasons, "same jurisdiction")
	assert.Contains(t, results[0].Reasons, "same procedural posture")
}

func TestRankSemanticMatchFromWrongJurisdictionIsDemotedNotExcluded(t *testing.T) {
	r := NewRanker(&fakeEmbedder{vec: []float64{1, 0}})

	strongWrongPlace := chunkWith("texas", models.PostureOther, []float64{1, 0}, 0)

	results, err := r.Rank(context.Background(), QueryProfile{
		Text:         "query",
		Jurisdiction: "california",
	}, []models.Chunk{strongWrongPlace}, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Greater(t, results[0].Score, 0.0)
	assert.NotContains(t, results[0].Reasons, "same jurisdiction")
}

func TestRankJurisdictionFamily(t *testing.T) {
	assert.Equal(t, 1.0, jurisdictionMatch("california", "California "))
	assert.Equal(t, jurisdictionFamilyScore, jurisdictionMatch("california state", "california federal"))
	assert.Equal(t, jurisdictionFamilyScore, jurisdictionMatch("federal ninth circuit", "federal second circuit"))
	assert.Equal(t, 0.0, jurisdictionMatch("california", "texas"))
	assert.Equal(t, 0.0, jurisdictionMatch("", "texas"))
}

func TestRankDegradesWhenEmbeddingFails(t *testing.T) {
	r := NewRanker(&fakeEmbedder{err: errors.New("api down")})

	match := chunkWith("california", models.PostureMotionToDismiss, []float64{1, 0}, 0)
	miss := chunkWith("texas", models.PostureOther, []float64{1, 0}, 0)

	results, err := r.Rank(context.Background(), QueryProfile{
		Text:         "query",
		Jurisdiction: "california",
		Posture:      models.PostureMotionToDismiss,
	}, []models.Chunk{miss, match}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, match.ID, results[0].Chunk.ID)
	assert.NotContains(t, results[0].Reasons, "high topical relevance")
}

func TestRankDeterministicTieBreak(t *testing.T) {
	r := NewRanker(nil)

	ts := time.Now().Add(-time.Hour)
	a := chunkWith("", models.PostureOther, nil, 0)
	b := chunkWith("", models.PostureOther, nil, 0)
	a.IngestedAt = ts
	b.IngestedAt = ts

	want := a.ID.String()
	if b.ID.String() < want {
		want = b.ID.String()
	}

	for i := 0; i < 5; i++ {
		results, err := r.Rank(context.Background(), QueryProfile{}, []models.Chunk{b, a}, 0)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, want, results[0].Chunk.ID.String())
	}
}

func TestRankRecencyDecay(t *testing.T) {
	assert.Equal(t, 1.0, recencyScore(0))
	assert.Equal(t, recencyFloor, recencyScore(recencyHorizon))
	assert.Equal(t, recencyFloor, recencyScore(recencyHorizon*3))

	mid := recencyScore(recencyHorizon / 2)
	assert.Greater(t, mid, recencyFloor)
	assert.Less(t, mid, 1.0)
}

func TestRankPreferRecentDoublesRecencyWeight(t *testing.T) {
	r := NewRanker(nil)

	fresh := chunkWith("", models.PostureOther, nil, 0)
	stale := chunkWith("", models.PostureOther, nil, 6*365*24*time.Hour)

	base, err := r.Rank(context.Background(), QueryProfile{}, []models.Chunk{fresh, stale}, 0)
	require.NoError(t, err)
	recent, err := r.Rank(context.Background(), QueryProfile{PreferRecent: true}, []models.Chunk{fresh, stale}, 0)
	require.NoError(t, err)

	baseGap := base[0].Score - base[1].Score
	recentGap := recent[0].Score - recent[1].Score
	assert.Equal(t, fresh.ID, recent[0].Chunk.ID)
	assert.Greater(t, recentGap, baseGap)
}

func TestRankLimit(t *testing.T) {
	r := NewRanker(nil)

	candidates := []models.Chunk{
		chunkWith("", models.PostureOther, nil, 0),
		chunkWith("", models.PostureOther, nil, 0),
		chunkWith("", models.PostureOther, nil, 0),
	}

	results, err := r.Rank(context.Background(), QueryProfile{}, candidates, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestCosineSimilarityClamps(t *testing.T) {
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{-1, 0}))
	assert.InDelta(t, 1.0, cosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1, 0}, []float64{0, 0}))
	assert.Equal(t, 0.0, cosineSimilarity([]float64{1}, []float64{1, 0}))
}
