// Package rank scores and orders passage chunks against a query profile.
//
// The score is a weighted sum of four signals, each normalized to [0,1]:
// semantic similarity, jurisdiction match, posture match and recency.
// Default weights favor semantic similarity, with jurisdiction and posture
// as secondary boosts and recency as a tiebreaker; a strong semantic match
// from the wrong jurisdiction is demoted, never excluded.
package rank

import (
	"context"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/willimj3/brief-bank-tool/models"
)

// Embedder turns query text into the same vector space chunk embeddings
// live in. Chunk vectors are computed at ingestion and never recomputed
// here.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// QueryProfile describes what a matter is looking for.
type QueryProfile struct {
	Text         string
	Jurisdiction string
	Posture      models.ProceduralPosture
	PreferRecent bool
}

// Result is one ranked chunk with its score and the human-readable reasons
// for it. Reasons deterministically reflect every signal whose weighted
// contribution cleared the reason threshold.
type Result struct {
	Chunk   models.Chunk
	Score   float64
	Reasons []string
}

// Weights for the four ranking signals. They are policy constants, not
// tuned per query.
type Weights struct {
	Semantic     float64
	Jurisdiction float64
	Posture      float64
	Recency      float64
}

// DefaultWeights prioritize same-jurisdiction, same-posture, more-recent
// without ever zeroing out an otherwise strong semantic match.
var DefaultWeights = Weights{
	Semantic:     0.50,
	Jurisdiction: 0.20,
	Posture:      0.15,
	Recency:      0.15,
}

const (
	// reasonThreshold is the minimum weighted contribution a signal must
	// make before it earns a reason string.
	reasonThreshold = 0.05

	// recencyHorizon is the age at which the recency signal bottoms out.
	recencyHorizon = 5 * 365 * 24 * time.Hour

	// recencyFloor keeps very old but on-point material from scoring zero
	// on recency.
	recencyFloor = 0.2

	// jurisdictionFamilyScore applies when jurisdictions are related but
	// not identical (same state, different court level, or both federal).
	jurisdictionFamilyScore = 0.5
)

// Ranker ranks chunks against a query profile.
type Ranker struct {
	embedder Embedder
	weights  Weights
	now      func() time.Time
}

// RankerOption is a functional option for Ranker
type RankerOption func(*Ranker)

// WithWeights overrides the default signal weights.
func WithWeights(w Weights) RankerOption {
	return func(r *Ranker) {
		r.weights = w
	}
}

// WithClock overrides the time source used for recency scoring.
func WithClock(now func() time.Time) RankerOption {
	return func(r *Ranker) {
		r.now = now
	}
}

// NewRanker creates a ranker. A nil embedder is allowed: ranking then
// degrades to categorical and recency signals only.
func NewRanker(embedder Embedder, opts ...RankerOption) *Ranker {
	r := &Ranker{
		embedder: embedder,
		weights:  DefaultWeights,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank scores the candidate chunks against the profile and returns the top
// results in descending score order. An empty candidate set yields an empty
// slice. Identical inputs always produce the same ordered sequence: ties
// break on ingestion time (most recent first), then chunk ID.
func (r *Ranker) Rank(ctx context.Context, profile QueryProfile, candidates []models.Chunk, limit int) ([]Result, error) {
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	weights := r.weights
	if profile.PreferRecent {
		weights.Recency *= 2
	}

	var queryVec []float64
	if strings.TrimSpace(profile.Text) != "" && r.embedder != nil {
		vec, err := r.embedder.EmbedQuery(ctx, profile.Text)
		if err != nil {
			// A failed query embedding degrades ranking to the
			// categorical signals rather than failing the search.
			log.Printf("Warning: query embedding failed, ranking on categorical signals only: %v", err)
		} else {
			queryVec = vec
		}
	}

	now := r.now()
	results := make([]Result, 0, len(candidates))
	for _, chunk := range candidates {
		results = append(results, r.score(profile, weights, chunk, queryVec, now))
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		ti, tj := results[i].Chunk.IngestedAt, results[j].Chunk.IngestedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return results[i].Chunk.ID.String() < results[j].Chunk.ID.String()
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (r *Ranker) score(profile QueryProfile, weights Weights, chunk models.Chunk, queryVec []float64, now time.Time) Result {
	semantic := 0.0
	if queryVec != nil && len(chunk.Embedding) > 0 {
		semantic = cosineSimilarity(queryVec, chunk.Embedding)
	}

	jurisdiction := jurisdictionMatch(profile.Jurisdiction, chunk.Jurisdiction)

	posture := 0.0
	if profile.Posture != "" && chunk.Posture == profile.Posture {
		posture = 1.0
	}

	recency := recencyScore(now.Sub(chunk.IngestedAt))

	score := weights.Semantic*semantic +
		weights.Jurisdiction*jurisdiction +
		weights.Posture*posture +
		weights.Recency*recency

	var reasons []string
	if weights.Semantic*semantic >= reasonThreshold {
		reasons = append(reasons, "high topical relevance")
	}
	if weights.Jurisdiction*jurisdiction >= reasonThreshold {
		if jurisdiction == 1.0 {
			reasons = append(reasons, "same jurisdiction")
		} else {
			reasons = append(reasons, "related jurisdiction")
		}
	}
	if weights.Posture*posture >= reasonThreshold {
		reasons = append(reasons, "same procedural posture")
	}
	if weights.Recency*recency >= reasonThreshold {
		reasons = append(reasons, "recently ingested")
	}

	return Result{Chunk: chunk, Score: score, Reasons: reasons}
}

// jurisdictionMatch returns 1.0 for an exact match, the family score when
// the jurisdictions share a family (both federal, or same leading state
// token), and 0 otherwise.
func jurisdictionMatch(want, have string) float64 {
	want = strings.ToLower(strings.TrimSpace(want))
	have = strings.ToLower(strings.TrimSpace(have))
	if want == "" || have == "" {
		return 0
	}
	if want == have {
		return 1.0
	}

	wantFields := strings.Fields(want)
	haveFields := strings.Fields(have)
	if len(wantFields) > 0 && len(haveFields) > 0 && wantFields[0] == haveFields[0] {
		return jurisdictionFamilyScore
	}
	return 0
}

// recencyScore decays linearly with age down to a floor.
func recencyScore(age time.Duration) float64 {
	if age <= 0 {
		return 1.0
	}
	if age >= recencyHorizon {
		return recencyFloor
	}
	frac := float64(age) / float64(recencyHorizon)
	return 1.0 - frac*(1.0-recencyFloor)
}

// cosineSimilarity clamps to [0,1]; opposing vectors are simply irrelevant,
// not negatively relevant.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
