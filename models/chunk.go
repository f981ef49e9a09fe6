package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Chunk is the atomic retrieval unit, derived from one section of a brief.
// Jurisdiction and posture are denormalized from the owning brief so ranking
// never needs a join. The embedding is computed once at ingestion time and
// reused for every query.
type Chunk struct {
	ID           uuid.UUID         `json:"id"`
	BriefID      uuid.UUID         `json:"brief_id"`
	Type         SectionType       `json:"type"`
	Heading      string            `json:"heading,omitempty"`
	Content      string            `json:"content"`
	Citations    CitationList      `json:"citations"`
	Jurisdiction string            `json:"jurisdiction"`
	Posture      ProceduralPosture `json:"procedural_posture"`
	Embedding    []float64         `json:"embedding,omitempty"`
	IngestedAt   time.Time         `json:"ingested_at"`
}

// ContentPreview returns at most n characters of the chunk text for
// list/boundary payloads.
func (c *Chunk) ContentPreview(n int) string {
	if len(c.Content) <= n {
		return c.Content
	}
	return c.Content[:n] + "..."
}

// CitationUnion collects the distinct citation full-text strings across a
// set of chunks. This union is the only authority a generated section may
// cite from.
func CitationUnion(chunks []Chunk) []string {
	seen := make(map[string]bool)
	var union []string
	for _, ch := range chunks {
		for _, cit := range ch.Citations {
			key := NormalizeCitation(cit.FullText)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			union = append(union, cit.FullText)
		}
	}
	return union
}

// NormalizeCitation collapses whitespace so citation comparison is not
// defeated by line wrapping in source text.
func NormalizeCitation(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
