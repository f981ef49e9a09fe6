package generate

import (
	"regexp"
	"strings"

	"github.com/willimj3/brief-bank-tool/models"
)

// Adaptation detection bounds. Below the lower bound a generated sentence is
// new writing; at or above the upper bound it is a near-verbatim quote.
// Only the band in between counts as a rephrasing of source material.
const (
	adaptationMinSimilarity = 0.35
	adaptationMaxSimilarity = 0.95
)

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// findAdaptations pairs each generated sentence with its nearest source
// sentence and records the pair when the similarity falls in the adaptation
// band.
func findAdaptations(generated string, chunks []SourceChunk) []models.Adaptation {
	var sourceSentences []string
	for _, src := range chunks {
		sourceSentences = append(sourceSentences, splitSentences(src.Chunk.Content)...)
	}
	if len(sourceSentences) == 0 {
		return nil
	}

	var adaptations []models.Adaptation
	for _, sentence := range splitSentences(generated) {
		best, bestScore := "", 0.0
		for _, src := range sourceSentences {
			if score := tokenJaccard(sentence, src); score > bestScore {
				best, bestScore = src, score
			}
		}
		if bestScore >= adaptationMinSimilarity && bestScore < adaptationMaxSimilarity {
			adaptations = append(adaptations, models.Adaptation{
				Original: best,
				Adapted:  sentence,
			})
		}
	}
	return adaptations
}

func splitSentences(text string) []string {
	var sentences []string
	for _, s := range sentenceBoundary.Split(text, -1) {
		s = strings.TrimSpace(s)
		// Very short fragments are headings or stray markers, not prose.
		if len(strings.Fields(s)) >= 4 {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// tokenJaccard measures word-set overlap between two sentences, case
// insensitive.
func tokenJaccard(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		tok = strings.Trim(tok, `.,;:"'()[]`)
		if tok != "" {
			set[tok] = true
		}
	}
	return set
}
