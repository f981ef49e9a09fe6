// Package outline builds the structural plan for a new draft from a matter
// and the ranked passages of the brief bank.
package outline

import (
	"context"
	"fmt"
	"strings"

	"github.com/willimj3/brief-bank-tool/models"
	"github.com/willimj3/brief-bank-tool/rank"

	"github.com/google/uuid"
)

// maxChunksPerSection caps how many source chunks an outline section is
// assigned. More sources than this dilutes the drafting prompt.
const maxChunksPerSection = 5

// Synthesizer plans draft outlines. The skeleton is fixed; ranking only
// decides which chunks back each section.
type Synthesizer struct {
	ranker *rank.Ranker
}

// NewSynthesizer creates an outline synthesizer over the given ranker.
func NewSynthesizer(ranker *rank.Ranker) *Synthesizer {
	return &Synthesizer{ranker: ranker}
}

// Synthesize produces the outline for a matter. The skeleton is always
// introduction, statement of facts, legal standard, one argument section per
// distinct legal issue, and a conclusion, numbered with roman numerals in
// that order. Sections with no matching chunks are kept with an empty source
// list; they still get generated, with placeholders instead of authority.
func (s *Synthesizer) Synthesize(ctx context.Context, matter models.Matter, candidates []models.Chunk) ([]models.OutlineSection, error) {
	issues := matter.DistinctIssues()

	var outline []models.OutlineSection
	order := 0

	add := func(heading, description string, chunkIDs []uuid.UUID) {
		outline = append(outline, models.OutlineSection{
			ID:             uuid.New(),
			Heading:        heading,
			Description:    description,
			Order:          order,
			SourceChunkIDs: chunkIDs,
		})
		order++
	}

	intro, err := s.selectChunks(ctx, matter, candidates, rank.QueryProfile{
		Text:         matter.FactSummary + " " + strings.Join(issues, " "),
		Jurisdiction: matter.Jurisdiction,
		Posture:      matter.Posture,
	}, models.SectionIntroduction)
	if err != nil {
		return nil, err
	}
	add("I. INTRODUCTION", "Frame the motion and the relief sought.", intro)

	add("II. STATEMENT OF FACTS", "Facts of the present matter; drawn from the matter intake, not from the brief bank.", nil)

	standard, err := s.selectChunks(ctx, matter, candidates, rank.QueryProfile{
		Text:         "legal standard governing " + string(matter.Posture) + " " + strings.Join(issues, " "),
		Jurisdiction: matter.Jurisdiction,
		Posture:      matter.Posture,
	}, models.SectionLegalStandard)
	if err != nil {
		return nil, err
	}
	add("III. LEGAL STANDARD", "Governing standard for the procedural posture.", standard)

	for i, issue := range issues {
		argChunks, err := s.selectChunks(ctx, matter, candidates, rank.QueryProfile{
			Text:         issue + " " + matter.FactSummary,
			Jurisdiction: matter.Jurisdiction,
			Posture:      matter.Posture,
		}, models.SectionArgument)
		if err != nil {
			return nil, err
		}
		heading := fmt.Sprintf("%s. ARGUMENT: %s", roman(4+i), strings.ToUpper(issue))
		add(heading, "Argument on: "+issue, argChunks)
	}

	add(roman(4+len(issues))+". CONCLUSION", "Restate the relief requested.", nil)

	return outline, nil
}

// selectChunks ranks candidates for one planned section and returns the top
// chunk IDs. Sections whose type carries no useful bank material (facts,
// conclusion) are handled by the caller with a nil list.
func (s *Synthesizer) selectChunks(ctx context.Context, matter models.Matter, candidates []models.Chunk, profile rank.QueryProfile, sectionType models.SectionType) ([]uuid.UUID, error) {
	filtered := make([]models.Chunk, 0, len(candidates))
	for _, ch := range candidates {
		if sectionType == models.SectionArgument {
			// Argument sections may draw on any persuasive material.
			if ch.Type == models.SectionArgument || ch.Type == models.SectionLegalStandard {
				filtered = append(filtered, ch)
			}
			continue
		}
		if ch.Type == sectionType {
			filtered = append(filtered, ch)
		}
	}

	results, err := s.ranker.Rank(ctx, profile, filtered, maxChunksPerSection)
	if err != nil {
		return nil, fmt.Errorf("failed to rank chunks for outline section: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(results))
	for _, res := range results {
		ids = append(ids, res.Chunk.ID)
	}
	return ids, nil
}

// roman renders 1-based outline numbering. Outlines never get long enough
// to need more than this.
func roman(n int) string {
	values := []int{10, 9, 5, 4, 1}
	symbols := []string{"X", "IX", "V", "IV", "I"}
	var b strings.Builder
	for i, v := range values {
		for n >= v {
			b.WriteString(symbols[i])
			n -= v
		}
	}
	return b.String()
}
