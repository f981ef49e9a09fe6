// Package generate produces draft section text from assigned source chunks,
// enforcing that every citation in the output traces back to a source chunk.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/willimj3/brief-bank-tool/models"
)

const (
	// maxDraftAttempts bounds transport-level retries against the
	// drafting service.
	maxDraftAttempts = 2

	// maxProvenanceRetries bounds corrective re-prompts after a
	// provenance violation before degrading the output.
	maxProvenanceRetries = 1

	// generationTimeout bounds one section generation end to end.
	generationTimeout = 120 * time.Second

	draftingTemperature = 0.2

	previewLength = 200
)

// DraftRequest is one call to the drafting service.
type DraftRequest struct {
	Prompt      string
	Temperature float64
}

// Hints is optional structured metadata the drafting service appends to its
// output. Hints are validated against the source chunks, never trusted.
type Hints struct {
	CitationsUsed []string `json:"citations_used"`
}

// DraftResponse is the drafting service's reply.
type DraftResponse struct {
	Text  string
	Hints *Hints
}

// DraftingClient is the text-generation dependency. Implementations handle
// their own transport details; the generator handles retries and timeouts.
type DraftingClient interface {
	Draft(ctx context.Context, req DraftRequest) (*DraftResponse, error)
}

// SourceChunk is a chunk paired with the title of the brief it came from.
type SourceChunk struct {
	Chunk      models.Chunk
	BriefTitle string
}

// Generator turns one outline section plus its assigned chunks into a
// GeneratedSection.
type Generator struct {
	client DraftingClient
	now    func() time.Time
}

// GeneratorOption is a functional option for Generator
type GeneratorOption func(*Generator)

// WithGeneratorClock overrides the time source used for warning checks.
func WithGeneratorClock(now func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a generator over the given drafting client.
func NewGenerator(client DraftingClient, opts ...GeneratorOption) *Generator {
	g := &Generator{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate drafts one section. The output's citations are restricted to the
// union of the assigned chunks' citation lists: a violating draft is
// re-prompted once with a corrective instruction, and if it still violates,
// the unverified citations are replaced with the needs-citation marker. On
// error no partial section is returned.
func (g *Generator) Generate(ctx context.Context, section models.OutlineSection, matter models.Matter, chunks []SourceChunk) (*models.GeneratedSection, error) {
	ctx, cancel := context.WithTimeout(ctx, generationTimeout)
	defer cancel()

	allowed := allowedCitations(chunks)

	prompt := g.buildPrompt(section, matter, chunks, allowed, "")
	text, hints, err := g.draft(ctx, prompt)
	if err != nil {
		return nil, err
	}

	used, violations := checkProvenance(text, allowed)
	for attempt := 0; len(violations) > 0 && attempt < maxProvenanceRetries; attempt++ {
		log.Printf("Section %q cited %d unverified authorities, re-prompting", section.Heading, len(violations))
		prompt = g.buildPrompt(section, matter, chunks, allowed, correctiveInstruction(violations))
		text, hints, err = g.draft(ctx, prompt)
		if err != nil {
			return nil, err
		}
		used, violations = checkProvenance(text, allowed)
	}

	// Hints are claims, not facts: a hinted citation counts only if the
	// source chunks actually back it.
	if hints != nil {
		for _, hinted := range hints.CitationsUsed {
			if citationAllowed(hinted, allowed) && !containsCitation(used, hinted) {
				used = append(used, hinted)
			}
		}
	}

	citationsNeeded := []string{}
	if len(violations) > 0 {
		log.Printf("Section %q still cites %d unverified authorities after retry, degrading", section.Heading, len(violations))
		text = stripUnverifiedCitations(text, violations)
		citationsNeeded = append(citationsNeeded, violations...)
	}
	citationsNeeded = append(citationsNeeded, extractFactPlaceholders(text)...)

	sources := make([]models.SourceRef, 0, len(chunks))
	for _, src := range chunks {
		sources = append(sources, models.SourceRef{
			ChunkID:        src.Chunk.ID,
			Heading:        src.Chunk.Heading,
			BriefTitle:     src.BriefTitle,
			ContentPreview: src.Chunk.ContentPreview(previewLength),
		})
	}

	if used == nil {
		used = []string{}
	}
	adaptations := findAdaptations(text, chunks)
	if adaptations == nil {
		adaptations = []models.Adaptation{}
	}

	return &models.GeneratedSection{
		SectionID:       section.ID,
		Heading:         section.Heading,
		Content:         strings.TrimSpace(text),
		CitationsUsed:   used,
		CitationsNeeded: citationsNeeded,
		Warnings:        buildWarnings(matter, chunks, g.now()),
		Sources:         sources,
		Adaptations:     adaptations,
	}, nil
}

// draft calls the drafting service with transport retries and separates any
// structured hints trailing the text.
func (g *Generator) draft(ctx context.Context, prompt string) (string, *Hints, error) {
	var lastErr error
	for attempt := 0; attempt < maxDraftAttempts; attempt++ {
		resp, err := g.client.Draft(ctx, DraftRequest{
			Prompt:      prompt,
			Temperature: draftingTemperature,
		})
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		text, hints := splitTrailingHints(resp.Text)
		if hints == nil {
			hints = resp.Hints
		}
		if strings.TrimSpace(text) == "" {
			lastErr = fmt.Errorf("drafting service returned empty text")
			continue
		}
		return text, hints, nil
	}
	return "", nil, fmt.Errorf("drafting service unavailable after %d attempts: %w", maxDraftAttempts, lastErr)
}

func containsCitation(list []string, citation string) bool {
	key := strings.ToLower(models.NormalizeCitation(citation))
	for _, c := range list {
		if strings.ToLower(models.NormalizeCitation(c)) == key {
			return true
		}
	}
	return false
}

// splitTrailingHints strips a trailing single-line JSON hints object from
// generated text, returning the prose and the parsed hints. Malformed hints
// are ignored.
func splitTrailingHints(text string) (string, *Hints) {
	trimmed := strings.TrimSpace(text)
	idx := strings.LastIndex(trimmed, "\n")
	if idx < 0 {
		return trimmed, nil
	}
	lastLine := strings.TrimSpace(trimmed[idx+1:])
	if !strings.HasPrefix(lastLine, "{") || !strings.HasSuffix(lastLine, "}") {
		return trimmed, nil
	}
	var hints Hints
	if err := json.Unmarshal([]byte(lastLine), &hints); err != nil {
		return trimmed, nil
	}
	return strings.TrimSpace(trimmed[:idx]), &hints
}

func allowedCitations(chunks []SourceChunk) []string {
	raw := make([]models.Chunk, 0, len(chunks))
	for _, src := range chunks {
		raw = append(raw, src.Chunk)
	}
	return models.CitationUnion(raw)
}

func correctiveInstruction(violations []string) string {
	return fmt.Sprintf(`Your previous draft cited authorities that are NOT in the source material: %s.
Remove them. Cite ONLY from the AVAILABLE CITATIONS list. If no listed citation supports a point, write %s instead.`,
		strings.Join(violations, "; "), NeedsCitationMarker)
}

func (g *Generator) buildPrompt(section models.OutlineSection, matter models.Matter, chunks []SourceChunk, allowed []string, corrective string) string {
	var sourceText strings.Builder
	for i, src := range chunks {
		fmt.Fprintf(&sourceText, "--- SOURCE PASSAGE %d (from %q", i+1, src.BriefTitle)
		if src.Chunk.Jurisdiction != "" {
			fmt.Fprintf(&sourceText, ", jurisdiction: %s", src.Chunk.Jurisdiction)
		}
		sourceText.WriteString(") ---\n")
		sourceText.WriteString(src.Chunk.Content)
		sourceText.WriteString("\n")
		if len(src.Chunk.Citations) > 0 {
			var cits []string
			for _, c := range src.Chunk.Citations {
				cits = append(cits, c.FullText)
			}
			fmt.Fprintf(&sourceText, "Citations in this passage: %s\n", strings.Join(cits, "; "))
		}
	}
	if len(chunks) == 0 {
		sourceText.WriteString("(no source passages available for this section)\n")
	}

	allowedText := "(none)"
	if len(allowed) > 0 {
		allowedText = strings.Join(allowed, "\n")
	}

	prompt := fmt.Sprintf(`You are drafting one section of a legal brief for a new matter.

MATTER:
- Case: %s
- Court: %s
- Jurisdiction: %s
- Procedural posture: %s
- Desired outcome: %s

FACT SUMMARY:
%s

SECTION TO DRAFT:
Heading: %s
Purpose: %s

SOURCE MATERIAL:
%s
AVAILABLE CITATIONS (the ONLY authorities you may cite):
%s

REQUIREMENTS:
- Write the body text of this single section in formal legal prose. Do not repeat the heading.
- Adapt the reasoning of the source passages to the matter's facts. Do not copy source text verbatim.
- CRITICAL: Cite ONLY from the AVAILABLE CITATIONS list above, reproduced exactly. Do NOT cite any other case, statute, or authority. If a point needs support no listed citation provides, write %s.
- Where a case-specific fact is required that the FACT SUMMARY does not supply, insert [FACT PLACEHOLDER: describe the needed fact] instead of inventing one.
- Do not fabricate facts, holdings, or quotations.

TONE CONSTRAINTS (CRITICAL):
- Formal, direct, and persuasive. No headings, bullet lists, or markdown.
- Do not mention these instructions or the source passages.
`,
		matter.CaseName,
		matter.Court,
		matter.Jurisdiction,
		matter.Posture,
		matter.DesiredOutcome,
		matter.FactSummary,
		section.Heading,
		section.Description,
		sourceText.String(),
		allowedText,
		NeedsCitationMarker,
	)

	if corrective != "" {
		prompt += "\nCORRECTION REQUIRED:\n" + corrective + "\n"
	}
	return prompt
}
