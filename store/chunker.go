package store

import (
	"strings"

	"github.com/willimj3/brief-bank-tool/models"

	"github.com/google/uuid"
)

// Chunking policy. Argument sections longer than the window are split into
// overlapping fixed-size word windows so a legal point spanning a boundary
// is recoverable whole in at least one chunk. Captions never become chunks.
const (
	chunkWindowWords  = 350
	chunkOverlapWords = 60
)

// BuildChunks derives retrievable chunks from a brief's sections. Each
// chunk's citation list is filtered to citations physically present in the
// chunk's own text, never invented. Embeddings are left unset; the caller
// fills them in before the chunks are stored.
func BuildChunks(brief *models.Brief, sections []models.Section) []models.Chunk {
	var chunks []models.Chunk

	for _, section := range sections {
		if section.Type == models.SectionCaption {
			continue
		}
		if strings.TrimSpace(section.Content) == "" {
			continue
		}

		if section.Type == models.SectionArgument {
			for _, window := range splitWindows(section.Content) {
				chunks = append(chunks, newChunk(brief, section, window))
			}
			continue
		}

		chunks = append(chunks, newChunk(brief, section, section.Content))
	}

	return chunks
}

func newChunk(brief *models.Brief, section models.Section, content string) models.Chunk {
	return models.Chunk{
		ID:           uuid.New(),
		BriefID:      brief.ID,
		Type:         section.Type,
		Heading:      section.Title,
		Content:      content,
		Citations:    citationsInText(section.Citations, content),
		Jurisdiction: brief.Jurisdiction,
		Posture:      brief.Posture,
		IngestedAt:   brief.IngestedAt,
	}
}

// splitWindows cuts text into overlapping word windows. Short text comes
// back as a single window.
func splitWindows(text string) []string {
	words := strings.Fields(text)
	if len(words) <= chunkWindowWords {
		return []string{text}
	}

	step := chunkWindowWords - chunkOverlapWords
	var windows []string
	for start := 0; start < len(words); start += step {
		end := start + chunkWindowWords
		if end > len(words) {
			end = len(words)
		}
		windows = append(windows, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return windows
}

// citationsInText keeps only the citations whose full text actually appears
// in the given content. A chunk may never carry a citation its own text
// does not contain.
func citationsInText(citations models.CitationList, content string) models.CitationList {
	normalized := models.NormalizeCitation(content)
	kept := make(models.CitationList, 0, len(citations))
	for _, cit := range citations {
		if cit.FullText == "" {
			continue
		}
		if strings.Contains(normalized, models.NormalizeCitation(cit.FullText)) {
			kept = append(kept, cit)
		}
	}
	return kept
}
