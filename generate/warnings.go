package generate

import (
	"fmt"
	"strings"
	"time"

	"github.com/willimj3/brief-bank-tool/models"
)

const (
	// staleAfter is the source age beyond which cited material gets an
	// age warning.
	staleAfter = 5 * 365 * 24 * time.Hour

	// minSourceChunks is the smallest source set that does not trigger a
	// thin sourcing warning.
	minSourceChunks = 2
)

// buildWarnings surfaces the caveats a reviewing attorney must see before
// relying on the section. Warnings never block generation.
func buildWarnings(matter models.Matter, chunks []SourceChunk, now time.Time) []string {
	warnings := []string{}

	for _, src := range chunks {
		if src.Chunk.Jurisdiction != "" && matter.Jurisdiction != "" &&
			!strings.EqualFold(src.Chunk.Jurisdiction, matter.Jurisdiction) {
			warnings = append(warnings, fmt.Sprintf(
				"Non-binding authority: source material is from %s, matter is in %s",
				src.Chunk.Jurisdiction, matter.Jurisdiction))
			break
		}
	}

	for _, src := range chunks {
		if now.Sub(src.Chunk.IngestedAt) > staleAfter {
			warnings = append(warnings, fmt.Sprintf(
				"Old citation: source brief %q was ingested more than 5 years ago; verify the authority is still good law",
				src.BriefTitle))
			break
		}
	}

	if len(chunks) < minSourceChunks {
		warnings = append(warnings, fmt.Sprintf(
			"Thin sourcing: only %d source passage(s) backed this section; review carefully",
			len(chunks)))
	}

	return warnings
}
