package generate

import (
	"testing"
	"time"

	"github.com/willimj3/brief-bank-tool/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCitationTokensForms(t *testing.T) {
	text := `Dismissal is required by Smith v. Jones, 123 F.3d 456 (9th Cir. 2020).
The short form also controls here: Iqbal, 556 U.S. 662. See also Pac. Gas & Elec. Co. v. Hart, 45 Cal. App. 4th 123.`

	tokens := extractCitationTokens(text)

	assert.Contains(t, tokens, "Smith v. Jones, 123 F.3d 456 (9th Cir. 2020)")
	assert.Contains(t, tokens, "Iqbal, 556 U.S. 662")
	assert.Contains(t, tokens, "Pac. Gas & Elec. Co. v. Hart, 45 Cal. App. 4th 123")
}

func TestExtractCitationTokensDeduplicates(t *testing.T) {
	text := "Iqbal, 556 U.S. 662 controls. Again: Iqbal, 556 U.S. 662."
	tokens := extractCitationTokens(text)
	assert.Len(t, tokens, 1)
}

func TestExtractCitationTokensIgnoresPlainProse(t *testing.T) {
	text := "The motion should be granted. Plaintiff has not stated a claim upon which relief can be granted."
	assert.Empty(t, extractCitationTokens(text))
}

func TestCitationAllowedBidirectionalContainment(t *testing.T) {
	allowed := []string{"Ashcroft v. Iqbal, 556 U.S. 662 (2009)"}

	// Short form of an allowed full form.
	assert.True(t, citationAllowed("Iqbal, 556 U.S. 662", allowed))
	// Full form when only the short form is allowed.
	assert.True(t, citationAllowed("Ashcroft v. Iqbal, 556 U.S. 662 (2009)", []string{"Iqbal, 556 U.S. 662"}))
	// Whitespace differences do not defeat matching.
	assert.True(t, citationAllowed("Iqbal,  556   U.S. 662", allowed))

	assert.False(t, citationAllowed("Twombly, 550 U.S. 544", allowed))
	assert.False(t, citationAllowed("", allowed))
}

func TestStripUnverifiedCitations(t *testing.T) {
	text := "See Twombly, 550 U.S. 544 and Iqbal, 556 U.S. 662."
	out := stripUnverifiedCitations(text, []string{"Twombly, 550 U.S. 544"})

	assert.NotContains(t, out, "Twombly")
	assert.Contains(t, out, NeedsCitationMarker)
	assert.Contains(t, out, "Iqbal, 556 U.S. 662")
}

func TestBuildWarningsNonBindingAuthority(t *testing.T) {
	matter := models.Matter{Jurisdiction: "california"}
	chunks := []SourceChunk{
		{Chunk: models.Chunk{Jurisdiction: "texas", IngestedAt: time.Now()}, BriefTitle: "Out of State"},
		{Chunk: models.Chunk{Jurisdiction: "california", IngestedAt: time.Now()}},
	}

	warnings := buildWarnings(matter, chunks, time.Now())
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Non-binding authority")
	assert.Contains(t, warnings[0], "texas")
}

func TestBuildWarningsOldCitation(t *testing.T) {
	now := time.Now()
	matter := models.Matter{Jurisdiction: "california"}
	chunks := []SourceChunk{
		{Chunk: models.Chunk{Jurisdiction: "california", IngestedAt: now.Add(-6 * 365 * 24 * time.Hour)}, BriefTitle: "Old Brief"},
		{Chunk: models.Chunk{Jurisdiction: "california", IngestedAt: now}},
	}

	warnings := buildWarnings(matter, chunks, now)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Old citation")
	assert.Contains(t, warnings[0], "Old Brief")
}

func TestBuildWarningsEmptyWhenHealthy(t *testing.T) {
	now := time.Now()
	matter := models.Matter{Jurisdiction: "california"}
	chunks := []SourceChunk{
		{Chunk: models.Chunk{Jurisdiction: "california", IngestedAt: now}},
		{Chunk: models.Chunk{Jurisdiction: "california", IngestedAt: now}},
	}

	assert.Empty(t, buildWarnings(matter, chunks, now))
}

func TestFindAdaptationsRecordsRephrasedSentences(t *testing.T) {
	source := sourceChunk()
	source.Chunk.Content = "A complaint must state a plausible claim for relief to survive dismissal under the governing standard."

	// Shares most words with the source but not all.
	generated := "Here the complaint must state a plausible claim for relief to survive dismissal in this court."

	adaptations := findAdaptations(generated, []SourceChunk{source})
	require.Len(t, adaptations, 1)
	assert.Equal(t, source.Chunk.Content, adaptations[0].Original)
	assert.Equal(t, generated, adaptations[0].Adapted)
}

func TestFindAdaptationsIgnoresVerbatimAndNovelText(t *testing.T) {
	source := sourceChunk()
	source.Chunk.Content = "A complaint must state a plausible claim for relief to survive dismissal under the governing standard."

	// Verbatim copy sits above the band.
	assert.Empty(t, findAdaptations(source.Chunk.Content, []SourceChunk{source}))

	// Novel prose sits below it.
	novel := "The procedural history of this appeal spans three separate superior court judges over many years."
	assert.Empty(t, findAdaptations(novel, []SourceChunk{source}))
}

func TestSplitTrailingHints(t *testing.T) {
	text, hints := splitTrailingHints("Body prose here.\n{\"citations_used\": [\"Iqbal, 556 U.S. 662\"]}")
	assert.Equal(t, "Body prose here.", text)
	require.NotNil(t, hints)
	assert.Equal(t, []string{"Iqbal, 556 U.S. 662"}, hints.CitationsUsed)

	text, hints = splitTrailingHints("Just prose, no hints.")
	assert.Equal(t, "Just prose, no hints.", text)
	assert.Nil(t, hints)

	// Malformed JSON is left in place rather than guessed at.
	text, hints = splitTrailingHints("Prose.\n{not json}")
	assert.Contains(t, text, "{not json}")
	assert.Nil(t, hints)
}
