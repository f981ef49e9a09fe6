package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/willimj3/brief-bank-tool/generate"
	"github.com/willimj3/brief-bank-tool/models"
	"github.com/willimj3/brief-bank-tool/outline"
	"github.com/willimj3/brief-bank-tool/rank"
	"github.com/willimj3/brief-bank-tool/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const safeDraftText = "The court should grant the requested relief for the reasons stated by the parties."

// stubDrafting returns fixed text, optionally failing after a number of
// successful calls.
type stubDrafting struct {
	mu        sync.Mutex
	calls     int
	failAfter int // fail every call once this many have succeeded; 0 means never
}

func (s *stubDrafting) Draft(ctx context.Context, req generate.DraftRequest) (*generate.DraftResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAfter > 0 && s.calls >= s.failAfter {
		return nil, errors.New("drafting service down")
	}
	s.calls++
	return &generate.DraftResponse{Text: safeDraftText}, nil
}

// blockingDrafting parks on a channel so in-flight behavior is observable.
type blockingDrafting struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingDrafting) Draft(ctx context.Context, req generate.DraftRequest) (*generate.DraftResponse, error) {
	b.started <- struct{}{}
	<-b.release
	return &generate.DraftResponse{Text: safeDraftText}, nil
}

func newDraftService(t *testing.T, client generate.DraftingClient) (*DraftService, *store.MemoryStore) {
	t.Helper()

	memStore := store.NewMemoryStore()
	ranker := rank.NewRanker(nil)
	return NewDraftService(memStore, outline.NewSynthesizer(ranker), generate.NewGenerator(client)), memStore
}

func seedBankChunk(t *testing.T, s *store.MemoryStore) {
	t.Helper()

	brief := &models.Brief{
		ID:           uuid.New(),
		Title:        "Acme v. Widgets",
		Filename:     "acme.txt",
		Jurisdiction: "california",
		Posture:      models.PostureMotionToDismiss,
		IngestedAt:   time.Now(),
	}
	chunk := models.Chunk{
		ID:           uuid.New(),
		BriefID:      brief.ID,
		Type:         models.SectionArgument,
		Content:      "A complaint must state a plausible claim for relief.",
		Citations:    models.CitationList{{FullText: "Iqbal, 556 U.S. 662"}},
		Jurisdiction: "california",
		Posture:      models.PostureMotionToDismiss,
		IngestedAt:   brief.IngestedAt,
	}
	require.NoError(t, s.AddBrief(context.Background(), brief, nil, []models.Chunk{chunk}))
}

func draftMatter() models.Matter {
	return models.Matter{
		CaseName:     "Smith v. Jones",
		Court:        "Superior Court of California",
		Jurisdiction: "california",
		Posture:      models.PostureMotionToDismiss,
		LegalIssues:  []string{"failure to state a claim"},
		FactSummary:  "Plaintiff alleges breach of contract.",
	}
}

func TestCreateDraftBuildsOutline(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	assert.Equal(t, models.DraftCreated, draft.Status)
	require.Len(t, draft.Outline, 5)
	assert.Equal(t, "I. INTRODUCTION", draft.Outline[0].Heading)
	assert.Equal(t, "V. CONCLUSION", draft.Outline[4].Heading)
	assert.NotEmpty(t, draft.Outline[3].SourceChunkIDs)
}

func TestCreateDraftRequiresLegalIssues(t *testing.T) {
	svc, _ := newDraftService(t, &stubDrafting{})

	matter := draftMatter()
	matter.LegalIssues = nil
	_, err := svc.CreateDraft(context.Background(), matter)
	assert.ErrorIs(t, err, ErrNoLegalIssues)
}

func TestGenerateSectionLifecycle(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	sectionID := draft.Outline[0].ID
	section, err := svc.GenerateSection(context.Background(), draft.ID, sectionID)
	require.NoError(t, err)
	assert.Equal(t, safeDraftText, section.Content)

	got, err := svc.GetDraft(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPartiallyGenerated, got.Status)
	assert.True(t, got.Outline[0].Generated)

	// A second generate on the same section is a conflict; regenerate
	// replaces it.
	_, err = svc.GenerateSection(context.Background(), draft.ID, sectionID)
	assert.ErrorIs(t, err, ErrSectionAlreadyGenerated)

	_, err = svc.RegenerateSection(context.Background(), draft.ID, sectionID)
	require.NoError(t, err)
}

func TestGenerateSectionUnknownIDs(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	_, err := svc.GenerateSection(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrDraftNotFound)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	_, err = svc.GenerateSection(context.Background(), draft.ID, uuid.New())
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestGenerateSectionFailureLeavesPriorContent(t *testing.T) {
	client := &stubDrafting{}
	svc, memStore := newDraftService(t, client)
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)
	sectionID := draft.Outline[0].ID

	first, err := svc.GenerateSection(context.Background(), draft.ID, sectionID)
	require.NoError(t, err)

	client.mu.Lock()
	client.failAfter = client.calls
	client.mu.Unlock()

	_, err = svc.RegenerateSection(context.Background(), draft.ID, sectionID)
	require.Error(t, err)

	got, err := svc.GetDraft(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Content, got.Sections[sectionID].Content)
	assert.Equal(t, models.DraftPartiallyGenerated, got.Status)
}

func TestGenerateSectionConflictWhileInFlight(t *testing.T) {
	client := &blockingDrafting{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc, memStore := newDraftService(t, client)
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)
	sectionID := draft.Outline[0].ID

	done := make(chan error, 1)
	go func() {
		_, err := svc.GenerateSection(context.Background(), draft.ID, sectionID)
		done <- err
	}()

	<-client.started
	_, err = svc.GenerateSection(context.Background(), draft.ID, sectionID)
	assert.ErrorIs(t, err, ErrGenerationInFlight)

	close(client.release)
	require.NoError(t, <-done)
}

func TestGenerateAllSequentialWithSkips(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	// Pre-generate one section; the bulk run must skip it.
	_, err = svc.GenerateSection(context.Background(), draft.ID, draft.Outline[1].ID)
	require.NoError(t, err)

	result, err := svc.GenerateAll(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Len(t, result.Generated, 4)
	assert.Equal(t, []uuid.UUID{draft.Outline[1].ID}, result.Skipped)

	got, err := svc.GetDraft(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftFullyGenerated, got.Status)
}

func TestGenerateAllStopsAtFirstFailure(t *testing.T) {
	// Two sections succeed (one drafting call each), then the service
	// goes down.
	client := &stubDrafting{failAfter: 2}
	svc, memStore := newDraftService(t, client)
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	result, err := svc.GenerateAll(context.Background(), draft.ID)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Len(t, result.Generated, 2)
	require.NotNil(t, result.Failed)
	assert.Equal(t, draft.Outline[2].ID, *result.Failed)

	got, err := svc.GetDraft(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftPartiallyGenerated, got.Status)
}

func TestExportRequiresFullGeneration(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	_, err = svc.ExportDraft(context.Background(), draft.ID)
	require.ErrorIs(t, err, ErrDraftNotReady)
	assert.Contains(t, err.Error(), "I. INTRODUCTION")

	_, err = svc.GenerateAll(context.Background(), draft.ID)
	require.NoError(t, err)

	result, err := svc.ExportDraft(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "SUPERIOR COURT OF CALIFORNIA")
	assert.Contains(t, result.Content, "I. INTRODUCTION")
	assert.Contains(t, result.Content, safeDraftText)
	assert.True(t, strings.HasSuffix(result.Filename, ".txt"))

	got, err := svc.GetDraft(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftExported, got.Status)
}

func TestExportedDraftReentersOnRegenerate(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)
	_, err = svc.GenerateAll(context.Background(), draft.ID)
	require.NoError(t, err)
	_, err = svc.ExportDraft(context.Background(), draft.ID)
	require.NoError(t, err)

	_, err = svc.RegenerateSection(context.Background(), draft.ID, draft.Outline[0].ID)
	require.NoError(t, err)

	got, err := svc.GetDraft(context.Background(), draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DraftFullyGenerated, got.Status)
}

func TestUpdateOutlineOnlyBeforeGeneration(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	// Swap the first two sections and retitle one.
	updates := []OutlineSectionUpdate{
		{ID: draft.Outline[0].ID, Heading: "I. PRELIMINARY STATEMENT", Order: 1},
		{ID: draft.Outline[1].ID, Order: 0},
	}
	updated, err := svc.UpdateOutline(context.Background(), draft.ID, updates)
	require.NoError(t, err)
	assert.Equal(t, draft.Outline[1].ID, updated.Outline[0].ID)
	assert.Equal(t, "I. PRELIMINARY STATEMENT", updated.Outline[1].Heading)

	_, err = svc.GenerateSection(context.Background(), draft.ID, draft.Outline[0].ID)
	require.NoError(t, err)

	_, err = svc.UpdateOutline(context.Background(), draft.ID, updates)
	assert.ErrorIs(t, err, ErrOutlineLocked)
}

func TestUpdateOutlineUnknownSection(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	_, err = svc.UpdateOutline(context.Background(), draft.ID, []OutlineSectionUpdate{{ID: uuid.New()}})
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestGenerateSectionToleratesDeletedSourceChunks(t *testing.T) {
	svc, memStore := newDraftService(t, &stubDrafting{})
	seedBankChunk(t, memStore)

	draft, err := svc.CreateDraft(context.Background(), draftMatter())
	require.NoError(t, err)

	// Delete the only bank brief after the outline has pinned its chunks.
	briefs, err := memStore.ListBriefs(context.Background())
	require.NoError(t, err)
	require.NoError(t, memStore.RemoveBrief(context.Background(), briefs[0].ID))

	section, err := svc.GenerateSection(context.Background(), draft.ID, draft.Outline[3].ID)
	require.NoError(t, err)
	assert.Empty(t, section.Sources)
}
