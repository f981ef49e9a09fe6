package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/willimj3/brief-bank-tool/exporter"
	"github.com/willimj3/brief-bank-tool/generate"
	"github.com/willimj3/brief-bank-tool/models"
	"github.com/willimj3/brief-bank-tool/outline"
	"github.com/willimj3/brief-bank-tool/storage"
	"github.com/willimj3/brief-bank-tool/store"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var (
	ErrDraftNotFound           = errors.New("draft not found")
	ErrSectionNotFound         = errors.New("outline section not found")
	ErrSectionAlreadyGenerated = errors.New("section already generated")
	ErrGenerationInFlight      = errors.New("generation already in progress for this section")
	ErrOutlineLocked           = errors.New("outline cannot be changed after generation has started")
	ErrNoLegalIssues           = errors.New("matter must name at least one legal issue")
	ErrDraftNotReady           = errors.New("draft is not fully generated")
)

// maxConcurrentGenerations caps simultaneous drafting-service calls across
// all drafts.
const maxConcurrentGenerations = 2

// DraftService owns the draft lifecycle: outline synthesis, section
// generation, and export. Drafts live in memory; the passage store is never
// written by this service.
type DraftService struct {
	store       store.PassageStore
	synthesizer *outline.Synthesizer
	generator   *generate.Generator
	storage     storage.Storage

	mu     sync.RWMutex
	drafts map[uuid.UUID]*models.Draft

	inflightMu sync.Mutex
	inflight   map[string]bool

	sem *semaphore.Weighted
}

// DraftServiceOption is a functional option for DraftService
type DraftServiceOption func(*DraftService)

// WithExportStorage retains exported documents in the given storage.
func WithExportStorage(st storage.Storage) DraftServiceOption {
	return func(s *DraftService) {
		s.storage = st
	}
}

// NewDraftService creates a draft service.
func NewDraftService(st store.PassageStore, synthesizer *outline.Synthesizer, generator *generate.Generator, opts ...DraftServiceOption) *DraftService {
	s := &DraftService{
		store:       st,
		synthesizer: synthesizer,
		generator:   generator,
		drafts:      make(map[uuid.UUID]*models.Draft),
		inflight:    make(map[string]bool),
		sem:         semaphore.NewWeighted(maxConcurrentGenerations),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDraft plans a new draft for the matter: the outline skeleton is
// synthesized immediately, with source chunks assigned from the bank.
func (s *DraftService) CreateDraft(ctx context.Context, matter models.Matter) (*models.Draft, error) {
	if len(matter.DistinctIssues()) == 0 {
		return nil, ErrNoLegalIssues
	}

	candidates, err := s.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	sections, err := s.synthesizer.Synthesize(ctx, matter, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to synthesize outline: %w", err)
	}

	now := time.Now().UTC()
	draft := &models.Draft{
		ID:        uuid.New(),
		Matter:    matter,
		Outline:   sections,
		Sections:  make(map[uuid.UUID]*models.GeneratedSection),
		Status:    models.DraftCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.drafts[draft.ID] = draft
	s.mu.Unlock()

	return s.snapshot(draft.ID)
}

// GetDraft returns a point-in-time copy of the draft.
func (s *DraftService) GetDraft(ctx context.Context, id uuid.UUID) (*models.Draft, error) {
	return s.snapshot(id)
}

// GeneratedSections returns the draft's generated sections in outline order.
func (s *DraftService) GeneratedSections(ctx context.Context, id uuid.UUID) ([]*models.GeneratedSection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	var sections []*models.GeneratedSection
	for _, os := range draft.Outline {
		if gs, ok := draft.Sections[os.ID]; ok {
			copied := *gs
			sections = append(sections, &copied)
		}
	}
	return sections, nil
}

// OutlineSectionUpdate edits one planned section before generation starts.
type OutlineSectionUpdate struct {
	ID          uuid.UUID `json:"id" binding:"required"`
	Heading     string    `json:"heading"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
}

// UpdateOutline reorders or retitles outline sections. Allowed only while
// the draft is still in the created state; once any section has been
// generated the plan is locked.
func (s *DraftService) UpdateOutline(ctx context.Context, draftID uuid.UUID, updates []OutlineSectionUpdate) (*models.Draft, error) {
	s.mu.Lock()
	draft, ok := s.drafts[draftID]
	if !ok {
		s.mu.Unlock()
		return nil, ErrDraftNotFound
	}
	if draft.Status != models.DraftCreated {
		s.mu.Unlock()
		return nil, ErrOutlineLocked
	}

	for _, upd := range updates {
		section := draft.OutlineSectionByID(upd.ID)
		if section == nil {
			s.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrSectionNotFound, upd.ID)
		}
		if strings.TrimSpace(upd.Heading) != "" {
			section.Heading = upd.Heading
		}
		if upd.Description != "" {
			section.Description = upd.Description
		}
		section.Order = upd.Order
	}

	// Re-sequence by requested order, stable on prior position.
	ordered := draft.Outline
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if ordered[j].Order < ordered[i].Order {
				ordered[i], ordered[j] = ordered[j], ordered[i]
			}
		}
	}
	for i := range ordered {
		ordered[i].Order = i
	}
	draft.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	return s.snapshot(draftID)
}

// GenerateSection drafts one outline section that has not been generated
// yet. Use RegenerateSection to redo an existing one.
func (s *DraftService) GenerateSection(ctx context.Context, draftID, sectionID uuid.UUID) (*models.GeneratedSection, error) {
	return s.generateSection(ctx, draftID, sectionID, false)
}

// RegenerateSection re-drafts a section from scratch, replacing any prior
// content. The previous content survives a failed regeneration.
func (s *DraftService) RegenerateSection(ctx context.Context, draftID, sectionID uuid.UUID) (*models.GeneratedSection, error) {
	return s.generateSection(ctx, draftID, sectionID, true)
}

func (s *DraftService) generateSection(ctx context.Context, draftID, sectionID uuid.UUID, replace bool) (*models.GeneratedSection, error) {
	s.mu.RLock()
	draft, ok := s.drafts[draftID]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrDraftNotFound
	}
	ptr := draft.OutlineSectionByID(sectionID)
	if ptr == nil {
		s.mu.RUnlock()
		return nil, ErrSectionNotFound
	}
	section := *ptr
	matter := draft.Matter
	_, exists := draft.Sections[sectionID]
	s.mu.RUnlock()

	if exists && !replace {
		return nil, ErrSectionAlreadyGenerated
	}

	key := draftID.String() + "/" + sectionID.String()
	s.inflightMu.Lock()
	if s.inflight[key] {
		s.inflightMu.Unlock()
		return nil, ErrGenerationInFlight
	}
	s.inflight[key] = true
	s.inflightMu.Unlock()
	defer func() {
		s.inflightMu.Lock()
		delete(s.inflight, key)
		s.inflightMu.Unlock()
	}()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	chunks, err := s.loadSourceChunks(ctx, section)
	if err != nil {
		return nil, err
	}

	generated, err := s.generator.Generate(ctx, section, matter, chunks)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	// The draft may have been deleted while generating; drop the result
	// rather than resurrect it.
	if current, ok := s.drafts[draftID]; ok {
		current.Sections[sectionID] = generated
		if ptr := current.OutlineSectionByID(sectionID); ptr != nil {
			ptr.Generated = true
		}
		current.RecomputeStatus()
		current.UpdatedAt = time.Now().UTC()
	}
	s.mu.Unlock()

	copied := *generated
	return &copied, nil
}

// loadSourceChunks resolves an outline section's assigned chunk IDs,
// tolerating chunks whose brief has since been deleted.
func (s *DraftService) loadSourceChunks(ctx context.Context, section models.OutlineSection) ([]generate.SourceChunk, error) {
	titles := make(map[uuid.UUID]string)
	chunks := make([]generate.SourceChunk, 0, len(section.SourceChunkIDs))
	for _, id := range section.SourceChunkIDs {
		chunk, err := s.store.GetChunk(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrChunkNotFound) {
				log.Printf("Warning: source chunk %s no longer exists, generating without it", id)
				continue
			}
			return nil, err
		}
		title, ok := titles[chunk.BriefID]
		if !ok {
			if brief, err := s.store.GetBrief(ctx, chunk.BriefID); err == nil {
				title = brief.Title
			}
			titles[chunk.BriefID] = title
		}
		chunks = append(chunks, generate.SourceChunk{Chunk: *chunk, BriefTitle: title})
	}
	return chunks, nil
}

// GenerateAllResult carries the progress of a bulk generation, including
// partial progress when a section fails.
type GenerateAllResult struct {
	Generated []*models.GeneratedSection
	Skipped   []uuid.UUID
	Failed    *uuid.UUID
}

// GenerateAll drafts every ungenerated section sequentially in outline
// order. It stops at the first failure and returns the progress made along
// with the error.
func (s *DraftService) GenerateAll(ctx context.Context, draftID uuid.UUID) (*GenerateAllResult, error) {
	s.mu.RLock()
	draft, ok := s.drafts[draftID]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrDraftNotFound
	}
	type planned struct {
		id        uuid.UUID
		generated bool
	}
	plan := make([]planned, 0, len(draft.Outline))
	for _, os := range draft.Outline {
		_, exists := draft.Sections[os.ID]
		plan = append(plan, planned{id: os.ID, generated: exists})
	}
	s.mu.RUnlock()

	result := &GenerateAllResult{}
	for _, p := range plan {
		if p.generated {
			result.Skipped = append(result.Skipped, p.id)
			continue
		}
		generated, err := s.generateSection(ctx, draftID, p.id, false)
		if err != nil {
			id := p.id
			result.Failed = &id
			return result, fmt.Errorf("failed to generate section %s: %w", p.id, err)
		}
		result.Generated = append(result.Generated, generated)
	}
	return result, nil
}

// ExportResult is a finished export.
type ExportResult struct {
	Filename    string  `json:"filename"`
	Content     string  `json:"content"`
	StoragePath *string `json:"storage_path,omitempty"`
}

// ExportDraft assembles the fully generated draft into a filing-shaped
// document. Every outline section must be generated; the error names the
// sections still missing. A successful export marks the draft exported.
func (s *DraftService) ExportDraft(ctx context.Context, draftID uuid.UUID) (*ExportResult, error) {
	s.mu.RLock()
	draft, ok := s.drafts[draftID]
	if !ok {
		s.mu.RUnlock()
		return nil, ErrDraftNotFound
	}
	if missing := draft.MissingSections(); len(missing) > 0 {
		s.mu.RUnlock()
		return nil, fmt.Errorf("%w: missing sections: %s", ErrDraftNotReady, strings.Join(missing, ", "))
	}

	matter := draft.Matter
	sections := make([]exporter.SectionContent, 0, len(draft.Outline))
	for _, os := range draft.Outline {
		gs := draft.Sections[os.ID]
		sections = append(sections, exporter.SectionContent{
			Heading: gs.Heading,
			Body:    gs.Content,
		})
	}
	s.mu.RUnlock()

	content := exporter.Assemble(matter, sections)
	result := &ExportResult{
		Filename: exporter.Filename(matter),
		Content:  content,
	}

	if s.storage != nil {
		path, err := s.storage.Upload(ctx, storage.PrefixExports, draftID, result.Filename, strings.NewReader(content))
		if err != nil {
			log.Printf("Warning: failed to retain export for draft %s: %v", draftID, err)
		} else {
			result.StoragePath = &path
		}
	}

	s.mu.Lock()
	if current, ok := s.drafts[draftID]; ok {
		current.Status = models.DraftExported
		current.UpdatedAt = time.Now().UTC()
	}
	s.mu.Unlock()

	return result, nil
}

// snapshot returns a copy of the draft safe to hand outside the lock.
func (s *DraftService) snapshot(id uuid.UUID) (*models.Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}

	copied := *draft
	copied.Outline = append([]models.OutlineSection(nil), draft.Outline...)
	copied.Sections = make(map[uuid.UUID]*models.GeneratedSection, len(draft.Sections))
	for k, v := range draft.Sections {
		section := *v
		copied.Sections[k] = &section
	}
	return &copied, nil
}
