// Package service orchestrates ingestion, search, and draft production over
// the passage store, the ranker, and the Gemini-backed clients.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/willimj3/brief-bank-tool/models"
	"github.com/willimj3/brief-bank-tool/rank"
	"github.com/willimj3/brief-bank-tool/storage"
	"github.com/willimj3/brief-bank-tool/store"

	"github.com/google/uuid"
)

var (
	ErrNoSections      = errors.New("brief has no sections with content")
	ErrMissingFilename = errors.New("filename is required")
)

const searchPreviewLength = 300

// PassageEmbedder embeds document passages at ingestion time.
type PassageEmbedder interface {
	EmbedPassage(ctx context.Context, text string) ([]float64, error)
}

// BriefService handles brief ingestion, lookup, deletion and search.
type BriefService struct {
	store    store.PassageStore
	embedder PassageEmbedder
	ranker   *rank.Ranker
	storage  storage.Storage
}

// BriefServiceOption is a functional option for BriefService
type BriefServiceOption func(*BriefService)

// WithBriefStorage enables raw document retention for ingested briefs.
func WithBriefStorage(st storage.Storage) BriefServiceOption {
	return func(s *BriefService) {
		s.storage = st
	}
}

// NewBriefService creates a brief service.
func NewBriefService(st store.PassageStore, embedder PassageEmbedder, ranker *rank.Ranker, opts ...BriefServiceOption) *BriefService {
	s := &BriefService{
		store:    st,
		embedder: embedder,
		ranker:   ranker,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SectionInput is one parsed section of an incoming brief. Citations are
// reported by the upstream document parser; the service never derives them.
type SectionInput struct {
	Type      models.SectionType  `json:"type" binding:"required"`
	Title     string              `json:"title"`
	Content   string              `json:"content"`
	Citations models.CitationList `json:"citations"`
}

// IngestBriefRequest is a fully parsed brief ready for indexing.
type IngestBriefRequest struct {
	Filename     string                   `json:"filename" binding:"required"`
	Court        string                   `json:"court"`
	Jurisdiction string                   `json:"jurisdiction"`
	Posture      models.ProceduralPosture `json:"procedural_posture"`
	CaseName     string                   `json:"case_name"`
	CaseNumber   string                   `json:"case_number"`
	LegalIssues  []string                 `json:"legal_issues"`
	Outcome      string                   `json:"outcome"`
	Sections     []SectionInput           `json:"sections" binding:"required"`
	RawText      string                   `json:"raw_text"`
}

// IngestBrief indexes a parsed brief: derives chunks, embeds them, retains
// the raw document when storage is configured, and installs everything
// atomically. A brief that fails ingestion leaves nothing behind.
func (s *BriefService) IngestBrief(ctx context.Context, req IngestBriefRequest) (*models.Brief, error) {
	if strings.TrimSpace(req.Filename) == "" {
		return nil, ErrMissingFilename
	}
	if !hasContent(req.Sections) {
		return nil, ErrNoSections
	}

	brief := &models.Brief{
		ID:           uuid.New(),
		Title:        models.DeriveTitle(req.CaseName, req.CaseNumber, req.Filename),
		Filename:     req.Filename,
		Court:        req.Court,
		Jurisdiction: req.Jurisdiction,
		Posture:      req.Posture,
		CaseName:     req.CaseName,
		CaseNumber:   req.CaseNumber,
		LegalIssues:  req.LegalIssues,
		Outcome:      req.Outcome,
		IngestedAt:   time.Now().UTC(),
	}
	if brief.LegalIssues == nil {
		brief.LegalIssues = []string{}
	}

	sections := make([]models.Section, 0, len(req.Sections))
	for i, in := range req.Sections {
		citations := in.Citations
		if citations == nil {
			citations = models.CitationList{}
		}
		sections = append(sections, models.Section{
			ID:        uuid.New(),
			BriefID:   brief.ID,
			Type:      in.Type,
			Title:     in.Title,
			Content:   in.Content,
			Order:     i,
			Citations: citations,
		})
	}

	chunks := store.BuildChunks(brief, sections)
	for i := range chunks {
		embedding, err := s.embedder.EmbedPassage(ctx, chunks[i].Content)
		if err != nil {
			// An unembedded chunk still ranks on categorical signals.
			log.Printf("Warning: failed to embed chunk %s of brief %s: %v", chunks[i].ID, brief.ID, err)
			continue
		}
		chunks[i].Embedding = embedding
	}

	if s.storage != nil && req.RawText != "" {
		path, err := s.storage.Upload(ctx, storage.PrefixBriefs, brief.ID, req.Filename, strings.NewReader(req.RawText))
		if err != nil {
			return nil, fmt.Errorf("failed to store brief document: %w", err)
		}
		brief.StoragePath = &path
	}

	if err := s.store.AddBrief(ctx, brief, sections, chunks); err != nil {
		if brief.StoragePath != nil {
			if delErr := s.storage.Delete(ctx, *brief.StoragePath); delErr != nil {
				log.Printf("Warning: failed to clean up stored document %s: %v", *brief.StoragePath, delErr)
			}
		}
		return nil, fmt.Errorf("failed to index brief: %w", err)
	}

	return brief, nil
}

func hasContent(sections []SectionInput) bool {
	for _, s := range sections {
		if strings.TrimSpace(s.Content) != "" {
			return true
		}
	}
	return false
}

// GetBrief returns the brief with its sections and chunk count.
func (s *BriefService) GetBrief(ctx context.Context, id uuid.UUID) (*models.Brief, []models.Section, int, error) {
	brief, err := s.store.GetBrief(ctx, id)
	if err != nil {
		return nil, nil, 0, err
	}
	sections, err := s.store.SectionsByBrief(ctx, id)
	if err != nil {
		return nil, nil, 0, err
	}
	chunks, err := s.store.ChunksByBrief(ctx, id)
	if err != nil {
		return nil, nil, 0, err
	}
	return brief, sections, len(chunks), nil
}

// ListBriefs returns all indexed briefs, most recent first.
func (s *BriefService) ListBriefs(ctx context.Context) ([]*models.Brief, error) {
	return s.store.ListBriefs(ctx)
}

// DeleteBrief removes the brief, everything it owns in the passage store,
// and its retained document. Drafts already created keep their generated
// text but the chunks behind them are gone.
func (s *BriefService) DeleteBrief(ctx context.Context, id uuid.UUID) error {
	brief, err := s.store.GetBrief(ctx, id)
	if err != nil {
		return err
	}

	if err := s.store.RemoveBrief(ctx, id); err != nil {
		return err
	}

	if s.storage != nil && brief.StoragePath != nil {
		if err := s.storage.Delete(ctx, *brief.StoragePath); err != nil {
			log.Printf("Warning: failed to delete stored document %s: %v", *brief.StoragePath, err)
		}
	}
	return nil
}

// SearchRequest is a relevance query over the brief bank.
type SearchRequest struct {
	Query        string                   `json:"query"`
	Jurisdiction string                   `json:"jurisdiction"`
	Posture      models.ProceduralPosture `json:"procedural_posture"`
	PreferRecent bool                     `json:"prefer_recent"`
	Limit        int                      `json:"limit"`
}

// SearchResult is one ranked passage with enough context to evaluate it.
type SearchResult struct {
	ChunkID        uuid.UUID           `json:"chunk_id"`
	BriefID        uuid.UUID           `json:"brief_id"`
	BriefTitle     string              `json:"brief_title"`
	Heading        string              `json:"heading,omitempty"`
	ContentPreview string              `json:"content_preview"`
	Citations      models.CitationList `json:"citations"`
	Score          float64             `json:"score"`
	Reasons        []string            `json:"reasons"`
}

// Search ranks every chunk in the bank against the request.
func (s *BriefService) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	chunks, err := s.store.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	ranked, err := s.ranker.Rank(ctx, rank.QueryProfile{
		Text:         req.Query,
		Jurisdiction: req.Jurisdiction,
		Posture:      req.Posture,
		PreferRecent: req.PreferRecent,
	}, chunks, limit)
	if err != nil {
		return nil, err
	}

	titles := make(map[uuid.UUID]string)
	results := make([]SearchResult, 0, len(ranked))
	for _, res := range ranked {
		title, ok := titles[res.Chunk.BriefID]
		if !ok {
			if brief, err := s.store.GetBrief(ctx, res.Chunk.BriefID); err == nil {
				title = brief.Title
			}
			titles[res.Chunk.BriefID] = title
		}
		reasons := res.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		results = append(results, SearchResult{
			ChunkID:        res.Chunk.ID,
			BriefID:        res.Chunk.BriefID,
			BriefTitle:     title,
			Heading:        res.Chunk.Heading,
			ContentPreview: res.Chunk.ContentPreview(searchPreviewLength),
			Citations:      res.Chunk.Citations,
			Score:          res.Score,
			Reasons:        reasons,
		})
	}
	return results, nil
}
