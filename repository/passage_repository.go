// Package repository implements the passage store on Postgres with the
// pgvector extension. Chunk embeddings live in a vector(768) column; all
// other chunk metadata is denormalized so searches never join.
package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/willimj3/brief-bank-tool/models"
	"github.com/willimj3/brief-bank-tool/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PassageRepository handles database operations for briefs and their chunks
type PassageRepository struct {
	db *pgxpool.Pool
}

// NewPassageRepository creates a new passage repository
func NewPassageRepository(db *pgxpool.Pool) *PassageRepository {
	return &PassageRepository{db: db}
}

// formatVector formats an embedding vector as a string for pgx
func formatVector(embedding []float64) string {
	if len(embedding) == 0 {
		return "[]"
	}
	var parts []string
	for _, v := range embedding {
		parts = append(parts, fmt.Sprintf("%.6f", v))
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector parses the text form of a pgvector value back into a slice.
func parseVector(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vec := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid vector component %q: %w", p, err)
		}
		vec = append(vec, v)
	}
	return vec, nil
}

// AddBrief inserts the brief, its sections and its chunks in a single
// transaction. A concurrent search sees either the whole brief or nothing.
func (r *PassageRepository) AddBrief(ctx context.Context, brief *models.Brief, sections []models.Section, chunks []models.Chunk) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	briefQuery := `
		INSERT INTO briefs (
			id, title, filename, storage_path, court, jurisdiction,
			procedural_posture, case_name, case_number, legal_issues,
			outcome, ingested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(
		ctx, briefQuery,
		brief.ID,
		brief.Title,
		brief.Filename,
		brief.StoragePath,
		brief.Court,
		brief.Jurisdiction,
		brief.Posture,
		brief.CaseName,
		brief.CaseNumber,
		brief.LegalIssues,
		brief.Outcome,
		brief.IngestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert brief: %w", err)
	}

	sectionQuery := `
		INSERT INTO brief_sections (
			id, brief_id, section_type, title, content, section_order, citations
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, section := range sections {
		_, err = tx.Exec(
			ctx, sectionQuery,
			section.ID,
			section.BriefID,
			section.Type,
			section.Title,
			section.Content,
			section.Order,
			section.Citations,
		)
		if err != nil {
			return fmt.Errorf("failed to insert section: %w", err)
		}
	}

	chunkQuery := `
		INSERT INTO brief_chunks (
			id, brief_id, section_type, heading, content, citations,
			jurisdiction, procedural_posture, embedding, ingested_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector, $10)`

	for _, chunk := range chunks {
		_, err = tx.Exec(
			ctx, chunkQuery,
			chunk.ID,
			chunk.BriefID,
			chunk.Type,
			chunk.Heading,
			chunk.Content,
			chunk.Citations,
			chunk.Jurisdiction,
			chunk.Posture,
			formatVector(chunk.Embedding),
			chunk.IngestedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit brief: %w", err)
	}
	return nil
}

// RemoveBrief deletes the brief; sections and chunks go with it via
// ON DELETE CASCADE.
func (r *PassageRepository) RemoveBrief(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM briefs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete brief: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrBriefNotFound
	}
	return nil
}

// GetBrief retrieves a brief by ID
func (r *PassageRepository) GetBrief(ctx context.Context, id uuid.UUID) (*models.Brief, error) {
	brief := &models.Brief{}
	query := `
		SELECT id, title, filename, storage_path, court, jurisdiction,
			procedural_posture, case_name, case_number, legal_issues,
			outcome, ingested_at
		FROM briefs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&brief.ID,
		&brief.Title,
		&brief.Filename,
		&brief.StoragePath,
		&brief.Court,
		&brief.Jurisdiction,
		&brief.Posture,
		&brief.CaseName,
		&brief.CaseNumber,
		&brief.LegalIssues,
		&brief.Outcome,
		&brief.IngestedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, store.ErrBriefNotFound
		}
		return nil, fmt.Errorf("failed to get brief: %w", err)
	}
	return brief, nil
}

// ListBriefs returns all briefs, most recently ingested first.
func (r *PassageRepository) ListBriefs(ctx context.Context) ([]*models.Brief, error) {
	query := `
		SELECT id, title, filename, storage_path, court, jurisdiction,
			procedural_posture, case_name, case_number, legal_issues,
			outcome, ingested_at
		FROM briefs
		ORDER BY ingested_at DESC, id ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefs: %w", err)
	}
	defer rows.Close()

	var briefs []*models.Brief
	for rows.Next() {
		brief := &models.Brief{}
		err := rows.Scan(
			&brief.ID,
			&brief.Title,
			&brief.Filename,
			&brief.StoragePath,
			&brief.Court,
			&brief.Jurisdiction,
			&brief.Posture,
			&brief.CaseName,
			&brief.CaseNumber,
			&brief.LegalIssues,
			&brief.Outcome,
			&brief.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan brief: %w", err)
		}
		briefs = append(briefs, brief)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating briefs: %w", err)
	}
	return briefs, nil
}

const chunkColumns = `
	id, brief_id, section_type, heading, content, citations,
	jurisdiction, procedural_posture, embedding::text, ingested_at`

func scanChunk(rows pgx.Rows) (models.Chunk, error) {
	var chunk models.Chunk
	var embeddingText string
	err := rows.Scan(
		&chunk.ID,
		&chunk.BriefID,
		&chunk.Type,
		&chunk.Heading,
		&chunk.Content,
		&chunk.Citations,
		&chunk.Jurisdiction,
		&chunk.Posture,
		&embeddingText,
		&chunk.IngestedAt,
	)
	if err != nil {
		return chunk, fmt.Errorf("failed to scan chunk: %w", err)
	}
	chunk.Embedding, err = parseVector(embeddingText)
	if err != nil {
		return chunk, err
	}
	return chunk, nil
}

// AllChunks returns every chunk in the store in a deterministic order.
func (r *PassageRepository) AllChunks(ctx context.Context) ([]models.Chunk, error) {
	query := fmt.Sprintf(`SELECT %s FROM brief_chunks ORDER BY id ASC`, chunkColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}
	return chunks, nil
}

// GetChunk retrieves one chunk by ID.
func (r *PassageRepository) GetChunk(ctx context.Context, id uuid.UUID) (*models.Chunk, error) {
	query := fmt.Sprintf(`SELECT %s FROM brief_chunks WHERE id = $1`, chunkColumns)

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to query chunk: %w", err)
		}
		return nil, store.ErrChunkNotFound
	}
	chunk, err := scanChunk(rows)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

// ChunksByBrief returns the chunks owned by a brief.
func (r *PassageRepository) ChunksByBrief(ctx context.Context, briefID uuid.UUID) ([]models.Chunk, error) {
	if _, err := r.GetBrief(ctx, briefID); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM brief_chunks WHERE brief_id = $1 ORDER BY id ASC`, chunkColumns)

	rows, err := r.db.Query(ctx, query, briefID)
	if err != nil {
		return nil, fmt.Errorf("failed to query brief chunks: %w", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating brief chunks: %w", err)
	}
	return chunks, nil
}

// SectionsByBrief returns the brief's structural sections in document order.
func (r *PassageRepository) SectionsByBrief(ctx context.Context, briefID uuid.UUID) ([]models.Section, error) {
	if _, err := r.GetBrief(ctx, briefID); err != nil {
		return nil, err
	}

	query := `
		SELECT id, brief_id, section_type, title, content, section_order, citations
		FROM brief_sections
		WHERE brief_id = $1
		ORDER BY section_order ASC`

	rows, err := r.db.Query(ctx, query, briefID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sections: %w", err)
	}
	defer rows.Close()

	var sections []models.Section
	for rows.Next() {
		var section models.Section
		err := rows.Scan(
			&section.ID,
			&section.BriefID,
			&section.Type,
			&section.Title,
			&section.Content,
			&section.Order,
			&section.Citations,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan section: %w", err)
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sections: %w", err)
	}
	return sections, nil
}
