package models

import (
	"time"

	"github.com/google/uuid"
)

// DraftStatus represents the lifecycle state of a draft
type DraftStatus string

const (
	DraftCreated            DraftStatus = "created"
	DraftPartiallyGenerated DraftStatus = "partially_generated"
	DraftFullyGenerated     DraftStatus = "fully_generated"
	DraftExported           DraftStatus = "exported"
)

// OutlineSection is one planned section of a new draft. Scores influence
// only which chunks get assigned; section presence and position follow the
// fixed structural skeleton.
type OutlineSection struct {
	ID             uuid.UUID   `json:"id"`
	Heading        string      `json:"heading"`
	Description    string      `json:"description"`
	Order          int         `json:"order"`
	SourceChunkIDs []uuid.UUID `json:"source_chunks"`
	Generated      bool        `json:"generated"`
}

// SourceRef identifies one chunk that was handed to the drafting service
// for a section, whether or not it was ultimately quoted.
type SourceRef struct {
	ChunkID        uuid.UUID `json:"chunk_id"`
	Heading        string    `json:"heading,omitempty"`
	BriefTitle     string    `json:"source_brief,omitempty"`
	ContentPreview string    `json:"content_preview"`
}

// Adaptation records one source phrase the generator measurably rephrased
// instead of quoting verbatim.
type Adaptation struct {
	Original string `json:"original"`
	Adapted  string `json:"adapted"`
}

// GeneratedSection is the generated content for one outline section.
// Regeneration replaces it wholesale; a failed generation leaves the prior
// value untouched. Absent lists are empty slices, never nil, at the API
// boundary.
type GeneratedSection struct {
	SectionID       uuid.UUID    `json:"section_id"`
	Heading         string       `json:"heading"`
	Content         string       `json:"content"`
	CitationsUsed   []string     `json:"citations_used"`
	CitationsNeeded []string     `json:"citations_needed"`
	Warnings        []string     `json:"warnings"`
	Sources         []SourceRef  `json:"sources"`
	Adaptations     []Adaptation `json:"adaptations"`
}

// Draft aggregates a matter, its outline, and the sections generated so
// far. It owns its outline and generated sections; it never mutates the
// passage store.
type Draft struct {
	ID        uuid.UUID                       `json:"id"`
	Matter    Matter                          `json:"matter"`
	Outline   []OutlineSection                `json:"outline"`
	Sections  map[uuid.UUID]*GeneratedSection `json:"-"`
	Status    DraftStatus                     `json:"status"`
	CreatedAt time.Time                       `json:"created_at"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// OutlineSectionByID returns a pointer into the outline slice, or nil.
func (d *Draft) OutlineSectionByID(id uuid.UUID) *OutlineSection {
	for i := range d.Outline {
		if d.Outline[i].ID == id {
			return &d.Outline[i]
		}
	}
	return nil
}

// MissingSections lists the headings of outline sections that have no
// generated content yet, in outline order.
func (d *Draft) MissingSections() []string {
	var missing []string
	for _, os := range d.Outline {
		if _, ok := d.Sections[os.ID]; !ok {
			missing = append(missing, os.Heading)
		}
	}
	return missing
}

// RecomputeStatus derives the draft status from generation progress. An
// exported draft re-enters partially/fully generated when a section is
// regenerated; export state itself is set only by a successful export.
func (d *Draft) RecomputeStatus() {
	if len(d.Sections) == 0 {
		d.Status = DraftCreated
		return
	}
	if len(d.MissingSections()) > 0 {
		d.Status = DraftPartiallyGenerated
		return
	}
	d.Status = DraftFullyGenerated
}
