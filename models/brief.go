package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProceduralPosture represents the procedural stage of litigation a brief
// was filed at.
type ProceduralPosture string

const (
	PostureMotionToDismiss       ProceduralPosture = "motion_to_dismiss"
	PostureSummaryJudgment       ProceduralPosture = "summary_judgment"
	PosturePreliminaryInjunction ProceduralPosture = "preliminary_injunction"
	PostureMotionToCompel        ProceduralPosture = "motion_to_compel"
	PostureMotionInLimine        ProceduralPosture = "motion_in_limine"
	PostureOpposition            ProceduralPosture = "opposition"
	PostureReply                 ProceduralPosture = "reply"
	PostureAppealBrief           ProceduralPosture = "appeal_brief"
	PostureOther                 ProceduralPosture = "other"
)

// SectionType classifies a structural region of a brief.
type SectionType string

const (
	SectionCaption           SectionType = "caption"
	SectionIntroduction      SectionType = "introduction"
	SectionStatementOfFacts  SectionType = "statement_of_facts"
	SectionProceduralHistory SectionType = "procedural_history"
	SectionLegalStandard     SectionType = "legal_standard"
	SectionArgument          SectionType = "argument"
	SectionConclusion        SectionType = "conclusion"
	SectionOther             SectionType = "other"
)

// Citation is a legal citation reported by the document parser as a fact
// about a section's text. The system never derives citations itself.
type Citation struct {
	FullText string `json:"full_text"`
	Locator  string `json:"locator,omitempty"` // volume/reporter/page if the parser extracted one
}

// CitationList is a list of citations stored as JSONB
type CitationList []Citation

// Value implements driver.Valuer for JSONB
func (c CitationList) Value() (driver.Value, error) {
	if c == nil {
		c = CitationList{}
	}
	return json.Marshal(c)
}

// Scan implements sql.Scanner for JSONB
func (c *CitationList) Scan(value interface{}) error {
	if value == nil {
		*c = make(CitationList, 0)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*c = make(CitationList, 0)
		return nil
	}

	if len(bytes) == 0 {
		*c = make(CitationList, 0)
		return nil
	}

	return json.Unmarshal(bytes, c)
}

// Section is a labeled region of a brief's original text, in document order.
type Section struct {
	ID        uuid.UUID    `json:"id"`
	BriefID   uuid.UUID    `json:"brief_id"`
	Type      SectionType  `json:"type"`
	Title     string       `json:"title,omitempty"`
	Content   string       `json:"content"`
	Order     int          `json:"order"`
	Citations CitationList `json:"citations"`
}

// Brief represents one ingested source document. Immutable once ingested
// except for deletion; its sections and chunks are deleted with it.
type Brief struct {
	ID           uuid.UUID         `json:"id"`
	Title        string            `json:"title"`
	Filename     string            `json:"filename"`
	StoragePath  *string           `json:"storage_path,omitempty"`
	Court        string            `json:"court"`
	Jurisdiction string            `json:"jurisdiction"`
	Posture      ProceduralPosture `json:"procedural_posture"`
	CaseName     string            `json:"case_name"`
	CaseNumber   string            `json:"case_number"`
	LegalIssues  []string          `json:"legal_issues"`
	Outcome      string            `json:"outcome,omitempty"`
	IngestedAt   time.Time         `json:"ingested_at"`
}

// DeriveTitle picks a display title for a brief, preferring case name,
// then case number, then the bare filename.
func DeriveTitle(caseName, caseNumber, filename string) string {
	if caseName != "" {
		return caseName
	}
	if caseNumber != "" {
		return "Case No. " + caseNumber
	}
	return filename
}
