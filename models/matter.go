package models

// Matter describes the new case a draft is being produced for. It is
// immutable once a draft has been created from it.
type Matter struct {
	CaseName       string            `json:"case_name"`
	Court          string            `json:"court"`
	Jurisdiction   string            `json:"jurisdiction"`
	Posture        ProceduralPosture `json:"procedural_posture"`
	LegalIssues    []string          `json:"legal_issues"`
	FactSummary    string            `json:"fact_summary"`
	DesiredOutcome string            `json:"desired_outcome"`
}

// DistinctIssues returns the matter's legal issues in input order with
// duplicates and blanks removed.
func (m *Matter) DistinctIssues() []string {
	seen := make(map[string]bool)
	var issues []string
	for _, issue := range m.LegalIssues {
		key := NormalizeCitation(issue)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		issues = append(issues, issue)
	}
	return issues
}
