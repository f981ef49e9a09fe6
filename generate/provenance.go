package generate

import (
	"regexp"
	"strings"

	"github.com/willimj3/brief-bank-tool/models"
)

// NeedsCitationMarker replaces any citation the drafting service produced
// that cannot be traced back to an assigned source chunk.
const NeedsCitationMarker = "[CITATION NEEDED]"

// citationPattern matches citation-shaped tokens in generated text, both
// full form ("Smith v. Jones, 123 F.3d 456 (9th Cir. 2020)") and short form
// ("Iqbal, 556 U.S. 662"). It is deliberately loose: anything that looks
// like a citation gets provenance-checked.
var citationPattern = regexp.MustCompile(
	`(?:` + partyName + `\s+v\.\s+` + partyName + `|[A-Z][A-Za-z.&',-]*),\s+` +
		`\d+\s+[A-Z][A-Za-z0-9.]*(?:\s+[0-9]*[A-Za-z.][A-Za-z0-9.]*){0,3}\s+\d+` +
		`(?:\s+\([^)]*\d{4}\))?`)

// partyName is a capitalized word followed by further capitalized words or
// the short connectors case names use. Restricting the connectors keeps the
// match from swallowing ordinary prose ahead of the citation.
const partyName = `[A-Z][A-Za-z.&',-]*(?:\s+(?:[A-Z][A-Za-z.&',-]*|of|the|for|and|de|la|ex|rel\.?|et|al\.?|&))*?`

// factPlaceholderPattern matches markers the drafting service emits where a
// case-specific fact is needed. They stay verbatim in the text.
var factPlaceholderPattern = regexp.MustCompile(`\[FACT PLACEHOLDER:[^\]]*\]`)

// extractCitationTokens returns every citation-shaped token in the text, in
// order, without duplicates.
func extractCitationTokens(text string) []string {
	matches := citationPattern.FindAllString(text, -1)
	seen := make(map[string]bool)
	var tokens []string
	for _, m := range matches {
		key := models.NormalizeCitation(m)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		tokens = append(tokens, strings.TrimSpace(m))
	}
	return tokens
}

// extractFactPlaceholders returns the fact placeholder markers present in
// the text, in order.
func extractFactPlaceholders(text string) []string {
	return factPlaceholderPattern.FindAllString(text, -1)
}

// citationAllowed reports whether a generated citation token is backed by
// the allowed set. Containment runs both directions so a short-form token
// matches its full-form source and vice versa.
func citationAllowed(token string, allowed []string) bool {
	normToken := strings.ToLower(models.NormalizeCitation(token))
	if normToken == "" {
		return false
	}
	for _, a := range allowed {
		normAllowed := strings.ToLower(models.NormalizeCitation(a))
		if normAllowed == "" {
			continue
		}
		if strings.Contains(normAllowed, normToken) || strings.Contains(normToken, normAllowed) {
			return true
		}
	}
	return false
}

// checkProvenance splits the citation tokens of the text into chunk-backed
// and unverified.
func checkProvenance(text string, allowed []string) (used, violations []string) {
	for _, token := range extractCitationTokens(text) {
		if citationAllowed(token, allowed) {
			used = append(used, token)
		} else {
			violations = append(violations, token)
		}
	}
	return used, violations
}

// stripUnverifiedCitations replaces each violating citation token with the
// needs-citation marker. Chunk-backed citations survive untouched.
func stripUnverifiedCitations(text string, violations []string) string {
	for _, v := range violations {
		text = strings.ReplaceAll(text, v, NeedsCitationMarker)
	}
	return text
}
