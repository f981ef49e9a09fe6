// Package exporter assembles a fully generated draft into a single filing-
// shaped plain-text document: caption block, sections in outline order, and
// a signature block with placeholders for counsel to fill in.
package exporter

import (
	"fmt"
	"strings"

	"github.com/willimj3/brief-bank-tool/models"
)

// SectionContent is one generated section in outline order.
type SectionContent struct {
	Heading string
	Body    string
}

// postureLabels maps procedural postures to their filing titles.
var postureLabels = map[models.ProceduralPosture]string{
	models.PostureMotionToDismiss:       "MOTION TO DISMISS",
	models.PostureSummaryJudgment:       "MOTION FOR SUMMARY JUDGMENT",
	models.PosturePreliminaryInjunction: "MOTION FOR PRELIMINARY INJUNCTION",
	models.PostureMotionToCompel:        "MOTION TO COMPEL",
	models.PostureMotionInLimine:        "MOTION IN LIMINE",
	models.PostureOpposition:            "OPPOSITION",
	models.PostureReply:                 "REPLY",
	models.PostureAppealBrief:           "APPELLANT'S BRIEF",
}

// Assemble renders the export document. It is a pure function of its inputs:
// exporting never mutates the draft.
func Assemble(matter models.Matter, sections []SectionContent) string {
	var b strings.Builder

	writeCaption(&b, matter)

	for _, section := range sections {
		b.WriteString(section.Heading)
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(section.Body))
		b.WriteString("\n\n")
	}

	writeSignatureBlock(&b)

	return b.String()
}

func writeCaption(b *strings.Builder, matter models.Matter) {
	court := strings.ToUpper(strings.TrimSpace(matter.Court))
	if court == "" {
		court = "[COURT]"
	}
	caseName := strings.TrimSpace(matter.CaseName)
	if caseName == "" {
		caseName = "[CASE NAME]"
	}

	fmt.Fprintf(b, "%s\n\n", court)
	fmt.Fprintf(b, "%s\n\n", caseName)
	fmt.Fprintf(b, "Case No. [CASE NUMBER]\n\n")

	title := postureLabels[matter.Posture]
	if title == "" {
		title = strings.ToUpper(strings.ReplaceAll(string(matter.Posture), "_", " "))
	}
	if title != "" {
		fmt.Fprintf(b, "%s\n\n", title)
	}

	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")
}

func writeSignatureBlock(b *strings.Builder) {
	b.WriteString(strings.Repeat("=", 60))
	b.WriteString("\n\n")
	b.WriteString("Respectfully submitted,\n\n")
	b.WriteString("DATED: [DATE]\n\n")
	b.WriteString("_______________________\n")
	b.WriteString("[ATTORNEY NAME]\n")
	b.WriteString("[BAR NUMBER]\n")
	b.WriteString("Attorney for [PARTY]\n")
}

// Filename derives the export filename from the matter.
func Filename(matter models.Matter) string {
	name := strings.TrimSpace(matter.CaseName)
	if name == "" {
		name = "draft"
	}
	name = strings.ToLower(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	name = strings.Trim(name, "_")
	if name == "" {
		name = "draft"
	}
	return name + "_draft.txt"
}
