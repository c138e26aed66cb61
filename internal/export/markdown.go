package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/iksnae/completeness-tracker/internal"
)

// MarkdownExporter exports sessions as a readable client profile
type MarkdownExporter struct{}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(doc *Document, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Session %s\n\n", doc.Session.ID)
	if doc.Session.Description != "" {
		fmt.Fprintf(&b, "**Description:** %s  \n", escapeMarkdown(doc.Session.Description))
	}
	if !doc.Session.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "**Created:** %s  \n", doc.Session.CreatedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&b, "**Facts:** %d  \n", len(doc.Facts))
	fmt.Fprintf(&b, "**Snapshots:** %d\n\n", len(doc.Snapshots))

	b.WriteString("---\n\n## Coverage\n\n")
	if len(doc.Coverage) == 0 {
		b.WriteString("_No completeness snapshots recorded._\n\n")
	} else {
		b.WriteString("| Topic | Level | Score | Trend |\n|---|---|---|---|\n")
		for _, row := range doc.Coverage {
			score := ""
			if row.Score != nil {
				score = fmt.Sprintf("%d", *row.Score)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", row.Topic, row.Level, score, row.Trend)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Profile\n\n")
	groups := internal.GroupProfile(doc.Facts)
	if len(groups) == 0 {
		b.WriteString("_No information recorded._\n")
	}
	for _, group := range groups {
		fmt.Fprintf(&b, "### %s\n\n", group.Topic)
		for _, sub := range group.Subtopics {
			fmt.Fprintf(&b, "**%s**\n\n", escapeMarkdown(sub.Subtopic))
			for _, fact := range sub.Facts {
				fmt.Fprintf(&b, "- %s: %s\n", internal.FormatLabel(fact.FactType), escapeMarkdown(fact.Value))
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// escapeMarkdown escapes markdown emphasis outside code blocks
func escapeMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			line = strings.ReplaceAll(line, "|", "\\|")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
