package query

import (
	"fmt"
	"strings"

	"github.com/poiesic/newsdesk/core"
)

const (
	contextHeader   = "Please use this information to answer the question:\n"
	entrySeparator  = "-----------------\n"
	citationRequest = "\nInclude citations to the relevant information where it is referenced in the response.\n\n"
)

// buildPrompt renders the retrieved records and the question. Records are
// added in rank order while the prompt stays within the token budget.
func (s *Service) buildPrompt(result *Result) string {
	footer := citationRequest + "Question: " + result.Query

	entries := make([]string, 0, len(result.Matches)+len(result.Facts))
	for _, m := range result.Matches {
		entries = append(entries, renderEntry(m.Record.Text, m.Record.Description, m.Record.Link))
	}
	for _, f := range result.Facts {
		entries = append(entries, renderEntry(f.Record.Text, f.Record.Kind.String(), ""))
	}

	var b strings.Builder
	b.WriteString(contextHeader)
	used := 0
	if s.budgeted() {
		used = s.countTokens(contextHeader) + s.countTokens(footer)
	}
	for i, entry := range entries {
		if s.budgeted() {
			cost := s.countTokens(entry)
			if used+cost > s.tokenBudget {
				s.logger.Debug("prompt token budget reached", "kept", i, "dropped", len(entries)-i)
				break
			}
			used += cost
		}
		b.WriteString(entry)
	}
	b.WriteString(footer)
	return b.String()
}

func (s *Service) budgeted() bool {
	return s.tokenBudget > 0 && s.countTokens != nil
}

func renderEntry(name, value, link string) string {
	return fmt.Sprintf("Name: %s\nValue: %s\nLink: %s\n%s", name, value, link, entrySeparator)
}

// FormatMatch renders a news result for the console.
func FormatMatch(r *core.SearchResult) string {
	return fmt.Sprintf("%s\n[%s]\n(score %.2f)\n", r.Record.Text, r.Record.Link, r.Score)
}

// FormatFact renders a user-data result for the console.
func FormatFact(r *core.SearchResult) string {
	return fmt.Sprintf("%s\n[%s]\n(score %.2f)\n", r.Record.Text, r.Record.Kind, r.Score)
}
