package enrich

import (
	"fmt"
	"sort"
	"strings"

	"stitchflow.app/conductor/internal/model"
)

const questionSystemPrompt = `You help operations managers finish setting up automation playbooks.
A playbook was drafted from their instruction but some information is missing or ambiguous.
Write short, concrete clarifying questions a shop-floor manager can answer without technical context.

Respond with ONLY a JSON array. Each item:
{"question": string, "type": "free_text"|"choice", "playIndex": number|null, "playTitle": string, "playId": string, "field": string, "options": [string]|null, "required": bool, "priority": number}

Rules:
- One question per gap, highest severity first. priority 1 is most urgent.
- field must be copied verbatim from the gap it addresses.
- Ask about the missing information, never about ids; the user knows names, not identifiers.`

var severityRank = map[model.GapSeverity]int{
	model.GapSeverityCritical: 0,
	model.GapSeverityHigh:     1,
	model.GapSeverityMedium:   2,
	model.GapSeverityLow:      3,
}

// buildQuestionPrompt enumerates the gaps highest severity first, with the
// original instruction and a playbook summary for context.
func buildQuestionPrompt(instruction string, pb *model.Playbook, gaps []model.Gap) string {
	sorted := append([]model.Gap(nil), gaps...)
	sort.SliceStable(sorted, func(a, b int) bool {
		return severityRank[sorted[a].Severity] < severityRank[sorted[b].Severity]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "Original instruction:\n%s\n\n", instruction)
	fmt.Fprintf(&b, "Playbook: %q (%d plays)\n", pb.Name, len(pb.Plays))
	for i := range pb.Plays {
		play := &pb.Plays[i]
		fmt.Fprintf(&b, "  %d. %s (trigger: %s)\n", play.Sequence, play.Title, play.Trigger.TriggerType())
	}

	b.WriteString("\nGaps to resolve:\n")
	for _, g := range sorted {
		fmt.Fprintf(&b, "- [%s] %s", g.Severity, g.Message)
		if g.PlayTitle != "" {
			fmt.Fprintf(&b, " (play: %q", g.PlayTitle)
			if g.PlayIndex != nil {
				fmt.Fprintf(&b, ", index %d", *g.PlayIndex)
			}
			b.WriteString(")")
		}
		if g.Field != "" {
			fmt.Fprintf(&b, " [field: %s]", g.Field)
		}
		if g.Suggestion != "" {
			fmt.Fprintf(&b, " | suggested question: %s", g.Suggestion)
		}
		b.WriteString("\n")
	}

	return b.String()
}
