package tui

import (
	"fmt"
	"strings"

	"github.com/harrisonrobin/raigen/pkg/model"
)

const (
	noPlanText   = `Tap "Generate Today's Plan".`
	noBlocksText = "No blocks yet."
	noEventsText = "No events. Connect Google and Sync."
)

// RenderPlan renders the plan slot. ok is false when no plan has been loaded.
func RenderPlan(plan model.Plan, ok bool) string {
	if !ok {
		return noPlanText
	}
	var b strings.Builder
	b.WriteString(plan.Date)
	if plan.PlanType == "replan" {
		fmt.Fprintf(&b, " (replan %d)", plan.ReplanCount)
	}
	b.WriteString("\n")
	if len(plan.Blocks) == 0 {
		b.WriteString(noBlocksText)
	}
	for i, blk := range plan.Blocks {
		if i > 0 {
			b.WriteString("\n")
		}
		mark := "•"
		if blk.Completed {
			mark = "✓"
		}
		fmt.Fprintf(&b, "%s %s — %s → %s", mark, blk.Title, blk.Start, blk.End)
	}
	if plan.Rationale != "" {
		b.WriteString("\n\n")
		b.WriteString(plan.Rationale)
	}
	return b.String()
}

// RenderAgenda renders the agenda slot. An empty agenda is not an error.
func RenderAgenda(events []model.AgendaEvent) string {
	if len(events) == 0 {
		return noEventsText
	}
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("• %s — %s → %s", e.Title(), e.Start, e.End))
	}
	return strings.Join(lines, "\n")
}
