package runtime

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/warriorguo/stageflow/types"
)

func renderTrace(plan *executionPlan, ex *execution, width int) string {
	if plan == nil {
		return "no pipeline constructed\n"
	}

	sb := &strings.Builder{}
	fmt.Fprintf(sb, "pipeline at %s, %d stage executions planned\n", plan.entry, len(plan.leaves))

	annotate := func(*leafNode) string { return "" }
	if ex != nil {
		ex.mu.Lock()
		status, start, end, output, err := ex.status, ex.startTime, ex.endTime, ex.output, ex.err
		ex.mu.Unlock()

		fmt.Fprintf(sb, "execution %s %v", ex.id, status)
		if !end.IsZero() {
			fmt.Fprintf(sb, " in %v", end.Sub(start))
		}
		sb.WriteString("\n")
		switch {
		case err != nil:
			fmt.Fprintf(sb, "error: %v\n", err)
		case status == executionSucceeded:
			fmt.Fprintf(sb, "output: %s\n", renderValue(output, width))
		}

		annotate = func(leaf *leafNode) string {
			record, exists := ex.record(leaf.id)
			if !exists {
				return " [not run]"
			}
			line := fmt.Sprintf(" [%v in %v]", record.Status, record.Elapsed())
			switch record.Status {
			case types.StageSucceeded:
				line += " => " + renderValue(record.Output, width)
			case types.StageRecovered:
				line += " recovered by " + record.RecoveredBy + ": " + truncate(record.Error, width)
			case types.StageFailedOut:
				line += ": " + truncate(record.Error, width)
			}
			return line
		}
	}

	sb.WriteString("plan:\n")
	plan.root.describe(sb, 1, annotate)
	return sb.String()
}

// renderValue prints a stage output, preferring cast's string conversion.
func renderValue(v any, width int) string {
	if v == nil {
		return "<nil>"
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		s = fmt.Sprintf("%+v", v)
	}
	return truncate(s, width)
}

func truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	if width <= 0 || len(s) <= width {
		return s
	}
	return s[:width] + "..."
}

func (n *leafNode) describe(sb *strings.Builder, depth int, annotate func(*leafNode) string) {
	fmt.Fprintf(sb, "%sstage %s #%d%s\n", indent(depth), n.stage.Name(), n.id, annotate(n))
}

func (n *seqNode) describe(sb *strings.Builder, depth int, annotate func(*leafNode) string) {
	fmt.Fprintf(sb, "%sthen\n", indent(depth))
	n.prev.describe(sb, depth+1, annotate)
	n.next.describe(sb, depth+1, annotate)
}

func (n *parNode) describe(sb *strings.Builder, depth int, annotate func(*leafNode) string) {
	fmt.Fprintf(sb, "%sfan out, keep branch %d\n", indent(depth), n.primary)
	n.prev.describe(sb, depth+1, annotate)
	for _, branch := range n.branches {
		branch.describe(sb, depth+1, annotate)
	}
}

func (n *recoverNode) describe(sb *strings.Builder, depth int, annotate func(*leafNode) string) {
	fmt.Fprintf(sb, "%srecover\n", indent(depth))
	n.main.describe(sb, depth+1, annotate)
	n.alt.describe(sb, depth+1, annotate)
}
