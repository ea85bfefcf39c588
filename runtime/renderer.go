package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warriorguo/stageflow/types"
)

func (g *stageGraph) RenderDOT() string {
	return renderDOT(g, nil)
}

func renderDOT(graph types.StageGraph, records []types.StageRecord) string {
	renderer := newGraphRenderer()
	return renderer.generateDOT(graph, records)
}

func newGraphRenderer() *graphRenderer {
	return &graphRenderer{nil, &strings.Builder{}}
}

type graphRenderer struct {
	records map[string]*types.StageRecord
	sb      *strings.Builder
}

// setRecords keeps one record per stage, the most severe one when a stage ran on several plan paths.
func (d *graphRenderer) setRecords(records []types.StageRecord) {
	d.records = make(map[string]*types.StageRecord, len(records))
	for i := range records {
		record := &records[i]
		prev, exists := d.records[record.Stage]
		if !exists || severity(record.Status) >= severity(prev.Status) {
			d.records[record.Stage] = record
		}
	}
}

func severity(status types.StageStatus) int {
	switch status {
	case types.StageFailedOut:
		return 3
	case types.StageRecovered:
		return 2
	case types.StageSucceeded:
		return 1
	}
	return 0
}

func (d *graphRenderer) generateDOT(graph types.StageGraph, records []types.StageRecord) string {
	d.setRecords(records)

	d.write("digraph D {")
	for _, stage := range graph.Stages() {
		d.drawStage(stage)
	}
	for _, route := range graph.Routes() {
		d.drawRoute(route)
	}
	d.write("}")
	return d.sb.String()
}

func packToComment(r *types.StageRecord) string {
	s, _ := json.Marshal(r)
	return formatNL(addSlashes(string(s)))
}

func (d *graphRenderer) calcAttr(name string) string {
	record, exists := d.records[name]
	if !exists {
		return ""
	}

	color := ""
	switch record.Status {
	case types.StageSucceeded:
		color = "green"
	case types.StageFailedOut:
		color = "red"
	case types.StageRecovered:
		color = "orange"
	default:
		color = "white"
	}
	return fmt.Sprintf(" style=\"filled\" color=\"%s\" comment=\"%s\"", color, packToComment(record))
}

func (d *graphRenderer) drawStage(stage types.Stage) {
	name := stage.Name()
	label := fmt.Sprintf("{%s|in: %s|out: %s}", escapeRecord(name),
		escapeRecord(fmt.Sprint(stage.InputType())), escapeRecord(fmt.Sprint(stage.OutputType())))
	d.write("%s [label=%s shape=\"record\"%s]", idString(name), quoteString(label), d.calcAttr(name))
}

func (d *graphRenderer) drawRoute(route types.Route) {
	attr := ""
	if route.Outcome == types.RecoverableFailure {
		attr = " style=\"dashed\""
	}
	d.write("%s -> %s [label=%s%s]", idString(route.Source), idString(route.Target),
		quoteString(route.Outcome.String()), attr)
}

func (d *graphRenderer) write(format string, s ...any) {
	d.sb.WriteString(fmt.Sprintf(format+"\n", s...))
}

var (
	slashesToken = []string{"\\", "\"", "'", " "}
	recordTokens = []string{"{", "}", "|", "<", ">"}
)

func addSlashes(s string) string {
	for _, token := range slashesToken {
		s = strings.ReplaceAll(s, token, "\\"+token)
	}
	return s
}

func escapeRecord(s string) string {
	for _, token := range recordTokens {
		s = strings.ReplaceAll(s, token, "\\"+token)
	}
	return s
}

func formatNL(s string) string {
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}

func quoteString(s string) string {
	return "\"" + strings.ReplaceAll(s, "\"", "\\\"") + "\""
}

var idleChars = []string{" ", "'", "\"", "(", ")", "*", "&", "^", "%", "$", "#", "@", "!", "?", "<", ">", "[", "]", "{", "}", ".", "-", "/"}

func idString(s string) string {
	for _, ch := range idleChars {
		s = strings.ReplaceAll(s, ch, "_")
	}
	return s
}
