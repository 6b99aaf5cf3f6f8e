package drive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/gyunamister/goproq/internal/eval"
	"github.com/gyunamister/goproq/internal/model"
)

// TableFormatter renders a Result as a markdown summary table, one row per
// matched execution index plus a per-object-type satisfied-count column.
// Modeled on the teacher's executor.TableFormatter
// (datalog/executor/table_formatter.go).
type TableFormatter struct {
	MaxWidth int
}

// NewTableFormatter creates a formatter with default settings.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{MaxWidth: 50}
}

// FormatResult renders res as a markdown table.
func (tf *TableFormatter) FormatResult(res *Result) string {
	if res == nil || res.Length == 0 {
		return "_No matching executions_"
	}

	b := &strings.Builder{}
	alignment := []tw.Align{tw.AlignNone, tw.AlignNone}
	table := tablewriter.NewTable(b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header([]string{"index", "satisfied objects"})
	for _, idx := range res.Indices {
		table.Append([]string{fmt.Sprintf("%d", idx), summarizeWitness(res.DetailedResults[idx])})
	}
	table.Render()

	b.WriteString(fmt.Sprintf("\n_%d rows_\n", res.Length))
	return b.String()
}

// summarizeWitness renders a one-line "type=count" summary of a witness's
// satisfied objects, sorted by type for deterministic output.
func summarizeWitness(w *eval.Witness) string {
	if w == nil {
		return "-"
	}
	types := make([]string, 0, len(w.SatisfiedObjects))
	for ot := range w.SatisfiedObjects {
		types = append(types, string(ot))
	}
	sort.Strings(types)

	parts := make([]string, 0, len(types))
	for _, ot := range types {
		parts = append(parts, fmt.Sprintf("%s=%d", ot, len(w.SatisfiedObjects[model.ObjectType(ot)])))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

// PrintSummary writes a colored one-line run summary to stdout: run name,
// match count and elapsed time. Matches the teacher's PrintRelation/
// PrintResult debug-helper pattern.
func PrintSummary(res *Result) {
	if res == nil {
		return
	}
	name := res.Run.Name
	if name == "" {
		name = "query"
	}
	if res.Length > 0 {
		color.Green("%s: %d matches in %s", name, res.Length, res.Run.Time)
	} else {
		color.Yellow("%s: no matches in %s", name, res.Run.Time)
	}
}
