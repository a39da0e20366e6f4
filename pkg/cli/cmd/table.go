package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/letsgo-sh/ops/pkg/cli/format"
	"github.com/letsgo-sh/ops/pkg/types"
)

// ReportTable renders a teardown report as a table of steps.
type ReportTable struct {
	Headers     []string
	ShowTargets bool

	tableRenderer *pterm.TablePrinter
}

// NewReportTable creates a report table with default configuration.
func NewReportTable() *ReportTable {
	table := pterm.DefaultTable.WithHasHeader(true)

	headerStyle := pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	table = table.WithHeaderStyle(headerStyle)

	return &ReportTable{
		Headers:       []string{"CATEGORY", "STEP", "TARGET", "STATUS", "DETAIL"},
		ShowTargets:   true,
		tableRenderer: table,
	}
}

// Render writes the report to w.
func (t *ReportTable) Render(w io.Writer, report *types.RunReport) error {
	if len(report.Categories) == 0 {
		fmt.Fprintln(w, "Nothing was removed")
		return nil
	}

	data := [][]string{t.headers()}
	for _, c := range report.Categories {
		if len(c.Steps) == 0 {
			data = append(data, t.row(string(c.Category), "", "", string(c.Status), c.Note))
			continue
		}
		for i, s := range c.Steps {
			category := ""
			if i == 0 {
				category = string(c.Category)
			}
			detail := s.Detail
			if s.Error != "" {
				detail = s.Error
			}
			data = append(data, t.row(category, s.Name, s.Target, string(s.Status), detail))
		}
	}

	out, err := t.tableRenderer.WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(w, out)

	for _, c := range report.Categories {
		if c.Note != "" && len(c.Steps) > 0 {
			fmt.Fprintf(w, "%s %s\n", format.Highlight("%s:", c.Category), format.Warning("%s", c.Note))
		}
	}
	return nil
}

func (t *ReportTable) headers() []string {
	if t.ShowTargets {
		return t.Headers
	}
	var out []string
	for _, h := range t.Headers {
		if h != "TARGET" {
			out = append(out, h)
		}
	}
	return out
}

func (t *ReportTable) row(category, step, target, status, detail string) []string {
	row := []string{category, step}
	if t.ShowTargets {
		row = append(row, target)
	}
	return append(row, format.StatusLabel(status), truncate(detail, 60))
}

// truncate cuts s to at most n runes, never inside a multi-byte character.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

// removedSummary lists the categories that were fully removed, in name order.
func removedSummary(report *types.RunReport) string {
	var removed []string
	for _, c := range report.Categories {
		if c.Status == types.CategoryStatusSucceeded {
			removed = append(removed, string(c.Category))
		}
	}
	if len(removed) == 0 {
		return ""
	}
	return "Removed: " + strings.Join(removed, ", ")
}
