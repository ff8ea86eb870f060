// Package summary turns coded columns into per-category frequency tables.
package summary

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/alvinkoh256/Survey-Response-Coder/internal/dataset"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/fsutil"
	"github.com/alvinkoh256/Survey-Response-Coder/internal/labels"
)

// Row is one category line of a column summary.
type Row struct {
	Category string
	Count    int
	// Percent is Count over the total number of dataset rows, not labeled
	// rows, rounded to two decimals.
	Percent float64
}

// Report is the summary of one coded column.
type Report struct {
	Column string
	Rows   []Row
}

// FindCodedColumns picks columns that hold codes.
func FindCodedColumns(columns []string) []string {
	var out []string
	for _, c := range columns {
		if strings.Contains(c, "[Codes]") || strings.Contains(c, "Code for:") {
			out = append(out, c)
		}
	}
	return out
}

// TidyCell collapses aliases and removes duplicates within one cell.
func TidyCell(cell string, aliases Aliases) string {
	parts := labels.Split(cell)
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		l := aliases.Lookup(p)
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return labels.Join(out)
}

// SummarizeColumn counts labels across cells. Rows are ordered by count,
// ties by first appearance.
func SummarizeColumn(cells []string, aliases Aliases) []Row {
	counts := make(map[string]int)
	var order []string
	for _, cell := range cells {
		for _, l := range labels.Split(TidyCell(cell, aliases)) {
			if _, ok := counts[l]; !ok {
				order = append(order, l)
			}
			counts[l]++
		}
	}

	total := len(cells)
	if total == 0 {
		total = 1
	}

	rows := make([]Row, len(order))
	for i, l := range order {
		rows[i] = Row{
			Category: l,
			Count:    counts[l],
			Percent:  math.Round(float64(counts[l])/float64(total)*100*100) / 100,
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Count > rows[j].Count })
	return rows
}

// Summarize reports every coded column of ds.
func Summarize(ds *dataset.Dataset, aliases Aliases) ([]Report, error) {
	var reports []Report
	for _, col := range FindCodedColumns(ds.Columns()) {
		cells, err := ds.Values(col)
		if err != nil {
			return nil, err
		}
		reports = append(reports, Report{Column: col, Rows: SummarizeColumn(cells, aliases)})
	}
	return reports, nil
}

// WriteText prints the reports as aligned tables.
func WriteText(w io.Writer, reports []Report) error {
	if len(reports) == 0 {
		_, err := fmt.Fprintln(w, "No coded columns found. (Look for headers containing '[Codes]' or 'Code for:')")
		return err
	}

	fmt.Fprintf(w, "\nFound %d coded column(s):\n", len(reports))
	for _, r := range reports {
		fmt.Fprintf(w, "  - %s\n", r.Column)
	}
	fmt.Fprintln(w)

	for _, r := range reports {
		fmt.Fprintf(w, "===== %s =====\n", r.Column)
		if len(r.Rows) == 0 {
			fmt.Fprint(w, "(no labels)\n\n")
			continue
		}
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Category\tCount\t%\t")
		for _, row := range r.Rows {
			fmt.Fprintf(tw, "%s\t%d\t%s\t\n", row.Category, row.Count, formatPercent(row.Percent))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}

// SaveCSV writes all reports into one table with a leading Question column.
// Reports without labels are left out.
func SaveCSV(path string, reports []Report) (fsutil.Artifact, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Question", "Category", "Count", "%"}); err != nil {
		return fsutil.Artifact{}, err
	}
	for _, r := range reports {
		for _, row := range r.Rows {
			record := []string{r.Column, row.Category, strconv.Itoa(row.Count), formatPercent(row.Percent)}
			if err := w.Write(record); err != nil {
				return fsutil.Artifact{}, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fsutil.Artifact{}, err
	}
	return fsutil.AtomicWrite(path, buf.Bytes())
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
