package statmodel

import (
	"fmt"
	"strings"
)

// SummaryTable formats the results of a fitted model as a fixed-width text
// table.  The first column is left-aligned, the remaining columns are
// right-aligned.  All cell values are provided pre-formatted as strings.
type SummaryTable struct {

	// Title is centered above the table.
	Title string

	// Top holds summary lines shown above the column headers.
	Top []string

	// ColNames holds the column headers.
	ColNames []string

	// Cols[j][i] is the value in row i of column j.
	Cols [][]string

	// Msg holds messages displayed below the table.
	Msg []string
}

// FloatCol formats a numeric column for inclusion in a SummaryTable.
func FloatCol(x []float64) []string {
	s := make([]string, len(x))
	for i := range x {
		s[i] = fmt.Sprintf("%.4f", x[i])
	}
	return s
}

// colWidths returns the display width of each column.
func (s *SummaryTable) colWidths() []int {

	w := make([]int, len(s.ColNames))
	for j, na := range s.ColNames {
		w[j] = len(na)
		for _, c := range s.Cols[j] {
			if len(c) > w[j] {
				w[j] = len(c)
			}
		}
	}
	return w
}

// String returns the table as a string.
func (s *SummaryTable) String() string {

	w := s.colWidths()

	gap := 2
	tw := gap * (len(w) - 1)
	for _, v := range w {
		tw += v
	}
	if tw < len(s.Title) {
		tw = len(s.Title)
	}
	for _, v := range s.Top {
		if tw < len(v) {
			tw = len(v)
		}
	}

	var b strings.Builder

	pad := (tw - len(s.Title)) / 2
	if pad > 0 {
		b.WriteString(strings.Repeat(" ", pad))
	}
	b.WriteString(s.Title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", tw))
	b.WriteString("\n")

	for _, v := range s.Top {
		b.WriteString(v)
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("-", tw))
	b.WriteString("\n")

	row := func(cells []string) {
		for j, c := range cells {
			if j == 0 {
				b.WriteString(fmt.Sprintf("%-*s", w[j], c))
			} else {
				b.WriteString(strings.Repeat(" ", gap))
				b.WriteString(fmt.Sprintf("%*s", w[j], c))
			}
		}
		b.WriteString("\n")
	}

	row(s.ColNames)
	b.WriteString(strings.Repeat("-", tw))
	b.WriteString("\n")

	nrow := 0
	if len(s.Cols) > 0 {
		nrow = len(s.Cols[0])
	}
	cells := make([]string, len(s.Cols))
	for i := 0; i < nrow; i++ {
		for j := range s.Cols {
			cells[j] = s.Cols[j][i]
		}
		row(cells)
	}
	b.WriteString(strings.Repeat("-", tw))
	b.WriteString("\n")

	for _, m := range s.Msg {
		b.WriteString(m)
		b.WriteString("\n")
	}

	return b.String()
}
