package extract

import (
	"math"
	"sort"
	"strings"
)

// Tolerances are expressed as multiples of the font size.
const (
	lineTolerance   = 0.5 // baselines closer than this share a row
	cellGap         = 1.0 // a horizontal gap wider than this starts a new run
	columnTolerance = 1.5 // run starts closer than this share a column
	fallbackSize    = 10.0
)

// glyph is one positioned character as reported by the content parser.
type glyph struct {
	X, Y, W, Size float64
	S             string
}

// run is a stretch of glyphs on one baseline with no large gap.
type run struct {
	X0, X1, Y, Size float64
	Text            string
}

type row struct {
	Y    float64
	Runs []run
}

func (r row) text() string {
	parts := make([]string, 0, len(r.Runs))
	for _, rn := range r.Runs {
		parts = append(parts, rn.Text)
	}
	return strings.Join(parts, " ")
}

// buildRuns merges glyphs, in content order, into runs. Producers that omit
// glyph widths report every glyph of a string at the same X; those still
// merge because the gap is measured from the previous glyph's far edge.
func buildRuns(glyphs []glyph) []run {
	var (
		runs  []run
		cur   *run
		text  strings.Builder
		lastX float64
	)
	flush := func() {
		if cur == nil {
			return
		}
		if t := strings.TrimSpace(text.String()); t != "" {
			cur.Text = t
			runs = append(runs, *cur)
		}
		cur = nil
		text.Reset()
	}

	for _, g := range glyphs {
		if g.S == "\n" {
			flush()
			continue
		}
		size := g.Size
		if size <= 0 {
			size = fallbackSize
		}
		if cur != nil {
			sameLine := math.Abs(g.Y-cur.Y) <= cur.Size*lineTolerance
			gap := g.X - cur.X1
			backwards := g.X+cur.Size*cellGap < lastX
			if !sameLine || gap > cur.Size*cellGap || backwards {
				flush()
			}
		}
		if cur == nil {
			// A run never starts with blanks.
			if strings.TrimSpace(g.S) == "" {
				continue
			}
			cur = &run{X0: g.X, X1: g.X, Y: g.Y, Size: size}
		}
		text.WriteString(g.S)
		cur.X1 = math.Max(cur.X1, g.X+g.W)
		lastX = g.X
	}
	flush()
	return runs
}

// groupRows orders runs top to bottom and collects runs sharing a baseline.
func groupRows(runs []run) []row {
	sorted := make([]run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var rows []row
	for _, rn := range sorted {
		if n := len(rows); n > 0 && math.Abs(rows[n-1].Y-rn.Y) <= rn.Size*lineTolerance {
			rows[n-1].Runs = append(rows[n-1].Runs, rn)
			continue
		}
		rows = append(rows, row{Y: rn.Y, Runs: []run{rn}})
	}
	for i := range rows {
		sort.SliceStable(rows[i].Runs, func(a, b int) bool {
			return rows[i].Runs[a].X0 < rows[i].Runs[b].X0
		})
	}
	return rows
}

func rowsText(rows []row) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, r.text())
	}
	return strings.Join(lines, "\n")
}

// findTables returns every block of consecutive multi-run rows that lines up
// into at least two columns. A single-run row inside a block is kept when its
// run sits on one of the block's columns.
func findTables(rows []row) [][][]string {
	var tables [][][]string
	for i := 0; i < len(rows); {
		if len(rows[i].Runs) < 2 {
			i++
			continue
		}
		j := i + 1
		for j < len(rows) {
			if len(rows[j].Runs) >= 2 {
				j++
				continue
			}
			if j+1 < len(rows) && len(rows[j+1].Runs) >= 2 && aligned(rows[j], columnAnchors(rows[i:j])) {
				j++
				continue
			}
			break
		}

		block := rows[i:j]
		if len(block) >= 2 {
			if t := buildTable(block); t != nil {
				tables = append(tables, t)
			}
		}
		i = j
	}
	return tables
}

// columnAnchors clusters run start positions; each cluster is one column.
func columnAnchors(rows []row) []float64 {
	var xs []float64
	var size float64
	for _, r := range rows {
		for _, rn := range r.Runs {
			xs = append(xs, rn.X0)
			size = math.Max(size, rn.Size)
		}
	}
	sort.Float64s(xs)

	tol := size * columnTolerance
	var anchors []float64
	for _, x := range xs {
		if n := len(anchors); n > 0 && x-anchors[n-1] <= tol {
			continue
		}
		anchors = append(anchors, x)
	}
	return anchors
}

func aligned(r row, anchors []float64) bool {
	for _, rn := range r.Runs {
		if i := nearest(anchors, rn.X0); math.Abs(anchors[i]-rn.X0) > rn.Size*columnTolerance {
			return false
		}
	}
	return len(anchors) > 0
}

func nearest(anchors []float64, x float64) int {
	best := 0
	for i, a := range anchors {
		if math.Abs(a-x) < math.Abs(anchors[best]-x) {
			best = i
		}
	}
	return best
}

// buildTable places every run into its column. Cells with no run stay empty
// so every row has the same width.
func buildTable(rows []row) [][]string {
	anchors := columnAnchors(rows)
	if len(anchors) < 2 {
		return nil
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, len(anchors))
		for _, rn := range r.Runs {
			c := nearest(anchors, rn.X0)
			if cells[c] != "" {
				cells[c] += " "
			}
			cells[c] += rn.Text
		}
		table = append(table, cells)
	}
	return table
}
