package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// word lays s out glyph by glyph starting at x, advancing w per glyph.
func word(s string, x, y, w float64) []glyph {
	var out []glyph
	for i, r := range s {
		out = append(out, glyph{X: x + float64(i)*w, Y: y, W: w, Size: 12, S: string(r)})
	}
	return out
}

func glyphs(parts ...[]glyph) []glyph {
	var out []glyph
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestBuildRuns(t *testing.T) {
	tests := []struct {
		name   string
		glyphs []glyph
		want   []string
	}{
		{
			name:   "single word with widths",
			glyphs: word("hello world", 72, 700, 6),
			want:   []string{"hello world"},
		},
		{
			name:   "no widths",
			glyphs: word("stacked", 72, 700, 0),
			want:   []string{"stacked"},
		},
		{
			name:   "wide gap splits",
			glyphs: glyphs(word("left", 72, 700, 6), word("right", 300, 700, 6)),
			want:   []string{"left", "right"},
		},
		{
			name:   "new baseline splits",
			glyphs: glyphs(word("top", 72, 700, 6), word("bottom", 96, 680, 6)),
			want:   []string{"top", "bottom"},
		},
		{
			name: "line break glyph splits",
			glyphs: glyphs(word("one", 72, 700, 6),
				[]glyph{{X: 90, Y: 700, Size: 12, S: "\n"}},
				word("two", 90, 700, 6)),
			want: []string{"one", "two"},
		},
		{
			name:   "blanks only",
			glyphs: word("   ", 72, 700, 6),
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range buildRuns(tt.glyphs) {
				got = append(got, r.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGroupRows_TopToBottom(t *testing.T) {
	runs := []run{
		{X0: 300, Y: 680, Size: 12, Text: "d"},
		{X0: 72, Y: 700, Size: 12, Text: "a"},
		{X0: 72, Y: 681, Size: 12, Text: "c"},
		{X0: 200, Y: 700, Size: 12, Text: "b"},
	}

	rows := groupRows(runs)

	require.Len(t, rows, 2)
	assert.Equal(t, "a b", rows[0].text())
	assert.Equal(t, "c d", rows[1].text())
	assert.Equal(t, "a b\nc d", rowsText(rows))
}

func TestFindTables(t *testing.T) {
	cell := func(x, y float64, s string) run {
		return run{X0: x, X1: x + float64(len(s))*6, Y: y, Size: 12, Text: s}
	}

	t.Run("missing cell keeps width", func(t *testing.T) {
		rows := groupRows([]run{
			cell(72, 700, "Intro paragraph"),
			cell(72, 680, "Name"), cell(200, 680, "Qty"), cell(300, 680, "Price"),
			cell(72, 660, "Apple"), cell(300, 660, "1.50"),
			cell(72, 640, "Pear"), cell(200, 640, "3"), cell(300, 640, "2.00"),
		})

		tables := findTables(rows)

		require.Len(t, tables, 1)
		assert.Equal(t, [][]string{
			{"Name", "Qty", "Price"},
			{"Apple", "", "1.50"},
			{"Pear", "3", "2.00"},
		}, tables[0])
	})

	t.Run("aligned single cell row stays inside", func(t *testing.T) {
		rows := groupRows([]run{
			cell(72, 700, "A"), cell(200, 700, "B"),
			cell(200, 680, "only b"),
			cell(72, 660, "C"), cell(200, 660, "D"),
		})

		tables := findTables(rows)

		require.Len(t, tables, 1)
		assert.Equal(t, [][]string{{"A", "B"}, {"", "only b"}, {"C", "D"}}, tables[0])
	})

	t.Run("plain text has no tables", func(t *testing.T) {
		rows := groupRows([]run{
			cell(72, 700, "line one"),
			cell(72, 680, "line two"),
		})
		assert.Empty(t, findTables(rows))
	})

	t.Run("single multi-cell row is not a table", func(t *testing.T) {
		rows := groupRows([]run{
			cell(72, 700, "Label"), cell(300, 700, "Value"),
			cell(72, 680, "after"),
		})
		assert.Empty(t, findTables(rows))
	})
}
