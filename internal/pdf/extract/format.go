package extract

import (
	"fmt"
	"strings"
)

const pageErrorNote = "[error extracting this page]"

// pageBlock writes a page header followed by body.
func pageBlock(b *strings.Builder, page int, label, body string) {
	if label == "" {
		fmt.Fprintf(b, "\n--- Page %d ---\n", page)
	} else {
		fmt.Fprintf(b, "\n--- Page %d (%s) ---\n", page, label)
	}
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
}

func tableBlock(b *strings.Builder, table, page int, rows [][]string) {
	fmt.Fprintf(b, "\n--- Table %d of Page %d ---\n", table, page)
	for _, row := range rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
}

func imageNote(count int) string {
	return fmt.Sprintf("[PDF contains %d image(s) - text may be stored as images]", count)
}

func pageLimit(total, max int) int {
	if max > 0 && total > max {
		return max
	}
	return total
}
