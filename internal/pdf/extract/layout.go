package extract

import (
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// layoutExtractor rebuilds each page from positioned glyphs so that text
// follows the visual reading order and tabular regions come out as rows of
// cells.
type layoutExtractor struct {
	maxPages int
	logger   *zap.Logger
}

func newLayout(cfg Config) Extractor {
	return &layoutExtractor{maxPages: cfg.MaxPages, logger: cfg.Logger}
}

func (e *layoutExtractor) Name() string { return MethodLayout }

func (e *layoutExtractor) Extract(path string) (*Output, error) {
	f, r, err := openPDF(path)
	if err != nil {
		return nil, methodErr(MethodLayout, "open", err)
	}
	defer f.Close()

	n := pageLimit(r.NumPage(), e.maxPages)

	var b strings.Builder
	for i := 1; i <= n; i++ {
		glyphs, err := pageGlyphs(r, i)
		if err != nil {
			e.logger.Warn("page extraction failed",
				zap.String("method", MethodLayout), zap.Int("page", i), zap.Error(err))
			continue
		}

		rows := groupRows(buildRuns(glyphs))
		if text := rowsText(rows); strings.TrimSpace(text) != "" {
			pageBlock(&b, i, MethodLayout, text)
		}
		for t, table := range findTables(rows) {
			tableBlock(&b, t+1, i, table)
		}
	}

	return &Output{Text: b.String(), Pages: n}, nil
}

// pageGlyphs reads the positioned glyphs of one page. The content
// interpreter panics on malformed operators, so the page is fenced.
func pageGlyphs(r *pdf.Reader, num int) (glyphs []glyph, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			glyphs, err = nil, panicError(rec)
		}
	}()

	p := r.Page(num)
	if p.V.IsNull() {
		return nil, errMissingPage
	}

	content := p.Content()
	glyphs = make([]glyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	return glyphs, nil
}
