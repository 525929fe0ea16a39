//go:build cgo && !nofitz

package extract

import (
	"strings"

	"github.com/gen2brain/go-fitz"
	"go.uber.org/zap"
)

// mupdfExtractor reads the text layer through MuPDF. It is the most faithful
// method and is only compiled into cgo builds.
type mupdfExtractor struct {
	maxPages int
	logger   *zap.Logger
}

func newMuPDF(cfg Config) Extractor {
	return &mupdfExtractor{maxPages: cfg.MaxPages, logger: cfg.Logger}
}

func (e *mupdfExtractor) Name() string { return MethodMuPDF }

func (e *mupdfExtractor) Extract(path string) (*Output, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, methodErr(MethodMuPDF, "open", err)
	}
	defer doc.Close()

	n := pageLimit(doc.NumPage(), e.maxPages)

	var b strings.Builder
	for i := 0; i < n; i++ {
		text, err := doc.Text(i)
		if err != nil {
			e.logger.Warn("page extraction failed",
				zap.String("method", MethodMuPDF), zap.Int("page", i+1), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pageBlock(&b, i+1, MethodMuPDF, strings.TrimRight(text, "\n"))
	}

	return &Output{Text: b.String(), Pages: n}, nil
}
