package extract

import (
	"errors"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// basicExtractor reads each page's text layer in content order. A page that
// cannot be read leaves a placeholder instead of failing the document.
type basicExtractor struct {
	maxPages int
	logger   *zap.Logger
}

func newBasic(cfg Config) Extractor {
	return &basicExtractor{maxPages: cfg.MaxPages, logger: cfg.Logger}
}

func (e *basicExtractor) Name() string { return MethodBasic }

func (e *basicExtractor) Extract(path string) (*Output, error) {
	f, r, err := openPDF(path)
	if err != nil {
		return nil, methodErr(MethodBasic, "open", err)
	}
	defer f.Close()

	total := r.NumPage()
	n := pageLimit(total, e.maxPages)
	if n < total {
		e.logger.Warn("page limit reached", zap.String("method", MethodBasic),
			zap.Int("pages", total), zap.Int("limit", n))
	}

	var b strings.Builder
	for i := 1; i <= n; i++ {
		text, err := pageText(r, i)
		if err != nil {
			e.logger.Warn("page extraction failed",
				zap.String("method", MethodBasic), zap.Int("page", i), zap.Error(err))
			pageBlock(&b, i, "", pageErrorNote)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pageBlock(&b, i, MethodBasic, strings.TrimSpace(text))
	}

	return &Output{Text: b.String(), Pages: n}, nil
}

var errMissingPage = errors.New("page object missing")

// openPDF opens path for ledongthuc/pdf. NewReader panics on some malformed
// trailers; that comes back as an error and the file is closed either way.
func openPDF(path string) (_ *os.File, r *pdf.Reader, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, panicError(rec)
		}
		if err != nil {
			_ = f.Close()
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	r, err = pdf.NewReader(f, info.Size())
	if err != nil {
		return nil, nil, err
	}
	return f, r, nil
}

// pageText isolates a single page so a panic in the parser stays local.
func pageText(r *pdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", panicError(rec)
		}
	}()

	p := r.Page(num)
	if p.V.IsNull() {
		return "", errMissingPage
	}
	return p.GetPlainText(nil)
}
