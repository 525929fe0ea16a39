package extract

import (
	"io"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"
)

func init() {
	// pdfcpu would otherwise create a config dir under the user's home.
	api.DisableConfigDir()
}

// imageHintExtractor is the diagnostic last resort: it reports how many
// images each page paints, which usually explains why the other methods
// found nothing, plus whatever string literals the raw content still holds.
type imageHintExtractor struct {
	maxPages int
	logger   *zap.Logger
}

func newImageHint(cfg Config) Extractor {
	return &imageHintExtractor{maxPages: cfg.MaxPages, logger: cfg.Logger}
}

func (e *imageHintExtractor) Name() string { return MethodImageHint }

func (e *imageHintExtractor) Extract(path string) (*Output, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, methodErr(MethodImageHint, "open", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return nil, methodErr(MethodImageHint, "read", err)
	}

	n := pageLimit(ctx.PageCount, e.maxPages)

	var b strings.Builder
	for i := 1; i <= n; i++ {
		images, text, err := pageImagesAndText(ctx, i)
		if err != nil {
			e.logger.Warn("page extraction failed",
				zap.String("method", MethodImageHint), zap.Int("page", i), zap.Error(err))
		}
		if images > 0 {
			pageBlock(&b, i, "images detected", imageNote(images))
		}
		if strings.TrimSpace(text) != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}

	return &Output{Text: b.String(), Pages: n}, nil
}

func pageImagesAndText(ctx *model.Context, page int) (images int, text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError(rec)
		}
	}()

	if ctx.Optimize != nil {
		images = len(pdfcpu.ImageObjNrs(ctx, page))
	}

	r, err := pdfcpu.ExtractPageContent(ctx, page)
	if err != nil || r == nil {
		return images, "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return images, "", err
	}
	return images, contentText(data), nil
}
