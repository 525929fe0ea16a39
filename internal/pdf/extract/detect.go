package extract

import (
	"strings"

	"go.uber.org/zap"
)

// Method names, in cascade order.
const (
	MethodMuPDF     = "mupdf"
	MethodLayout    = "layout"
	MethodBasic     = "basic"
	MethodImageHint = "image-hint"
)

// Config carries everything the methods need; there is no package state.
type Config struct {
	Logger   *zap.Logger
	MaxPages int
	Disabled []string // optional methods to leave out
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.MaxPages <= 0 {
		c.MaxPages = DefaultMaxPages
	}
	return c
}

func (c Config) disabled(method string) bool {
	for _, d := range c.Disabled {
		if strings.EqualFold(strings.TrimSpace(d), method) {
			return true
		}
	}
	return false
}

// Detect builds the ordered method list for this process. Optional methods
// that are not compiled in or are disabled are left out; basic is always
// present.
func Detect(cfg Config) []Extractor {
	cfg = cfg.withDefaults()
	log := cfg.Logger

	var list []Extractor
	optional := func(name string, e Extractor) {
		switch {
		case e == nil:
			log.Info("extraction method unavailable", zap.String("method", name))
		case cfg.disabled(name):
			log.Info("extraction method disabled", zap.String("method", name))
		default:
			list = append(list, e)
		}
	}

	optional(MethodMuPDF, newMuPDF(cfg))
	optional(MethodLayout, newLayout(cfg))

	if cfg.disabled(MethodBasic) {
		log.Warn("basic extraction cannot be disabled")
	}
	list = append(list, newBasic(cfg))

	optional(MethodImageHint, newImageHint(cfg))

	names := make([]string, 0, len(list))
	for _, e := range list {
		names = append(names, e.Name())
	}
	log.Info("extraction methods detected", zap.Strings("methods", names))
	return list
}
