// Package extract turns a validated PDF into plain text by running an
// ordered list of extraction methods and keeping the first one that yields
// readable text.
package extract

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Sentinel is returned when no available method produced readable text.
const Sentinel = "PDF processed but no readable text could be extracted with any available method."

// DefaultMaxPages bounds how many pages a single method reads.
const DefaultMaxPages = 100

// Extractor is one extraction strategy.
type Extractor interface {
	Name() string
	Extract(path string) (*Output, error)
}

// Output is the raw text produced by one method.
type Output struct {
	Text  string
	Pages int // pages the method looked at
}

// Attempt records how one method fared.
type Attempt struct {
	Method  string `json:"method"`
	Pages   int    `json:"pages"`
	Chars   int    `json:"chars"`
	Success bool   `json:"success"`
	Err     error  `json:"-"`
}

// Error returns the attempt's error message or an empty string.
func (a Attempt) Error() string {
	if a.Err == nil {
		return ""
	}
	return a.Err.Error()
}

// Result is the outcome of a cascade run.
type Result struct {
	Text     string   // trimmed text, empty when every method failed
	Methods  []string // methods whose text made it into Text
	Attempts []Attempt
}

// OK reports whether any method produced readable text.
func (r *Result) OK() bool {
	return len(r.Methods) > 0
}

// String renders the result as stored and shown to users: a provenance line,
// a blank line and the text, or the sentinel.
func (r *Result) String() string {
	if !r.OK() {
		return Sentinel
	}
	return fmt.Sprintf("[Extraction methods used: %s]\n\n%s", strings.Join(r.Methods, ", "), r.Text)
}

// Cascade runs extractors in order until one succeeds.
type Cascade struct {
	extractors []Extractor
	logger     *zap.Logger
}

// New detects the available methods once and returns a ready cascade.
func New(cfg Config) *Cascade {
	cfg = cfg.withDefaults()
	return NewWithExtractors(cfg.Logger, Detect(cfg)...)
}

// NewWithExtractors builds a cascade over an explicit method list.
func NewWithExtractors(logger *zap.Logger, extractors ...Extractor) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{extractors: extractors, logger: logger}
}

// Methods lists the method names in cascade order.
func (c *Cascade) Methods() []string {
	names := make([]string, 0, len(c.extractors))
	for _, e := range c.extractors {
		names = append(names, e.Name())
	}
	return names
}

// Extract returns the text of the PDF at path, or the sentinel. It never
// fails: method errors are logged and the next method is tried.
func (c *Cascade) Extract(path string) string {
	return c.Run(path).String()
}

// Run is Extract with per-method bookkeeping.
func (c *Cascade) Run(path string) *Result {
	res := &Result{}
	log := c.logger.With(zap.String("file", path))

	for _, e := range c.extractors {
		attempt, text := c.attempt(e, path)
		res.Attempts = append(res.Attempts, attempt)
		if attempt.Success {
			res.Text = text
			res.Methods = []string{e.Name()}
			log.Info("text extracted",
				zap.String("method", e.Name()),
				zap.Int("pages", attempt.Pages),
				zap.Int("chars", attempt.Chars))
			return res
		}
	}

	log.Error("no readable text extracted", zap.Strings("tried", c.Methods()))
	return res
}

// Probe runs every method without stopping at the first success.
func (c *Cascade) Probe(path string) []Attempt {
	attempts := make([]Attempt, 0, len(c.extractors))
	for _, e := range c.extractors {
		a, _ := c.attempt(e, path)
		attempts = append(attempts, a)
	}
	return attempts
}

func (c *Cascade) attempt(e Extractor, path string) (Attempt, string) {
	a := Attempt{Method: e.Name()}
	out, err := safeExtract(e, path)
	if err != nil {
		a.Err = err
		c.logger.Warn("extraction method failed",
			zap.String("method", e.Name()),
			zap.String("file", path),
			zap.Error(err))
		return a, ""
	}

	text := strings.TrimSpace(out.Text)
	a.Pages = out.Pages
	a.Chars = utf8.RuneCountInString(text)
	a.Success = text != ""
	if !a.Success {
		c.logger.Info("extraction method found no text",
			zap.String("method", e.Name()),
			zap.String("file", path),
			zap.Int("pages", out.Pages))
	}
	return a, text
}

func safeExtract(e Extractor, path string) (out *Output, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = methodErr(e.Name(), "extract", panicError(r))
		}
	}()

	out, err = e.Extract(path)
	if err == nil && out == nil {
		out = &Output{}
	}
	return out, err
}
