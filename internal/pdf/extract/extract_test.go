package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/a3tai/pdf-collector/internal/pdf/pdftest"
)

type fakeExtractor struct {
	name  string
	text  string
	err   error
	panic bool
	calls int
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(string) (*Output, error) {
	f.calls++
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &Output{Text: f.text, Pages: 1}, nil
}

func TestCascade_FirstSuccessWins(t *testing.T) {
	first := &fakeExtractor{name: "first", text: "  \n\t "}
	second := &fakeExtractor{name: "second", text: "\n--- Page 1 (second) ---\nhello\n"}
	third := &fakeExtractor{name: "third", text: "never"}

	c := NewWithExtractors(zap.NewNop(), first, second, third)
	res := c.Run("doc.pdf")

	require.True(t, res.OK())
	assert.Equal(t, []string{"second"}, res.Methods)
	assert.Equal(t, "--- Page 1 (second) ---\nhello", res.Text)
	assert.Equal(t, "[Extraction methods used: second]\n\n--- Page 1 (second) ---\nhello", res.String())
	assert.Equal(t, 0, third.calls, "methods after the first success must not run")

	require.Len(t, res.Attempts, 2)
	assert.False(t, res.Attempts[0].Success)
	assert.True(t, res.Attempts[1].Success)
	assert.Equal(t, len([]rune(res.Text)), res.Attempts[1].Chars)
}

func TestCascade_FailuresFallThrough(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	failing := &fakeExtractor{name: "failing", err: errors.New("cannot open")}
	panicking := &fakeExtractor{name: "panicking", panic: true}
	working := &fakeExtractor{name: "working", text: "text"}

	c := NewWithExtractors(zap.New(core), failing, panicking, working)
	res := c.Run("doc.pdf")

	require.True(t, res.OK())
	assert.Equal(t, []string{"working"}, res.Methods)

	require.Len(t, res.Attempts, 3)
	assert.EqualError(t, res.Attempts[0].Err, "cannot open")
	assert.ErrorIs(t, res.Attempts[1].Err, ErrPanic)

	var me *MethodError
	require.ErrorAs(t, res.Attempts[1].Err, &me)
	assert.Equal(t, "panicking", me.Method)

	assert.Equal(t, 2, logs.FilterMessage("extraction method failed").Len())
}

func TestCascade_Sentinel(t *testing.T) {
	tests := []struct {
		name       string
		extractors []Extractor
	}{
		{name: "no methods"},
		{
			name: "all empty",
			extractors: []Extractor{
				&fakeExtractor{name: "a", text: ""},
				&fakeExtractor{name: "b", text: " \n "},
			},
		},
		{
			name: "all failing",
			extractors: []Extractor{
				&fakeExtractor{name: "a", err: errors.New("x")},
				&fakeExtractor{name: "b", panic: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewWithExtractors(nil, tt.extractors...)
			assert.Equal(t, Sentinel, c.Extract("doc.pdf"))
		})
	}
}

func TestCascade_Probe(t *testing.T) {
	a := &fakeExtractor{name: "a", text: "one"}
	b := &fakeExtractor{name: "b", err: errors.New("bad")}
	c := &fakeExtractor{name: "c", text: "three"}

	attempts := NewWithExtractors(nil, a, b, c).Probe("doc.pdf")

	require.Len(t, attempts, 3)
	assert.True(t, attempts[0].Success)
	assert.False(t, attempts[1].Success)
	assert.Equal(t, "bad", attempts[1].Error())
	assert.True(t, attempts[2].Success)
	assert.Equal(t, 5, attempts[2].Chars)
}

func TestCascade_RealDocuments(t *testing.T) {
	dir := t.TempDir()
	c := New(Config{})

	t.Run("text layer", func(t *testing.T) {
		path := pdftest.Write(t, dir, "text.pdf", pdftest.Lines("Quarterly report", "Revenue grew"))
		out := c.Extract(path)

		assert.True(t, strings.HasPrefix(out, "[Extraction methods used: "))
		assert.Contains(t, out, "Quarterly report")
		assert.Contains(t, out, "Revenue grew")
		assert.Contains(t, out, "--- Page 1 (")
	})

	t.Run("blank document", func(t *testing.T) {
		path := pdftest.Write(t, dir, "blank.pdf", pdftest.Page{})
		assert.Equal(t, Sentinel, c.Extract(path))
	})

	t.Run("blank middle page", func(t *testing.T) {
		path := pdftest.Write(t, dir, "gap.pdf",
			pdftest.Lines("first page text"),
			pdftest.Page{},
			pdftest.Lines("third page text"))
		out := c.Extract(path)

		assert.Contains(t, out, "--- Page 1 (")
		assert.Contains(t, out, "--- Page 3 (")
		assert.NotContains(t, out, "--- Page 2")
		assert.Contains(t, out, "first page text")
		assert.Contains(t, out, "third page text")

		provenance := strings.SplitN(out, "\n", 2)[0]
		assert.NotContains(t, provenance, ",", "exactly one method expected")
	})

	t.Run("scanned page", func(t *testing.T) {
		path := pdftest.Write(t, dir, "scan.pdf", pdftest.Page{Images: 1})
		out := c.Extract(path)

		assert.NotEqual(t, Sentinel, out)
		assert.Contains(t, out, "[Extraction methods used: image-hint]")
		assert.Contains(t, out, "--- Page 1 (images detected) ---")
		assert.Contains(t, out, "1 image(s)")
	})

	t.Run("idempotent", func(t *testing.T) {
		path := pdftest.Write(t, dir, "again.pdf", pdftest.Lines("same every time"))
		assert.Equal(t, c.Extract(path), c.Extract(path))
	})

	t.Run("missing file", func(t *testing.T) {
		assert.Equal(t, Sentinel, c.Extract(dir+"/does-not-exist.pdf"))
	})
}

func TestCascade_WithoutHighFidelity(t *testing.T) {
	dir := t.TempDir()
	path := pdftest.Write(t, dir, "doc.pdf", pdftest.Lines("fallback text"))

	c := New(Config{Disabled: []string{MethodMuPDF}})
	res := c.Run(path)

	require.True(t, res.OK())
	assert.Equal(t, []string{MethodLayout}, res.Methods)
	assert.Contains(t, res.String(), "--- Page 1 (layout) ---\nfallback text")

	c = New(Config{Disabled: []string{MethodMuPDF, MethodLayout}})
	res = c.Run(path)

	require.True(t, res.OK())
	assert.Equal(t, []string{MethodBasic}, res.Methods)
	assert.Contains(t, res.String(), "fallback text")
}
