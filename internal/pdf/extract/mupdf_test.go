//go:build cgo && !nofitz

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-collector/internal/pdf/pdftest"
)

func TestMuPDFExtractor(t *testing.T) {
	t.Run("page headers and blank pages", func(t *testing.T) {
		path := pdftest.Write(t, t.TempDir(), "doc.pdf",
			pdftest.Lines("Quarterly report", "Revenue grew"),
			pdftest.Page{},
			pdftest.Lines("Closing notes"))

		out, err := newMuPDF(testConfig()).Extract(path)
		require.NoError(t, err)

		assert.Equal(t, 3, out.Pages)
		assert.Contains(t, out.Text, "--- Page 1 (mupdf) ---\nQuarterly report\n")
		assert.Contains(t, out.Text, "Revenue grew\n")
		assert.NotContains(t, out.Text, "--- Page 2")
		assert.Contains(t, out.Text, "--- Page 3 (mupdf) ---\nClosing notes\n")
	})

	t.Run("without widths", func(t *testing.T) {
		path := pdftest.WriteWith(t, t.TempDir(), "bare.pdf",
			pdftest.Options{OmitWidths: true}, pdftest.Lines("Quarterly report"))

		out, err := newMuPDF(testConfig()).Extract(path)
		require.NoError(t, err)
		assert.Contains(t, out.Text, "--- Page 1 (mupdf) ---\nQuarterly report\n")
	})

	t.Run("page limit", func(t *testing.T) {
		path := pdftest.Write(t, t.TempDir(), "long.pdf",
			pdftest.Lines("one"), pdftest.Lines("two"), pdftest.Lines("three"))

		cfg := testConfig()
		cfg.MaxPages = 2
		out, err := newMuPDF(cfg).Extract(path)
		require.NoError(t, err)

		assert.Equal(t, 2, out.Pages)
		assert.Contains(t, out.Text, "two")
		assert.NotContains(t, out.Text, "three")
	})

	t.Run("not a pdf", func(t *testing.T) {
		_, err := newMuPDF(testConfig()).Extract("testdata-missing.pdf")
		var me *MethodError
		require.ErrorAs(t, err, &me)
		assert.Equal(t, MethodMuPDF, me.Method)
		assert.Equal(t, "open", me.Op)
	})
}

func TestCascade_PrefersMuPDF(t *testing.T) {
	path := pdftest.Write(t, t.TempDir(), "text.pdf", pdftest.Lines("Quarterly report"))

	res := New(Config{}).Run(path)
	require.True(t, res.OK())
	assert.Equal(t, []string{MethodMuPDF}, res.Methods)
	assert.Contains(t, res.String(), "--- Page 1 (mupdf) ---\nQuarterly report")
}
