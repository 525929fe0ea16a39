package intake

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/pdf-collector/internal/pdf"
	"github.com/a3tai/pdf-collector/internal/pdf/extract"
	"github.com/a3tai/pdf-collector/internal/pdf/pdftest"
	"github.com/a3tai/pdf-collector/internal/records"
)

var fixedNow = time.Date(2024, 5, 17, 14, 3, 9, 0, time.UTC)

type failingStore struct{}

func (failingStore) Append(context.Context, records.Data) (*records.Record, error) {
	return nil, errors.New("disk full")
}

type staticExtractor string

func (s staticExtractor) Extract(string) string { return string(s) }

type env struct {
	svc       *Service
	store     *records.Store
	uploadDir string
}

func newEnv(t *testing.T, store Store, extractor Extractor) env {
	t.Helper()
	dir := t.TempDir()
	uploadDir := filepath.Join(dir, "uploads")
	require.NoError(t, os.MkdirAll(uploadDir, 0o750))

	var rs *records.Store
	if store == nil {
		var err error
		rs, err = records.NewStore(records.Options{
			DataFile:  filepath.Join(dir, "records.jsonl"),
			BackupDir: dir,
		})
		require.NoError(t, err)
		store = rs
	}
	if extractor == nil {
		extractor = extract.New(extract.Config{Disabled: []string{extract.MethodMuPDF}})
	}

	svc, err := NewService(Options{
		UploadDir: uploadDir,
		Validator: pdf.NewValidator(1<<20, 10),
		Extractor: extractor,
		Store:     store,
		Now:       func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return env{svc: svc, store: rs, uploadDir: uploadDir}
}

func pdfBytes(pages ...pdftest.Page) []byte {
	return pdftest.Build(pages, pdftest.Options{})
}

func TestNewService_RequiresDependencies(t *testing.T) {
	_, err := NewService(Options{})
	assert.Error(t, err)
	_, err = NewService(Options{UploadDir: "x", Validator: pdf.NewValidator(1, 1)})
	assert.Error(t, err)
}

func TestProcess_Success(t *testing.T) {
	e := newEnv(t, nil, nil)
	body := pdfBytes(pdftest.Lines("Invoice 42", "Total due 10.00"))

	out, err := e.svc.Process(context.Background(), Upload{
		Filename:   "my invoice.pdf",
		Body:       bytes.NewReader(body),
		RemoteAddr: "192.0.2.1",
		UserAgent:  "curl/8",
	})
	require.NoError(t, err)

	assert.Equal(t, "my invoice.pdf", out.OriginalName)
	assert.Equal(t, "20240517_140309_my_invoice.pdf", out.SavedName)
	assert.Equal(t, 1, out.Pages)
	assert.NotEmpty(t, out.RecordID)

	stored, err := os.ReadFile(filepath.Join(e.uploadDir, out.SavedName))
	require.NoError(t, err)
	assert.Equal(t, body, stored)

	rec, err := e.store.Get(out.RecordID)
	require.NoError(t, err)
	assert.Contains(t, rec.Data.PDFContent, "Invoice 42")
	assert.True(t, strings.HasPrefix(rec.Data.PDFContent, "[Extraction methods used: "))
	assert.Equal(t, len([]rune(rec.Data.PDFContent)), out.ExtractedChars)
	assert.Equal(t, records.StatusProcessed, rec.Data.Status)
	assert.Equal(t, int64(len(body)), rec.Data.File.Size)
	assert.Equal(t, "192.0.2.1", rec.Data.IPAddress)
	assert.Equal(t, "curl/8", rec.Data.UserAgent)
}

func TestProcess_BlankPDFStoresSentinel(t *testing.T) {
	e := newEnv(t, nil, nil)

	out, err := e.svc.Process(context.Background(), Upload{
		Filename: "blank.PDF",
		Body:     bytes.NewReader(pdfBytes(pdftest.Page{})),
	})
	require.NoError(t, err)

	rec, err := e.store.Get(out.RecordID)
	require.NoError(t, err)
	assert.Equal(t, extract.Sentinel, rec.Data.PDFContent)
}

func TestProcess_InvalidInput(t *testing.T) {
	tooMany := make([]pdftest.Page, 11)
	for i := range tooMany {
		tooMany[i] = pdftest.Lines("page")
	}

	tests := []struct {
		name    string
		upload  Upload
		wantMsg string
	}{
		{
			name:    "missing name",
			upload:  Upload{Body: strings.NewReader("x")},
			wantMsg: "PDF file is required",
		},
		{
			name:    "wrong extension",
			upload:  Upload{Filename: "notes.txt", Body: strings.NewReader("x")},
			wantMsg: "file type not allowed: notes.txt. Use PDF only.",
		},
		{
			name:    "no extension",
			upload:  Upload{Filename: "pdf", Body: strings.NewReader("x")},
			wantMsg: "file type not allowed",
		},
		{
			name:    "garbage content",
			upload:  Upload{Filename: "fake.pdf", Body: strings.NewReader("this is not a pdf")},
			wantMsg: "invalid PDF: invalid or corrupted PDF file",
		},
		{
			name:    "empty file",
			upload:  Upload{Filename: "empty.pdf", Body: strings.NewReader("")},
			wantMsg: "invalid PDF: file is empty",
		},
		{
			name:    "too many pages",
			upload:  Upload{Filename: "long.pdf", Body: bytes.NewReader(pdfBytes(tooMany...))},
			wantMsg: "invalid PDF: PDF too large (maximum 10 pages)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, nil, staticExtractor("unused"))

			_, err := e.svc.Process(context.Background(), tt.upload)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)

			// Rejected uploads leave nothing behind.
			entries, err := os.ReadDir(e.uploadDir)
			require.NoError(t, err)
			assert.Empty(t, entries)

			list, err := e.store.List()
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestProcess_SameNameSameSecond(t *testing.T) {
	e := newEnv(t, nil, staticExtractor("text"))

	var saved []string
	for _, content := range []string{"first", "second", "third"} {
		out, err := e.svc.Process(context.Background(), Upload{
			Filename: "report.pdf",
			Body:     bytes.NewReader(pdfBytes(pdftest.Lines(content))),
		})
		require.NoError(t, err, content)
		saved = append(saved, out.SavedName)

		rec, err := e.store.Get(out.RecordID)
		require.NoError(t, err)
		assert.Equal(t, out.SavedName, rec.Data.File.SavedName)
		assert.Equal(t, filepath.Join(e.uploadDir, out.SavedName), rec.Data.File.Path)
	}

	assert.Equal(t, []string{
		"20240517_140309_report.pdf",
		"20240517_140309_report_1.pdf",
		"20240517_140309_report_2.pdf",
	}, saved)

	// each upload kept its own bytes
	first, err := os.ReadFile(filepath.Join(e.uploadDir, saved[0]))
	require.NoError(t, err)
	second, err := os.ReadFile(filepath.Join(e.uploadDir, saved[1]))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	t.Run("suffix before the extension", func(t *testing.T) {
		for _, want := range []string{"a.pdf", "a_1.pdf", "a_2.pdf"} {
			f, name, err := create(dir, "a.pdf")
			require.NoError(t, err)
			require.NoError(t, f.Close())
			assert.Equal(t, want, name)
		}
	})

	t.Run("gives up after too many collisions", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), nil, 0o600))
		for i := 1; i < maxCollisions; i++ {
			require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("b_%d.pdf", i)), nil, 0o600))
		}
		_, _, err := create(dir, "b.pdf")
		assert.ErrorIs(t, err, fs.ErrExist)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		_, _, err := create(filepath.Join(dir, "missing"), "c.pdf")
		assert.ErrorIs(t, err, fs.ErrNotExist)
	})
}

func TestProcess_PersistenceFailure(t *testing.T) {
	e := newEnv(t, failingStore{}, staticExtractor("text"))

	_, err := e.svc.Process(context.Background(), Upload{
		Filename: "doc.pdf",
		Body:     bytes.NewReader(pdfBytes(pdftest.Lines("hello"))),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "error saving data", err.Error())
}

func TestProcess_UploadDirMissing(t *testing.T) {
	e := newEnv(t, nil, staticExtractor("text"))
	require.NoError(t, os.RemoveAll(e.uploadDir))

	_, err := e.svc.Process(context.Background(), Upload{
		Filename: "doc.pdf",
		Body:     bytes.NewReader(pdfBytes(pdftest.Lines("hello"))),
	})
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAllowed(t *testing.T) {
	tests := map[string]bool{
		"a.pdf":     true,
		"A.PDF":     true,
		"x.y.Pdf":   true,
		"a.pdf.exe": false,
		"pdf":       false,
		"":          false,
		"a.":        false,
	}
	for name, want := range tests {
		assert.Equal(t, want, Allowed(name), name)
	}
}

func TestSanitizeFilename(t *testing.T) {
	long := strings.Repeat("a", 150) + ".pdf"

	tests := []struct {
		in   string
		want string
	}{
		{in: "report.pdf", want: "report.pdf"},
		{in: "relatório final (v2).pdf", want: "relat_rio_final__v2_.pdf"},
		{in: "../../etc/passwd.pdf", want: "passwd.pdf"},
		{in: `C:\Users\me\scan.pdf`, want: "scan.pdf"},
		{in: ".pdf", want: "upload.pdf"},
		{in: "my-file_1.2.pdf", want: "my-file_1.2.pdf"},
		{in: long, want: strings.Repeat("a", 96) + ".pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := SanitizeFilename(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), maxNameLen)
		})
	}
}
