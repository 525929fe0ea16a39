// Package intake turns an uploaded PDF into a stored record: it checks the
// name, saves the bytes under a timestamped name, validates the document,
// extracts its text and appends the record.
package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/a3tai/pdf-collector/internal/records"
)

// Caller-level failure kinds, matched with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPersistence  = errors.New("could not save data")
)

// Error carries a message fit to show to the uploader. It matches its Kind
// and the underlying cause with errors.Is.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func invalid(msg string, cause error) error {
	return &Error{Kind: ErrInvalidInput, Msg: msg, Err: cause}
}

const (
	maxNameLen   = 100
	savedPrefix  = "20060102_150405_"
	uploadPerm   = 0o640
	allowedExt   = ".pdf"
	fallbackStem = "upload"

	// names tried per upload before a collision is reported
	maxCollisions = 100
)

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// Validator checks a stored file and reports its page count.
type Validator interface {
	ValidateFile(path string) (int, error)
}

// Extractor returns the text of the PDF at path. It never fails.
type Extractor interface {
	Extract(path string) string
}

// Store persists processed uploads.
type Store interface {
	Append(ctx context.Context, data records.Data) (*records.Record, error)
}

// Upload is one file as received from a client.
type Upload struct {
	Filename   string
	Size       int64 // as announced by the client, informational only
	Body       io.Reader
	RemoteAddr string
	UserAgent  string
}

// Outcome describes a successfully stored upload.
type Outcome struct {
	RecordID       string `json:"record_id"`
	OriginalName   string `json:"file"`
	SavedName      string `json:"saved_name"`
	Pages          int    `json:"pages"`
	ExtractedChars int    `json:"extracted_chars"`
}

// Options configures a Service.
type Options struct {
	UploadDir string
	Validator Validator
	Extractor Extractor
	Store     Store
	Logger    *zap.Logger
	Now       func() time.Time
}

// Service processes uploads one at a time per call; calls may run
// concurrently.
type Service struct {
	uploadDir string
	validator Validator
	extractor Extractor
	store     Store
	logger    *zap.Logger
	now       func() time.Time
}

// NewService checks that every dependency is present.
func NewService(opts Options) (*Service, error) {
	switch {
	case opts.UploadDir == "":
		return nil, errors.New("upload directory cannot be empty")
	case opts.Validator == nil:
		return nil, errors.New("validator is required")
	case opts.Extractor == nil:
		return nil, errors.New("extractor is required")
	case opts.Store == nil:
		return nil, errors.New("store is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		uploadDir: opts.UploadDir,
		validator: opts.Validator,
		extractor: opts.Extractor,
		store:     opts.Store,
		logger:    opts.Logger,
		now:       opts.Now,
	}, nil
}

// Process stores, validates, extracts and records one upload.
func (s *Service) Process(ctx context.Context, up Upload) (*Outcome, error) {
	log := s.logger.With(zap.String("original_name", up.Filename), zap.String("remote_addr", up.RemoteAddr))

	if strings.TrimSpace(up.Filename) == "" {
		return nil, invalid("PDF file is required", nil)
	}
	if !Allowed(up.Filename) {
		return nil, invalid(fmt.Sprintf("file type not allowed: %s. Use PDF only.", up.Filename), nil)
	}
	if up.Body == nil {
		return nil, invalid("PDF file is required", nil)
	}

	savedName, size, err := save(s.uploadDir, s.now().Format(savedPrefix)+SanitizeFilename(up.Filename), up.Body)
	if err != nil {
		log.Error("store upload failed", zap.Error(err))
		return nil, &Error{Kind: ErrPersistence, Msg: "error saving file", Err: err}
	}
	path := filepath.Join(s.uploadDir, savedName)
	log.Info("upload stored", zap.String("path", path), zap.Int64("size", size))

	pages, err := s.validator.ValidateFile(path)
	if err != nil {
		_ = os.Remove(path)
		log.Warn("upload rejected", zap.Error(err))
		return nil, invalid("invalid PDF: "+err.Error(), err)
	}

	text := s.extractor.Extract(path)

	rec, err := s.store.Append(ctx, records.Data{
		PDFContent: text,
		File: records.FileInfo{
			OriginalName: up.Filename,
			SavedName:    savedName,
			Size:         size,
			Path:         path,
		},
		Status:    records.StatusProcessed,
		IPAddress: up.RemoteAddr,
		UserAgent: up.UserAgent,
	})
	if err != nil {
		log.Error("append record failed", zap.Error(err))
		return nil, &Error{Kind: ErrPersistence, Msg: "error saving data", Err: err}
	}

	out := &Outcome{
		RecordID:       rec.ID,
		OriginalName:   up.Filename,
		SavedName:      savedName,
		Pages:          pages,
		ExtractedChars: utf8.RuneCountInString(text),
	}
	log.Info("upload processed",
		zap.String("record_id", out.RecordID),
		zap.Int("pages", pages),
		zap.Int("extracted_chars", out.ExtractedChars))
	return out, nil
}

// save streams body into a new file in dir and returns the name it got.
// Partial files are removed on failure.
func save(dir, name string, body io.Reader) (string, int64, error) {
	f, name, err := create(dir, name)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(f, body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(filepath.Join(dir, name))
		return "", 0, err
	}
	return name, n, nil
}

// create opens name in dir without clobbering anything. When the name is
// taken, as with the same file uploaded twice within a second, a counter is
// added before the extension: report.pdf, report_1.pdf, report_2.pdf.
func create(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	candidate := name
	for i := 1; ; i++ {
		f, err := os.OpenFile(filepath.Join(dir, candidate), os.O_WRONLY|os.O_CREATE|os.O_EXCL, uploadPerm)
		if err == nil {
			return f, candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) || i >= maxCollisions {
			return nil, "", err
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

// Allowed reports whether name carries the .pdf extension, in any case.
func Allowed(name string) bool {
	return strings.EqualFold(filepath.Ext(name), allowedExt)
}

// SanitizeFilename keeps only the base name, replaces every character
// outside [a-zA-Z0-9._-] with an underscore and shortens the result to at
// most 100 characters without losing the extension.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	name = unsafeChars.ReplaceAllString(name, "_")

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stem = strings.TrimLeft(stem, ".")
	if stem == "" {
		stem = fallbackStem
	}
	if len(ext) > maxNameLen/2 {
		ext = ext[:maxNameLen/2]
	}
	if len(stem)+len(ext) > maxNameLen {
		stem = stem[:maxNameLen-len(ext)]
	}
	return stem + ext
}
