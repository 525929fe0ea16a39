package pdf

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxPages is the largest document accepted for extraction.
const DefaultMaxPages = 100

// Validation failures callers may want to tell apart.
var (
	ErrInvalidPDF = errors.New("invalid or corrupted PDF file")
	ErrNoPages    = errors.New("PDF has no pages")
	ErrTooLarge   = errors.New("PDF too large")
)

func init() {
	api.DisableConfigDir()
}

// Validator handles PDF file validation operations
type Validator struct {
	maxFileSize int64
	maxPages    int
}

// NewValidator creates a new PDF validator with the specified constraints
func NewValidator(maxFileSize int64, maxPages int) *Validator {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	return &Validator{
		maxFileSize: maxFileSize,
		maxPages:    maxPages,
	}
}

// MaxPages returns the page limit enforced by the validator.
func (v *Validator) MaxPages() int {
	return v.maxPages
}

// ValidateFile checks that path is a readable PDF within the size and page
// limits and returns its page count.
func (v *Validator) ValidateFile(filePath string) (int, error) {
	if filePath == "" {
		return 0, fmt.Errorf("path cannot be empty")
	}

	// Check if file exists and get basic info
	fileInfo, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("file does not exist: %s", filePath)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}

	if err := v.ValidateFileInfo(filePath, fileInfo); err != nil {
		return 0, err
	}

	pages, err := pageCount(filePath)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	switch {
	case pages < 1:
		return 0, ErrNoPages
	case pages > v.maxPages:
		return pages, fmt.Errorf("%w (maximum %d pages)", ErrTooLarge, v.maxPages)
	}
	return pages, nil
}

// ValidateFileInfo performs basic validation on file info without opening the PDF
func (v *Validator) ValidateFileInfo(filePath string, fileInfo os.FileInfo) error {
	if fileInfo.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", filePath)
	}

	if !strings.HasSuffix(strings.ToLower(filePath), ".pdf") {
		return fmt.Errorf("file is not a PDF: %s", filePath)
	}

	if fileInfo.Size() == 0 {
		return fmt.Errorf("file is empty: %s", filePath)
	}

	if fileInfo.Size() > v.maxFileSize {
		return fmt.Errorf("file too large: %d bytes (max: %d bytes)",
			fileInfo.Size(), v.maxFileSize)
	}

	return nil
}

// pageCount reads the document structure in relaxed mode, the way lenient
// viewers do, and reports the page tree's count.
func pageCount(filePath string) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("parser panic: %v", r)
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to ensure page count: %w", err)
	}
	return ctx.PageCount, nil
}
