package pdf

import (
	"fmt"
	"os"

	"github.com/a3tai/pdf-collector/internal/pdf/extract"
	"github.com/a3tai/pdf-collector/internal/pdf/security"
)

// Service handles PDF file operations by orchestrating the validator, the
// extraction cascade and path confinement
type Service struct {
	maxFileSize   int64
	validator     *Validator
	cascade       *extract.Cascade
	pathValidator *security.PathValidator
}

// NewService creates a new PDF service confined to configuredDirectory
func NewService(maxFileSize int64, maxPages int, configuredDirectory string, cascade *extract.Cascade) (*Service, error) {
	if cascade == nil {
		return nil, fmt.Errorf("cascade cannot be nil")
	}

	pathValidator, err := security.NewPathValidator(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create path validator: %w", err)
	}

	return &Service{
		maxFileSize:   maxFileSize,
		validator:     NewValidator(maxFileSize, maxPages),
		cascade:       cascade,
		pathValidator: pathValidator,
	}, nil
}

// PDFExtractText validates the file and runs the extraction cascade on it
func (s *Service) PDFExtractText(req PDFExtractTextRequest) (*PDFExtractTextResult, error) {
	path, err := s.pathValidator.SanitizePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	pages, err := s.validator.ValidateFile(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}

	res := s.cascade.Run(path)
	attempts := res.Attempts
	if req.AllMethods {
		attempts = s.cascade.Probe(path)
	}

	return &PDFExtractTextResult{
		Path:     path,
		Pages:    pages,
		Size:     info.Size(),
		Content:  res.String(),
		Methods:  res.Methods,
		Success:  res.OK(),
		Attempts: convertAttempts(attempts),
	}, nil
}

// PDFValidateFile performs validation on a PDF file
func (s *Service) PDFValidateFile(req PDFValidateFileRequest) (*PDFValidateFileResult, error) {
	path, err := s.pathValidator.SanitizePath(req.Path)
	if err != nil {
		return nil, fmt.Errorf("security validation failed: %w", err)
	}

	pages, err := s.validator.ValidateFile(path)
	if err != nil {
		return &PDFValidateFileResult{Valid: false, Path: path, Message: err.Error()}, nil
	}
	return &PDFValidateFileResult{Valid: true, Path: path, Pages: pages, Message: "valid PDF"}, nil
}

// GetMaxFileSize returns the maximum file size limit
func (s *Service) GetMaxFileSize() int64 {
	return s.maxFileSize
}

// GetMaxPages returns the page limit enforced on documents
func (s *Service) GetMaxPages() int {
	return s.validator.MaxPages()
}

// Methods lists the extraction methods available on this host, in order
func (s *Service) Methods() []string {
	return s.cascade.Methods()
}

// Validator exposes the validator used for uploads
func (s *Service) Validator() *Validator {
	return s.validator
}

// ValidateConfiguration checks the size limit, the upload directory and that at
// least one extraction method is available. It runs once at startup.
func (s *Service) ValidateConfiguration() error {
	if s.maxFileSize <= 0 {
		return fmt.Errorf("maxFileSize must be greater than 0")
	}

	if s.maxFileSize > 1024*1024*1024 { // 1GB limit
		return fmt.Errorf("maxFileSize cannot exceed 1GB")
	}

	if len(s.cascade.Methods()) == 0 {
		return fmt.Errorf("no extraction methods available")
	}

	dir := s.pathValidator.GetConfiguredDirectory()
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("upload directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("upload directory is not a directory: %s", dir)
	}

	return nil
}

func convertAttempts(in []extract.Attempt) []MethodAttempt {
	out := make([]MethodAttempt, 0, len(in))
	for _, a := range in {
		out = append(out, MethodAttempt{
			Method:  a.Method,
			Pages:   a.Pages,
			Chars:   a.Chars,
			Success: a.Success,
			Error:   a.Error(),
		})
	}
	return out
}
