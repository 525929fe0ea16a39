package pdf

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/a3tai/pdf-collector/internal/descriptions"
)

const (
	recentUploadLimit = 20
	scanTimeLimit     = 3 * time.Second
)

// UploadScanner lists the PDFs stored in the upload directory, bounded by a
// file count and a time limit.
type UploadScanner struct {
	fileLimit int
	timeLimit time.Duration
}

// NewUploadScanner creates a scanner returning at most fileLimit files
func NewUploadScanner(fileLimit int, timeLimit time.Duration) *UploadScanner {
	return &UploadScanner{fileLimit: fileLimit, timeLimit: timeLimit}
}

// Recent returns the newest uploads first. Subdirectories, hidden files and
// non-PDF files are skipped.
func (s *UploadScanner) Recent(ctx context.Context, dir string) ([]FileInfo, error) {
	start := time.Now()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read upload directory: %w", err)
	}

	type stamped struct {
		info FileInfo
		mod  time.Time
	}
	var found []stamped

	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if s.timeLimit > 0 && time.Since(start) > s.timeLimit {
			break
		}

		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !isPDFFile(name) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, stamped{
			info: FileInfo{
				Path:         filepath.Join(dir, name),
				Name:         name,
				Size:         info.Size(),
				ModifiedTime: info.ModTime().Format("2006-01-02 15:04:05"),
			},
			mod: info.ModTime(),
		})
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].mod.Equal(found[j].mod) {
			return found[i].info.Name > found[j].info.Name
		}
		return found[i].mod.After(found[j].mod)
	})

	files := make([]FileInfo, 0, len(found))
	for _, f := range found {
		if s.fileLimit > 0 && len(files) >= s.fileLimit {
			break
		}
		files = append(files, f.info)
	}
	return files, nil
}

// isPDFFile checks if a file is a PDF based on extension
func isPDFFile(filename string) bool {
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// PDFServerInfo returns server information and usage guidance
func (s *Service) PDFServerInfo(ctx context.Context, _ PDFServerInfoRequest, serverName, version string) (*PDFServerInfoResult, error) {
	dir := s.pathValidator.GetConfiguredDirectory()

	// A missing or unreadable upload directory is not fatal here.
	uploads, err := NewUploadScanner(recentUploadLimit, scanTimeLimit).Recent(ctx, dir)
	if err != nil {
		uploads = []FileInfo{}
	}

	return &PDFServerInfoResult{
		ServerName:        serverName,
		Version:           version,
		UploadDirectory:   dir,
		MaxFileSize:       s.maxFileSize,
		MaxPages:          s.GetMaxPages(),
		ExtractionMethods: s.Methods(),
		AvailableTools:    availableTools(),
		RecentUploads:     uploads,
		UsageGuidance:     s.usageGuidance(),
	}, nil
}

func availableTools() []ToolInfo {
	params := map[string]string{
		"pdf_extract_text": "path (required): saved file name or path inside the upload directory, " +
			"all_methods (optional): run every method and report each",
		"pdf_validate_file": "path (required): saved file name or path inside the upload directory",
		"pdf_list_records":  "limit (optional): maximum number of records to return",
		"pdf_get_record":    "id (required): record id",
		"pdf_record_stats":  "none",
		"pdf_server_info":   "none",
	}

	tools := make([]ToolInfo, 0, len(params))
	for _, name := range descriptions.GetAllToolNames() {
		desc := descriptions.GetToolDescription(name)
		summary, usage, _ := strings.Cut(desc, "\n\n")
		tools = append(tools, ToolInfo{
			Name:        name,
			Description: summary,
			Usage:       strings.TrimSpace(usage),
			Parameters:  params[name],
		})
	}
	return tools
}

func (s *Service) usageGuidance() string {
	return `PDF Collector Usage Guide:

1. DISCOVER:
   - 'pdf_server_info' lists recent uploads and the extraction methods in effect
   - 'pdf_list_records' lists collected records, newest first

2. READ:
   - 'pdf_get_record' returns the stored text of one record
   - 'pdf_extract_text' re-runs extraction on an uploaded file

3. TROUBLESHOOT:
   - 'pdf_validate_file' explains why a file is rejected
   - 'pdf_extract_text' with all_methods=true shows how every method did

IMPORTANT NOTES:
- Paths are confined to the upload directory
- Files up to ` + fmt.Sprintf("%d", s.maxFileSize/(1024*1024)) + `MB and ` + fmt.Sprintf("%d", s.GetMaxPages()) + ` pages are accepted
- Scanned pages are reported as image notes; no OCR is performed`
}
