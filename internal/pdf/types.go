package pdf

// FileInfo represents information about a stored upload
type FileInfo struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	ModifiedTime string `json:"modified_time"`
}

// Request Types

// PDFExtractTextRequest represents a request to run the extraction cascade
type PDFExtractTextRequest struct {
	Path string `json:"path"`
	// AllMethods runs every method instead of stopping at the first success.
	AllMethods bool `json:"all_methods,omitempty"`
}

// PDFValidateFileRequest represents a request to validate a PDF file
type PDFValidateFileRequest struct {
	Path string `json:"path"`
}

// PDFServerInfoRequest represents a request to get server information and capabilities
type PDFServerInfoRequest struct{}

// Response Types

// MethodAttempt reports how one extraction method fared on a document.
type MethodAttempt struct {
	Method  string `json:"method"`
	Pages   int    `json:"pages"`
	Chars   int    `json:"chars"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PDFExtractTextResult represents the result of a cascade run
type PDFExtractTextResult struct {
	Path     string          `json:"path"`
	Pages    int             `json:"pages"`
	Size     int64           `json:"size"`
	Content  string          `json:"content"`
	Methods  []string        `json:"methods"`
	Success  bool            `json:"success"`
	Attempts []MethodAttempt `json:"attempts"`
}

// PDFValidateFileResult represents the result of a PDF validation operation
type PDFValidateFileResult struct {
	Valid   bool   `json:"valid"`
	Path    string `json:"path"`
	Pages   int    `json:"pages,omitempty"`
	Message string `json:"message,omitempty"`
}

// PDFServerInfoResult represents server information and usage guidance
type PDFServerInfoResult struct {
	ServerName        string     `json:"server_name"`
	Version           string     `json:"version"`
	UploadDirectory   string     `json:"upload_directory"`
	MaxFileSize       int64      `json:"max_file_size"`
	MaxPages          int        `json:"max_pages"`
	ExtractionMethods []string   `json:"extraction_methods"`
	AvailableTools    []ToolInfo `json:"available_tools"`
	RecentUploads     []FileInfo `json:"recent_uploads"`
	UsageGuidance     string     `json:"usage_guidance"`
}

// ToolInfo represents information about an available tool
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Usage       string `json:"usage"`
	Parameters  string `json:"parameters"`
}
