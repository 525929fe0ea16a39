package descriptions

import "sort"

// Tool descriptions shown to MCP clients, with practical examples

const (
	PDFExtractTextDescription = `Extract readable text from an uploaded PDF using the fallback extraction cascade.

**When to use:** Need the text of a PDF that was uploaded to the collector, or want to see which extraction method works for a document.

**Why it's useful:** Methods are tried from highest to lowest fidelity (mupdf, layout, basic, image-hint) and the first one that yields text wins. Tables found by the layout method come out as "cell | cell" rows, and scanned pages are reported as image notes instead of silently returning nothing.

**Examples:**
• Read an upload: "Extract the text of 20240517_140309_invoice.pdf"
• Diagnose a bad scan: "Run all extraction methods on scan.pdf and show how each did"

**Common workflows:**
1. Review: pdf_list_records → pick a saved_name → pdf_extract_text
2. Troubleshooting: pdf_validate_file → pdf_extract_text with all_methods=true

**Best practices:** Paths are resolved inside the upload directory; pass the saved file name or a path below it.`

	PDFValidateFileDescription = `Verify that an uploaded file is a readable PDF within the configured limits.

**When to use:** Before extraction, or to explain why an upload was rejected.

**Why it's useful:** Reports page count, or the exact reason a document is refused (empty, too large, too many pages, corrupted).

**Examples:**
• "Is 20240517_140309_contract.pdf a valid PDF?"

**Best practices:** A valid result means the collector would accept the same file as an upload.`

	PDFListRecordsDescription = `List collected records, newest first.

**When to use:** Need an overview of what has been uploaded and extracted.

**Why it's useful:** Each entry shows the record id, upload time, original and saved file names, size and how much text was extracted.

**Examples:**
• "Show the last 10 uploads"

**Best practices:** Use limit to keep responses small; fetch full text with pdf_get_record.`

	PDFGetRecordDescription = `Get one collected record, including the full extracted text.

**When to use:** Need the stored content of a specific upload.

**Examples:**
• "Show record 3f2c9a7e-..."

**Best practices:** Record ids come from pdf_list_records or from the upload response.`

	PDFRecordStatsDescription = `Get totals for the collected data.

**When to use:** Need a quick count of stored records and of records that carry extracted text.

**Examples:**
• "How many PDFs have been collected so far?"`

	PDFServerInfoDescription = `Get server status, limits, available extraction methods and recent uploads.

**When to use:** Start of a session, or to check which extraction methods this host supports.

**Why it's useful:** Shows the upload directory, size and page limits, the cascade order in effect and the most recent uploaded files.

**Best practices:** Run this first to learn which tools and file names are available.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"pdf_extract_text":  PDFExtractTextDescription,
	"pdf_validate_file": PDFValidateFileDescription,
	"pdf_list_records":  PDFListRecordsDescription,
	"pdf_get_record":    PDFGetRecordDescription,
	"pdf_record_stats":  PDFRecordStatsDescription,
	"pdf_server_info":   PDFServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the names of all available tools, sorted
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
