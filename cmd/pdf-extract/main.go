// Command pdf-extract runs the extraction cascade on one PDF and prints the
// text that would be stored for it.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-collector/internal/logging"
	"github.com/a3tai/pdf-collector/internal/pdf"
	"github.com/a3tai/pdf-collector/internal/pdf/extract"
)

// ExtractionResult is the JSON output.
type ExtractionResult struct {
	FilePath       string    `json:"file_path"`
	Success        bool      `json:"success"`
	Pages          int       `json:"pages"`
	Methods        []string  `json:"methods"`
	Content        string    `json:"content"`
	Attempts       []Attempt `json:"attempts"`
	Error          string    `json:"error,omitempty"`
	ExtractionTime string    `json:"extraction_time,omitempty"`
}

// Attempt is one method's report, including why it failed.
type Attempt struct {
	Method  string `json:"method"`
	Pages   int    `json:"pages"`
	Chars   int    `json:"chars"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func convertAttempts(in []extract.Attempt) []Attempt {
	out := make([]Attempt, 0, len(in))
	for _, a := range in {
		out = append(out, Attempt{
			Method:  a.Method,
			Pages:   a.Pages,
			Chars:   a.Chars,
			Success: a.Success,
			Error:   a.Error(),
		})
	}
	return out
}

type options struct {
	format      string
	allMethods  bool
	verbose     bool
	maxPages    int
	maxFileSize int64
	disabled    []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := pflag.NewFlagSet("pdf-extract", pflag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.format, "format", "text", "Output format: text, json")
	fs.BoolVar(&opts.allMethods, "all", false, "Run every available method and report each one")
	fs.BoolVarP(&opts.verbose, "verbose", "V", false, "Log method attempts to stderr")
	fs.IntVar(&opts.maxPages, "max-pages", 100, "Maximum number of pages accepted")
	fs.Int64Var(&opts.maxFileSize, "max-file-size", 16*1024*1024, "Maximum file size in bytes")
	fs.StringSliceVar(&opts.disabled, "disable-methods", nil, "Extraction methods to skip (comma separated)")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: pdf-extract [OPTIONS] <pdf-file>\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one PDF file path required\n\n")
		fs.Usage()
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format %q\n", opts.format)
		return 2
	}

	logger := zap.NewNop()
	if opts.verbose {
		l, err := logging.New("debug", true)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		logger = l
		defer func() { _ = logger.Sync() }()
	}

	result := extractFile(fs.Arg(0), opts, logger)
	if err := output(stdout, opts.format, result); err != nil {
		fmt.Fprintf(stderr, "Error outputting results: %v\n", err)
		return 1
	}
	if result.Error != "" {
		if opts.format == "text" {
			fmt.Fprintf(stderr, "Error: %s\n", result.Error)
		}
		return 1
	}
	return 0
}

func extractFile(path string, opts options, logger *zap.Logger) *ExtractionResult {
	start := time.Now()
	result := &ExtractionResult{FilePath: path}

	pages, err := pdf.NewValidator(opts.maxFileSize, opts.maxPages).ValidateFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Pages = pages

	cascade := extract.New(extract.Config{Logger: logger, MaxPages: opts.maxPages, Disabled: opts.disabled})
	res := cascade.Run(path)

	result.Success = res.OK()
	result.Methods = res.Methods
	result.Content = res.String()
	attempts := res.Attempts
	if opts.allMethods {
		attempts = cascade.Probe(path)
	}
	result.Attempts = convertAttempts(attempts)
	result.ExtractionTime = time.Since(start).String()
	return result
}

func output(w io.Writer, format string, result *ExtractionResult) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}
	if result.Error != "" {
		return nil
	}

	fmt.Fprintf(w, "File: %s\n", result.FilePath)
	fmt.Fprintf(w, "Pages: %d\n", result.Pages)
	fmt.Fprintln(w, "Attempts:")
	for _, a := range result.Attempts {
		status := "ok"
		switch {
		case a.Error != "":
			status = "failed: " + a.Error
		case !a.Success:
			status = "no text"
		}
		fmt.Fprintf(w, "  • %s: %d pages, %d chars, %s\n", a.Method, a.Pages, a.Chars, status)
	}
	fmt.Fprintln(w)
	_, err := fmt.Fprintln(w, result.Content)
	return err
}
