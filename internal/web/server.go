// Package web serves the upload form, the records listing and the JSON
// endpoints over HTTP.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-collector/internal/intake"
	"github.com/a3tai/pdf-collector/internal/records"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	// FormField is the multipart field carrying the PDF.
	FormField = "pdf_file"

	// room for multipart boundaries and headers on top of the file itself
	multipartOverhead = 1 << 20
	formMemory        = 8 << 20

	successMessage = "Data extracted and saved successfully!"
)

// Processor handles one upload.
type Processor interface {
	Process(ctx context.Context, up intake.Upload) (*intake.Outcome, error)
}

// RecordStore is the read side of the collected data.
type RecordStore interface {
	List() ([]records.Record, error)
	Get(id string) (*records.Record, error)
	Stats() (*records.Stats, error)
}

// Options configures a Server.
type Options struct {
	Processor     Processor
	Store         RecordStore
	Logger        *zap.Logger
	MaxUploadSize int64
	CORSOrigins   []string
	ServerName    string
	Version       string
}

// Server holds the HTTP handlers.
type Server struct {
	processor Processor
	store     RecordStore
	logger    *zap.Logger
	maxUpload int64
	origins   []string
	name      string
	version   string
	pages     map[string]*template.Template
}

// NewServer parses the templates and checks the options.
func NewServer(opts Options) (*Server, error) {
	if opts.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if opts.Store == nil {
		return nil, errors.New("record store is required")
	}
	if opts.MaxUploadSize <= 0 {
		return nil, errors.New("max upload size must be positive")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	return &Server{
		processor: opts.Processor,
		store:     opts.Store,
		logger:    opts.Logger,
		maxUpload: opts.MaxUploadSize,
		origins:   opts.CORSOrigins,
		name:      opts.ServerName,
		version:   opts.Version,
		pages:     pages,
	}, nil
}

var funcs = template.FuncMap{
	"runes":   func(s string) int { return len([]rune(s)) },
	"preview": preview,
	"kb":      func(n int64) string { return fmt.Sprintf("%.1f KB", float64(n)/1024) },
}

func parsePages() (map[string]*template.Template, error) {
	pages := map[string]*template.Template{}
	for _, name := range []string{"index.html", "records.html"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Post("/upload", s.handleUpload)
	r.Get("/records", s.handleRecords)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(api chi.Router) {
		api.Get("/stats", s.handleStats)
		api.Get("/records/{id}", s.handleRecord)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusNotFound, "index.html", indexData{Error: "Page not found"})
	})

	return r
}

// requestLogger logs one line per request with zap.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)))
		}()
		next.ServeHTTP(ww, r)
	})
}

type indexData struct {
	Name    string
	Version string
	Error   string
	MaxMB   int64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "index.html", indexData{Error: r.URL.Query().Get("error")})
}

type recordsData struct {
	Name    string
	Version string
	Records []records.Record
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.List()
	if err != nil {
		s.logger.Error("load records failed", zap.Error(err))
		http.Redirect(w, r, "/?error="+url.QueryEscape("Error loading data"), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "records.html", recordsData{Records: list})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	switch d := data.(type) {
	case indexData:
		d.Name, d.Version, d.MaxMB = s.name, s.version, s.maxUpload/(1024*1024)
		data = d
	case recordsData:
		d.Name, d.Version = s.name, s.version
		data = d
	}

	var buf strings.Builder
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.logger.Error("render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(buf.String()))
}

type uploadResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	RecordID       string `json:"record_id"`
	File           string `json:"file"`
	ExtractedChars int    `json:"extracted_chars"`
}

type errorResponse struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.uploadError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
			return
		}
		s.uploadError(w, http.StatusBadRequest, "No PDF file was sent")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(FormField)
	if err != nil {
		s.uploadError(w, http.StatusBadRequest, "No PDF file was sent")
		return
	}
	defer file.Close()

	if header.Size > s.maxUpload {
		s.uploadError(w, http.StatusRequestEntityTooLarge, s.tooLargeMessage())
		return
	}

	out, err := s.processor.Process(r.Context(), intake.Upload{
		Filename:   header.Filename,
		Size:       header.Size,
		Body:       file,
		RemoteAddr: clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	switch {
	case err == nil:
	case errors.Is(err, intake.ErrInvalidInput):
		s.uploadError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, intake.ErrPersistence):
		s.uploadError(w, http.StatusInternalServerError, err.Error())
		return
	default:
		s.logger.Error("upload failed", zap.Error(err))
		s.uploadError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Success:        true,
		Message:        successMessage,
		RecordID:       out.RecordID,
		File:           out.OriginalName,
		ExtractedChars: out.ExtractedChars,
	})
}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File too large (maximum %d MB)", s.maxUpload/(1024*1024))
}

func (s *Server) uploadError(w http.ResponseWriter, status int, msg string) {
	s.logger.Warn("upload rejected", zap.Int("status", status), zap.String("reason", msg))
	writeJSON(w, status, errorResponse{Success: false, Errors: []string{msg}})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Stats()
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, records.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
	case err != nil:
		s.logger.Error("get record failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, rec)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// clientIP drops the port from RemoteAddr when there is one.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
