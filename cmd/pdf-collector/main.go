package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/pdf-collector/internal/config"
	"github.com/a3tai/pdf-collector/internal/intake"
	"github.com/a3tai/pdf-collector/internal/logging"
	"github.com/a3tai/pdf-collector/internal/mcp"
	"github.com/a3tai/pdf-collector/internal/pdf"
	"github.com/a3tai/pdf-collector/internal/pdf/extract"
	"github.com/a3tai/pdf-collector/internal/records"
	"github.com/a3tai/pdf-collector/internal/web"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

const shutdownTimeout = 10 * time.Second

// app holds everything both modes share.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	pdf     *pdf.Service
	store   *records.Store
	cascade *extract.Cascade
}

// newApp wires the extraction cascade, the record store and the PDF service.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	cascade := extract.New(extract.Config{
		Logger:   logger.Named("extract"),
		MaxPages: cfg.MaxPages,
		Disabled: cfg.DisabledMethods,
	})
	logger.Info("extraction methods detected", zap.Strings("methods", cascade.Methods()))

	pdfService, err := pdf.NewService(cfg.MaxFileSize, cfg.MaxPages, cfg.UploadDir, cascade)
	if err != nil {
		return nil, fmt.Errorf("create pdf service: %w", err)
	}
	if err := pdfService.ValidateConfiguration(); err != nil {
		return nil, fmt.Errorf("invalid pdf service configuration: %w", err)
	}

	storeOpts := records.Options{
		DataFile:  cfg.DataFile,
		BackupDir: cfg.BackupDir,
		Logger:    logger.Named("records"),
	}
	if cfg.HasS3Backup() {
		mirror, err := records.NewS3Mirror(ctx, records.S3Options{
			Bucket:   cfg.BackupS3Bucket,
			Region:   cfg.BackupS3Region,
			Prefix:   cfg.BackupS3Prefix,
			Endpoint: cfg.BackupS3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		storeOpts.Mirror = mirror
		logger.Info("mirroring daily backups to s3", zap.String("bucket", cfg.BackupS3Bucket))
	}

	store, err := records.NewStore(storeOpts)
	if err != nil {
		return nil, fmt.Errorf("create record store: %w", err)
	}

	return &app{cfg: cfg, logger: logger, pdf: pdfService, store: store, cascade: cascade}, nil
}

// webServer builds the HTTP server for server mode.
func (a *app) webServer() (*http.Server, error) {
	svc, err := intake.NewService(intake.Options{
		UploadDir: a.cfg.UploadDir,
		Validator: a.pdf.Validator(),
		Extractor: a.cascade,
		Store:     a.store,
		Logger:    a.logger.Named("intake"),
	})
	if err != nil {
		return nil, err
	}

	handler, err := web.NewServer(web.Options{
		Processor:     svc,
		Store:         a.store,
		Logger:        a.logger.Named("http"),
		MaxUploadSize: a.cfg.MaxFileSize,
		CORSOrigins:   a.cfg.CORSOrigins,
		ServerName:    a.cfg.ServerName,
		Version:       a.cfg.Version,
	})
	if err != nil {
		return nil, err
	}

	return &http.Server{
		Addr:              a.cfg.Address(),
		Handler:           handler.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}, nil
}

// runServerMode serves HTTP until ctx is cancelled, then drains in-flight
// requests.
func runServerMode(ctx context.Context, a *app) error {
	srv, err := a.webServer()
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	return serve(ctx, a.logger, srv, ln)
}

func serve(ctx context.Context, logger *zap.Logger, srv *http.Server, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("initiating graceful shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped successfully")
	return nil
}

// runStdioMode serves the MCP tools on stdin/stdout. The parent process
// controls our lifecycle, so a closed stdin is a clean exit.
func runStdioMode(ctx context.Context, a *app) error {
	server, err := mcp.NewServer(a.cfg, a.pdf, a.store, a.logger.Named("mcp"))
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	// stdout belongs to the protocol in stdio mode
	logger, err := logging.New(cfg.LogLevel, cfg.IsStdioMode())
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("starting", zap.String("config", cfg.String()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("exiting", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cfg.IsServerMode() {
		return runServerMode(ctx, a)
	}
	return runStdioMode(ctx, a)
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("PDF Collector\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
