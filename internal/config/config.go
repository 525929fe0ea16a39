package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 16 * 1024 * 1024 // 16MB
	DefaultMaxPages    = 100
	DefaultUploadDir   = "data/uploads"
	DefaultDataFile    = "data/collected.jsonl"
	DefaultBackupDir   = "data/backups"

	// EnvPrefix prefixes every environment variable, e.g. PDF_COLLECTOR_PORT.
	EnvPrefix = "PDF_COLLECTOR"

	// Directory permissions
	DefaultDirPerm = 0o750
)

// Config holds all configuration for the PDF collector
type Config struct {
	// Server configuration
	Mode        string // "server" or "stdio"
	Host        string
	Port        int
	CORSOrigins []string

	// Storage configuration
	UploadDir string
	DataFile  string
	BackupDir string

	// Optional S3 mirror for the daily backup
	BackupS3Bucket   string
	BackupS3Prefix   string
	BackupS3Region   string
	BackupS3Endpoint string

	// Extraction configuration
	MaxFileSize     int64 // Maximum PDF file size in bytes
	MaxPages        int
	DisabledMethods []string

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:        ModeServer,
		Host:        DefaultHost,
		Port:        DefaultPort,
		CORSOrigins: []string{"*"},
		UploadDir:   DefaultUploadDir,
		DataFile:    DefaultDataFile,
		BackupDir:   DefaultBackupDir,
		MaxFileSize: DefaultMaxFileSize,
		MaxPages:    DefaultMaxPages,
		Version:     "1.0.0",
		ServerName:  "pdf-collector",
		LogLevel:    DefaultLogLevel,
	}
}

// LoadFromFlags reads .env, environment variables and command line flags, in
// increasing order of precedence, and returns a validated configuration.
func LoadFromFlags() (*Config, error) {
	// A missing .env file is the normal case.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	return cfg, nil
}

var flagNames = []string{
	"mode", "host", "port", "cors-origins",
	"upload-dir", "data-file", "backup-dir",
	"backup-s3-bucket", "backup-s3-prefix", "backup-s3-region", "backup-s3-endpoint",
	"max-file-size", "max-pages", "disable-methods", "log-level",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("cors-origins", cfg.CORSOrigins)
	viper.SetDefault("upload-dir", cfg.UploadDir)
	viper.SetDefault("data-file", cfg.DataFile)
	viper.SetDefault("backup-dir", cfg.BackupDir)
	viper.SetDefault("backup-s3-bucket", cfg.BackupS3Bucket)
	viper.SetDefault("backup-s3-prefix", cfg.BackupS3Prefix)
	viper.SetDefault("backup-s3-region", cfg.BackupS3Region)
	viper.SetDefault("backup-s3-endpoint", cfg.BackupS3Endpoint)
	viper.SetDefault("max-file-size", cfg.MaxFileSize)
	viper.SetDefault("max-pages", cfg.MaxPages)
	viper.SetDefault("disable-methods", cfg.DisabledMethods)
	viper.SetDefault("log-level", cfg.LogLevel)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Run mode: 'server' for the web application, 'stdio' for MCP standard I/O")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.StringSlice("cors-origins", cfg.CORSOrigins, "Allowed CORS origins")
	pflag.String("upload-dir", cfg.UploadDir, "Directory uploaded PDFs are stored in")
	pflag.String("data-file", cfg.DataFile, "JSON-lines file records are appended to")
	pflag.String("backup-dir", cfg.BackupDir, "Directory for daily backup snapshots")
	pflag.String("backup-s3-bucket", cfg.BackupS3Bucket, "S3 bucket that mirrors daily backups (optional)")
	pflag.String("backup-s3-prefix", cfg.BackupS3Prefix, "Key prefix for mirrored backups")
	pflag.String("backup-s3-region", cfg.BackupS3Region, "Region of the backup bucket")
	pflag.String("backup-s3-endpoint", cfg.BackupS3Endpoint, "Custom S3 endpoint, e.g. MinIO")
	pflag.Int64("max-file-size", cfg.MaxFileSize, "Maximum upload size in bytes")
	pflag.Int("max-pages", cfg.MaxPages, "Maximum number of pages per PDF")
	pflag.StringSlice("disable-methods", cfg.DisabledMethods, "Extraction methods to leave out (mupdf, layout, image-hint)")
	pflag.String("log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range flagNames {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nPDF Collector - upload PDFs, extract their text and keep a record of each one\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # web application on 127.0.0.1:8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --host=0.0.0.0 --port=5000        # listen on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=stdio                      # MCP tools over stdio\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables (also read from .env):\n")
		for _, name := range flagNames {
			fmt.Fprintf(os.Stderr, "  %s\n", EnvVar(name))
		}
	}
}

// EnvVar returns the environment variable that sets the given flag.
func EnvVar(flag string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.CORSOrigins = splitList(viper.GetStringSlice("cors-origins"))
	cfg.UploadDir = viper.GetString("upload-dir")
	cfg.DataFile = viper.GetString("data-file")
	cfg.BackupDir = viper.GetString("backup-dir")
	cfg.BackupS3Bucket = viper.GetString("backup-s3-bucket")
	cfg.BackupS3Prefix = viper.GetString("backup-s3-prefix")
	cfg.BackupS3Region = viper.GetString("backup-s3-region")
	cfg.BackupS3Endpoint = viper.GetString("backup-s3-endpoint")
	cfg.MaxFileSize = viper.GetInt64("max-file-size")
	cfg.MaxPages = viper.GetInt("max-pages")
	cfg.DisabledMethods = splitList(viper.GetStringSlice("disable-methods"))
	cfg.LogLevel = viper.GetString("log-level")
}

// splitList accepts both repeated values and a single comma separated
// value, which is how lists arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.UploadDir, &c.DataFile, &c.BackupDir} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when listening
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.UploadDir == "" {
		return errors.New("upload directory cannot be empty")
	}
	if c.DataFile == "" {
		return errors.New("data file cannot be empty")
	}
	if c.BackupDir == "" {
		return errors.New("backup directory cannot be empty")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MaxPages <= 0 {
		return errors.New("maximum page count must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// EnsureDirectories creates the upload, backup and data file directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.UploadDir, c.BackupDir, filepath.Dir(c.DataFile)} {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// HasS3Backup reports whether daily backups are mirrored to S3.
func (c *Config) HasS3Backup() bool {
	return c.BackupS3Bucket != ""
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, UploadDir: %s, DataFile: %s, BackupDir: %s, "+
		"LogLevel: %s, MaxFileSize: %d, MaxPages: %d}",
		c.Mode, c.Host, c.Port, c.UploadDir, c.DataFile, c.BackupDir, c.LogLevel, c.MaxFileSize, c.MaxPages)
}

// IsServerMode returns true if the web application should be served
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the MCP tools are served over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
