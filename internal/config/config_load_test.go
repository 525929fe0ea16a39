package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// withArgs runs LoadFromFlags with the given arguments plus storage flags
// pointing into a temp directory.
func withArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
	})

	dir := t.TempDir()
	os.Args = append([]string{"pdf-collector",
		"--upload-dir=" + filepath.Join(dir, "uploads"),
		"--data-file=" + filepath.Join(dir, "data", "records.jsonl"),
		"--backup-dir=" + filepath.Join(dir, "backups"),
	}, args...)
	resetFlags()

	return LoadFromFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "server")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "info")
	}
	if cfg.MaxFileSize != 16*1024*1024 {
		t.Errorf("LoadFromFlags() MaxFileSize = %v, want %v", cfg.MaxFileSize, 16*1024*1024)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("LoadFromFlags() CORSOrigins = %v, want [*]", cfg.CORSOrigins)
	}

	// Directories are created on load
	for _, d := range []string{cfg.UploadDir, cfg.BackupDir, filepath.Dir(cfg.DataFile)} {
		if _, err := os.Stat(d); err != nil {
			t.Errorf("expected %s to exist: %v", d, err)
		}
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(*testing.T, *Config)
	}{
		{
			name: "stdio mode",
			args: []string{"--mode=stdio"},
			check: func(t *testing.T, c *Config) {
				if !c.IsStdioMode() {
					t.Errorf("Mode = %s, want stdio", c.Mode)
				}
			},
		},
		{
			name: "custom host and port",
			args: []string{"--host=0.0.0.0", "--port=9090"},
			check: func(t *testing.T, c *Config) {
				if c.Address() != "0.0.0.0:9090" {
					t.Errorf("Address() = %s", c.Address())
				}
			},
		},
		{
			name: "limits",
			args: []string{"--max-file-size=1048576", "--max-pages=5"},
			check: func(t *testing.T, c *Config) {
				if c.MaxFileSize != 1048576 || c.MaxPages != 5 {
					t.Errorf("limits = %d/%d", c.MaxFileSize, c.MaxPages)
				}
			},
		},
		{
			name: "disabled methods",
			args: []string{"--disable-methods=mupdf,image-hint"},
			check: func(t *testing.T, c *Config) {
				if strings.Join(c.DisabledMethods, ",") != "mupdf,image-hint" {
					t.Errorf("DisabledMethods = %v", c.DisabledMethods)
				}
			},
		},
		{
			name: "s3 backup",
			args: []string{"--backup-s3-bucket=archive", "--backup-s3-region=eu-west-1"},
			check: func(t *testing.T, c *Config) {
				if !c.HasS3Backup() || c.BackupS3Region != "eu-west-1" {
					t.Errorf("S3 backup not configured: %+v", c)
				}
			},
		},
		{
			name: "debug logging",
			args: []string{"--log-level=debug"},
			check: func(t *testing.T, c *Config) {
				if !c.IsDebug() {
					t.Errorf("LogLevel = %s, want debug", c.LogLevel)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := withArgs(t, tt.args...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	t.Setenv("PDF_COLLECTOR_MODE", "stdio")
	t.Setenv("PDF_COLLECTOR_HOST", "192.168.1.1")
	t.Setenv("PDF_COLLECTOR_PORT", "3000")
	t.Setenv("PDF_COLLECTOR_LOG_LEVEL", "warn")
	t.Setenv("PDF_COLLECTOR_MAX_PAGES", "20")
	t.Setenv("PDF_COLLECTOR_DISABLE_METHODS", "layout")

	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Host != "192.168.1.1" {
		t.Errorf("LoadFromFlags() Host = %v, want %v", cfg.Host, "192.168.1.1")
	}
	if cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 3000)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LoadFromFlags() LogLevel = %v, want %v", cfg.LogLevel, "warn")
	}
	if cfg.MaxPages != 20 {
		t.Errorf("LoadFromFlags() MaxPages = %v, want %v", cfg.MaxPages, 20)
	}
	if len(cfg.DisabledMethods) != 1 || cfg.DisabledMethods[0] != "layout" {
		t.Errorf("LoadFromFlags() DisabledMethods = %v, want [layout]", cfg.DisabledMethods)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("PDF_COLLECTOR_MODE", "stdio")
	t.Setenv("PDF_COLLECTOR_PORT", "3000")

	cfg, err := withArgs(t, "--mode=server", "--port=8888")
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v (should override env)", cfg.Mode, "server")
	}
	if cfg.Port != 8888 {
		t.Errorf("LoadFromFlags() Port = %v, want %v (should override env)", cfg.Port, 8888)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "mode", args: []string{"--mode=invalid"}, wantErr: "mode must be either 'stdio' or 'server'"},
		{name: "port", args: []string{"--port=99999"}, wantErr: "port must be between 1 and 65535"},
		{name: "log level", args: []string{"--log-level=invalid"}, wantErr: "invalid log level"},
		{name: "pages", args: []string{"--max-pages=0"}, wantErr: "maximum page count"},
		{name: "version", args: []string{"--version"}, wantErr: "version requested"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := withArgs(t, tt.args...)
			if err == nil {
				t.Fatalf("LoadFromFlags() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}
