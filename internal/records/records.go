// Package records persists one record per processed upload to an
// append-only JSON-lines file and keeps a once-a-day backup snapshot.
package records

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// Version is the record schema version.
	Version = "1.0"

	// StatusProcessed marks a record whose PDF went through extraction.
	StatusProcessed = "processed"

	createdAtLayout = "2006-01-02 15:04:05"
	backupDayLayout = "20060102"

	filePerm = 0o640
)

// ErrNotFound is returned by Get for unknown ids.
var ErrNotFound = errors.New("record not found")

// FileInfo describes the stored upload.
type FileInfo struct {
	OriginalName string `json:"original_name"`
	SavedName    string `json:"saved_name"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
}

// Data is the payload of a record.
type Data struct {
	PDFContent string   `json:"pdf_content"`
	File       FileInfo `json:"file"`
	Status     string   `json:"status"`
	IPAddress  string   `json:"ip_address"`
	UserAgent  string   `json:"user_agent"`
}

// Record is one line of the data file.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Data      Data      `json:"data"`
	CreatedAt string    `json:"created_at"`
	Version   string    `json:"version"`
}

// Stats summarises the data file.
type Stats struct {
	TotalRecords int    `json:"total_records"`
	TotalPDFs    int    `json:"total_pdfs"`
	Uptime       string `json:"uptime"`
}

// Mirror receives a copy of each daily backup snapshot.
type Mirror interface {
	Put(ctx context.Context, name string, body []byte) error
}

// Options configures a Store.
type Options struct {
	DataFile  string
	BackupDir string
	Mirror    Mirror // optional
	Logger    *zap.Logger

	// Now and NewID exist for tests.
	Now   func() time.Time
	NewID func() string
}

// Store appends records and reads them back.
type Store struct {
	mu        sync.Mutex
	dataFile  string
	backupDir string
	mirror    Mirror
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
}

// NewStore validates the options and returns a store. The data file is
// created lazily on first append.
func NewStore(opts Options) (*Store, error) {
	if opts.DataFile == "" {
		return nil, errors.New("data file cannot be empty")
	}
	if opts.BackupDir == "" {
		return nil, errors.New("backup directory cannot be empty")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}

	return &Store{
		dataFile:  opts.DataFile,
		backupDir: opts.BackupDir,
		mirror:    opts.Mirror,
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}, nil
}

// Append wraps data into a new record and writes it as one line. The daily
// backup is attempted afterwards; its failure is logged, never returned.
func (s *Store) Append(ctx context.Context, data Data) (*Record, error) {
	now := s.now()
	rec := &Record{
		Timestamp: now,
		ID:        s.newID(),
		Data:      data,
		CreatedAt: now.Format(createdAtLayout),
		Version:   Version,
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	err = s.appendLine(line)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.logger.Info("record saved", zap.String("record_id", rec.ID), zap.String("file", s.dataFile))
	s.backup(ctx, rec)
	return rec, nil
}

func (s *Store) appendLine(line []byte) error {
	f, err := os.OpenFile(s.dataFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync data file: %w", err)
	}
	return nil
}

// BackupName is the snapshot file name for the given day.
func BackupName(day time.Time) string {
	return "backup_" + day.Format(backupDayLayout) + ".json"
}

// writeBackup is swapped in tests to simulate a full disk.
var writeBackup = func(f *os.File, body []byte) (int, error) { return f.Write(body) }

// backup writes rec as the day's snapshot unless one already exists.
func (s *Store) backup(ctx context.Context, rec *Record) {
	name := BackupName(rec.Timestamp)
	log := s.logger.With(zap.String("backup", name))

	body, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		log.Warn("encode backup failed", zap.Error(err))
		return
	}

	path := filepath.Join(s.backupDir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if errors.Is(err, fs.ErrExist) {
		return
	}
	if err != nil {
		log.Warn("create backup failed", zap.Error(err))
		return
	}
	_, werr := writeBackup(f, body)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		// a partial snapshot would block the day's backup for good
		_ = os.Remove(path)
		log.Warn("write backup failed", zap.Error(errors.Join(werr, cerr)))
		return
	}
	log.Info("daily backup written")

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, name, body); err != nil {
			log.Warn("mirror backup failed", zap.Error(err))
			return
		}
		log.Info("daily backup mirrored")
	}
}

// List returns every readable record, newest first. Lines that are not
// valid records are skipped.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := os.ReadFile(s.dataFile)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data file: %w", err)
	}

	out := []Record{}
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), len(content)+1)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			s.logger.Warn("skipping invalid record line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan data file: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out, nil
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (*Record, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Stats counts records and records that carry extracted content.
func (s *Store) Stats() (*Stats, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	st := &Stats{TotalRecords: len(all), Uptime: s.now().Format(time.RFC3339)}
	for _, r := range all {
		if r.Data.PDFContent != "" {
			st.TotalPDFs++
		}
	}
	return st, nil
}
