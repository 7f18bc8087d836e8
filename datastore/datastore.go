// Package datastore persists a single JSON snapshot file with atomic writes,
// integrity verification and rotating backups.
package datastore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/keshon/autoreply/internal/logging"
)

// emptyDocument is written when the snapshot does not exist yet.
var emptyDocument = []byte("{}")

// Config holds configuration options for the DataStore
type Config struct {
	FilePath string
	// BackupCount is the number of backup files to keep. Zero disables backups.
	BackupCount int
	// BackupInterval is the minimum time between two backups. Saves in between
	// overwrite the snapshot without copying the previous one aside.
	BackupInterval time.Duration
	Logger         logging.Logger
}

// DefaultConfig returns a default configuration
func DefaultConfig(filePath string) Config {
	return Config{
		FilePath:       filePath,
		BackupCount:    3,
		BackupInterval: time.Hour,
	}
}

type DataStore struct {
	file         string
	mu           sync.Mutex
	config       Config
	log          logging.Logger
	lastChecksum string
	lastBackup   time.Time
}

// New creates a new DataStore with default configuration
func New(filePath string) (*DataStore, error) {
	return NewWithConfig(DefaultConfig(filePath))
}

// NewWithConfig creates the store, its directory and, when missing, an empty
// snapshot.
func NewWithConfig(config Config) (*DataStore, error) {
	if config.FilePath == "" {
		return nil, errors.New("file path cannot be empty")
	}
	log := config.Logger
	if log == nil {
		log = logging.Nop()
	}

	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	ds := &DataStore{
		file:   config.FilePath,
		config: config,
		log:    log.With("file", config.FilePath),
	}

	_, err := os.Stat(config.FilePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := ds.writeFileAtomic(emptyDocument); err != nil {
			return nil, fmt.Errorf("failed to create empty JSON file: %w", err)
		}
		ds.lastChecksum = checksum(emptyDocument)
	case err != nil:
		return nil, fmt.Errorf("failed to check file existence: %w", err)
	}

	return ds, nil
}

// Path returns the snapshot path.
func (ds *DataStore) Path() string { return ds.file }

// Load returns the current snapshot bytes.
func (ds *DataStore) Load() ([]byte, error) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	data, err := os.ReadFile(ds.file)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	ds.lastChecksum = checksum(data)
	return data, nil
}

// Save replaces the snapshot with data. Unchanged content is not rewritten.
func (ds *DataStore) Save(data []byte) error {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	sum := checksum(data)
	if sum == ds.lastChecksum {
		return nil
	}

	if ds.backupDue() {
		if err := ds.createBackup(); err != nil {
			ds.log.Warn("Failed to create backup", "err", err)
		} else {
			ds.lastBackup = time.Now()
		}
	}

	if err := ds.writeFileAtomic(data); err != nil {
		return err
	}
	if err := ds.verifyFile(sum); err != nil {
		return fmt.Errorf("file verification failed: %w", err)
	}

	ds.lastChecksum = sum
	return nil
}

func (ds *DataStore) backupDue() bool {
	if ds.config.BackupCount <= 0 {
		return false
	}
	return ds.lastBackup.IsZero() || time.Since(ds.lastBackup) >= ds.config.BackupInterval
}

// writeFileAtomic writes to a temporary file, syncs it and renames it over
// the snapshot.
func (ds *DataStore) writeFileAtomic(data []byte) error {
	tmpFile := ds.file + ".tmp"

	f, err := os.OpenFile(tmpFile, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open temp file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpFile)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpFile, ds.file); err != nil {
		os.Remove(tmpFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

func (ds *DataStore) verifyFile(expected string) error {
	actual, err := os.ReadFile(ds.file)
	if err != nil {
		return fmt.Errorf("failed to read file for verification: %w", err)
	}
	if checksum(actual) != expected {
		return errors.New("file checksum mismatch")
	}
	return nil
}

// createBackup copies the current snapshot to a timestamped sibling file.
func (ds *DataStore) createBackup() error {
	src, err := os.Open(ds.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer src.Close()

	backupFile := fmt.Sprintf("%s.backup.%s", ds.file, time.Now().Format("20060102_150405.000"))
	dst, err := os.Create(backupFile)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	ds.cleanupOldBackups()
	return nil
}

// Backups lists backup files, oldest first.
func (ds *DataStore) Backups() []string {
	matches, err := filepath.Glob(ds.file + ".backup.*")
	if err != nil {
		return nil
	}
	// names embed a sortable timestamp
	sort.Strings(matches)
	return matches
}

// cleanupOldBackups removes backups beyond the configured limit.
func (ds *DataStore) cleanupOldBackups() {
	backups := ds.Backups()
	for i := 0; i < len(backups)-ds.config.BackupCount; i++ {
		if err := os.Remove(backups[i]); err != nil {
			ds.log.Warn("Failed to remove old backup", "backup", backups[i], "err", err)
		}
	}
}

func checksum(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
