// Package store keeps one JSON file of visibility records per observation
// date. Files are written once and never updated.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DateLayout is the DD.MM.YYYY form used in file names and URLs.
const DateLayout = "02.01.2006"

const (
	filePrefix = "dsos_"
	fileSuffix = ".json"
)

var (
	// ErrPersistence wraps IO failures reading or writing the store.
	ErrPersistence = errors.New("persistence error")
	// ErrNotExist is returned by Load when no file exists for the date.
	ErrNotExist = errors.New("no records for date")
	// ErrExists is returned by Create when the date already has a file.
	ErrExists = errors.New("records for date already exist")
)

// Store is a directory of dated record files.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store rooted at dir.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

// FileName returns the file name for date, e.g. dsos_17.09.2023.json.
func FileName(date time.Time) string {
	return filePrefix + date.Format(DateLayout) + fileSuffix
}

// Path returns the full path of the file for date.
func (s *Store) Path(date time.Time) string {
	return filepath.Join(s.dir, FileName(date))
}

// Load returns the raw contents stored for date.
func (s *Store) Load(date time.Time) ([]byte, error) {
	path := s.Path(date)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", date.Format(DateLayout), ErrNotExist)
		}
		return nil, fmt.Errorf("%w: reading %s: %w", ErrPersistence, path, err)
	}
	return data, nil
}

// Create stores data for date unless a file already exists. The content is
// written to a temp file first and hard-linked into place, so readers never
// observe a partial file and exactly one concurrent writer wins.
func (s *Store) Create(date time.Time, data []byte) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrPersistence, s.dir, err)
	}

	path := s.Path(date)
	tmp, err := os.CreateTemp(s.dir, ".dsos-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %w", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %w", ErrPersistence, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: syncing %s: %w", ErrPersistence, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %w", ErrPersistence, tmpName, err)
	}

	err = os.Link(tmpName, path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%s: %w", FileName(date), ErrExists)
	default:
		// Some filesystems refuse hard links; fall back to exclusive create.
		s.logger.Debug("hard link failed, using exclusive create", "path", path, "error", err)
		if err := createExclusive(path, data); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%s: %w", FileName(date), ErrExists)
			}
			return fmt.Errorf("%w: writing %s: %w", ErrPersistence, path, err)
		}
	}

	s.logger.Info("records stored", "path", path, "bytes", len(data))
	return nil
}

func createExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// Dates lists the dates that have files, newest first.
func (s *Store) Dates() ([]time.Time, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: listing %s: %w", ErrPersistence, s.dir, err)
	}

	var dates []time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
		d, err := time.Parse(DateLayout, raw)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].After(dates[j])
	})
	return dates, nil
}
