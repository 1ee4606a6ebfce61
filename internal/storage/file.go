package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tartampluch/birthday-tracker/internal/config"
)

// fileStore persists the record set as a single JSON document and the
// last-fired marker as a small sidecar file next to it. Writes go through a
// temp file plus rename so a crash mid-write never truncates existing data.
type fileStore struct {
	mu sync.Mutex

	recordsPath string
	statePath   string
}

// recordsDocument is the on-disk shape of the record file.
type recordsDocument struct {
	Birthdays []RawRecord `json:"birthdays"`
}

// stateDocument is the on-disk shape of the marker sidecar.
type stateDocument struct {
	LastFired string `json:"last_fired"`
}

func openFile(cfg Config) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New(config.ErrStoragePath)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageOpen, err)
	}

	prefix := strings.TrimSuffix(path, filepath.Ext(path))
	return &fileStore{
		recordsPath: path,
		statePath:   prefix + config.StateFileSuffix,
	}, nil
}

func (s *fileStore) LoadRecords(_ context.Context) ([]RawRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.recordsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", config.ErrStorageLoad, err)
	}

	var doc recordsDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrStorageLoad, err)
	}
	return doc.Birthdays, nil
}

func (s *fileStore) SaveRecords(_ context.Context, records []RawRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := recordsDocument{Birthdays: records}
	if doc.Birthdays == nil {
		doc.Birthdays = []RawRecord{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSave, err)
	}
	if err := writeFileAtomic(s.recordsPath, b); err != nil {
		return fmt.Errorf("%s: %w", config.ErrStorageSave, err)
	}
	return nil
}

func (s *fileStore) LoadLastFired(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.statePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%s: %w", config.ErrMarkerLoad, err)
	}

	var doc stateDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrMarkerLoad, err)
	}
	return doc.LastFired, nil
}

func (s *fileStore) SaveLastFired(_ context.Context, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.Marshal(stateDocument{LastFired: day})
	if err != nil {
		return fmt.Errorf("%s: %w", config.ErrMarkerSave, err)
	}
	if err := writeFileAtomic(s.statePath, b); err != nil {
		return fmt.Errorf("%s: %w", config.ErrMarkerSave, err)
	}
	return nil
}

func (s *fileStore) Close() error {
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(tmpName)
		if werr != nil {
			return werr
		}
		return cerr
	}
	if err := os.Chmod(tmpName, config.FilePermUserRW); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
