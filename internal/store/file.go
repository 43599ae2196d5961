package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/i474232898/dht-data/internal/sensor"
)

var _ sensor.Persister = (*FileStore)(nil)

// FileStore persists the history as a JSON array in a single file.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore backed by path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the backing file path.
func (f *FileStore) Path() string {
	return f.path
}

// Load reads the persisted history. Any failure is logged and yields an
// empty history so that startup never depends on the file.
func (f *FileStore) Load() []sensor.Record {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Printf("INFO: store: no history at %s, starting empty", f.path)
		} else {
			log.Printf("ERROR: store: failed to read %s: %v", f.path, err)
		}
		return []sensor.Record{}
	}

	var records []sensor.Record
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("ERROR: store: failed to decode records from %s: %v", f.path, err)
		return []sensor.Record{}
	}
	if records == nil {
		records = []sensor.Record{}
	}

	log.Printf("INFO: store: loaded %d records from %s", len(records), f.path)
	return records
}

// Save rewrites the whole history. The data is written to a temporary file in
// the same directory and renamed over the target, so readers of the file see
// either the previous or the new history.
func (f *FileStore) Save(records []sensor.Record) error {
	if records == nil {
		records = []sensor.Record{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
