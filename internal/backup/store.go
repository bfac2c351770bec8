// Package backup persists original replica counts to a per-namespace
// JSON file so a later scale-up run can restore them.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound is returned by Load when no backup file exists for the
// namespace. Fatal for a restore run.
var ErrNotFound = errors.New("backup file not found")

// ParseError is returned by Load when the backup file exists but does
// not contain a valid name -> replica count mapping.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse backup file '%s': %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Store reads and writes replica count backups in a directory
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir; an empty dir means the
// current working directory.
func NewStore(dir string) *Store {
	if dir == "" {
		dir = "."
	}
	return &Store{dir: dir}
}

// Path returns the backup file path for a namespace
func (s *Store) Path(namespace string) string {
	return filepath.Join(s.dir, fmt.Sprintf("original_replicas_%s.json", namespace))
}

// Save writes the replica mapping for a namespace, replacing any
// previous backup for that namespace (no merge).
func (s *Store) Save(namespace string, replicas map[string]int32) error {
	data, err := json.Marshal(replicas)
	if err != nil {
		return fmt.Errorf("failed to encode replica counts: %w", err)
	}
	path := s.Path(namespace)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup file '%s': %w", path, err)
	}
	return nil
}

// Load reads the replica mapping for a namespace. A missing file yields
// ErrNotFound; malformed content or negative counts yield a ParseError.
func (s *Store) Load(namespace string) (map[string]int32, error) {
	path := s.Path(namespace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w for namespace '%s' (expected '%s')", ErrNotFound, namespace, path)
		}
		return nil, fmt.Errorf("failed to read backup file '%s': %w", path, err)
	}

	var replicas map[string]int32
	if err := json.Unmarshal(data, &replicas); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	if replicas == nil {
		// A bare JSON null decodes into a nil map without an error
		return nil, &ParseError{Path: path, Err: errors.New("backup file does not contain a JSON object")}
	}
	for name, count := range replicas {
		if count < 0 {
			return nil, &ParseError{Path: path, Err: fmt.Errorf("negative replica count %d for deployment '%s'", count, name)}
		}
	}
	return replicas, nil
}
