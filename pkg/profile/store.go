// Package profile encodes pedal configuration documents and stores them as
// named profiles on disk.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const profileExt = ".yaml"

var (
	// ErrInvalidName is returned for empty names or names containing path separators.
	ErrInvalidName = errors.New("invalid profile name")
	// ErrNotFound is returned when a profile does not exist.
	ErrNotFound = errors.New("profile not found")
)

// Store keeps named profiles in a directory and the active configuration in a
// separate file.
type Store struct {
	dir        string
	activePath string
}

// NewStore creates a store for profiles in dir and the active configuration at activePath.
func NewStore(dir, activePath string) *Store {
	return &Store{
		dir:        dir,
		activePath: activePath,
	}
}

// Init creates the profile directory if needed.
func (s *Store) Init() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	return nil
}

// SanitizeName validates a profile name and strips the file extension.
func SanitizeName(name string) (string, error) {
	name = strings.TrimSuffix(strings.TrimSpace(name), profileExt)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, os.PathSeparator) {
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return name, nil
}

// List returns the sorted names of all stored profiles.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), profileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), profileExt))
	}
	sort.Strings(names)
	return names, nil
}

// Save writes doc under name, replacing any existing profile.
func (s *Store) Save(name string, doc Document) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	return writeDocument(path, doc)
}

// Load reads the profile called name.
func (s *Store) Load(name string) (Document, error) {
	path, err := s.path(name)
	if err != nil {
		return Document{}, err
	}

	doc, err := readDocument(path)
	if os.IsNotExist(err) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return doc, err
}

// Delete removes the profile called name.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return fmt.Errorf("failed to delete profile %s: %w", name, err)
	}
	return nil
}

// SaveActive persists doc as the configuration restored at startup.
func (s *Store) SaveActive(doc Document) error {
	return writeDocument(s.activePath, doc)
}

// LoadActive reads the active configuration. It reports false if none was saved yet.
func (s *Store) LoadActive() (Document, bool, error) {
	doc, err := readDocument(s.activePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, false, nil
		}
		return Document{}, false, err
	}
	return doc, true, nil
}

func (s *Store) path(name string) (string, error) {
	name, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name+profileExt), nil
}

func writeDocument(path string, doc Document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile file: %w", err)
	}
	return nil
}

func readDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, err
	}

	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("failed to parse profile file: %w", err)
	}
	return doc, nil
}
