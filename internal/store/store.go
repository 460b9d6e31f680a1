// Package store keeps one SubRip document per transcription job in a flat
// directory. A document's existence is the only state tracked.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mgpai22/scribe/internal/subtitle"
)

// ErrNotFound is matched by every NotFoundError.
var ErrNotFound = errors.New("subtitle file not found")

// NotFoundError reports a missing subtitle document.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("subtitle file not found: %s", e.Identifier)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Store reads and writes subtitle documents under a single directory.
type Store struct {
	dir    string
	writer subtitle.Writer
}

func New(dir string) *Store {
	return &Store{dir: dir, writer: subtitle.NewWriter()}
}

// Name derives the subtitle file name for a source or subtitle file name:
// the base name with its final extension replaced by .srt.
func Name(identifier string) (string, bool) {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(identifier), "\\", "/"))
	stem := strings.TrimSuffix(base, path.Ext(base))
	switch stem {
	case "", ".", "..", "/":
		return "", false
	}
	return stem + subtitle.Extension, true
}

// Path returns where the document for identifier lives.
func (s *Store) Path(identifier string) (string, error) {
	name, ok := Name(identifier)
	if !ok {
		return "", &NotFoundError{Identifier: identifier}
	}
	return filepath.Join(s.dir, name), nil
}

// Save writes segments as the document for identifier and returns its path.
// Concurrent saves to the same identifier race; the last one wins.
func (s *Store) Save(identifier string, segments []subtitle.Segment) (string, error) {
	dst, err := s.Path(identifier)
	if err != nil {
		return "", err
	}
	if err := s.writer.Write(segments, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// Load parses the stored document for identifier.
func (s *Store) Load(identifier string) ([]subtitle.Segment, error) {
	data, err := s.Read(identifier)
	if err != nil {
		return nil, err
	}
	segments, err := subtitle.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", identifier, err)
	}
	return segments, nil
}

// Read returns the raw document bytes for identifier.
func (s *Store) Read(identifier string) ([]byte, error) {
	src, err := s.Path(identifier)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(src)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &NotFoundError{Identifier: identifier}
	}
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}
	return data, nil
}

func (s *Store) Exists(identifier string) bool {
	src, err := s.Path(identifier)
	if err != nil {
		return false
	}
	info, err := os.Stat(src)
	return err == nil && !info.IsDir()
}
