package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

var ErrArtifactNotFound = errors.New("report artifact not found")

// Sink stores export artifacts by name. Write replaces any existing
// artifact with the same name, which is what makes re-running an export
// job idempotent.
type Sink interface {
	Write(name string, data []byte) error
	List() ([]string, error)
	Read(name string) ([]byte, error)
}

// FSSink writes artifacts to a flat directory.
type FSSink struct {
	dir string
}

func NewFSSink(dir string) (*FSSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports dir: %w", err)
	}
	return &FSSink{dir: dir}, nil
}

// cleanName keeps artifact access inside the sink directory.
func cleanName(name string) (string, error) {
	base := filepath.Base(name)
	if base != name || name == "." || name == ".." || strings.Contains(name, string(filepath.Separator)) {
		return "", fmt.Errorf("invalid artifact name %q", name)
	}
	return base, nil
}

func (s *FSSink) Write(name string, data []byte) error {
	base, err := cleanName(name)
	if err != nil {
		return err
	}

	// Write-then-rename so readers never see a half-written artifact.
	tmp := filepath.Join(s.dir, base+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, base)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publish artifact: %w", err)
	}
	return nil
}

func (s *FSSink) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *FSSink) Read(name string) ([]byte, error) {
	base, err := cleanName(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.dir, base))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrArtifactNotFound
		}
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	return data, nil
}

// MemorySink keeps artifacts in a map, for tests.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (s *MemorySink) Write(name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.files[name] = cp
	return nil
}

func (s *MemorySink) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.files))
	for n := range s.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemorySink) Read(name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.files[name]
	if !ok {
		return nil, ErrArtifactNotFound
	}
	return data, nil
}
