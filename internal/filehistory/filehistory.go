// Package filehistory keeps a small persistent list of recently opened
// file sources and discovers openable files in a directory. The list
// lives in a JSON document under the user's home directory and is
// capped, oldest entries dropping first.
package filehistory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

const (
	// MaxEntries bounds the recent-files list.
	MaxEntries = 20

	storeDirName  = ".tuckview"
	storeFileName = "recent_files.json"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry describes one recently opened file.
type Entry struct {
	ID         string `json:"id"`
	Path       string `json:"path"`
	Name       string `json:"name"`
	LastOpened string `json:"last_opened"`
	SizeBytes  int64  `json:"size_bytes"`
}

// Store is a concurrency-safe recent-files list backed by a JSON file.
// When the backing directory cannot be created the store degrades to
// memory-only operation and keeps working for the process lifetime.
type Store struct {
	mu         sync.Mutex
	path       string
	memoryOnly bool
	entries    []Entry
	now        func() time.Time
}

// NewStore creates a store rooted at dir. An empty dir defaults to
// a dot directory under the user's home.
func NewStore(dir string) *Store {
	store := &Store{now: time.Now}

	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			store.memoryOnly = true

			return store
		}
		dir = filepath.Join(home, storeDirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		store.memoryOnly = true

		return store
	}

	store.path = filepath.Join(dir, storeFileName)
	store.entries = store.load()

	return store
}

// Record inserts or refreshes the entry for path, moving it to the
// front of the list and persisting the result.
func (s *Store) Record(path string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	absolute, err := filepath.Abs(path)
	if err != nil {
		absolute = path
	}

	entry := Entry{
		ID:         uuid.NewString(),
		Path:       absolute,
		Name:       filepath.Base(absolute),
		LastOpened: s.now().UTC().Format(time.RFC3339),
	}

	if info, statErr := os.Stat(absolute); statErr == nil {
		entry.SizeBytes = info.Size()
	}

	kept := make([]Entry, 0, len(s.entries)+1)
	kept = append(kept, entry)

	for _, existing := range s.entries {
		if existing.Path == absolute {
			entry.ID = existing.ID
			kept[0] = entry

			continue
		}
		kept = append(kept, existing)
	}

	if len(kept) > MaxEntries {
		kept = kept[:MaxEntries]
	}

	s.entries = kept
	s.persist()

	return entry
}

// List returns a copy of the recent entries, most recent first.
func (s *Store) List() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	listed := make([]Entry, len(s.entries))
	copy(listed, s.entries)

	return listed
}

// Remove drops the entry with the given id. Unknown ids are a no-op.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.entries[:0]
	for _, existing := range s.entries {
		if existing.ID != id {
			kept = append(kept, existing)
		}
	}

	s.entries = kept
	s.persist()
}

func (s *Store) load() []Entry {
	if s.memoryOnly {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}

	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}

	return entries
}

func (s *Store) persist() {
	if s.memoryOnly {
		return
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return
	}

	_ = os.WriteFile(s.path, data, 0o644)
}

// DiscoveredFile describes one openable file found by Discover.
type DiscoveredFile struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

// Discover lists files in dir whose extension matches one of the given
// recognizers. Recognizers are source-recognition predicates, usually
// backend Opener.Recognize functions.
func Discover(dir string, recognizers ...func(string) bool) ([]DiscoveredFile, error) {
	listed, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var discovered []DiscoveredFile

	for _, item := range listed {
		if item.IsDir() || strings.HasPrefix(item.Name(), ".") {
			continue
		}

		path := filepath.Join(dir, item.Name())

		recognized := false
		for _, recognize := range recognizers {
			if recognize(path) {
				recognized = true

				break
			}
		}

		if !recognized {
			continue
		}

		file := DiscoveredFile{Path: path, Name: item.Name()}
		if info, infoErr := item.Info(); infoErr == nil {
			file.SizeBytes = info.Size()
		}

		discovered = append(discovered, file)
	}

	sort.Slice(discovered, func(i, j int) bool {
		return discovered[i].Name < discovered[j].Name
	})

	return discovered, nil
}
