// Package store loads and persists the gateway's single profiles.json
// document, serializing writers through a single mutex.
package store

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/eeu479/proxyman-helper/internal/model"
	"github.com/sirupsen/logrus"
)

//go:embed seed/profiles.json
var defaultSeed []byte

// FileName is the name of the persisted document within the data directory.
const FileName = "profiles.json"

// Store owns the on-disk profiles.json document and serializes writers
// through a single mutex. Readers re-open the file on every call and never
// fail: a missing or corrupt file resets to a default-empty document.
type Store struct {
	path   string
	mu     sync.Mutex
	log    *logrus.Entry
}

// New creates a Store rooted at <dataDir>/profiles.json, creating the data
// directory and seeding the file from the embedded default document if it
// does not yet exist.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	s := &Store{
		path: filepath.Join(dataDir, FileName),
		log:  logrus.WithField("component", "store"),
	}
	if !fileExists(s.path) {
		if err := os.WriteFile(s.path, defaultSeed, 0o644); err != nil {
			return nil, fmt.Errorf("write default seed: %w", err)
		}
	}
	return s, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Read parses the document. Parse failures never propagate to the caller:
// they fall back to a default-empty Store, then Migrate runs unconditionally.
func (s *Store) Read() model.Store {
	data, err := os.ReadFile(s.path)
	var doc model.Store
	if err != nil {
		s.log.WithError(err).Warn("read profiles.json failed, using default store")
		doc = model.Store{}
	} else if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
		s.log.WithError(jsonErr).Warn("parse profiles.json failed, using default store")
		doc = model.Store{}
	}
	Migrate(&doc)
	return doc
}

// Write serializes doc as pretty JSON under the writer lock.
func (s *Store) Write(doc model.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("ensure data directory: %w", err)
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal store: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return fmt.Errorf("write profiles.json: %w", err)
	}
	return nil
}

// Mutate reads the current document, applies fn, and persists the result
// while holding the writer lock for the whole read-modify-write sequence, so
// callers get linearizable control-plane mutations instead of last-writer-wins.
func (s *Store) Mutate(fn func(*model.Store) error) (model.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	var doc model.Store
	if err != nil {
		doc = model.Store{}
	} else if jsonErr := json.Unmarshal(data, &doc); jsonErr != nil {
		doc = model.Store{}
	}
	Migrate(&doc)

	if err := fn(&doc); err != nil {
		return model.Store{}, err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return model.Store{}, fmt.Errorf("ensure data directory: %w", err)
	}
	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return model.Store{}, fmt.Errorf("marshal store: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return model.Store{}, fmt.Errorf("write profiles.json: %w", err)
	}
	return doc, nil
}

// Migrate applies legacy-shape fixups: every profile whose library list is
// empty gets the local sentinel library (I3).
func Migrate(doc *model.Store) {
	for i := range doc.Profiles {
		ensureLocalLibrary(&doc.Profiles[i])
	}
}

func ensureLocalLibrary(p *model.Profile) {
	if len(p.Libraries) == 0 {
		p.Libraries = []model.Library{{
			ID:   model.LocalLibraryID,
			Name: "Local",
			Type: "local",
		}}
	}
}
