// Package jsonfile implémente le "database.json" du site: un fichier JSON
// unique chargé en mémoire et réécrit atomiquement à chaque mutation.
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/yemenflix/yflix/internal/ports"
)

const fileVersion = 1

type fileLayout struct {
	Version     int                                   `json:"version"`
	UpdatedAt   time.Time                             `json:"updatedAt"`
	Collections map[string]map[string]json.RawMessage `json:"collections"`
}

type Store struct {
	path string

	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
	closed      bool
}

// Open charge le fichier. Un fichier absent donne une base vide,
// un fichier illisible est une erreur.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("jsonfile: empty path")
	}
	s := &Store{path: path, collections: map[string]map[string]json.RawMessage{}}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return nil, err
			}
			return s, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return s, nil
	}

	var layout fileLayout
	if err := json.Unmarshal(b, &layout); err != nil {
		return nil, fmt.Errorf("jsonfile: corrupt database %s: %w", path, err)
	}
	if layout.Version > fileVersion {
		return nil, fmt.Errorf("jsonfile: unsupported database version %d", layout.Version)
	}
	for name, docs := range layout.Collections {
		if docs == nil {
			docs = map[string]json.RawMessage{}
		}
		s.collections[name] = docs
	}
	return s, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) Get(ctx context.Context, collection, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return append([]byte(nil), doc...), nil
}

// List renvoie les documents triés par id pour un ordre stable.
func (s *Store) List(ctx context.Context, collection string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([][]byte, 0, len(ids))
	for _, id := range ids {
		out = append(out, append([]byte(nil), docs[id]...))
	}
	return out, nil
}

func (s *Store) Put(ctx context.Context, collection, id string, body []byte) error {
	if collection == "" || id == "" {
		return errors.New("jsonfile: empty collection or id")
	}
	if !json.Valid(body) {
		return errors.New("jsonfile: invalid json document")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("jsonfile: store closed")
	}

	docs, ok := s.collections[collection]
	if !ok {
		docs = map[string]json.RawMessage{}
		s.collections[collection] = docs
	}
	prev, had := docs[id]
	docs[id] = append(json.RawMessage(nil), body...)

	if err := s.flushLocked(); err != nil {
		// On garde la mémoire cohérente avec le disque.
		if had {
			docs[id] = prev
		} else {
			delete(docs, id)
		}
		return err
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("jsonfile: store closed")
	}
	docs := s.collections[collection]
	prev, ok := docs[id]
	if !ok {
		return ports.ErrNotFound
	}
	delete(docs, id)
	if err := s.flushLocked(); err != nil {
		docs[id] = prev
		return err
	}
	return nil
}

// Ping vérifie que le dossier de la base est toujours accessible en écriture.
func (s *Store) Ping(ctx context.Context) error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return errors.New("jsonfile: store closed")
	}

	dir := filepath.Dir(s.path)
	st, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fmt.Errorf("jsonfile: %s is not a directory", dir)
	}
	f, err := os.CreateTemp(dir, ".ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// flushLocked écrit dans un fichier temporaire puis renomme.
func (s *Store) flushLocked() error {
	layout := fileLayout{
		Version:     fileVersion,
		UpdatedAt:   time.Now().UTC(),
		Collections: s.collections,
	}
	b, err := json.MarshalIndent(layout, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return err
	}
	return nil
}
