package policy

import (
	"encoding/gob"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileStore keeps policies in memory and mirrors every mutation to a gob
// file so the set survives restarts. A store opened against an empty or
// missing file seeds the default rules.
type FileStore struct {
	mu       sync.Mutex
	path     string
	policies map[int64]Policy
	nextID   int64
}

type persistedState struct {
	Policies map[int64]Policy
	NextID   int64
}

// NewFileStore opens or creates the store at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, policies: make(map[int64]Policy), nextID: 1}
	if err := s.load(); err != nil {
		return nil, err
	}
	if len(s.policies) == 0 {
		if err := s.seed(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *FileStore) load() error {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open policy store: %w", err)
	}
	defer f.Close()

	var state persistedState
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return fmt.Errorf("failed to decode policy store: %w", err)
	}
	s.policies = state.Policies
	s.nextID = state.NextID
	return nil
}

// persist writes the full state. Callers hold the lock.
func (s *FileStore) persist() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create policy store directory: %w", err)
		}
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("failed to create policy store file: %w", err)
	}
	defer f.Close()

	state := persistedState{Policies: s.policies, NextID: s.nextID}
	if err := gob.NewEncoder(f).Encode(state); err != nil {
		return fmt.Errorf("failed to encode policy store: %w", err)
	}
	return nil
}

// seed installs the default rule set on first run.
func (s *FileStore) seed() error {
	defaults := []Policy{
		{AppName: "Google Chrome", Protocol: "TCP", Port: 443, Action: "ALLOW"},
		{AppName: "Git Client", Protocol: "TCP", Port: 22, Action: "ALLOW"},
		{AppName: "Unknown Process", Protocol: "UDP", Port: 5353, Action: "DENY"},
	}
	log.Println("Seeding default policies...")

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range defaults {
		p.ID = s.nextID
		s.nextID++
		s.policies[p.ID] = p
	}
	return s.persist()
}

// Create assigns the next id and persists the new policy.
func (s *FileStore) Create(p Policy) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = s.nextID
	s.nextID++
	s.policies[p.ID] = p
	if err := s.persist(); err != nil {
		delete(s.policies, p.ID)
		return Policy{}, err
	}
	return p, nil
}

// List returns policies ordered by id, applying offset and limit.
func (s *FileStore) List(offset, limit int) ([]Policy, error) {
	all, err := s.All()
	if err != nil {
		return nil, err
	}
	if offset >= len(all) {
		return []Policy{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// Get returns one policy by id.
func (s *FileStore) Get(id int64) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[id]
	if !ok {
		return Policy{}, ErrNotFound
	}
	return p, nil
}

// Update replaces an existing policy record.
func (s *FileStore) Update(p Policy) (Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.policies[p.ID]
	if !ok {
		return Policy{}, ErrNotFound
	}
	s.policies[p.ID] = p
	if err := s.persist(); err != nil {
		s.policies[p.ID] = prev
		return Policy{}, err
	}
	return p, nil
}

// Delete removes a policy by id.
func (s *FileStore) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.policies[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.policies, id)
	if err := s.persist(); err != nil {
		s.policies[id] = prev
		return err
	}
	return nil
}

// All returns every policy ordered by id.
func (s *FileStore) All() ([]Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Policy, 0, len(s.policies))
	for _, p := range s.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
