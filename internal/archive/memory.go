package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/stroke-code-server/internal/domain"
)

// MemoryStore implements domain.CaseStore in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	cases   []domain.Case
	indexes map[string]int
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{indexes: make(map[string]int)}
}

// Append stores a copy of c
func (s *MemoryStore) Append(ctx context.Context, c domain.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.indexes[c.ID]; exists {
		return fmt.Errorf("case %s: %w", c.ID, domain.ErrDuplicateCase)
	}
	s.indexes[c.ID] = len(s.cases)
	s.cases = append(s.cases, c.Clone())
	return nil
}

// Get returns a copy of the case with the given id
func (s *MemoryStore) Get(ctx context.Context, id string) (domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.indexes[id]
	if !ok {
		return domain.Case{}, fmt.Errorf("case %s: %w", id, domain.ErrNotFound)
	}
	return s.cases[i].Clone(), nil
}

// List returns cases in insertion order with pagination
func (s *MemoryStore) List(ctx context.Context, limit, offset int) ([]domain.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.cases) {
		return []domain.Case{}, nil
	}
	end := len(s.cases)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]domain.Case, 0, end-offset)
	for _, c := range s.cases[offset:end] {
		out = append(out, c.Clone())
	}
	return out, nil
}

// Count returns the number of stored cases
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.cases)), nil
}

// ExportJSON writes every stored case to writer
func (s *MemoryStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, -1, 0)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(CaseExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Cases:      all,
	})
}

// ImportJSON appends the cases of an export, skipping ids already stored
func (s *MemoryStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export CaseExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return importCases(ctx, s, export)
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
