package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryRepository builds an in-memory application store for testing.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]Record)}
}

func (r *memoryRepository) Add(_ context.Context, record Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[record.DocID]; exists {
		return errors.New("application exists")
	}
	r.records[record.DocID] = record
	return nil
}

func (r *memoryRepository) Get(_ context.Context, docID string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[docID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return hydrate(rec)
}

func (r *memoryRepository) List(_ context.Context, filter Filter) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if !filter.match(rec) {
			continue
		}
		rec, err := hydrate(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) Delete(_ context.Context, docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[docID]; !ok {
		return ErrNotFound
	}
	delete(r.records, docID)
	return nil
}

func (r *memoryRepository) MarkApproved(_ context.Context, docID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[docID]
	if !ok {
		return ErrNotFound
	}
	at = at.UTC()
	rec.Approved = true
	rec.ApprovedAt = &at
	r.records[docID] = rec
	return nil
}
