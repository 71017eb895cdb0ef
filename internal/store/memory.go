package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iwvelando/saas-forecast/internal/config"
)

type memoryKey struct {
	owner string
	name  string
}

// MemoryStore is a ConfigStore held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[memoryKey]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[memoryKey]Record),
		now:     time.Now,
	}
}

func (s *MemoryStore) Save(ctx context.Context, owner, name string, conf config.Configuration) (Record, error) {
	if err := checkKey(owner, name); err != nil {
		return Record{}, err
	}
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{owner: owner, name: name}
	now := s.now().UTC()
	rec, ok := s.records[key]
	if !ok {
		rec = Record{ID: newID(), Owner: owner, Name: name, CreatedAt: now}
	}
	rec.Config = conf.Clone()
	rec.UpdatedAt = now
	s.records[key] = rec

	return copyRecord(rec), nil
}

func (s *MemoryStore) Get(ctx context.Context, owner, name string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[memoryKey{owner: owner, name: name}]
	if !ok {
		return Record{}, notFound(owner, name)
	}
	return copyRecord(rec), nil
}

// List returns the owner's records ordered by name.
func (s *MemoryStore) List(ctx context.Context, owner string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := []Record{}
	for key, rec := range s.records {
		if key.owner == owner {
			records = append(records, copyRecord(rec))
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *MemoryStore) Delete(ctx context.Context, owner, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey{owner: owner, name: name}
	if _, ok := s.records[key]; !ok {
		return notFound(owner, name)
	}
	delete(s.records, key)
	return nil
}

func copyRecord(rec Record) Record {
	rec.Config = rec.Config.Clone()
	return rec
}
