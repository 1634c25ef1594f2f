package inmem

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/academictoken/registry/storage/records"
)

type entry struct {
	seq   uint64
	owner string
	data  []byte
}

type bucket struct {
	entries map[string]*entry
	order   []string
}

// Store is the in-memory records.Store. Documents are kept encoded so callers never share memory
// with the store.
type Store struct {
	mu        sync.RWMutex
	buckets   map[string]*bucket
	sequences map[string]uint64
	inserted  uint64
}

var _ records.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		buckets:   make(map[string]*bucket),
		sequences: make(map[string]uint64),
	}
}

func (s *Store) bucket(kind string) *bucket {
	b, ok := s.buckets[kind]
	if !ok {
		b = &bucket{entries: make(map[string]*entry)}
		s.buckets[kind] = b
	}
	return b
}

func (s *Store) NextSequence(_ context.Context, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[name]++
	return s.sequences[name], nil
}

func (s *Store) Get(_ context.Context, kind, id string, dst interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buckets[kind]
	if !ok {
		return errors.WithStack(records.ErrNoRecord)
	}
	e, ok := b.entries[id]
	if !ok {
		return errors.WithStack(records.ErrNoRecord)
	}
	return errors.Wrap(json.Unmarshal(e.data, dst), "decoding record")
}

func (s *Store) Insert(_ context.Context, kind, id, owner string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(kind)
	if _, ok := b.entries[id]; ok {
		return errors.WithStack(records.ErrRecordExists)
	}
	s.inserted++
	b.entries[id] = &entry{seq: s.inserted, owner: owner, data: data}
	b.order = append(b.order, id)
	return nil
}

func (s *Store) Put(_ context.Context, kind, id, owner string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encoding record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.bucket(kind)
	if e, ok := b.entries[id]; ok {
		e.owner = owner
		e.data = data
		return nil
	}
	s.inserted++
	b.entries[id] = &entry{seq: s.inserted, owner: owner, data: data}
	b.order = append(b.order, id)
	return nil
}

func (s *Store) Delete(_ context.Context, kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[kind]
	if !ok {
		return errors.WithStack(records.ErrNoRecord)
	}
	if _, ok = b.entries[id]; !ok {
		return errors.WithStack(records.ErrNoRecord)
	}
	delete(b.entries, id)
	for i, oid := range b.order {
		if oid == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) List(ctx context.Context, kind, owner string, each func(raw []byte) error) error {
	s.mu.RLock()
	b, ok := s.buckets[kind]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	// copy out so `each` may call back into the store
	docs := make([][]byte, 0, len(b.order))
	for _, id := range b.order {
		e := b.entries[id]
		if owner == "" || e.owner == owner {
			docs = append(docs, e.data)
		}
	}
	s.mu.RUnlock()

	for _, data := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := each(data); err != nil {
			return err
		}
	}
	return nil
}

// Reset drops every document and sequence; used between tests.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string]*bucket)
	s.sequences = make(map[string]uint64)
	s.inserted = 0
}
