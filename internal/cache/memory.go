package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process. Safe for concurrent use.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]*memNamespace
}

type memNamespace struct {
	gen     uint64
	entries map[string][]byte
	epochs  map[string]uint64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{namespaces: make(map[string]*memNamespace)}
}

func (s *MemoryStore) GetOrCompute(ctx context.Context, key Key, loader Loader) ([]byte, error) {
	s.mu.RLock()
	var gen, epoch uint64
	if ns, ok := s.namespaces[key.Namespace]; ok {
		if v, hit := ns.entries[key.ID]; hit {
			s.mu.RUnlock()
			return clone(v), nil
		}
		gen, epoch = ns.gen, ns.epochs[key.ID]
	}
	s.mu.RUnlock()

	v, err := loader(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	ns := s.namespace(key.Namespace)
	if ns.gen == gen && ns.epochs[key.ID] == epoch {
		ns.entries[key.ID] = clone(v)
	}
	s.mu.Unlock()
	return v, nil
}

func (s *MemoryStore) Evict(_ context.Context, key Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.namespace(key.Namespace)
	delete(ns.entries, key.ID)
	ns.epochs[key.ID]++
	return nil
}

func (s *MemoryStore) EvictNamespace(_ context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns := s.namespace(namespace)
	ns.gen++
	ns.entries = make(map[string][]byte)
	ns.epochs = make(map[string]uint64)
	return nil
}

// Len reports the number of live entries in namespace.
func (s *MemoryStore) Len(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ns, ok := s.namespaces[namespace]; ok {
		return len(ns.entries)
	}
	return 0
}

// namespace must be called with mu held for writing.
func (s *MemoryStore) namespace(name string) *memNamespace {
	ns, ok := s.namespaces[name]
	if !ok {
		ns = &memNamespace{entries: make(map[string][]byte), epochs: make(map[string]uint64)}
		s.namespaces[name] = ns
	}
	return ns
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
