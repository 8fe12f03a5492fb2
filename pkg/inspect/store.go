package inspect

import (
	"sort"
	"sync"
)

// MemoryStore is a goroutine-safe in-memory registry of instances. It keeps
// registration order and notifies subscribers on every registration.
type MemoryStore struct {
	mu      sync.RWMutex
	items   map[string]Instance
	order   []string
	subs    map[int]func(Instance)
	nextSub int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]Instance),
		subs:  make(map[int]func(Instance)),
	}
}

// Register adds or replaces the instance stored under key.
func (s *MemoryStore) Register(key string, inst Instance) {
	s.mu.Lock()
	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	s.items[key] = inst
	subs := make([]func(Instance), 0, len(s.subs))
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(inst)
	}
}

// Unregister removes key and reports whether it was present.
func (s *MemoryStore) Unregister(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return false
	}
	delete(s.items, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the instance stored under key.
func (s *MemoryStore) Get(key string) (Instance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.items[key]
	return inst, ok
}

// Len returns the number of registered instances.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Instances implements Store. The returned map is a copy.
func (s *MemoryStore) Instances() map[string]Instance {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Instance, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}

// Order implements Ordered.
func (s *MemoryStore) Order() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Subscribe implements Notifier.
func (s *MemoryStore) Subscribe(fn func(Instance)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Snapshot returns the instances of store in a deterministic order: the
// store's own order when it implements Ordered, lexical key order otherwise.
// A nil store yields nil.
func Snapshot(store Store) []Instance {
	if store == nil {
		return nil
	}
	items := store.Instances()
	if len(items) == 0 {
		return nil
	}
	keys := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	if o, ok := store.(Ordered); ok {
		for _, k := range o.Order() {
			if _, present := items[k]; present && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	var rest []string
	for k := range items {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	out := make([]Instance, 0, len(keys))
	for _, k := range keys {
		if inst := items[k]; !IsNil(inst) {
			out = append(out, inst)
		}
	}
	return out
}
