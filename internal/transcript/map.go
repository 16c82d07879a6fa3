package transcript

import "sync"

// Pair is one source line and its translation. Source is the normalized key.
type Pair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Map is an insertion-ordered map from normalized source line to translated
// line. It serves both as the extracted key set (empty targets) and as the
// translation map that fills in while a stream is reconciled. A session writes
// it from one goroutine while the synchronizer reads it from another, hence
// the lock.
type Map struct {
	mu    sync.RWMutex
	index map[string]int
	pairs []Pair
}

func NewMap() *Map {
	return &Map{index: make(map[string]int)}
}

// MapFromPairs builds a Map keeping the given order; later duplicates overwrite
// earlier values in place.
func MapFromPairs(pairs []Pair) *Map {
	m := NewMap()
	for _, p := range pairs {
		m.Set(p.Source, p.Target)
	}
	return m
}

// Set inserts key or overwrites its value, keeping the first-seen position.
// It reports whether key already existed.
func (m *Map) Set(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i, ok := m.index[key]; ok {
		m.pairs[i].Target = value
		return true
	}
	m.index[key] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Source: key, Target: value})
	return false
}

// Get returns the stored value, which may be an empty placeholder.
func (m *Map) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.pairs[i].Target, true
}

// Lookup is Get that treats placeholders as missing.
func (m *Map) Lookup(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pairs)
}

// Translated counts entries with a non-empty translation.
func (m *Map) Translated() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, p := range m.pairs {
		if p.Target != "" {
			n++
		}
	}
	return n
}

func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		keys[i] = p.Source
	}
	return keys
}

// Pairs returns a copy in insertion order.
func (m *Map) Pairs() []Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Pair(nil), m.pairs...)
}

func (m *Map) Clone() *Map {
	return MapFromPairs(m.Pairs())
}
