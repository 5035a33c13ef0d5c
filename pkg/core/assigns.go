package core

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
)

// Assigns is a thread-safe store for the values a component exposes to
// its template. It records which keys changed since the last render.
type Assigns struct {
	data    map[string]any
	hashes  map[string]uint64
	changed map[string]bool
	mu      sync.RWMutex
}

// NewAssigns creates a new assigns store.
func NewAssigns() *Assigns {
	return &Assigns{
		data:    make(map[string]any),
		hashes:  make(map[string]uint64),
		changed: make(map[string]bool),
	}
}

// Get retrieves a value from the store.
func (a *Assigns) Get(key string) any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.data[key]
}

// GetString retrieves a string value.
func (a *Assigns) GetString(key string) string {
	if v, ok := a.Get(key).(string); ok {
		return v
	}
	return ""
}

// GetInt retrieves an int value.
func (a *Assigns) GetInt(key string) int {
	if v, ok := a.Get(key).(int); ok {
		return v
	}
	return 0
}

// GetBool retrieves a bool value.
func (a *Assigns) GetBool(key string) bool {
	if v, ok := a.Get(key).(bool); ok {
		return v
	}
	return false
}

// Set stores a value. The key is marked changed only when the value differs.
func (a *Assigns) Set(key string, value any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setLocked(key, value)
}

// SetAll sets multiple values at once.
func (a *Assigns) SetAll(values map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, value := range values {
		a.setLocked(key, value)
	}
}

func (a *Assigns) setLocked(key string, value any) {
	h := hashValue(value)
	if prev, ok := a.hashes[key]; !ok || prev != h {
		a.changed[key] = true
	}
	a.hashes[key] = h
	a.data[key] = value
}

// Data returns a copy of all data.
func (a *Assigns) Data() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()
	result := make(map[string]any, len(a.data))
	for k, v := range a.data {
		result[k] = v
	}
	return result
}

// Changed returns the sorted keys changed since the last ResetChanges.
func (a *Assigns) Changed() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.changed))
	for k := range a.changed {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HasChanges reports whether any key changed since the last ResetChanges.
func (a *Assigns) HasChanges() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.changed) > 0
}

// ResetChanges forgets the changed keys, typically after a render was sent.
func (a *Assigns) ResetChanges() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.changed = make(map[string]bool)
}

// hashValue calculates a fast hash of any value.
func hashValue(v any) uint64 {
	h := fnv.New64a()
	switch val := v.(type) {
	case nil:
		h.Write([]byte{0})
	case string:
		h.Write([]byte("s:" + val))
	case int, int64, bool, float64:
		fmt.Fprintf(h, "%T:%v", val, val)
	default:
		data, err := json.Marshal(val)
		if err != nil {
			fmt.Fprintf(h, "%#v", val)
		} else {
			h.Write(data)
		}
	}
	return h.Sum64()
}
