package engine

import (
	"sort"
	"sync"
)

// Accessor is the view of the namespace store handed to hooks and handlers.
type Accessor interface {
	// Get returns the value stored under (namespace, key), or def if unset.
	Get(namespace, key string, def any) any
	// Set stores value under (namespace, key), creating the namespace if needed.
	Set(namespace, key string, value any)
}

// Namespaces is an in-memory namespace → key → value store.
//
// Namespaces are created lazily on first write. Reads never fail: unknown
// namespaces and keys yield the caller's default. Values live as long as
// the store; there is no expiry.
//
// Thread-safety: all methods are safe for concurrent use. The engine only
// touches the store from its Run goroutine, but collaborators running on
// other goroutines may read it.
type Namespaces struct {
	mu     sync.RWMutex
	spaces map[string]map[string]any
}

// NewNamespaces creates an empty store.
func NewNamespaces() *Namespaces {
	return &Namespaces{spaces: make(map[string]map[string]any)}
}

// Get returns the stored value or def.
func (n *Namespaces) Get(namespace, key string, def any) any {
	n.mu.RLock()
	defer n.mu.RUnlock()

	space, ok := n.spaces[namespace]
	if !ok {
		return def
	}
	v, ok := space[key]
	if !ok {
		return def
	}
	return v
}

// Set overwrites the value under (namespace, key).
func (n *Namespaces) Set(namespace, key string, value any) {
	n.mu.Lock()
	defer n.mu.Unlock()

	space, ok := n.spaces[namespace]
	if !ok {
		space = make(map[string]any)
		n.spaces[namespace] = space
	}
	space[key] = value
}

// Keys returns the keys set in namespace, sorted.
func (n *Namespaces) Keys(namespace string) []string {
	n.mu.RLock()
	defer n.mu.RUnlock()

	space := n.spaces[namespace]
	keys := make([]string, 0, len(space))
	for k := range space {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetInt is a typed convenience over Get for counters.
// Returns def when the key is unset or holds a non-int value.
func GetInt(ns Accessor, namespace, key string, def int) int {
	if v, ok := ns.Get(namespace, key, def).(int); ok {
		return v
	}
	return def
}
