// Package queueregistry implements the process-wide registry of live
// queues: within one process, a queue name identifies at most one live
// Queue instance.
package queueregistry

import "sync"

var (
	mu    sync.Mutex
	names = make(map[string]struct{})
)

// Register claims name for the calling Queue. It returns false if name is
// already registered.
func Register(name string) bool {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := names[name]; exists {
		return false
	}
	names[name] = struct{}{}
	return true
}

// Unregister frees name so a future Queue may reuse it.
func Unregister(name string) {
	mu.Lock()
	defer mu.Unlock()
	delete(names, name)
}

// Reset clears the registry. Exposed for tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	names = make(map[string]struct{})
}
