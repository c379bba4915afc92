package scraper

import "sync"

var (
	registryMu sync.RWMutex
	registry   = map[SourceName]Source{}
)

func Register(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Name()] = s
}

func Get(name SourceName) (Source, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	return s, ok
}

// All returns the registered sources in refresh Order.
func All() []Source {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Source, 0, len(registry))
	for _, name := range Order {
		if s, ok := registry[name]; ok {
			out = append(out, s)
		}
	}
	return out
}
