package dcs

import (
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry holds the set of known device communication servers. A single
// Registry instance is built at startup and handed to each component that
// needs it; lookups after startup are concurrency-safe.
type Registry struct {
	logger *logrus.Logger

	mu          sync.RWMutex
	order       []string
	byName      map[string]*ServerConfig
	implemented map[string]bool
	missing     []string
}

// NewRegistry returns an empty Registry.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		logger:      logger,
		byName:      make(map[string]*ServerConfig),
		implemented: make(map[string]bool),
	}
}

// Register adds a server definition. Blank names are quietly ignored.
// Duplicate names are logged and ignored; the first registration wins.
func (r *Registry) Register(cfg *ServerConfig) *ServerConfig {
	if cfg == nil || strings.TrimSpace(cfg.Name()) == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[cfg.Name()]; ok {
		r.logger.Warnf("server already registered, ignoring duplicate: %s", cfg.Name())
		return nil
	}
	r.order = append(r.order, cfg.Name())
	r.byName[cfg.Name()] = cfg
	return cfg
}

// Get returns the named server, or nil when unknown.
func (r *Registry) Get(name string) *ServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.byName) == 0 {
		// A lookup this early means the definitions were never loaded.
		r.logger.Errorf("server lookup %q before any registration", name)
		return nil
	}
	return r.byName[name]
}

// Has reports whether the named server is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// MarkImplemented records that a runnable handler exists for the named
// server. Registration of the definition and of the handler are separate
// steps; definitions without a handler still describe commands and prefixes
// but cannot accept device traffic.
func (r *Registry) MarkImplemented(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.implemented[name] = true
}

// IsImplemented reports whether a runnable handler exists for the named
// server.
func (r *Registry) IsImplemented(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.implemented[name]
}

// List returns the registered servers in registration order. When
// includeUnimplemented is false, servers without a runnable handler are
// filtered out.
func (r *Registry) List(includeUnimplemented bool) []*ServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ServerConfig, 0, len(r.order))
	for _, name := range r.order {
		if !includeUnimplemented && !r.implemented[name] {
			continue
		}
		out = append(out, r.byName[name])
	}
	return out
}

// Names returns the registered server names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// AddMissing records a server name that was referenced (by a device row or
// a config cross-reference) but never registered. Duplicates are collapsed.
func (r *Registry) AddMissing(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byName[name]; ok {
		return
	}
	for _, m := range r.missing {
		if m == name {
			return
		}
	}
	r.missing = append(r.missing, name)
}

// HasMissing reports whether any referenced-but-unregistered servers were
// seen.
func (r *Registry) HasMissing() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.missing) > 0
}

// MissingList returns the referenced-but-unregistered server names in the
// order first seen.
func (r *Registry) MissingList() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.missing))
	copy(out, r.missing)
	return out
}
