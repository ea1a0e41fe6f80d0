// Package registry provides the connector lookup table. A Registry is an
// explicit value constructed once at startup and passed to callers; there
// is no package-level mutable registry.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/bifrostdata/bifrost/pkg/connector/core"
	"github.com/bifrostdata/bifrost/pkg/errors"
	"github.com/bifrostdata/bifrost/pkg/logger"
)

// Registry maps a connector type discriminant to its singleton instance.
// Registration happens during startup; afterwards the registry is a
// purely read-only lookup, so concurrent callers need no coordination
// beyond the internal mutex.
type Registry struct {
	connectors map[string]core.Connector
	mu         sync.RWMutex
	logger     *zap.Logger
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		connectors: make(map[string]core.Connector),
		logger:     logger.ForComponent("connector_registry"),
	}
}

// Register adds a connector under its own Type(). Registering the same
// type twice is a startup bug and returns an error.
func (r *Registry) Register(c core.Connector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Type()
	if name == "" {
		return errors.New(errors.ErrorTypeConfig, "connector has an empty type")
	}
	if _, exists := r.connectors[name]; exists {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("connector %s already registered", name))
	}

	r.connectors[name] = c
	r.logger.Info("connector registered", zap.String("type", name))
	return nil
}

// MustRegister registers a connector and panics on conflict. Intended for
// the startup path where a duplicate registration is unrecoverable.
func (r *Registry) MustRegister(c core.Connector) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Lookup returns the connector for a type, reporting absence explicitly.
// It never constructs a default connector.
func (r *Registry) Lookup(connectorType string) (core.Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.connectors[connectorType]
	return c, ok
}

// MustLookup returns the connector for a type or a typed not-found error.
func (r *Registry) MustLookup(connectorType string) (core.Connector, error) {
	c, ok := r.Lookup(connectorType)
	if !ok {
		return nil, errors.New(errors.ErrorTypeNotFound,
			fmt.Sprintf("no connector registered for type %q", connectorType))
	}
	return c, nil
}

// Types returns all registered type discriminants, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}

// All returns a copy of the type-to-connector mapping.
func (r *Registry) All() map[string]core.Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make(map[string]core.Connector, len(r.connectors))
	for name, c := range r.connectors {
		all[name] = c
	}
	return all
}

// Len returns the number of registered connectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connectors)
}
