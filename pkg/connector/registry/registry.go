// Package registry maps destination kinds to adapter factories.
//
// Destination packages register themselves from init(); importing
// pkg/connector/destinations pulls all of them in.
package registry

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-ingest/pkg/config"
	"github.com/ajitpratap0/nebula-ingest/pkg/connector/core"
	"github.com/ajitpratap0/nebula-ingest/pkg/errors"
	"github.com/ajitpratap0/nebula-ingest/pkg/logger"
)

// Registry manages destination registration and instantiation
type Registry struct {
	factories map[string]core.Factory
	infos     map[string]*ConnectorInfo
	mu        sync.RWMutex
}

// ConnectorInfo describes a registered destination for listings.
type ConnectorInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	// AddressEnv is the environment variable consulted when no address flag is given.
	AddressEnv string `json:"address_env"`
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new, empty registry
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]core.Factory),
		infos:     make(map[string]*ConnectorInfo),
	}
}

// Register registers a factory under kind. Registering a kind twice is an error.
func (r *Registry) Register(kind string, factory core.Factory, info *ConnectorInfo) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[kind]; exists {
		return errors.Newf(errors.ErrorTypeConfig, "destination %s already registered", kind)
	}

	r.factories[kind] = factory
	if info != nil {
		r.infos[kind] = info
	}
	return nil
}

// Create builds the adapter registered under kind. Factory errors are
// returned unchanged so their classification survives.
func (r *Registry) Create(ctx context.Context, kind string, cfg *config.IngestorConfig) (core.Adapter, error) {
	r.mu.RLock()
	factory, exists := r.factories[kind]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.Newf(errors.ErrorTypeConfig, "destination %s not found", kind)
	}

	log := logger.With(zap.String("component", "connector_registry"), zap.String("destination", kind))
	adapter, err := factory(ctx, cfg)
	if err != nil {
		log.Error("failed to create destination", zap.Error(err))
		return nil, err
	}
	log.Info("destination ready")
	return adapter, nil
}

// List returns the registered kinds in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// Info returns the description registered for kind, if any.
func (r *Registry) Info(kind string) (*ConnectorInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.infos[kind]
	return info, ok
}

// Has checks if a kind is registered
func (r *Registry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.factories[kind]
	return exists
}

// Global registry functions

// Register registers a destination in the global registry
func Register(kind string, factory core.Factory, info *ConnectorInfo) error {
	return globalRegistry.Register(kind, factory, info)
}

// Create creates a destination adapter from the global registry
func Create(ctx context.Context, kind string, cfg *config.IngestorConfig) (core.Adapter, error) {
	return globalRegistry.Create(ctx, kind, cfg)
}

// List returns registered kinds from the global registry
func List() []string {
	return globalRegistry.List()
}

// GetRegistry returns the global registry instance.
func GetRegistry() *Registry {
	return globalRegistry
}
