package service

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// SourceEntry is a read-only view of a registered DataSource.
type SourceEntry struct {
	ID     string           `json:"id" doc:"Source ID"`
	Config SourceDescriptor `json:"config" doc:"Source descriptor"`
	State  State            `json:"state" doc:"Lifecycle state" enum:"constructed,loading,loaded,failed"`
}

// SourceManager is a keyed registry of DataSources it constructed itself.
type SourceManager struct {
	factory *SourceFactory
	sources map[string]DataSource
	mu      sync.RWMutex
}

// NewSourceManager creates an empty registry that builds sources with factory.
func NewSourceManager(factory *SourceFactory) *SourceManager {
	return &SourceManager{
		factory: factory,
		sources: make(map[string]DataSource),
	}
}

// Register normalizes src, constructs the DataSource and stores it under id.
// Registering an existing id fails with DuplicateIDError.
func (m *SourceManager) Register(id string, src any) (DataSource, error) {
	if id == "" {
		return nil, missingField("id")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sources[id]; exists {
		return nil, &DuplicateIDError{Kind: "source", ID: id}
	}

	ds, err := m.factory.Create(NormalizeSource(src))
	if err != nil {
		return nil, err
	}
	m.sources[id] = ds

	log.Debug().Str("source", id).Str("type", string(ds.Type())).Msg("Data source registered")
	return ds, nil
}

// Get returns the DataSource registered under id.
func (m *SourceManager) Get(id string) (DataSource, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ds, ok := m.sources[id]
	return ds, ok
}

// List returns every registered source ordered by id.
func (m *SourceManager) List() []SourceEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]SourceEntry, 0, len(m.sources))
	for id, ds := range m.sources {
		result = append(result, SourceEntry{ID: id, Config: ds.Config(), State: ds.State()})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Len returns the number of registered sources.
func (m *SourceManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sources)
}

// Load loads the DataSource registered under id.
func (m *SourceManager) Load(ctx context.Context, id string) (*Payload, error) {
	ds, ok := m.Get(id)
	if !ok {
		return nil, &NotFoundError{Kind: "source", ID: id}
	}
	return ds.Load(ctx)
}

// Remove destroys and unregisters id. Unknown ids are ignored; the result
// reports whether a source was removed.
func (m *SourceManager) Remove(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ds, ok := m.sources[id]
	if !ok {
		return false
	}
	ds.Destroy()
	delete(m.sources, id)
	return true
}

// Clear destroys and unregisters every source.
func (m *SourceManager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ds := range m.sources {
		ds.Destroy()
		delete(m.sources, id)
	}
}
