package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/joeblew999/plat-map/internal/loader"
	"github.com/joeblew999/plat-map/internal/service"
)

// Bootstrap prepares a provider SDK. It runs at most once per Kind per
// Factory unless the Kind's loader is reset.
type Bootstrap func(ctx context.Context, kind Kind) error

// Factory creates providers by Kind.
type Factory struct {
	// Sources builds every DataSource of the providers made here.
	Sources *service.SourceFactory
	// Bootstrap is optional.
	Bootstrap Bootstrap
	// EagerLoad makes providers load layer data in the background on add.
	EagerLoad bool

	mu      sync.Mutex
	loaders map[Kind]*loader.Loader
}

// NewFactory creates a provider factory over sources.
func NewFactory(sources *service.SourceFactory) *Factory {
	return &Factory{
		Sources: sources,
		loaders: make(map[Kind]*loader.Loader),
	}
}

// New returns an uninitialized provider for kind.
func (f *Factory) New(kind Kind) (Provider, error) {
	if !kind.Known() {
		return nil, &service.ConfigurationError{Field: "provider", Reason: fmt.Sprintf("unknown provider %q", kind)}
	}
	return NewHeadless(kind, f.Sources, f.Loader(kind), f.EagerLoad), nil
}

// Loader returns the bootstrap loader shared by every provider of kind.
func (f *Factory) Loader(kind Kind) *loader.Loader {
	f.mu.Lock()
	defer f.mu.Unlock()

	if l, ok := f.loaders[kind]; ok {
		return l
	}
	l := loader.New(func(ctx context.Context) error {
		log.Info().Str("provider", string(kind)).Msg("Bootstrapping provider SDK")
		if f.Bootstrap == nil {
			return nil
		}
		if err := f.Bootstrap(ctx, kind); err != nil {
			return fmt.Errorf("bootstrap %s: %w", kind, err)
		}
		return nil
	})
	f.loaders[kind] = l
	return l
}
