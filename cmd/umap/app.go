package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	natsadapter "github.com/joeblew999/plat-map/internal/adapters/nats"
	"github.com/joeblew999/plat-map/internal/adapters/valkey"
	"github.com/joeblew999/plat-map/internal/config"
	"github.com/joeblew999/plat-map/internal/db"
	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/server"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/universal"
)

// app is the wired process: map, HTTP server and optional backends.
type app struct {
	m     *universal.Map
	srv   *server.Server
	db    *db.DB
	cache *valkey.Cache
	pub   *natsadapter.Publisher
	stop  context.CancelFunc
}

// loadMapFile reads opts.Config, or returns a default leaflet map when no
// file is given. --provider and --api-key override the file.
func loadMapFile(opts *Options) (*config.File, error) {
	file := &config.File{Map: provider.MapConfig{Provider: provider.Leaflet, Zoom: 2}}
	if opts.Config != "" {
		var err error
		if file, err = config.Load(opts.Config); err != nil {
			return nil, err
		}
	}
	if opts.Provider != "" {
		file.Map.Provider = provider.Kind(strings.ToLower(opts.Provider))
	}
	if opts.APIKey != "" {
		file.Map.APIKey = opts.APIKey
	}
	return file, nil
}

// build wires every component and initializes the map from the map file.
func build(ctx context.Context, opts *Options) (*app, error) {
	file, err := loadMapFile(opts)
	if err != nil {
		return nil, err
	}

	a := &app{}
	fetcher := service.NewHTTPFetcher(time.Duration(opts.FetchTimeout) * time.Second)
	if opts.ValkeyAddr != "" {
		if a.cache, err = valkey.New(opts.ValkeyAddr); err != nil {
			return nil, err
		}
		if err := a.cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", opts.ValkeyAddr).Msg("Valkey not reachable; fetches will miss the cache")
		}
		fetcher = fetcher.WithCache(a.cache, opts.CacheTTL)
	}

	sources := service.NewSourceFactory(fetcher)
	if !opts.NoDB {
		a.db = db.New(db.Config{DataDir: opts.DataDir, DBName: "map", Extensions: db.DefaultExtensions})
		sources.RegisterLoader(db.LoaderName, db.NewSQLLoader(a.db))
	}
	if err := file.RegisterFixtures(sources); err != nil {
		a.Close()
		return nil, err
	}

	factory := provider.NewFactory(sources)
	factory.EagerLoad = opts.EagerLoad
	a.m = universal.New(factory, file.Map)

	if opts.NATSURL != "" {
		if a.pub, err = natsadapter.NewPublisher(opts.NATSURL, opts.NATSSubject); err != nil {
			a.Close()
			return nil, err
		}
		runCtx, cancel := context.WithCancel(context.Background())
		a.stop = cancel
		go a.pub.Run(runCtx, a.m.Subscribe())
	}

	if err := a.m.Initialize(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize %s map: %w", file.Map.Provider, err)
	}
	if err := file.Apply(a.m); err != nil {
		a.Close()
		return nil, err
	}

	a.srv = server.New(server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		Map:     a.m,
		DB:      a.db,
	})
	return a, nil
}

// Close tears the app down in reverse order of build.
func (a *app) Close() {
	if a.stop != nil {
		a.stop()
	}
	if a.pub != nil {
		a.pub.Close()
	}
	if a.m != nil {
		a.m.Destroy()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
	if a.cache != nil {
		a.cache.Close()
	}
}

// openAPI builds the API description without initializing anything.
func openAPI(opts *Options) *huma.OpenAPI {
	var d *db.DB
	if !opts.NoDB {
		d = db.New(db.Config{DataDir: opts.DataDir, DBName: "map"})
	}
	m := universal.New(provider.NewFactory(service.NewSourceFactory(nil)), provider.MapConfig{Provider: provider.Leaflet})
	return server.New(server.Config{
		Host: opts.Host,
		Port: fmt.Sprintf("%d", opts.Port),
		Map:  m,
		DB:   d,
	}).OpenAPI()
}

// validate builds the map from the map file, optionally loads every
// source, and returns a one-line report.
func validate(ctx context.Context, opts *Options, load bool) (string, error) {
	o := *opts
	o.NATSURL = ""
	a, err := build(ctx, &o)
	if err != nil {
		return "", err
	}
	defer a.Close()

	layers, err := a.m.Layers()
	if err != nil {
		return "", err
	}
	sources, err := a.m.Sources()
	if err != nil {
		return "", err
	}

	features := 0
	if load {
		for _, s := range sources {
			p, err := a.m.SourceData(ctx, s.ID)
			if err != nil {
				return "", fmt.Errorf("source %q: %w", s.ID, err)
			}
			features += service.Summarize(p).Features
		}
		for _, l := range layers {
			if l.SourceID != "" {
				continue
			}
			p, err := a.m.LayerData(ctx, l.ID)
			if err != nil {
				return "", fmt.Errorf("layer %q: %w", l.ID, err)
			}
			features += service.Summarize(p).Features
		}
	}

	report := fmt.Sprintf("ok: provider=%s sources=%d layers=%d", a.m.Provider(), len(sources), len(layers))
	if load {
		report += fmt.Sprintf(" features=%d", features)
	}
	return report, nil
}
