package service

import (
	"context"
	"errors"
	"net/url"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/joeblew999/plat-map/internal/metrics"
)

// State is the lifecycle state of a DataSource.
type State string

const (
	StateConstructed State = "constructed"
	StateLoading     State = "loading"
	StateLoaded      State = "loaded"
	StateFailed      State = "failed"
)

// Payload is the result of loading a DataSource. Feature-bearing sources
// fill Features; tile sources only carry the URL.
type Payload struct {
	Type     SourceType                 `json:"type"`
	Features *geojson.FeatureCollection `json:"features,omitempty"`
	URL      string                     `json:"url,omitempty"`
}

// DataSource is one loadable geospatial payload. The set of implementations
// is closed; see SourceFactory.
type DataSource interface {
	Type() SourceType
	Config() SourceDescriptor
	State() State
	IsLoaded() bool
	// Load fetches or validates the payload once and memoizes it.
	// Concurrent calls share a single in-flight load.
	Load(ctx context.Context) (*Payload, error)
	// Destroy clears the payload. A load in flight is discarded.
	Destroy()

	sealed()
}

// CustomLoader produces features for "custom" sources. The loader is picked
// by the source's options["loader"] name.
type CustomLoader interface {
	Load(ctx context.Context, desc SourceDescriptor) (*geojson.FeatureCollection, error)
}

// CustomLoaderFunc adapts a function to CustomLoader.
type CustomLoaderFunc func(ctx context.Context, desc SourceDescriptor) (*geojson.FeatureCollection, error)

func (f CustomLoaderFunc) Load(ctx context.Context, desc SourceDescriptor) (*geojson.FeatureCollection, error) {
	return f(ctx, desc)
}

// lifecycle holds the memoized state shared by every variant.
type lifecycle struct {
	desc SourceDescriptor

	mu      sync.Mutex
	state   State
	payload *Payload
	gen     uint64
	flight  singleflight.Group
}

func newLifecycle(desc SourceDescriptor) lifecycle {
	return lifecycle{desc: desc, state: StateConstructed}
}

func (l *lifecycle) sealed() {}

func (l *lifecycle) Type() SourceType         { return l.desc.Type }
func (l *lifecycle) Config() SourceDescriptor { return l.desc }

func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *lifecycle) IsLoaded() bool {
	return l.State() == StateLoaded
}

func (l *lifecycle) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	l.state = StateConstructed
	l.payload = nil
}

// load runs fn at most once per generation and memoizes the result.
// The shared run is detached from every caller's cancellation; each caller
// stops waiting when its own ctx is done. A result arriving after Destroy is
// dropped and reported as ErrDestroyed.
func (l *lifecycle) load(ctx context.Context, fn func(context.Context) (*Payload, error)) (*Payload, error) {
	l.mu.Lock()
	if l.state == StateLoaded {
		p := l.payload
		l.mu.Unlock()
		return p, nil
	}
	gen := l.gen
	l.state = StateLoading
	l.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	ch := l.flight.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		l.mu.Lock()
		if l.gen == gen && l.state == StateLoaded {
			p := l.payload
			l.mu.Unlock()
			return p, nil
		}
		l.mu.Unlock()

		start := time.Now()
		p, err := fn(runCtx)
		metrics.SourceLoadDuration.WithLabelValues(string(l.desc.Type)).Observe(time.Since(start).Seconds())

		l.mu.Lock()
		defer l.mu.Unlock()
		if l.gen != gen {
			metrics.SourceLoads.WithLabelValues(string(l.desc.Type), "discarded").Inc()
			return nil, ErrDestroyed
		}
		if err != nil {
			l.state = StateFailed
			metrics.SourceLoads.WithLabelValues(string(l.desc.Type), "error").Inc()
			return nil, err
		}
		l.state = StateLoaded
		l.payload = p
		metrics.SourceLoads.WithLabelValues(string(l.desc.Type), "success").Inc()
		return p, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Payload), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fetchFeatures fetches a remote GeoJSON document, mapping failures to LoadError.
func fetchFeatures(ctx context.Context, fetcher Fetcher, typ SourceType, rawURL string) (*Payload, error) {
	data, err := fetcher.Fetch(ctx, rawURL)
	if err != nil {
		le := &LoadError{Type: typ, URL: rawURL, Err: err}
		var httpErr *HTTPError
		if errors.As(err, &httpErr) {
			le.Status = httpErr.StatusCode
		}
		return nil, le
	}
	fc, err := parseGeoJSON(data)
	if err != nil {
		return nil, &LoadError{Type: typ, URL: rawURL, Err: err}
	}
	return &Payload{Type: typ, Features: fc}, nil
}

// GeoJSONSource serves inline GeoJSON or a GeoJSON document behind a URL.
type GeoJSONSource struct {
	lifecycle
	fetcher Fetcher
	inline  *geojson.FeatureCollection
}

// NewGeoJSONSource validates desc and builds a geojson source.
func NewGeoJSONSource(desc SourceDescriptor, fetcher Fetcher) (*GeoJSONSource, error) {
	if err := checkSourceType(desc, SourceGeoJSON); err != nil {
		return nil, err
	}
	s := &GeoJSONSource{lifecycle: newLifecycle(desc), fetcher: fetcher}
	switch {
	case desc.Data != nil:
		fc, err := decodeGeoJSON(desc.Data)
		if err != nil {
			return nil, &ConfigurationError{Field: "data", Reason: err.Error()}
		}
		s.inline = fc
	case desc.URL != "":
		if fetcher == nil {
			return nil, missingField("fetcher")
		}
	default:
		return nil, missingField("data")
	}
	return s, nil
}

func (s *GeoJSONSource) Load(ctx context.Context) (*Payload, error) {
	return s.load(ctx, func(ctx context.Context) (*Payload, error) {
		if s.inline != nil {
			return &Payload{Type: SourceGeoJSON, Features: s.inline}, nil
		}
		return fetchFeatures(ctx, s.fetcher, SourceGeoJSON, s.desc.URL)
	})
}

// URLSource fetches a remote GeoJSON document.
type URLSource struct {
	lifecycle
	fetcher Fetcher
}

// NewURLSource validates desc and builds a url source.
func NewURLSource(desc SourceDescriptor, fetcher Fetcher) (*URLSource, error) {
	if err := checkSourceType(desc, SourceURL); err != nil {
		return nil, err
	}
	if err := requireURL(desc); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, missingField("fetcher")
	}
	return &URLSource{lifecycle: newLifecycle(desc), fetcher: fetcher}, nil
}

func (s *URLSource) Load(ctx context.Context) (*Payload, error) {
	return s.load(ctx, func(ctx context.Context) (*Payload, error) {
		return fetchFeatures(ctx, s.fetcher, SourceURL, s.desc.URL)
	})
}

// TilesSource is a tile template. Tiles are fetched by the renderer, so
// Load only yields the URL.
type TilesSource struct {
	lifecycle
}

// NewTilesSource validates desc and builds a tiles source.
func NewTilesSource(desc SourceDescriptor) (*TilesSource, error) {
	if err := checkSourceType(desc, SourceTiles); err != nil {
		return nil, err
	}
	if err := requireURL(desc); err != nil {
		return nil, err
	}
	return &TilesSource{lifecycle: newLifecycle(desc)}, nil
}

func (s *TilesSource) Load(ctx context.Context) (*Payload, error) {
	return s.load(ctx, func(context.Context) (*Payload, error) {
		if err := requireURL(s.desc); err != nil {
			return nil, err
		}
		return &Payload{Type: SourceTiles, URL: s.desc.URL}, nil
	})
}

// Tiles3DSource points at a 3D tileset.
type Tiles3DSource struct {
	lifecycle
}

// New3DTilesSource validates desc and builds a 3d-tiles source.
func New3DTilesSource(desc SourceDescriptor) (*Tiles3DSource, error) {
	if err := checkSourceType(desc, Source3DTiles); err != nil {
		return nil, err
	}
	if err := requireURL(desc); err != nil {
		return nil, err
	}
	return &Tiles3DSource{lifecycle: newLifecycle(desc)}, nil
}

func (s *Tiles3DSource) Load(ctx context.Context) (*Payload, error) {
	return s.load(ctx, func(context.Context) (*Payload, error) {
		if err := requireURL(s.desc); err != nil {
			return nil, err
		}
		if !looksLikeTileset(s.desc.URL) {
			log.Warn().Str("url", s.desc.URL).Msg("3D tiles URL does not reference a tileset.json")
		}
		return &Payload{Type: Source3DTiles, URL: s.desc.URL}, nil
	})
}

func looksLikeTileset(raw string) bool {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.HasSuffix(strings.ToLower(path.Base(p)), "tileset.json")
}

// MockSource never performs I/O.
type MockSource struct {
	lifecycle
	features *geojson.FeatureCollection
}

// NewMockSource builds a mock source. A mock:// reference resolves against
// fixtures; anything else is decoded as inline GeoJSON.
func NewMockSource(desc SourceDescriptor, fixtures map[string]*geojson.FeatureCollection) (*MockSource, error) {
	if err := checkSourceType(desc, SourceMock); err != nil {
		return nil, err
	}
	s := &MockSource{lifecycle: newLifecycle(desc)}
	switch data := desc.Data.(type) {
	case nil:
	case string:
		if strings.HasPrefix(data, MockScheme) {
			s.features = fixtures[data]
			break
		}
		fc, err := decodeGeoJSON(data)
		if err != nil {
			return nil, &ConfigurationError{Field: "data", Reason: err.Error()}
		}
		s.features = fc
	default:
		fc, err := decodeGeoJSON(data)
		if err != nil {
			return nil, &ConfigurationError{Field: "data", Reason: err.Error()}
		}
		s.features = fc
	}
	return s, nil
}

func (s *MockSource) Load(ctx context.Context) (*Payload, error) {
	return s.load(ctx, func(context.Context) (*Payload, error) {
		fc := s.features
		if fc == nil {
			fc = geojson.NewFeatureCollection()
		}
		return &Payload{Type: SourceMock, Features: fc}, nil
	})
}

// CustomSource delegates loading to a named CustomLoader.
type CustomSource struct {
	lifecycle
	loader CustomLoader
}

// NewCustomSource resolves options["loader"] against loaders.
func NewCustomSource(desc SourceDescriptor, loaders map[string]CustomLoader) (*CustomSource, error) {
	if err := checkSourceType(desc, SourceCustom); err != nil {
		return nil, err
	}
	name, _ := desc.Options["loader"].(string)
	if name == "" {
		return nil, missingField("options.loader")
	}
	loader, ok := loaders[name]
	if !ok {
		return nil, &ConfigurationError{Field: "options.loader", Reason: "unknown loader " + strconv.Quote(name)}
	}
	return &CustomSource{lifecycle: newLifecycle(desc), loader: loader}, nil
}

func (s *CustomSource) Load(ctx context.Context) (*Payload, error) {
	return s.load(ctx, func(ctx context.Context) (*Payload, error) {
		fc, err := s.loader.Load(ctx, s.desc)
		if err != nil {
			return nil, &LoadError{Type: SourceCustom, URL: s.desc.URL, Err: err}
		}
		if fc == nil {
			fc = geojson.NewFeatureCollection()
		}
		return &Payload{Type: SourceCustom, Features: fc}, nil
	})
}
