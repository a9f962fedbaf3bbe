// Package config loads declarative map files.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-map/internal/provider"
	"github.com/joeblew999/plat-map/internal/service"
	"github.com/joeblew999/plat-map/internal/universal"
)

// File is the root of a map file.
type File struct {
	Map     provider.MapConfig        `yaml:"map"`
	Sources []Source                  `yaml:"sources,omitempty"`
	Layers  []service.LayerDescriptor `yaml:"layers,omitempty"`

	// Fixtures maps mock:// names to GeoJSON files, relative to the map file.
	Fixtures map[string]string `yaml:"fixtures,omitempty"`

	dir string
}

// Source is a named shared data source.
type Source struct {
	ID                       string `yaml:"id"`
	service.SourceDescriptor `yaml:",inline"`
}

// Load reads and parses the map file at path. ${VAR} references are
// expanded from the environment first, so keys can stay out of the file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.dir = filepath.Dir(path)
	return f, nil
}

// Parse parses map file contents.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// RegisterFixtures loads every fixture file into sources.
func (f *File) RegisterFixtures(sources *service.SourceFactory) error {
	for name, path := range f.Fixtures {
		if !filepath.IsAbs(path) {
			path = filepath.Join(f.dir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("fixture %s: %w", name, err)
		}
		fc, err := service.ParseGeoJSON(raw)
		if err != nil {
			return fmt.Errorf("fixture %s: %w", name, err)
		}
		sources.RegisterFixture(name, fc)
	}
	return nil
}

// Apply registers the file's sources, then its layers, on an initialized map.
// It stops at the first failure.
func (f *File) Apply(m *universal.Map) error {
	for _, s := range f.Sources {
		if _, err := m.AddSource(s.ID, s.SourceDescriptor); err != nil {
			return fmt.Errorf("source %q: %w", s.ID, err)
		}
	}
	for _, l := range f.Layers {
		if _, err := m.AddLayer(l); err != nil {
			return fmt.Errorf("layer %q: %w", l.ID, err)
		}
	}
	return nil
}
