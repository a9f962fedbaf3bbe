// Package server assembles the plat-map HTTP server.
package server

import (
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-map/internal/api"
	"github.com/joeblew999/plat-map/internal/db"
	"github.com/joeblew999/plat-map/internal/metrics"
	"github.com/joeblew999/plat-map/internal/universal"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	Map     *universal.Map
	DB      *db.DB // optional; nil disables the SQL endpoints
}

// Server is the map HTTP server.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	handler http.Handler
}

// NewAPIConfig returns the Huma configuration shared by the server and the
// spec command.
func NewAPIConfig(host, port string) huma.Config {
	humaConfig := huma.DefaultConfig("plat-map API", "1.0.0")
	humaConfig.Info.Description = "Provider independent map API for layers, data sources, camera and events."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", host, port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())
	return humaConfig
}

// New creates a new map server.
func New(cfg Config) *Server {
	mux := http.NewServeMux()
	humaAPI := humago.New(mux, NewAPIConfig(cfg.Host, cfg.Port))

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
	}
	s.routes()
	s.handler = RequestLogger(metrics.Middleware(mux))
	return s
}

// Register adds every plat-map operation to api.
func Register(humaAPI huma.API, cfg Config) {
	huma.AutoRegister(humaAPI, api.NewAPIHandler(cfg.Map))
	api.NewEventHandler(cfg.Map).RegisterRoutes(humaAPI)
	api.NewInfoHandler(cfg.DataDir, cfg.DB).RegisterRoutes(humaAPI)
	if cfg.DB != nil {
		api.NewDBHandler(cfg.DB).RegisterRoutes(humaAPI)
	}
}

func (s *Server) routes() {
	Register(s.humaAPI, s.config)
	s.mux.Handle("/metrics", metrics.Handler())
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close destroys the map and closes the database.
func (s *Server) Close() error {
	if s.config.Map != nil {
		s.config.Map.Destroy()
	}
	if s.config.DB != nil {
		return s.config.DB.Close()
	}
	return nil
}
