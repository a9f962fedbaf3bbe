package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-map/internal/logging"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --config, --provider, --data-dir, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_CONFIG, SERVICE_PROVIDER, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	Config       string `doc:"Path to the YAML map file" short:"c"`
	Provider     string `doc:"Override the map file's provider (google, leaflet, mapbox, cesium)"`
	APIKey       string `doc:"API key for the provider; overrides the map file"`
	DataDir      string `doc:"Directory for the DuckDB database; empty keeps it in memory" default:".data"`
	NoDB         bool   `doc:"Disable DuckDB and the duckdb source loader"`
	EagerLoad    bool   `doc:"Load layer data in the background as soon as a layer is added"`
	FetchTimeout int    `doc:"Timeout in seconds for url source fetches" default:"30"`
	ValkeyAddr   string `doc:"Valkey address for caching url source payloads, e.g. localhost:6379"`
	CacheTTL     int    `doc:"Seconds to cache fetched payloads in Valkey" default:"300"`
	NATSURL      string `doc:"NATS URL to publish map events to, e.g. nats://localhost:4222"`
	NATSSubject  string `doc:"Subject prefix for published events" default:"platmap.events"`
	LogLevel     string `doc:"Log level (debug, info, warn, error)" default:"info"`
	LogFormat    string `doc:"Log format (console, json)" default:"console"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		logging.Setup(opts.LogLevel, opts.LogFormat)

		var (
			a   *app
			srv *http.Server
		)

		hooks.OnStart(func() {
			var err error
			a, err = build(context.Background(), opts)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to start")
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-map API server starting...\n")
			fmt.Printf("  Server:   %s\n", baseURL)
			fmt.Printf("  Provider: %s\n", a.m.Provider())
			fmt.Println()
			fmt.Printf("  Events:   %s/api/v1/events\n", baseURL)
			fmt.Printf("  Docs:     %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI:  %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics:  %s/metrics\n", baseURL)
			fmt.Println()

			srv = &http.Server{Addr: addr, Handler: a.srv, ReadHeaderTimeout: 10 * time.Second}
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Server error")
			}
		})

		hooks.OnStop(func() {
			if srv != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(ctx)
			}
			if a != nil {
				a.Close()
			}
		})
	})

	cli.Root().Use = "umap"
	cli.Root().Short = "Provider independent map layer and data source service"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			spec := openAPI(opts)

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// validate subcommand: build the map from the map file without serving
	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the map file: initialize the provider, add every source and layer",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			logging.Setup(opts.LogLevel, opts.LogFormat)
			load, _ := cmd.Flags().GetBool("load")

			report, err := validate(context.Background(), opts, load)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid map file: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(report)
		}),
	}
	validateCmd.Flags().Bool("load", false, "Also load every source")
	cli.Root().AddCommand(validateCmd)

	cli.Run()
}
