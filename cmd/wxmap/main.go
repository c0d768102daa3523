package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-wxmap/internal/api"
	"github.com/joeblew999/plat-wxmap/internal/server"
	"github.com/joeblew999/plat-wxmap/internal/station"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --asset-url, --state, --variables, --log-level
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ...
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory holding the map assets" default:".data"`
	AssetURL  string `doc:"Fetch assets from this base URL instead of data-dir"`
	State     string `doc:"State whose boundaries are drawn" default:"WA"`
	Variables string `doc:"YAML file listing the selectable variables"`
	LogLevel  string `doc:"Log level (debug, info, warn, error)" default:"info"`
}

func newLogger(level string) *zap.SugaredLogger {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	logger, err := cfg.Build()
	if err != nil {
		log.Fatalf("Logger error: %v", err)
	}
	return logger.Sugar()
}

func newServer(opts *Options) *server.Server {
	srv, err := server.New(server.Config{
		Host:          opts.Host,
		Port:          fmt.Sprintf("%d", opts.Port),
		DataDir:       opts.DataDir,
		AssetURL:      opts.AssetURL,
		State:         opts.State,
		VariablesFile: opts.Variables,
	}, newLogger(opts.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Ignoring .env: %v", err)
	}

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv := newServer(opts)
		httpServer := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", opts.Host, opts.Port),
			Handler:           srv,
			ReadHeaderTimeout: 10 * time.Second,
		}

		hooks.OnStart(func() {
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-wxmap server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			if opts.AssetURL != "" {
				fmt.Printf("  Assets:  %s\n", opts.AssetURL)
			} else {
				fmt.Printf("  Assets:  %s\n", opts.DataDir)
			}
			fmt.Println()
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			if _, err := srv.Start(context.Background()); err != nil {
				log.Fatalf("Start error: %v", err)
			}
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
			srv.Close()
		})
	})

	cli.Root().Use = "wxmap"
	cli.Root().Short = "Weather station choropleth map server"
	cli.Root().Version = api.Version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

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

	// snapshot subcommand: render one variable to a PNG without serving
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the map for a variable to a PNG file",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()

			id, _ := cmd.Flags().GetString("variable")
			if id == "" {
				id = string(srv.Controller().Registry().First())
			}
			out, _ := cmd.Flags().GetString("out")
			timeout, _ := cmd.Flags().GetDuration("timeout")

			f, err := os.Create(out)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer f.Close()

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := srv.Snapshot(ctx, id, f); err != nil {
				fmt.Fprintf(os.Stderr, "Error rendering %s: %v\n", id, err)
				os.Exit(1)
			}
			fmt.Printf("Wrote %s (%s)\n", out, id)
		}),
	}
	snapshotCmd.Flags().String("variable", "", "Variable to render (default: first in the registry)")
	snapshotCmd.Flags().StringP("out", "o", "map.png", "Output PNG file")
	snapshotCmd.Flags().Duration("timeout", time.Minute, "Give up if the layers have not loaded by then")
	cli.Root().AddCommand(snapshotCmd)

	// clean subcommand: make a raw station export parseable as JSON
	cleanCmd := &cobra.Command{
		Use:   "clean <in> <out>",
		Short: "Replace non-finite numbers in a station export with null",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer in.Close()
			out, err := os.Create(args[1])
			if err != nil {
				return err
			}
			if err := station.Clean(in, out); err != nil {
				out.Close()
				return err
			}
			return out.Close()
		},
	}
	cli.Root().AddCommand(cleanCmd)

	// variables subcommand: list the selectable variables
	variablesCmd := &cobra.Command{
		Use:   "variables",
		Short: "List the selectable variables",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			vars := variable.Default()
			if opts.Variables != "" {
				r, err := variable.Load(opts.Variables)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				vars = r
			}
			for _, id := range vars.IDs() {
				fmt.Printf("%-20s %s\n", id, vars.Label(id))
			}
		}),
	}
	cli.Root().AddCommand(variablesCmd)

	cli.Run()
}
