package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-wxmap/internal/api"
	"github.com/joeblew999/plat-wxmap/internal/api/viewer"
	"github.com/joeblew999/plat-wxmap/internal/asset"
	"github.com/joeblew999/plat-wxmap/internal/compose"
	"github.com/joeblew999/plat-wxmap/internal/db"
	"github.com/joeblew999/plat-wxmap/internal/humastar"
	"github.com/joeblew999/plat-wxmap/internal/mapview"
	"github.com/joeblew999/plat-wxmap/internal/render"
	"github.com/joeblew999/plat-wxmap/internal/templates"
	"github.com/joeblew999/plat-wxmap/internal/tooltip"
	"github.com/joeblew999/plat-wxmap/internal/variable"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string // Local asset directory, also served under /assets/
	// AssetURL fetches assets over HTTP instead of from DataDir.
	AssetURL string
	State    string
	// VariablesFile is a YAML registry; empty uses the built-in variables.
	VariablesFile string
}

// Server is the weather map HTTP server.
type Server struct {
	config   Config
	log      *zap.SugaredLogger
	mux      *http.ServeMux
	humaAPI  huma.API
	db       *sql.DB
	renderer *templates.Renderer
	m        *render.Map
	view     *mapview.Controller
}

// New creates a new server. Nothing is drawn until Start.
func New(cfg Config, log *zap.SugaredLogger) (*Server, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	vars := variable.Default()
	if cfg.VariablesFile != "" {
		r, err := variable.Load(cfg.VariablesFile)
		if err != nil {
			return nil, err
		}
		vars = r
	}

	var fetcher asset.Fetcher = asset.Dir(cfg.DataDir)
	if cfg.AssetURL != "" {
		f, err := asset.HTTP(cfg.AssetURL, nil)
		if err != nil {
			return nil, err
		}
		fetcher = f
	}

	renderer, err := templates.New()
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}

	composeCfg := compose.DefaultConfig()
	if cfg.State != "" {
		composeCfg.State = cfg.State
	}

	m := render.NewMap(render.DefaultView())
	composer := compose.New(m, fetcher, vars, composeCfg, log.Named("compose"))
	tips := tooltip.New(m, vars, tooltip.DefaultConfig())
	view := mapview.New(composer, tips, vars, mapview.NewEventBus(), log.Named("mapview"))

	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-wxmap API", api.Version)
	humaConfig.Info.Description = "Weather station map: variable selection, layer stack, station tooltips and vector tiles."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	s := &Server{
		config:   cfg,
		log:      log,
		mux:      mux,
		humaAPI:  humago.New(mux, humaConfig),
		renderer: renderer,
		m:        m,
		view:     view,
	}

	// The SQL explorer is optional; the map works without it.
	if cfg.DataDir != "" {
		conn, err := db.Open(context.Background(), db.Config{DataDir: cfg.DataDir, Stations: composeCfg.Stations})
		if err != nil {
			log.Warnw("station database unavailable", "error", err)
		} else {
			s.db = conn
		}
	}

	s.routes()
	return s, nil
}

// Start draws the stack for the first variable.
func (s *Server) Start(ctx context.Context) (*compose.Build, error) {
	return s.view.Start(ctx)
}

// Snapshot selects id, waits for its layers and writes the map as PNG.
func (s *Server) Snapshot(ctx context.Context, id string, w io.Writer) error {
	b, err := s.view.SelectionChanged(ctx, id)
	if err != nil {
		return err
	}
	if err := b.Wait(ctx); err != nil {
		return err
	}
	return s.m.WritePNG(w)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Controller returns the map controller.
func (s *Server) Controller() *mapview.Controller {
	return s.view
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, &api.Services{View: s.view, Map: s.m, DataDir: s.config.DataDir})
	api.NewInfoHandler(s.config.DataDir, s.config.AssetURL, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewDBHandler(s.db).RegisterRoutes(s.humaAPI)

	// Viewer SSE routes using Huma + Datastar SDK
	viewer.NewHandler(s.view, s.m, s.renderer).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", promhttp.Handler())
	if s.config.DataDir != "" {
		s.mux.Handle("/assets/", http.StripPrefix("/assets/", s.handleAssets(s.config.DataDir)))
	}
	s.mux.HandleFunc("/", s.handleRoot)
}

type pageData struct {
	Title    string
	Selected string
	Options  []humastar.SelectOptionData
	Width    int
	Height   int
	OffsetX  float64
	OffsetY  float64
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	v := s.m.View()
	sel := s.view.Selection()
	html, err := s.renderer.Render("page", pageData{
		Title:    "Weather stations",
		Selected: string(sel),
		Options:  viewer.Options(s.view.Registry(), sel),
		Width:    v.Width,
		Height:   v.Height,
		OffsetX:  tooltip.Offset.X,
		OffsetY:  tooltip.Offset.Y,
	})
	if err != nil {
		s.log.Errorw("rendering page", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, html)
}

// handleAssets serves the raw asset files so an HTTP asset source can point
// at another instance.
func (s *Server) handleAssets(dir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		http.FileServer(http.Dir(dir)).ServeHTTP(w, r)
	})
}
