// Package api provides the HTTP server for CRM report generation.
//
// It exposes endpoints for rendering reports from analytics payloads,
// parsing metric strings, inspecting datasets and their chart
// classification, credential status, and a WebSocket stream of report
// progress events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/seenimoa/crmreport/internal/config"
	"github.com/seenimoa/crmreport/internal/datasource"
	"github.com/seenimoa/crmreport/internal/document"
	"github.com/seenimoa/crmreport/internal/infra"
	"github.com/seenimoa/crmreport/internal/metrics"
	"github.com/seenimoa/crmreport/internal/report"
	"github.com/seenimoa/crmreport/internal/strategy"
)

// maxPayloadBytes caps request bodies.
const maxPayloadBytes = 1 << 20

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	gen     *report.Generator
	src     datasource.Source // may be nil
	cat     *datasource.Catalog
	hub     *Hub
	log     logrus.FieldLogger
	version string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger; request logs go through it too.
func WithLogger(l logrus.FieldLogger) Option { return func(s *Server) { s.log = l } }

// WithVersion sets the version reported by /health.
func WithVersion(v string) Option { return func(s *Server) { s.version = v } }

// WithSource sets the dataset source behind the product endpoints.
func WithSource(src datasource.Source, cat *datasource.Catalog) Option {
	return func(s *Server) { s.src, s.cat = src, cat }
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, gen *report.Generator, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		gen:     gen,
		cat:     datasource.DefaultCatalog(),
		hub:     NewHub(),
		version: "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = infra.DiscardLogger()
	}
	if s.gen == nil {
		s.gen = report.New(report.WithSource(s.src, s.cat), report.WithLogger(s.log))
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router { return s.router }

// Hub returns the progress event hub.
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	errc := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	s.log.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.log, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Post("/reports", s.handleReport)
		r.Post("/metrics/parse", s.handleParseMetrics)

		r.Get("/products", s.handleProducts)
		r.Get("/products/{product}/chart", s.handleProductChart)

		r.Get("/config/keys", s.handleGetConfigKeys)

		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ════════════════════════════════════════════════════════════════════
// Request / Response Types
// ════════════════════════════════════════════════════════════════════

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ParseRequest is the body of POST /api/v1/metrics/parse.
type ParseRequest struct {
	Metrics []string `json:"metrics"`
}

// ParseResult is the parsed form of a metric list.
type ParseResult struct {
	Metrics    []metrics.ParsedMetric `json:"metrics"`
	Categories []string               `json:"categories"`
	Charted    int                    `json:"charted"` // chart blocks the metrics section would draw
}

// ProductInfo describes one catalog product.
type ProductInfo struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	File   string `json:"file"`
	Status string `json:"status"` // "available", "missing" or "error"
	Shape  string `json:"shape,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ChartInfo is the classification of a product's dataset.
type ChartInfo struct {
	Product string   `json:"product"`
	Chart   string   `json:"chart"`
	Rule    string   `json:"rule"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
}

// ════════════════════════════════════════════════════════════════════
// Handlers
// ════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	source := "none"
	if s.src != nil {
		source = s.src.Name()
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    s.version,
			"llm":        s.cfg.LLM.Enabled && config.HasLLMKey(s.cfg),
			"source":     source,
			"ws_clients": s.hub.ClientCount(),
		},
	})
}

// handleReport renders a payload. ?format=text selects the plain-text
// outline; ?title and ?subtitle override the generator's.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	p, err := report.DecodePayload(http.MaxBytesReader(w, r.Body, maxPayloadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	opts := []report.Option{report.WithTitle(q.Get("title")), report.WithSubtitle(q.Get("subtitle"))}
	ext := "pdf"
	switch q.Get("format") {
	case "", "pdf":
	case "text":
		opts = append(opts, report.WithRenderer(document.TextRenderer{}))
		ext = "txt"
	default:
		writeError(w, http.StatusBadRequest, "unsupported format: "+q.Get("format"))
		return
	}
	gen := s.gen.With(opts...)

	id := middleware.GetReqID(r.Context())
	s.hub.Broadcast(Event{Type: EventReportStarted, ID: id})
	start := time.Now()

	out, err := gen.Generate(r.Context(), p)
	if err != nil {
		s.log.WithError(err).WithField("request_id", id).Error("report generation failed")
		s.hub.Broadcast(Event{Type: EventReportFailed, ID: id, Error: err.Error()})
		writeError(w, http.StatusInternalServerError, "report generation failed: "+err.Error())
		return
	}
	s.hub.Broadcast(Event{Type: EventReportCompleted, ID: id, Bytes: len(out), DurationMS: time.Since(start).Milliseconds()})

	w.Header().Set("Content-Type", gen.Renderer.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "report."+ext))
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleParseMetrics(w http.ResponseWriter, r *http.Request) {
	var req ParseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPayloadBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Metrics) == 0 {
		writeError(w, http.StatusBadRequest, "metrics is required")
		return
	}

	parsed := metrics.ParseAll(req.Metrics)
	categories := metrics.GroupByCategory(metrics.WithValue(parsed)).Keys()
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ParseResult{
			Metrics:    parsed,
			Categories: categories,
			Charted:    len(report.MetricCharts(parsed, report.DefaultWidth)) / 2,
		},
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	keys := s.cat.Keys()
	infos := make([]ProductInfo, len(keys))
	for i, k := range keys {
		infos[i] = ProductInfo{Key: k, Title: s.cat.Title(k), File: s.cat.Lookup(k).File, Status: "missing"}
	}
	if s.src != nil {
		for i, res := range datasource.LoadAll(r.Context(), s.src, keys, 4) {
			switch {
			case res.Err == nil:
				infos[i].Status = "available"
				infos[i].Shape = datasource.Describe(res.Table)
			case !datasource.Missing(res.Err):
				infos[i].Status = "error"
				infos[i].Error = res.Err.Error()
			}
		}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: infos})
}

func (s *Server) handleProductChart(w http.ResponseWriter, r *http.Request) {
	product := chi.URLParam(r, "product")
	if s.src == nil {
		writeError(w, http.StatusServiceUnavailable, "no data source configured")
		return
	}
	t, err := s.src.Load(r.Context(), product)
	switch {
	case datasource.Missing(err):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	chart, rule := strategy.Describe(t)
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ChartInfo{
			Product: product,
			Chart:   string(chart),
			Rule:    rule,
			Rows:    t.Len(),
			Columns: t.Names(),
		},
	})
}

// handleGetConfigKeys returns the status of the generative-text credentials.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: config.CheckAPIKeys(s.cfg)})
}

// ── helpers ──

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{Success: false, Error: msg})
}
