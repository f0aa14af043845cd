// Package web serves the analysis dashboard.
package web

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/pipeline"
	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/report"
)

//go:embed templates/*.html
var templateFS embed.FS

// Analyzer runs one full analysis.
type Analyzer interface {
	Analyze(ctx context.Context) (*pipeline.Result, error)
}

// Server holds the latest run. Runs are serialized.
type Server struct {
	analyzer Analyzer
	logger   *slog.Logger
	tmpl     *template.Template

	mu   sync.Mutex
	last *pipeline.Result
}

// NewServer parses the page templates.
func NewServer(a Analyzer, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"markdown": renderMarkdown,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{analyzer: a, logger: logger, tmpl: tmpl}, nil
}

// NewRouter mounts the dashboard routes.
func NewRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/", s.Index)
	r.Post("/analysis", s.RunAnalysis)
	r.Get("/charts/{name}.png", s.ChartPNG)
	r.Get("/report.xlsx", s.Workbook)
	r.Get("/healthz", s.Health)
	return r
}

type page struct {
	Title    string
	Subtitle string
	Result   *pipeline.Result
	Error    string
}

func (s *Server) newPage() page {
	return page{Title: report.DashboardTitle, Subtitle: report.DashboardSubtitle}
}

// Index shows the dashboard with the latest run, if any.
func (s *Server) Index(w http.ResponseWriter, r *http.Request) {
	p := s.newPage()
	s.mu.Lock()
	p.Result = s.last
	s.mu.Unlock()
	s.render(w, http.StatusOK, p)
}

// RunAnalysis executes the pipeline and renders the results.
func (s *Server) RunAnalysis(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.newPage()
	res, err := s.analyzer.Analyze(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "analysis failed", "error", err)
		p.Error = report.Failure(err)
		s.render(w, http.StatusInternalServerError, p)
		return
	}
	s.last = res
	p.Result = res
	s.render(w, http.StatusOK, p)
}

// ChartPNG serves a chart of the latest run.
func (s *Server) ChartPNG(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		http.Error(w, "no analysis has run yet", http.StatusNotFound)
		return
	}
	c, ok := last.Chart(name)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(c.PNG)))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(c.PNG)
}

// Workbook downloads the tables of the latest run as XLSX.
func (s *Server) Workbook(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	last := s.last
	s.mu.Unlock()
	if last == nil {
		http.Error(w, "no analysis has run yet", http.StatusNotFound)
		return
	}
	var buf bytes.Buffer
	if err := report.EncodeWorkbook(&buf, last.Workbook()); err != nil {
		s.logger.ErrorContext(r.Context(), "workbook export failed", "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="swiggy-`+last.RunID+`.xlsx"`)
	_, _ = w.Write(buf.Bytes())
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) render(w http.ResponseWriter, status int, p page) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "index.html", p); err != nil {
		s.logger.Error("render page", "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
