package server

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/trendfinder/internal/database"
	"github.com/TobiSchelling/trendfinder/internal/digest"
	"github.com/TobiSchelling/trendfinder/internal/pipeline"
	"github.com/TobiSchelling/trendfinder/internal/trends"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

const recentRuns = 50

// Runner executes a trend search. *pipeline.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, query string, maxResults int, opts pipeline.RunOptions) (*pipeline.Result, error)
}

// Options configures a Server.
type Options struct {
	DefaultQuery      string
	DefaultMaxResults int
	Logger            zerolog.Logger
}

// Server is the HTTP server for browsing and starting trend runs.
type Server struct {
	db     *database.DB
	runner Runner
	opts   Options
	pages  map[string]*template.Template
	engine *gin.Engine
}

// New creates a new Server. runner may be nil, in which case new runs are
// refused with 503.
func New(db *database.DB, runner Runner, opts Options) (*Server, error) {
	if opts.DefaultMaxResults <= 0 {
		opts.DefaultMaxResults = trends.DefaultMaxResults
	}

	funcMap := template.FuncMap{
		"markdown": renderMarkdown,
		"stars":    digest.Stars,
		"ago":      ago,
		"comma":    func(n int) string { return humanize.Comma(int64(n)) },
		"seconds":  func(ms int64) string { return fmt.Sprintf("%.1fs", float64(ms)/1000) },
	}

	// Parse base template first
	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so that "title" and "content"
	// definitions do not collide.
	pageNames := []string{"index.html", "run.html", "error.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, runner: runner, opts: opts, pages: pages, engine: gin.New()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.Use(gin.Recovery(), s.requestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	r.Use(cors.New(config))

	staticSub, _ := fs.Sub(staticFS, "static")
	r.StaticFS("/static", http.FS(staticSub))

	r.GET("/", s.handleIndex)
	r.POST("/runs", s.handleStartRun)
	r.GET("/runs/:id", s.handleRun)
	r.GET("/runs/:id/digest.md", s.handleDigest)

	api := r.Group("/api/v1")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
		})
		api.GET("/runs", s.apiListRuns)
		api.POST("/runs", s.apiStartRun)
		api.GET("/runs/:id", s.apiGetRun)
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.opts.Logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	runs, err := s.db.ListRuns(database.RunFilter{Query: query, Limit: recentRuns})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Could not load runs.")
		return
	}
	stats, _ := s.db.GetStats()

	s.render(c, http.StatusOK, "index.html", gin.H{
		"Runs":         runs,
		"Stats":        stats,
		"Filter":       query,
		"DefaultQuery": s.opts.DefaultQuery,
		"DefaultMax":   s.opts.DefaultMaxResults,
		"CanRun":       s.runner != nil,
	})
}

func (s *Server) handleStartRun(c *gin.Context) {
	if s.runner == nil {
		s.renderError(c, http.StatusServiceUnavailable, "Searching is not available on this server.")
		return
	}

	maxResults := s.opts.DefaultMaxResults
	if raw := strings.TrimSpace(c.PostForm("max_results")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.renderError(c, http.StatusBadRequest, "max_results must be a whole number.")
			return
		}
		maxResults = n
	}

	res, err := s.runner.Run(c.Request.Context(), c.PostForm("query"), maxResults, pipeline.RunOptions{})
	if err != nil {
		status := runErrorStatus(err)
		s.renderError(c, status, err.Error())
		return
	}

	if res.RunID == "" {
		s.render(c, http.StatusOK, "run.html", gin.H{"Run": unsavedRun(res, maxResults)})
		return
	}
	c.Redirect(http.StatusSeeOther, "/runs/"+res.RunID)
}

func (s *Server) handleRun(c *gin.Context) {
	run, err := s.db.GetRun(c.Param("id"))
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, "Could not load run.")
		return
	}
	if run == nil {
		s.renderError(c, http.StatusNotFound, "Run not found.")
		return
	}
	s.render(c, http.StatusOK, "run.html", gin.H{"Run": run})
}

func (s *Server) handleDigest(c *gin.Context) {
	run, err := s.db.GetRun(c.Param("id"))
	if err != nil || run == nil {
		c.String(http.StatusNotFound, "run not found\n")
		return
	}
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(digest.Markdown(run.Query, run.Trends)))
}

func (s *Server) render(c *gin.Context, status int, name string, data gin.H) {
	tmpl, ok := s.pages[name]
	if !ok {
		s.opts.Logger.Error().Str("template", name).Msg("template not found")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base.html", data); err != nil {
		s.opts.Logger.Error().Err(err).Str("template", name).Msg("error rendering template")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	c.Data(status, "text/html; charset=utf-8", buf.Bytes())
}

func (s *Server) renderError(c *gin.Context, status int, message string) {
	s.render(c, status, "error.html", gin.H{
		"Status":  status,
		"Title":   http.StatusText(status),
		"Message": message,
	})
}

func runErrorStatus(err error) int {
	switch {
	case errors.Is(err, trends.ErrInvalidMaxResults):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// unsavedRun presents a pipeline result that was not stored like a stored
// run so the same page can render it.
func unsavedRun(res *pipeline.Result, maxResults int) *database.Run {
	run := &database.Run{
		Query:      res.Query,
		MaxResults: maxResults,
		CreatedAt:  database.FormatTime(time.Now()),
		Trends:     res.Trends,
		TrendCount: len(res.Trends),
	}
	if st := res.Stats; st != nil {
		run.ArticleCount = st.Articles
		run.ClusterCount = st.Clusters
		run.ChunkCount = st.Chunks
		run.FailedChunks = st.FailedChunks
		run.DurationMS = st.Duration.Milliseconds()
	}
	return run
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

func ago(stamp string) string {
	t, err := database.ParseTime(stamp)
	if err != nil {
		return stamp
	}
	return humanize.Time(t)
}

// Serve listens on 127.0.0.1:port until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info().Msgf("Server listening on http://%s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
