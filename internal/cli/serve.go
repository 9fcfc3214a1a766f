package cli

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
	"github.com/spf13/cobra"

	"github.com/matzehuels/dendro/pkg/cache"
	dendroerrors "github.com/matzehuels/dendro/pkg/errors"
	"github.com/matzehuels/dendro/pkg/export"
	"github.com/matzehuels/dendro/pkg/pipeline"
)

// serveCommand creates the serve command exposing comparison results
// over HTTP for a browser renderer.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		redisAddr string
		noCache   bool
	)
	opts := c.Config.pipelineOptions()
	opts.FlipTarget = true

	cmd := &cobra.Command{
		Use:   "serve <source.nwk> <target.nwk>",
		Short: "Serve trees, layouts, and matches over HTTP",
		Long: `Serve trees, layouts, and matches over HTTP.

Both trees are loaded once at startup; each request recomputes the
scene with the cutoff and min_leaves query parameters so a renderer
can drive the two feedback controls interactively.

Endpoints:
  GET /api/trees    both laid-out trees and the match list
  GET /api/layout   one laid-out tree (?tree=source|target)
  GET /api/matches  the match list only
  GET /healthz      liveness probe

Common query parameters: cutoff, min_leaves, mode, width, height.

With --redis the pipeline cache is backed by Redis instead of the
local file cache, so multiple instances share computed scenes.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), args[0], args[1], addr, redisAddr, noCache, opts)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8606", "listen address")
	cmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for a shared cache (host:port)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().IntVar(&opts.MinLeaves, "min-leaves", opts.MinLeaves, "default minimum subtree size for a match")
	cmd.Flags().StringVar(&opts.Mode, "mode", opts.Mode, "default branch highlight mode: none, simi, diff")
	addPolicyFlags(cmd, &opts)

	return cmd
}

// server holds the state shared by all HTTP handlers: the loaded tree
// texts, the default options, and a caching runner.
type server struct {
	cli        *CLI
	runner     *pipeline.Runner
	sourceText string
	targetText string
	sourceName string
	targetName string
	defaults   pipeline.Options
}

// runServe loads both trees, wires the cache backend, and blocks until
// the context is cancelled.
func (c *CLI) runServe(ctx context.Context, sourcePath, targetPath, addr, redisAddr string, noCache bool, opts pipeline.Options) error {
	sourceText, err := readTreeFile(sourcePath)
	if err != nil {
		return err
	}
	targetText, err := readTreeFile(targetPath)
	if err != nil {
		return err
	}

	cch, err := c.serveCache(ctx, redisAddr, noCache)
	if err != nil {
		return err
	}
	runner := pipeline.NewRunner(cch, cache.NewScopedKeyer(cache.NewDefaultKeyer(), "serve"), c.Logger)
	defer runner.Close()

	srv := &server{
		cli:        c,
		runner:     runner,
		sourceText: sourceText,
		targetText: targetText,
		sourceName: treeTitle(sourcePath),
		targetName: treeTitle(targetPath),
		defaults:   opts,
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.Logger.Info("serving comparisons",
			"addr", addr,
			"source", srv.sourceName,
			"target", srv.targetName)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// serveCache selects the cache backend for serve mode.
func (c *CLI) serveCache(ctx context.Context, redisAddr string, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	if redisAddr != "" {
		return cache.NewRedisCache(ctx, cache.RedisConfig{Addr: redisAddr})
	}
	return newCache(false)
}

// routes builds the chi router.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/trees", s.handleTrees)
		r.Get("/layout", s.handleLayout)
		r.Get("/matches", s.handleMatches)
	})
	return r
}

// logRequests logs each request through the CLI logger.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.cli.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Microsecond))
	})
}

// requestOptions layers the request's query parameters over the serve
// defaults. Only the parameters a renderer may feed back are accepted.
func (s *server) requestOptions(r *http.Request) (pipeline.Options, error) {
	opts := s.defaults
	opts.SourceText = s.sourceText
	opts.TargetText = s.targetText
	opts.SourceTitle = s.sourceName
	opts.TargetTitle = s.targetName

	q := r.URL.Query()
	if v := q.Get("cutoff"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return opts, dendroerrors.New(dendroerrors.ErrCodeInvalidInput, "invalid cutoff %q", v)
		}
		opts.Cutoff = f
	}
	if v := q.Get("min_leaves"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return opts, dendroerrors.New(dendroerrors.ErrCodeInvalidInput, "invalid min_leaves %q", v)
		}
		opts.MinLeaves = n
	}
	if v := q.Get("mode"); v != "" {
		opts.Mode = v
	}
	if v := q.Get("width"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return opts, dendroerrors.New(dendroerrors.ErrCodeInvalidInput, "invalid width %q", v)
		}
		opts.Width = f
	}
	if v := q.Get("height"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return opts, dendroerrors.New(dendroerrors.ErrCodeInvalidInput, "invalid height %q", v)
		}
		opts.Height = f
	}
	return opts, nil
}

// handleTrees returns the full comparison scene: both laid-out trees
// and the match list.
func (s *server) handleTrees(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, export.Comparison{
		Source:    export.FromTree(result.Source),
		Target:    export.FromTree(result.Target),
		Matches:   export.FromMatches(result.Matches),
		MinLeaves: opts.MinLeaves,
		Mode:      opts.Mode,
	})
}

// handleLayout returns one laid-out tree, selected by ?tree=source|target.
func (s *server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	side := r.URL.Query().Get("tree")
	if side == "" {
		side = "source"
	}
	if side != "source" && side != "target" {
		s.writeError(w, dendroerrors.New(dendroerrors.ErrCodeInvalidInput, "invalid tree %q, want source or target", side))
		return
	}

	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	tree := result.Source
	if side == "target" {
		tree = result.Target
	}
	s.writeJSON(w, export.FromTree(tree))
}

// handleMatches returns the match list only.
func (s *server) handleMatches(w http.ResponseWriter, r *http.Request) {
	opts, err := s.requestOptions(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	result, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, export.FromMatches(result.Matches))
}

func (s *server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.cli.Logger.Error("encode response", "error", err)
	}
}

// writeError maps structured error codes to HTTP statuses.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := dendroerrors.GetCode(err)
	switch code {
	case dendroerrors.ErrCodeInvalidInput, dendroerrors.ErrCodeInvalidTree,
		dendroerrors.ErrCodeInvalidMode, dendroerrors.ErrCodeInvalidPolicy,
		dendroerrors.ErrCodeInvalidFrame:
		status = http.StatusBadRequest
	case dendroerrors.ErrCodeNotFound, dendroerrors.ErrCodeTreeNotFound,
		dendroerrors.ErrCodeFileNotFound:
		status = http.StatusNotFound
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"code":  string(code),
		"error": dendroerrors.UserMessage(err),
	})
}
