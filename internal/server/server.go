// Package server exposes the DORA metrics provider and its rendering widget
// over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"

	"github.com/and161185/dora-molecule/internal/buildinfo"
	"github.com/and161185/dora-molecule/internal/config"
	"github.com/and161185/dora-molecule/internal/dora"
	"github.com/and161185/dora-molecule/internal/errs"
	"github.com/and161185/dora-molecule/internal/metrics"
	"github.com/and161185/dora-molecule/internal/server/middleware"
	"github.com/and161185/dora-molecule/internal/widget"
	"github.com/and161185/dora-molecule/model"
	"github.com/and161185/dora-molecule/static"
)

const (
	shutdownTimeout = 10 * time.Second
	maxArgsBytes    = 64 << 10
	// maxBodyBytes caps the wire body before any middleware buffers it.
	maxBodyBytes = 1 << 20
)

type Server struct {
	provider *dora.Provider
	config   *config.ServerConfig
	prom     *metrics.Prom
	asset    static.Asset
}

func NewServer(provider *dora.Provider, config *config.ServerConfig, prom *metrics.Prom) (*Server, error) {
	asset, err := static.Widget()
	if err != nil {
		return nil, err
	}
	if prom == nil {
		prom = metrics.NewProm()
	}
	return &Server{
		provider: provider,
		config:   config,
		prom:     prom,
		asset:    asset,
	}, nil
}

// Router builds the HTTP handler with all routes and middleware.
func (srv *Server) Router() (http.Handler, error) {
	trusted, err := middleware.TrustedCIDR(srv.config.TrustedSubnet)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()
	router.Use(middleware.LimitBody(maxBodyBytes))
	router.Use(chiMiddleware.StripSlashes)
	router.Use(chiMiddleware.Recoverer)
	router.Use(middleware.LogMiddleware(srv.config.Logger))
	router.Use(middleware.CompressMiddleware)

	router.Get("/tools", srv.ListToolsHandler)
	router.Group(func(r chi.Router) {
		r.Use(trusted)
		r.Use(middleware.VerifyHashMiddleware(srv.config.Key))
		r.Use(middleware.DecompressMiddleware)
		r.Post("/tools/{name}", srv.CallToolHandler)
	})

	router.Get(dora.WidgetPath, srv.WidgetHandler)
	router.Get("/static/{fqdn}/{version}/"+static.WidgetFile, srv.VersionedWidgetHandler)
	router.Get("/preview/{service}", srv.PreviewHandler)
	router.Get("/embed/{service}", srv.EmbedHandler)
	router.Get("/frame", srv.FrameHandler)

	router.Get("/ping", srv.PingHandler)
	router.Get("/version", srv.VersionHandler)
	router.Method(http.MethodGet, "/metrics", srv.prom.Handler())

	return router, nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (srv *Server) Run(ctx context.Context) error {
	router, err := srv.Router()
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              srv.config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		srv.config.Logger.Infof("listening on %s", srv.config.Addr)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (srv *Server) ListToolsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, srv.config.Logger, http.StatusOK, srv.provider.Tools())
}

func (srv *Server) CallToolHandler(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	started := time.Now()

	args, err := io.ReadAll(io.LimitReader(r.Body, maxArgsBytes+1))
	if err != nil {
		writeError(w, srv.config.Logger, fmt.Errorf("read arguments: %w", errs.ErrInvalidInput))
		return
	}
	if len(args) > maxArgsBytes {
		writeError(w, srv.config.Logger, fmt.Errorf("arguments too large: %w", errs.ErrInvalidInput))
		return
	}

	label := name
	if !srv.provider.HasTool(name) {
		label = metrics.ToolUnknown
	}

	result, err := srv.provider.Call(r.Context(), name, args)
	if err != nil {
		_, kind := classify(err)
		srv.prom.ObserveTool(label, started, kind)
		writeError(w, srv.config.Logger, err)
		return
	}
	srv.prom.ObserveTool(label, started, "")
	writeJSON(w, srv.config.Logger, http.StatusOK, result)
}

func (srv *Server) WidgetHandler(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Type", srv.asset.ContentType)
	h.Set("ETag", srv.asset.ETag)
	h.Set("Cache-Control", "public, max-age=300")
	h.Set("Access-Control-Allow-Origin", "*")

	if r.Header.Get("If-None-Match") == srv.asset.ETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	srv.prom.AssetServes.Inc()
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(srv.asset.Body); err != nil {
		srv.config.Logger.Errorf("failed to write widget: %v", err)
	}
}

// VersionedWidgetHandler serves the widget under /static/{fqdn}/{version}/.
// Only the configured molecule name and the current asset version exist.
func (srv *Server) VersionedWidgetHandler(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "fqdn") != srv.config.ServiceName || chi.URLParam(r, "version") != config.AssetsVersion {
		http.NotFound(w, r)
		return
	}
	srv.WidgetHandler(w, r)
}

func (srv *Server) PreviewHandler(w http.ResponseWriter, r *http.Request) {
	payload, ok := srv.payload(w, r)
	if !ok {
		return
	}
	view, err := widget.Preview(r.Context(), payload, srv.config.Logger)
	if err != nil {
		writeError(w, srv.config.Logger, err)
		return
	}
	page, err := view.Page()
	if err != nil {
		writeError(w, srv.config.Logger, err)
		return
	}
	srv.prom.Previews.Inc()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		srv.config.Logger.Errorf("failed to write preview: %v", err)
	}
}

func (srv *Server) PingHandler(w http.ResponseWriter, r *http.Request) {
	if err := srv.provider.Ping(r.Context()); err != nil {
		srv.config.Logger.Warnw("source ping failed", "error", err)
		writeJSON(w, srv.config.Logger, http.StatusServiceUnavailable, errorBody{Error: errs.ErrDataUnavailable.Error()})
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (srv *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, srv.config.Logger, http.StatusOK, buildinfo.Get())
}

// payload fetches the metrics named by the {service} parameter and the
// optional days query. It writes the error response itself.
func (srv *Server) payload(w http.ResponseWriter, r *http.Request) (*model.MetricsPayload, bool) {
	days, err := daysQuery(r)
	if err != nil {
		writeError(w, srv.config.Logger, err)
		return nil, false
	}
	res, err := srv.provider.GetDoraMetrics(r.Context(), chi.URLParam(r, "service"), days)
	if err != nil {
		writeError(w, srv.config.Logger, err)
		return nil, false
	}
	return &res.MetricsPayload, true
}

func daysQuery(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return dora.DefaultDays, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("days %q: %w", raw, errs.ErrInvalidInput)
	}
	return days, nil
}
