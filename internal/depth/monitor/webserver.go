// Package monitor serves the latest occupancy result, processor counters and
// stored snapshots over HTTP, plus a gRPC health endpoint.
package monitor

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/banshee-data/depthgrid/internal/depth/grid"
	"github.com/banshee-data/depthgrid/internal/depth/pipeline"
	"github.com/banshee-data/depthgrid/internal/httputil"
	"github.com/banshee-data/depthgrid/internal/monitoring"
	"github.com/banshee-data/depthgrid/internal/version"
)

//go:embed status.html
var statusFS embed.FS

var statusTmpl = template.Must(template.ParseFS(statusFS, "status.html"))

// ResultSource is the processor as seen by the monitor.
type ResultSource interface {
	Latest() (grid.Result, bool)
	Stats() pipeline.Stats
	SessionID() string
	Running() bool
	Snapshot(reason string) (int64, error)
}

// SnapshotReader reads persisted snapshots.
type SnapshotReader interface {
	ListSnapshots(sessionID string, limit int) ([]*grid.Snapshot, error)
	GetSnapshot(id int64) (*grid.Snapshot, error)
	CountSnapshots(sessionID string) (int, error)
}

// AdminRoutes mounts debug handlers, such as the sqlite console.
type AdminRoutes interface {
	AttachAdminRoutes(mux *http.ServeMux) error
}

// WebServerConfig configures a WebServer. Snapshots, Admin and SourceStats
// are optional.
type WebServerConfig struct {
	Address   string
	Source    ResultSource
	Snapshots SnapshotReader
	Admin     AdminRoutes
	// SourceStats reports frame source counters under /api/stats.
	SourceStats func() any
}

// WebServer is the HTTP monitoring interface.
type WebServer struct {
	address     string
	source      ResultSource
	snapshots   SnapshotReader
	sourceStats func() any
	started     time.Time
	mux         *http.ServeMux
	server      *http.Server
}

func NewWebServer(cfg WebServerConfig) (*WebServer, error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("monitor needs a result source")
	}
	ws := &WebServer{
		address:     cfg.Address,
		source:      cfg.Source,
		snapshots:   cfg.Snapshots,
		sourceStats: cfg.SourceStats,
		started:     time.Now(),
	}
	ws.mux = ws.setupRoutes()
	if cfg.Admin != nil {
		if err := cfg.Admin.AttachAdminRoutes(ws.mux); err != nil {
			return nil, fmt.Errorf("failed to attach admin routes: %w", err)
		}
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws, nil
}

// Handler exposes the routes, for tests and embedding.
func (ws *WebServer) Handler() http.Handler { return ws.mux }

// Start serves until ctx is cancelled, then shuts down gracefully.
func (ws *WebServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", ws.address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", ws.address, err)
	}
	return ws.Serve(ctx, lis)
}

// Serve is Start on an existing listener.
func (ws *WebServer) Serve(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("[monitor] HTTP server on %s", lis.Addr())
		if err := ws.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("[monitor] HTTP shutdown error: %v", err)
		ws.server.Close()
	}
	monitoring.Logf("[monitor] HTTP server stopped")
	return nil
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", ws.handleHealth)
	mux.HandleFunc("GET /{$}", ws.handleStatus)
	mux.HandleFunc("GET /api/stats", ws.handleStats)
	mux.HandleFunc("GET /api/grid", ws.handleGrid)
	mux.HandleFunc("GET /api/grid.txt", ws.handleGridText)
	mux.HandleFunc("GET /api/grid/heatmap", ws.handleGridHeatmap)
	mux.HandleFunc("GET /api/grid/plot.png", ws.handleGridPlot)
	mux.HandleFunc("GET /api/snapshots", ws.handleSnapshots)
	mux.HandleFunc("POST /api/snapshots", ws.handleSnapshotNow)
	mux.HandleFunc("GET /api/snapshots/{id}", ws.handleSnapshot)
	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if !ws.source.Running() {
		status = "stopped"
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]string{
		"status":    status,
		"service":   "depthgrid",
		"version":   version.String(),
		"session":   ws.source.SessionID(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type statsResponse struct {
	SessionID string         `json:"session_id"`
	Uptime    string         `json:"uptime"`
	Pipeline  pipeline.Stats `json:"pipeline"`
	Source    any            `json:"source,omitempty"`
	// Snapshots stored for this session; absent without a store.
	Snapshots *int `json:"snapshots,omitempty"`
}

func (ws *WebServer) handleStats(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		SessionID: ws.source.SessionID(),
		Uptime:    time.Since(ws.started).Round(time.Second).String(),
		Pipeline:  ws.source.Stats(),
	}
	if ws.sourceStats != nil {
		resp.Source = ws.sourceStats()
	}
	if ws.snapshots != nil {
		if n, err := ws.snapshots.CountSnapshots(resp.SessionID); err != nil {
			monitoring.Logf("[monitor] snapshot count: %v", err)
		} else {
			resp.Snapshots = &n
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// latest writes a 404 and returns false when no frame has been processed.
func (ws *WebServer) latest(w http.ResponseWriter) (grid.Result, bool) {
	res, ok := ws.source.Latest()
	if !ok || res.Grid == nil {
		httputil.NotFound(w, "no frame processed yet")
		return grid.Result{}, false
	}
	return res, true
}

func (ws *WebServer) handleGrid(w http.ResponseWriter, r *http.Request) {
	res, ok := ws.latest(w)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (ws *WebServer) handleGridText(w http.ResponseWriter, r *http.Request) {
	res, ok := ws.latest(w)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, res.Grid.String())
}

func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	res, ok := ws.source.Latest()
	data := struct {
		SessionID string
		Running   bool
		HasResult bool
		Result    grid.Result
		Stats     pipeline.Stats
	}{
		SessionID: ws.source.SessionID(),
		Running:   ws.source.Running(),
		HasResult: ok,
		Result:    res,
		Stats:     ws.source.Stats(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusTmpl.Execute(w, data); err != nil {
		monitoring.Logf("[monitor] status page: %v", err)
	}
}
