// Package preview serves a built artifact set over HTTP for local
// inspection.
//
// The server is read-only: it serves exactly what the bundler produced,
// with the content types the runtime image would use. Watch mode adds a
// websocket reload channel and injects a small client script into the
// entry document.
package preview

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/wharfbuild/wharf/internal/logging"
	"github.com/wharfbuild/wharf/pkg/assets"
)

// entryDocument is the file served for the root path.
const entryDocument = "index.html"

// Options configures the preview server.
type Options struct {
	// Dir is the artifact set directory to serve.
	Dir string

	// Addr is the listen address.
	Addr string

	// Watch enables the reload channel and client script injection.
	Watch bool

	// Log receives server diagnostics.
	Log *logrus.Entry
}

// Server serves an artifact set with request metrics.
type Server struct {
	options  Options
	log      *logrus.Entry
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	duration prometheus.Histogram
	hub      *ReloadHub
	manifest *assets.Manifest
	handler  http.Handler
}

// NewServer creates a preview server for the given artifact directory.
func NewServer(options Options) *Server {
	if options.Log == nil {
		options.Log = logging.Discard()
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	s := &Server{
		options:  options,
		log:      options.Log,
		registry: registry,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wharf",
			Subsystem: "preview",
			Name:      "requests_total",
			Help:      "Requests served, by status code.",
		}, []string{"code"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "wharf",
			Subsystem: "preview",
			Name:      "request_duration_seconds",
			Help:      "Request handling duration.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	if options.Watch {
		s.hub = NewReloadHub()
	}
	s.manifest = loadManifest(options.Dir)
	s.handler = s.routes()

	return s
}

// loadManifest reads the bundle manifest so requests for source asset
// names resolve to their hashed output names. An unreadable manifest
// leaves resolution as a no-op.
func loadManifest(dir string) *assets.Manifest {
	m, err := assets.Load(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return assets.NewManifest()
	}
	return m
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// NotifyReload tells connected clients to reload. No-op outside watch
// mode. A rebuild changes hash names, so the manifest is re-read first.
func (s *Server) NotifyReload() {
	if fresh := loadManifest(s.options.Dir); fresh.Len() > 0 {
		s.manifest.Replace(fresh.All())
	}
	if s.hub != nil {
		s.hub.NotifyReload()
	}
}

// Start serves until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.options.Addr,
		Handler: s.handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.log.WithField("addr", s.options.Addr).Info("preview server listening")

	select {
	case <-ctx.Done():
		if s.hub != nil {
			s.hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.instrument)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	if s.hub != nil {
		r.Get(ReloadPath, s.hub.Handle)
	}
	r.Get("/*", s.serveFile)
	return r
}

// instrument records the request counter and duration histogram.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		s.duration.Observe(time.Since(start).Seconds())
		s.requests.WithLabelValues(strconv.Itoa(ww.Status())).Inc()
	})
}

// serveFile serves one file from the artifact set.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if rel == "" || rel == "." {
		rel = entryDocument
	}

	// Clean above collapses any traversal; a remaining ".." means the
	// request escaped the artifact set.
	if strings.HasPrefix(rel, "..") {
		http.NotFound(w, r)
		return
	}

	full := filepath.Join(s.options.Dir, filepath.FromSlash(rel))
	info, err := os.Stat(full)
	if err != nil {
		// A request by source name may still resolve through the bundle
		// manifest to its hashed output.
		if resolved := s.manifest.Resolve(rel); resolved != rel {
			rel = resolved
			full = filepath.Join(s.options.Dir, filepath.FromSlash(rel))
			info, err = os.Stat(full)
		}
	}
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", contentType(rel))
	if rel == entryDocument {
		w.Header().Set("Cache-Control", "no-cache")
		s.serveEntry(w, full)
		return
	}

	http.ServeFile(w, r, full)
}

// serveEntry serves the entry document, injecting the reload client in
// watch mode.
func (s *Server) serveEntry(w http.ResponseWriter, full string) {
	data, err := os.ReadFile(full)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if s.hub != nil {
		markup := string(data)
		if i := strings.LastIndex(markup, "</body>"); i >= 0 {
			markup = markup[:i] + reloadClientScript + markup[i:]
		} else {
			markup += reloadClientScript
		}
		data = []byte(markup)
	}

	w.Write(data)
}

// contentType resolves the MIME type for a served path. Go's builtin
// table misses wasm on some platforms, so the bundle's known extensions
// are pinned.
func contentType(rel string) string {
	switch strings.ToLower(path.Ext(rel)) {
	case ".wasm":
		return "application/wasm"
	case ".js":
		return "text/javascript; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	case ".png":
		return "image/png"
	case ".ico":
		return "image/x-icon"
	default:
		return "application/octet-stream"
	}
}
