// Package webui serves the local browsing interface and JSON API over the
// archive. It is read-only except for the sync trigger, binds to loopback
// by default, and has no authentication of its own.
package webui

import (
	"context"
	_ "embed"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tvuorinen/flickrarc/internal/archive"
)

// defaultPhotoLimit bounds unscoped photo listings; album-scoped listings
// are unbounded so an album page always shows every photo.
const defaultPhotoLimit = 100

//go:embed index.html
var indexHTML []byte

// Archive is the read surface the server needs. Satisfied by
// *archive.Store.
type Archive interface {
	ListAlbums(ctx context.Context) ([]archive.AlbumSummary, error)
	SearchPhotos(ctx context.Context, q archive.PhotoQuery) ([]archive.PhotoRecord, error)
	GetPhotoDetail(ctx context.Context, photoID string) (*archive.PhotoDetail, error)
}

var _ Archive = (*archive.Store)(nil)

// SyncFunc runs one sync and returns its report. Wired to
// archive.Orchestrator.Run.
type SyncFunc func(ctx context.Context) (*archive.Report, error)

// Server is the HTTP layer. At most one sync runs at a time; concurrent
// trigger requests beyond the first get 409.
type Server struct {
	store    Archive
	runSync  SyncFunc
	thumbDir string
	logger   *slog.Logger

	mu       sync.Mutex
	running  bool
	lastMsg  string
	lastTime time.Time
}

// NewServer wires the API over the archive. runSync may be nil, which
// disables the sync trigger.
func NewServer(store Archive, runSync SyncFunc, thumbDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		store:    store,
		runSync:  runSync,
		thumbDir: thumbDir,
		logger:   logger,
	}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/", s.handleIndex)
	r.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/",
		http.FileServer(http.Dir(s.thumbDir))))

	r.Route("/api", func(r chi.Router) {
		r.Get("/albums", s.handleAlbums)
		r.Get("/photos", s.handlePhotos)
		r.Get("/photos/{id}", s.handlePhotoDetail)
		r.Post("/sync", s.handleSyncTrigger)
		r.Get("/sync/status", s.handleSyncStatus)
	})

	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(indexHTML)
}

func (s *Server) handleAlbums(w http.ResponseWriter, r *http.Request) {
	albums, err := s.store.ListAlbums(r.Context())
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "listing albums failed", err)
		return
	}

	if albums == nil {
		albums = []archive.AlbumSummary{}
	}

	s.respondJSON(w, http.StatusOK, albums)
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request) {
	q := archive.PhotoQuery{
		AlbumID: r.URL.Query().Get("album_id"),
		Search:  r.URL.Query().Get("search"),
		Offset:  queryInt(r, "offset", 0),
	}

	// Album views are complete; only unscoped browsing pages.
	if q.AlbumID == "" {
		q.Limit = queryInt(r, "limit", defaultPhotoLimit)
	}

	photos, err := s.store.SearchPhotos(r.Context(), q)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "photo search failed", err)
		return
	}

	if photos == nil {
		photos = []archive.PhotoRecord{}
	}

	s.respondJSON(w, http.StatusOK, photos)
}

func (s *Server) handlePhotoDetail(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "id")

	detail, err := s.store.GetPhotoDetail(r.Context(), photoID)
	if err != nil {
		s.respondError(w, r, http.StatusInternalServerError, "photo lookup failed", err)
		return
	}

	if detail == nil {
		s.respondJSON(w, http.StatusNotFound, errorResponse{Error: "photo not found"})
		return
	}

	s.respondJSON(w, http.StatusOK, detail)
}

// syncStatus is the /api/sync and /api/sync/status response body.
type syncStatus struct {
	Running      bool   `json:"running"`
	Message      string `json:"message,omitempty"`
	LastFinished string `json:"last_finished,omitempty"`
}

func (s *Server) handleSyncTrigger(w http.ResponseWriter, r *http.Request) {
	if s.runSync == nil {
		s.respondJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "sync is not available"})
		return
	}

	s.mu.Lock()

	if s.running {
		s.mu.Unlock()
		s.respondJSON(w, http.StatusConflict, errorResponse{Error: "a sync is already running"})

		return
	}

	s.running = true
	s.mu.Unlock()

	// The run outlives the request; its lifetime is the server's, not the
	// trigger's.
	go s.backgroundSync()

	s.logger.Info("sync triggered via web")
	s.respondJSON(w, http.StatusAccepted, syncStatus{Running: true})
}

func (s *Server) backgroundSync() {
	report, err := s.runSync(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.running = false
	s.lastTime = time.Now()

	switch {
	case err != nil:
		s.lastMsg = "sync failed: " + err.Error()
	case report != nil:
		s.lastMsg = report.Summary()
	}
}

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	status := syncStatus{Running: s.running, Message: s.lastMsg}

	if !s.lastTime.IsZero() {
		status.LastFinished = s.lastTime.UTC().Format(time.RFC3339)
	}
	s.mu.Unlock()

	s.respondJSON(w, http.StatusOK, status)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, msg string, err error) {
	s.logger.Error(msg, "path", r.URL.Path, "error", err)
	s.respondJSON(w, status, errorResponse{Error: msg})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}

	return n
}
