package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/scan"
	"github.com/lehigh-university-libraries/stitcher/internal/storage"
)

// Actions performs the stitch and download work for the daemon
type Actions interface {
	Merge(ctx context.Context, req models.StitchRequest) (string, error)
	Download(ctx context.Context, req models.DownloadRequest) ([]string, error)
}

type Handler struct {
	tabStore  *storage.TabStore
	jobStore  *storage.JobStore
	actions   Actions
	collector scan.Collector
	filesDir  string
	draining  atomic.Bool
}

// Option configures a Handler
type Option func(*Handler)

// WithJobHistory bounds the number of jobs listed by /api/jobs
func WithJobHistory(n int) Option {
	return func(h *Handler) {
		h.jobStore = storage.NewJobStore(n)
	}
}

// New creates the daemon handler. filesDir is served under /files/.
func New(actions Actions, collector scan.Collector, filesDir string, opts ...Option) *Handler {
	h := &Handler{
		tabStore:  storage.NewTabStore(),
		jobStore:  storage.NewJobStore(storage.DefaultJobHistory),
		actions:   actions,
		collector: collector,
		filesDir:  filesDir,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every daemon endpoint on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc(messaging.MessagesPath, h.guard(h.HandleMessage))
	mux.HandleFunc("/api/tabs", h.guard(h.HandleTabs))
	mux.HandleFunc("/api/jobs", h.guard(h.HandleJobs))
	mux.HandleFunc("/files/", h.guard(h.HandleFiles))
	mux.HandleFunc("/healthcheck", h.HandleHealthcheck)
}

// Drain makes every later request fail the way a torn down context does,
// so clients switch to their local fallback
func (h *Handler) Drain() {
	if !h.draining.Swap(true) {
		slog.Info("Draining, new messages are refused")
	}
}

func (h *Handler) Draining() bool {
	return h.draining.Load()
}

func (h *Handler) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.draining.Load() {
			http.Error(w, messaging.MsgContextInvalidated, http.StatusServiceUnavailable)
			return
		}
		next(w, r)
	}
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if h.draining.Load() {
		http.Error(w, "draining", http.StatusServiceUnavailable)
		return
	}
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	slog.Error(message)
	http.Error(w, message, code)
}

// writeFailure answers a message with ok=false
func (h *Handler) writeFailure(w http.ResponseWriter, msgType messaging.MessageType, message string) {
	slog.Warn("Message failed", "type", msgType, "err", message)
	h.writeJSON(w, messaging.Response{OK: false, Error: message})
}
