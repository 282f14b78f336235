package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/router"
	"github.com/lehigh-university-libraries/stitcher/internal/storage"
)

// HandleMessage accepts one protocol envelope and answers with a Response
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var msg messaging.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if msg.RequestID == "" {
		msg.RequestID = uuid.New().String()
	}
	slog.Debug("Received message", "type", msg.Type, "request_id", msg.RequestID)

	switch msg.Type {
	case messaging.MergeAndDownload:
		h.mergeAndDownload(w, r, msg)
	case messaging.DownloadImages:
		h.downloadImages(w, r, msg)
	case messaging.InjectContent:
		h.injectContent(w, r, msg)
	case messaging.ShowPanel:
		h.showPanel(w, r, msg)
	case messaging.CollectImages:
		h.collectImages(w, r, msg)
	default:
		h.writeFailure(w, msg.Type, "unknown message type")
	}
}

func (h *Handler) mergeAndDownload(w http.ResponseWriter, r *http.Request, msg messaging.Message) {
	var req models.StitchRequest
	if !h.decodePayload(w, msg, &req) {
		return
	}
	if len(req.Images) == 0 {
		h.writeFailure(w, msg.Type, "no images received")
		return
	}

	started := time.Now()
	path, err := h.actions.Merge(r.Context(), req)
	var saved []string
	if path != "" {
		saved = []string{path}
	}
	h.recordJob(msg, len(req.Images), started, saved, err)
	if err != nil {
		h.writeFailure(w, msg.Type, router.Describe(err, "stitching failed"))
		return
	}

	slog.Info("Stitched images", "request_id", msg.RequestID, "count", len(req.Images), "path", path, "duration", time.Since(started))
	h.writeJSON(w, messaging.Response{OK: true, Saved: saved})
}

func (h *Handler) downloadImages(w http.ResponseWriter, r *http.Request, msg messaging.Message) {
	var req models.DownloadRequest
	if !h.decodePayload(w, msg, &req) {
		return
	}
	if len(req.Images) == 0 {
		h.writeFailure(w, msg.Type, "no images received")
		return
	}

	started := time.Now()
	saved, err := h.actions.Download(r.Context(), req)
	h.recordJob(msg, len(req.Images), started, saved, err)
	if err != nil {
		h.writeFailure(w, msg.Type, router.Describe(err, "download failed"))
		return
	}
	h.writeJSON(w, messaging.Response{OK: true, Saved: saved})
}

func (h *Handler) decodePayload(w http.ResponseWriter, msg messaging.Message, v any) bool {
	if len(msg.Payload) == 0 {
		return true
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		h.writeError(w, "Invalid payload: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) recordJob(msg messaging.Message, images int, started time.Time, saved []string, err error) {
	job := &storage.Job{
		ID:         msg.RequestID,
		Type:       string(msg.Type),
		Images:     images,
		OK:         err == nil,
		Saved:      saved,
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
	}
	if err != nil {
		job.Error = err.Error()
	}
	h.jobStore.Add(job)
}

// HandleJobs lists recent job outcomes, or one job by ?id=
func (h *Handler) HandleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if id := r.URL.Query().Get("id"); id != "" {
		job, ok := h.jobStore.Get(id)
		if !ok {
			h.writeError(w, "Job not found", http.StatusNotFound)
			return
		}
		h.writeJSON(w, job)
		return
	}
	h.writeJSON(w, h.jobStore.GetAll())
}
