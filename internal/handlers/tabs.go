package handlers

import (
	"net/http"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/storage"
)

// injectContent scans the page and registers the tab, replacing any
// earlier registration
func (h *Handler) injectContent(w http.ResponseWriter, r *http.Request, msg messaging.Message) {
	var p messaging.TabPayload
	if !h.decodePayload(w, msg, &p) {
		return
	}
	if p.PageURL == "" {
		h.writeFailure(w, msg.Type, "pageUrl is required")
		return
	}

	page, ok := h.scan(w, r, msg, p.PageURL)
	if !ok {
		// a failed re-injection leaves no receiver behind
		h.tabStore.Delete(p.TabID)
		return
	}
	h.tabStore.Set(&storage.Tab{
		ID:         p.TabID,
		URL:        p.PageURL,
		Page:       page,
		InjectedAt: time.Now(),
	})
	h.writeJSON(w, messaging.Response{OK: true, Images: page.Images, PageTitle: page.Title, PageHost: page.Host})
}

// showPanel fails with the no-receiver text for tabs never injected
func (h *Handler) showPanel(w http.ResponseWriter, r *http.Request, msg messaging.Message) {
	var p messaging.TabPayload
	if !h.decodePayload(w, msg, &p) {
		return
	}
	if !h.tabStore.Update(p.TabID, func(t *storage.Tab) { t.PanelShown = true }) {
		h.writeFailure(w, msg.Type, messaging.MsgNoReceiver)
		return
	}
	h.writeJSON(w, messaging.Response{OK: true})
}

// collectImages re-scans a registered tab, or scans a page URL directly
func (h *Handler) collectImages(w http.ResponseWriter, r *http.Request, msg messaging.Message) {
	var p messaging.TabPayload
	if !h.decodePayload(w, msg, &p) {
		return
	}

	pageURL := p.PageURL
	tab, registered := h.tabStore.Get(p.TabID)
	if pageURL == "" {
		if !registered {
			h.writeFailure(w, msg.Type, messaging.MsgNoReceiver)
			return
		}
		pageURL = tab.URL
	}

	page, ok := h.scan(w, r, msg, pageURL)
	if !ok {
		return
	}
	if registered && tab.URL == pageURL {
		h.tabStore.Update(p.TabID, func(t *storage.Tab) { t.Page = page })
	}
	h.writeJSON(w, messaging.Response{OK: true, Images: page.Images, PageTitle: page.Title, PageHost: page.Host})
}

func (h *Handler) scan(w http.ResponseWriter, r *http.Request, msg messaging.Message, pageURL string) (*models.Page, bool) {
	if h.collector == nil {
		h.writeFailure(w, msg.Type, "page scanning is not available")
		return nil, false
	}
	page, err := h.collector.Collect(r.Context(), pageURL)
	if err != nil {
		h.writeFailure(w, msg.Type, err.Error())
		return nil, false
	}
	return page, true
}

// HandleTabs lists the registered tabs
func (h *Handler) HandleTabs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.writeJSON(w, h.tabStore.GetAll())
	default:
		h.writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
