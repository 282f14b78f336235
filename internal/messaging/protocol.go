package messaging

import (
	"encoding/json"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// MessageType names a protocol message
type MessageType string

const (
	InjectContent    MessageType = "injectContent"
	MergeAndDownload MessageType = "mergeAndDownload"
	DownloadImages   MessageType = "downloadImages"
	ShowPanel        MessageType = "showPanel"
	CollectImages    MessageType = "collectImages"
)

// Message is the request envelope sent to the privileged context
type Message struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Response is the reply to every message
type Response struct {
	OK        bool                    `json:"ok"`
	Error     string                  `json:"error,omitempty"`
	Images    []models.ImageCandidate `json:"images,omitempty"`
	PageTitle string                  `json:"pageTitle,omitempty"`
	PageHost  string                  `json:"pageHost,omitempty"`
	Saved     []string                `json:"saved,omitempty"`
}

// TabPayload addresses a page registered with the privileged context.
// PageURL is used by injectContent and by collectImages without a tab.
type TabPayload struct {
	TabID   int    `json:"tabId,omitempty"`
	PageURL string `json:"pageUrl,omitempty"`
}
