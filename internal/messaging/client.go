package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// MessagesPath is where the privileged context accepts messages
const MessagesPath = "/api/messages"

// Client sends protocol messages to the privileged context
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// NewClient creates a client for the daemon at baseURL.
// An empty baseURL behaves like a daemon that is not running.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		Timeout:    timeout,
	}
}

// Send posts one message and waits for its response. A response with
// ok=false is returned as a *RemoteError.
func (c *Client) Send(ctx context.Context, msgType MessageType, payload any) (*Response, error) {
	if c.BaseURL == "" {
		return nil, &CommunicationError{Reason: ReasonNoReceiver, Err: errors.New("no backend configured")}
	}

	msg := Message{Type: msgType, RequestID: uuid.New().String()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		msg.Payload = raw
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+MessagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	slog.Debug("Sending message", "type", msgType, "request_id", msg.RequestID)
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("no response to %s: %w", msgType, ctxErr)
		}
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusServiceUnavailable, http.StatusGone:
		return nil, &CommunicationError{Reason: ReasonContextInvalidated, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	case http.StatusNotFound:
		return nil, &CommunicationError{Reason: ReasonNoReceiver, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, &RemoteError{Type: msgType, Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))}
		}
		return nil, fmt.Errorf("failed to decode %s response: %w", msgType, err)
	}
	if !out.OK {
		message := out.Error
		if message == "" {
			message = defaultFailure(msgType)
		}
		return &out, &RemoteError{Type: msgType, Message: message}
	}
	return &out, nil
}

func defaultFailure(msgType MessageType) string {
	switch msgType {
	case MergeAndDownload:
		return "stitching failed"
	case DownloadImages:
		return "download failed"
	default:
		return "operation failed"
	}
}

// MergeAndDownload asks the privileged context to stitch and save the images
func (c *Client) MergeAndDownload(ctx context.Context, req models.StitchRequest) error {
	_, err := c.Send(ctx, MergeAndDownload, req)
	return err
}

// DownloadImages asks the privileged context to save every image
func (c *Client) DownloadImages(ctx context.Context, req models.DownloadRequest) error {
	_, err := c.Send(ctx, DownloadImages, req)
	return err
}

// InjectContent loads the page-local context for a tab
func (c *Client) InjectContent(ctx context.Context, tabID int, pageURL string) error {
	_, err := c.Send(ctx, InjectContent, TabPayload{TabID: tabID, PageURL: pageURL})
	return err
}

// ShowPanel asks the page-local context of a tab to display its panel
func (c *Client) ShowPanel(ctx context.Context, tabID int) error {
	_, err := c.Send(ctx, ShowPanel, TabPayload{TabID: tabID})
	return err
}

// CollectImages returns the candidates of a registered tab or of a page URL
func (c *Client) CollectImages(ctx context.Context, tabID int, pageURL string) (*models.Page, error) {
	resp, err := c.Send(ctx, CollectImages, TabPayload{TabID: tabID, PageURL: pageURL})
	if err != nil {
		return nil, err
	}
	return &models.Page{Images: resp.Images, Title: resp.PageTitle, Host: resp.PageHost}, nil
}

// Ping checks that the privileged context answers its healthcheck
func (c *Client) Ping(ctx context.Context) error {
	if c.BaseURL == "" {
		return &CommunicationError{Reason: ReasonNoReceiver}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthcheck", nil)
	if err != nil {
		return err
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &CommunicationError{Reason: ReasonContextInvalidated, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return nil
}
