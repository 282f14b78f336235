package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultMaxImageBytes caps a single image body
const DefaultMaxImageBytes int64 = 64 * 1024 * 1024

// DecodableTypes are the media types a registered decoder understands
var DecodableTypes = []string{"image/webp", "image/png", "image/jpeg", "image/gif", "image/bmp"}

// acceptHeader never advertises a format this package cannot decode, so
// content-negotiating servers fall back to one it can
var acceptHeader = strings.Join(DecodableTypes, ",") + ",*/*;q=0.5"

// Fetcher retrieves image resources without sending credentials
type Fetcher struct {
	HTTPClient *http.Client
	MaxBytes   int64
	UserAgent  string
	Accounting *Accounting
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: NewAnonymousClient(30 * time.Second),
		MaxBytes:   DefaultMaxImageBytes,
	}
}

// NewAnonymousClient returns a client with no cookie jar that drops
// credential headers when following redirects.
func NewAnonymousClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Jar:     nil,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return errors.New("stopped after 10 redirects")
			}
			req.Header.Del("Cookie")
			req.Header.Del("Authorization")
			return nil
		},
	}
}

// Fetch retrieves the locator and decodes it into a Bitmap.
// The caller owns the returned bitmap and must release it.
func (f *Fetcher) Fetch(ctx context.Context, locator string) (*Bitmap, error) {
	data, _, err := f.FetchRaw(ctx, locator)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{Locator: locator, Err: err}
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, &DecodeError{Locator: locator, Err: fmt.Errorf("empty image (%d x %d)", b.Dx(), b.Dy())}
	}

	slog.Debug("Decoded image", "src", locator, "width", img.Bounds().Dx(), "height", img.Bounds().Dy(), "bytes", len(data))
	return NewBitmap(img, f.Accounting), nil
}

// Probe reads the natural dimensions and byte size of an image
// without keeping the decoded pixels.
func (f *Fetcher) Probe(ctx context.Context, locator string) (width, height int, size int64, err error) {
	data, _, err := f.FetchRaw(ctx, locator)
	if err != nil {
		return 0, 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, 0, &DecodeError{Locator: locator, Err: err}
	}
	return cfg.Width, cfg.Height, int64(len(data)), nil
}

// FetchRaw returns the body bytes and content type for a locator.
// http, https and data locators are supported.
func (f *Fetcher) FetchRaw(ctx context.Context, locator string) ([]byte, string, error) {
	if strings.HasPrefix(locator, "data:") {
		data, mediaType, err := decodeDataURL(locator)
		if err != nil {
			return nil, "", &FetchError{Locator: truncateLocator(locator), Err: err}
		}
		return data, mediaType, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, "", &FetchError{Locator: locator, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", acceptHeader)
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	client := f.HTTPClient
	if client == nil {
		client = NewAnonymousClient(30 * time.Second)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", &FetchError{Locator: locator, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &FetchError{
			Locator:    locator,
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", &FetchError{Locator: locator, Err: fmt.Errorf("failed to read image data: %w", err)}
	}
	if int64(len(data)) > maxBytes {
		return nil, "", &FetchError{Locator: locator, Err: fmt.Errorf("image larger than %d bytes", maxBytes)}
	}

	return data, resp.Header.Get("Content-Type"), nil
}

func truncateLocator(locator string) string {
	if len(locator) > 64 {
		return locator[:64] + "..."
	}
	return locator
}
