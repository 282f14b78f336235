package scan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/images"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"
)

const maxPageBytes = 16 * 1024 * 1024

// Prober reads the natural dimensions and byte size of an image
type Prober interface {
	Probe(ctx context.Context, locator string) (width, height int, size int64, err error)
}

// HTMLCollector downloads a page without credentials and reads its
// img elements
type HTMLCollector struct {
	HTTPClient *http.Client
	Prober     Prober
	Filter     *Filter
	// Concurrency bounds the number of images probed at once
	Concurrency int
}

// NewHTMLCollector creates a collector that probes with fetcher
func NewHTMLCollector(fetcher *images.Fetcher, filter *Filter) *HTMLCollector {
	return &HTMLCollector{
		HTTPClient:  fetcher.HTTPClient,
		Prober:      fetcher,
		Filter:      filter,
		Concurrency: 4,
	}
}

// Collect implements Collector
func (c *HTMLCollector) Collect(ctx context.Context, pageURL string) (*models.Page, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page url %q: %w", pageURL, err)
	}

	body, err := c.fetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title, srcs := extract(doc, base)
	srcs = c.Filter.Apply(srcs)
	candidates := c.probeAll(ctx, srcs)

	slog.Info("Scanned page", "url", pageURL, "found", len(srcs), "kept", len(candidates))
	return &models.Page{
		Images: candidates,
		Title:  pageTitle(title),
		Host:   pageHost(pageURL),
	}, nil
}

func (c *HTMLCollector) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	client := c.HTTPClient
	if client == nil {
		client = images.NewAnonymousClient(30 * time.Second)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to load page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to load page %s: %d %s", pageURL, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read page %s: %w", pageURL, err)
	}
	return string(data), nil
}

// probeAll keeps document order and drops images that cannot be probed or
// are too small
func (c *HTMLCollector) probeAll(ctx context.Context, srcs []models.ImageCandidate) []models.ImageCandidate {
	probed := make([]*models.ImageCandidate, len(srcs))

	g, gctx := errgroup.WithContext(ctx)
	limit := c.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	var mu sync.Mutex
	skipped := 0
	for i, cand := range srcs {
		g.Go(func() error {
			w, h, size, err := c.Prober.Probe(gctx, cand.Src)
			if err != nil {
				slog.Debug("Skipping image", "src", cand.Src, "err", err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}
			if !bigEnough(w, h) {
				return nil
			}
			probed[i] = &models.ImageCandidate{Src: cand.Src, Width: w, Height: h, Size: &size}
			return nil
		})
	}
	_ = g.Wait()

	if skipped > 0 {
		slog.Warn("Some images could not be probed", "count", skipped)
	}

	out := make([]models.ImageCandidate, 0, len(probed))
	for _, p := range probed {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// extract walks the document for the title and every img locator
func extract(doc *html.Node, base *url.URL) (string, []models.ImageCandidate) {
	var (
		title string
		found []models.ImageCandidate
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch strings.ToLower(n.Data) {
			case "title":
				if title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					title = n.FirstChild.Data
				}
			case "img":
				if src := imageSource(n); src != "" {
					if abs, err := base.Parse(src); err == nil {
						found = append(found, models.ImageCandidate{Src: abs.String()})
					}
				}
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return title, models.Dedupe(found)
}

// imageSource prefers the widest srcset candidate over src, the way a
// browser's currentSrc would on a large display. Images without a src
// attribute are not candidates.
func imageSource(n *html.Node) string {
	src := strings.TrimSpace(attr(n, "src"))
	if src == "" {
		return ""
	}
	if best := bestSrcset(attr(n, "srcset")); best != "" {
		return best
	}
	return src
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

// bestSrcset returns the candidate with the largest width or density
// descriptor
func bestSrcset(srcset string) string {
	best, bestScore := "", 0.0
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(entry)
		if len(fields) == 0 {
			continue
		}
		score := 1.0
		if len(fields) > 1 {
			d := fields[1]
			if v, err := strconv.ParseFloat(strings.TrimRight(d, "wxWX"), 64); err == nil {
				score = v
			}
		}
		if score > bestScore {
			best, bestScore = fields[0], score
		}
	}
	return best
}
