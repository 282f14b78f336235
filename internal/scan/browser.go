package scan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/playwright-community/playwright-go"
)

// collectScript reads natural sizes and resource timing transfer sizes
// from the rendered document
const collectScript = `() => {
  const perfSize = (url) => {
    const entries = performance.getEntriesByName(url);
    let best = 0;
    for (const e of entries) {
      best = Math.max(best, e.transferSize || e.encodedBodySize || e.decodedBodySize || 0);
    }
    return best || null;
  };
  const out = [];
  for (const img of document.querySelectorAll('img[src]')) {
    const src = new URL(img.currentSrc || img.src, location.href).toString();
    const rect = img.getBoundingClientRect();
    out.push({
      src,
      width: Math.round(img.naturalWidth || rect.width || img.width),
      height: Math.round(img.naturalHeight || rect.height || img.height),
      size: perfSize(src),
    });
  }
  return { title: document.title, images: out };
}`

// BrowserCollector renders the page in headless Chromium, so images added
// by scripts are found as well
type BrowserCollector struct {
	Filter *Filter
	// Timeout in milliseconds for navigation
	Timeout float64

	mu sync.Mutex
	pw *playwright.Playwright
}

// NewBrowserCollector creates a browser collector. The driver is started
// on first use.
func NewBrowserCollector(filter *Filter) *BrowserCollector {
	return &BrowserCollector{Filter: filter, Timeout: 30000}
}

func (c *BrowserCollector) start() (*playwright.Playwright, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pw != nil {
		return c.pw, nil
	}

	opts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}
	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}
	c.pw = pw
	return pw, nil
}

// Collect implements Collector
func (c *BrowserCollector) Collect(ctx context.Context, pageURL string) (*models.Page, error) {
	pw, err := c.start()
	if err != nil {
		return nil, err
	}

	headless := true
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: &headless})
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer browser.Close()

	bctx, err := browser.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page.SetDefaultTimeout(c.Timeout)

	// playwright calls are not context aware; closing the browser unblocks them
	stop := context.AfterFunc(ctx, func() { browser.Close() })
	defer stop()

	if _, err := page.Goto(pageURL, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateNetworkidle}); err != nil {
		return nil, fmt.Errorf("failed to load page %s: %w", pageURL, err)
	}

	raw, err := page.Evaluate(collectScript)
	if err != nil {
		return nil, fmt.Errorf("failed to read images from %s: %w", pageURL, err)
	}
	result, err := decodeEvaluation(raw)
	if err != nil {
		return nil, err
	}

	out := pageFromScan(pageURL, result, c.Filter)
	slog.Info("Rendered page", "url", pageURL, "found", len(result.Images), "kept", len(out.Images))
	return out, nil
}

// Close stops the playwright driver
func (c *BrowserCollector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pw == nil {
		return nil
	}
	err := c.pw.Stop()
	c.pw = nil
	return err
}

type scanResult struct {
	Title  string                  `json:"title"`
	Images []models.ImageCandidate `json:"images"`
}

// decodeEvaluation converts the generic value returned by Evaluate
func decodeEvaluation(raw any) (*scanResult, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode evaluation result: %w", err)
	}
	var result scanResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unexpected evaluation result: %w", err)
	}
	return &result, nil
}

// pageFromScan applies dedupe, filter and size rules to rendered results
func pageFromScan(pageURL string, result *scanResult, filter *Filter) *models.Page {
	kept := make([]models.ImageCandidate, 0, len(result.Images))
	for _, img := range models.Dedupe(result.Images) {
		if !bigEnough(img.Width, img.Height) {
			continue
		}
		kept = append(kept, img)
	}
	return &models.Page{
		Images: filter.Apply(kept),
		Title:  pageTitle(result.Title),
		Host:   pageHost(pageURL),
	}
}
