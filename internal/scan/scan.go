package scan

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// MinDimension is the smallest natural width or height a candidate may have
const MinDimension = 200

// Collector discovers the candidate images of a page
type Collector interface {
	Collect(ctx context.Context, pageURL string) (*models.Page, error)
}

// Filter keeps the candidates whose locator matches any pattern.
// An empty filter keeps everything.
type Filter struct {
	patterns []glob.Glob
}

// NewFilter compiles shell-style patterns such as "*.example.com/*.jpg"
func NewFilter(patterns ...string) (*Filter, error) {
	f := &Filter{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid match pattern %q: %w", p, err)
		}
		f.patterns = append(f.patterns, g)
	}
	return f, nil
}

// Match reports whether src passes the filter
func (f *Filter) Match(src string) bool {
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	target := strings.TrimPrefix(strings.TrimPrefix(src, "https://"), "http://")
	for _, g := range f.patterns {
		if g.Match(target) || g.Match(src) {
			return true
		}
	}
	return false
}

// Apply returns the candidates that pass the filter
func (f *Filter) Apply(candidates []models.ImageCandidate) []models.ImageCandidate {
	if f == nil || len(f.patterns) == 0 {
		return candidates
	}
	out := make([]models.ImageCandidate, 0, len(candidates))
	for _, c := range candidates {
		if f.Match(c.Src) {
			out = append(out, c)
		}
	}
	return out
}

// bigEnough reports whether both natural dimensions reach MinDimension
func bigEnough(width, height int) bool {
	return width >= MinDimension && height >= MinDimension
}

// pageHost returns the host name of pageURL, or DefaultBase
func pageHost(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil || u.Hostname() == "" {
		return models.DefaultBase
	}
	return u.Hostname()
}

func pageTitle(title string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	return models.DefaultBase
}
