package models

import "strings"

// DefaultBase is the folder every saved asset lands in and the placeholder
// used when a page title or file name is empty.
const DefaultBase = "stitcher"

// ImageCandidate represents an image discovered on a page
type ImageCandidate struct {
	Src    string `json:"src" yaml:"src" parquet:"src"`
	Width  int    `json:"width" yaml:"width" parquet:"width"`
	Height int    `json:"height" yaml:"height" parquet:"height"`
	Size   *int64 `json:"size" yaml:"size,omitempty" parquet:"size,optional"` // nil when unknown
}

// Orientation selects the strip direction of a stitched image
type Orientation string

const (
	Horizontal Orientation = "horizontal"
	Vertical   Orientation = "vertical"
)

// ParseOrientation maps user input onto an Orientation, defaulting to horizontal.
func ParseOrientation(s string) Orientation {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical", "v":
		return Vertical
	default:
		return Horizontal
	}
}

// StitchRequest asks for the images to be merged into one strip.
// Order of Images is the order they appear in the composite.
type StitchRequest struct {
	Images      []ImageCandidate `json:"images"`
	Orientation Orientation      `json:"orientation"`
	PageTitle   string           `json:"pageTitle,omitempty"`
	PageHost    string           `json:"pageHost,omitempty"`
}

// DownloadRequest asks for every image to be saved individually
type DownloadRequest struct {
	Images    []ImageCandidate `json:"images"`
	PageTitle string           `json:"pageTitle,omitempty"`
	PageHost  string           `json:"pageHost,omitempty"`
}

// Page is the result of scanning a page for candidates
type Page struct {
	Images []ImageCandidate `json:"images"`
	Title  string           `json:"pageTitle"`
	Host   string           `json:"pageHost"`
}

// Dedupe drops repeated locators, keeping the first occurrence.
func Dedupe(candidates []ImageCandidate) []ImageCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]ImageCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Src == "" {
			continue
		}
		if _, ok := seen[c.Src]; ok {
			continue
		}
		seen[c.Src] = struct{}{}
		out = append(out, c)
	}
	return out
}
