package selection

import (
	"strconv"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// DefaultMinKB is the size filter applied when the panel opens
const DefaultMinKB = 200

// Set is the user's chosen locators. Chosen images are returned in
// page order, not in the order they were picked.
type Set struct {
	chosen map[string]struct{}
}

func NewSet() *Set {
	return &Set{chosen: make(map[string]struct{})}
}

// Toggle flips src and reports whether it is now selected
func (s *Set) Toggle(src string) bool {
	if _, ok := s.chosen[src]; ok {
		delete(s.chosen, src)
		return false
	}
	s.chosen[src] = struct{}{}
	return true
}

func (s *Set) Contains(src string) bool {
	_, ok := s.chosen[src]
	return ok
}

// SelectAll adds every visible candidate
func (s *Set) SelectAll(visible []models.ImageCandidate) {
	for _, c := range visible {
		s.chosen[c.Src] = struct{}{}
	}
}

// Clear drops the visible candidates from the selection
func (s *Set) Clear(visible []models.ImageCandidate) {
	for _, c := range visible {
		delete(s.chosen, c.Src)
	}
}

// Reset empties the selection
func (s *Set) Reset() {
	s.chosen = make(map[string]struct{})
}

func (s *Set) Len() int { return len(s.chosen) }

// Chosen returns the selected candidates among all, in the order of all
func (s *Set) Chosen(all []models.ImageCandidate) []models.ImageCandidate {
	out := make([]models.ImageCandidate, 0, len(s.chosen))
	for _, c := range all {
		if s.Contains(c.Src) {
			out = append(out, c)
		}
	}
	return out
}

// FilterBySize keeps candidates of unknown size and those of at least
// minKB kilobytes. A nil minKB keeps everything.
func FilterBySize(candidates []models.ImageCandidate, minKB *int) []models.ImageCandidate {
	if minKB == nil {
		return candidates
	}
	limit := int64(*minKB) * 1024
	out := make([]models.ImageCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Size == nil || *c.Size >= limit {
			out = append(out, c)
		}
	}
	return out
}

// FormatBytes renders a byte count the way the panel shows it:
// whole numbers from 10 up, one decimal below
func FormatBytes(size *int64) string {
	if size == nil || *size <= 0 {
		return "unknown"
	}
	units := []string{"B", "KB", "MB", "GB"}
	val := float64(*size)
	i := 0
	for val >= 1024 && i < len(units)-1 {
		val /= 1024
		i++
	}
	if val >= 10 || i == 0 {
		return strconv.FormatFloat(val, 'f', 0, 64) + units[i]
	}
	return strconv.FormatFloat(val, 'f', 1, 64) + units[i]
}
