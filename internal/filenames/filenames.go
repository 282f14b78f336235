package filenames

import (
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
)

// MaxLength caps a sanitized name, in characters
const MaxLength = 80

var reserved = regexp.MustCompile(`[\\/:*?"<>|]+`)

// Sanitize makes text safe to use as a single path segment
func Sanitize(text string) string {
	if text == "" {
		text = models.DefaultBase
	}
	s := strings.TrimSpace(reserved.ReplaceAllString(text, "_"))
	if r := []rune(s); len(r) > MaxLength {
		s = string(r[:MaxLength])
	}
	if s == "" || s == "." || s == ".." {
		return models.DefaultBase
	}
	return s
}

// Derive builds the saved name of an individually downloaded image.
// idx < 0 means the item has no position and the bare fallback is used.
// An empty host omits the host folder.
func Derive(locator, fallbackBase string, idx int, ext, host string) string {
	base := ""
	if u, err := url.Parse(locator); err == nil && u.Scheme != "" && u.Scheme != "data" {
		// the raw path keeps an encoded slash inside its segment
		base = lastSegment(u.EscapedPath())
		if host != "" && u.Hostname() != "" {
			host = u.Hostname()
		}
	}

	// an empty base sanitizes to the placeholder, which is then replaced
	// with the fallback name below
	if base != "" {
		base = Sanitize(base)
	}
	if base == "" {
		fallback := Sanitize(fallbackBase)
		if idx < 0 {
			base = fallback
		} else {
			base = fallback + "-" + strconv.Itoa(idx+1)
		}
	}
	if !strings.Contains(base, ".") {
		if ext == "" {
			ext = "png"
		}
		base += "." + ext
	}
	return join(host, base)
}

// Merged is the saved name of a stitched image
func Merged(pageTitle, host string) string {
	return join(host, Sanitize(pageTitle)+".png")
}

func join(host, name string) string {
	if host == "" {
		return path.Join(models.DefaultBase, name)
	}
	return path.Join(models.DefaultBase, Sanitize(host), name)
}

func lastSegment(p string) string {
	parts := strings.Split(p, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return ""
}
