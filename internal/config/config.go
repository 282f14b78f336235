package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no config path is given and it exists
const DefaultFile = "stitcher.yaml"

const (
	DefaultAddr    = ":8765"
	DefaultBackend = "http://localhost:8765"
	DefaultOutput  = "downloads"
	DefaultTimeout = 60 * time.Second
	DefaultMinKB   = 200
)

// Config holds the settings shared by every command
type Config struct {
	// Addr is where `serve` listens
	Addr string `yaml:"addr"`
	// Backend is the daemon URL clients talk to; empty disables it
	Backend string `yaml:"backend"`
	// Output is the download root directory
	Output      string             `yaml:"output"`
	Orientation models.Orientation `yaml:"orientation"`
	// MinKB is the size filter; nil keeps every image
	MinKB   *int          `yaml:"min_kb"`
	Match   []string      `yaml:"match"`
	Render  bool          `yaml:"render"`
	Timeout time.Duration `yaml:"timeout"`
	// MaxImageBytes caps each fetched image
	MaxImageBytes int64 `yaml:"max_image_bytes"`
	JobHistory    int   `yaml:"job_history"`
}

// Default returns the built in settings
func Default() *Config {
	minKB := DefaultMinKB
	return &Config{
		Addr:          DefaultAddr,
		Backend:       DefaultBackend,
		Output:        DefaultOutput,
		Orientation:   models.Horizontal,
		MinKB:         &minKB,
		Timeout:       DefaultTimeout,
		MaxImageBytes: 64 * 1024 * 1024,
		JobHistory:    100,
	}
}

// Load applies, in order, the defaults, the YAML file at path (or
// DefaultFile when path is empty and the file exists) and STITCHER_*
// environment variables
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.loadEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	// decode into a raw node first so an explicit `min_kb: null` clears
	// the default filter
	var raw map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if node, ok := raw["min_kb"]; ok && node.Tag == "!!null" {
		c.MinKB = nil
	}

	slog.Debug("Loaded config file", "path", path)
	return nil
}

func (c *Config) loadEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("STITCHER_ADDR"); ok {
		c.Addr = v
	}
	if v, ok := lookup("STITCHER_BACKEND"); ok {
		c.Backend = v
	}
	if v, ok := lookup("STITCHER_OUTPUT"); ok && v != "" {
		c.Output = v
	}
	if v, ok := lookup("STITCHER_ORIENTATION"); ok && v != "" {
		c.Orientation = models.ParseOrientation(v)
	}
	if v, ok := lookup("STITCHER_MIN_KB"); ok {
		kb, err := ParseMinKB(v)
		if err != nil {
			return fmt.Errorf("STITCHER_MIN_KB: %w", err)
		}
		c.MinKB = kb
	}
	if v, ok := lookup("STITCHER_MATCH"); ok {
		c.Match = splitList(v)
	}
	if v, ok := lookup("STITCHER_RENDER"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("STITCHER_RENDER: %w", err)
		}
		c.Render = b
	}
	if v, ok := lookup("STITCHER_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("STITCHER_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

// ParseMinKB reads a size filter; "", "none" and "off" mean no filter
func ParseMinKB(v string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "off":
		return nil, nil
	}
	kb, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || kb < 0 {
		return nil, fmt.Errorf("invalid size filter %q", v)
	}
	return &kb, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
