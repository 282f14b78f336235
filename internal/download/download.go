package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Trigger saves files on behalf of an executor
type Trigger interface {
	// SaveBlob writes data under the suggested name
	SaveBlob(ctx context.Context, data []byte, name string) (string, error)
	// SaveURL retrieves locator and writes it under the suggested name
	SaveURL(ctx context.Context, locator, name string) (string, error)
}

// RawFetcher retrieves the bytes behind a locator
type RawFetcher interface {
	FetchRaw(ctx context.Context, locator string) ([]byte, string, error)
}

// ErrOutsideRoot is returned for names that would escape the download root
var ErrOutsideRoot = errors.New("file name escapes download directory")

// Disk writes downloads below Root, uniquifying names that already exist
type Disk struct {
	Root    string
	Fetcher RawFetcher

	mu sync.Mutex
}

// NewDisk creates a disk trigger rooted at dir
func NewDisk(dir string, fetcher RawFetcher) *Disk {
	return &Disk{Root: dir, Fetcher: fetcher}
}

func (d *Disk) SaveBlob(ctx context.Context, data []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.write(data, name)
}

func (d *Disk) SaveURL(ctx context.Context, locator, name string) (string, error) {
	if d.Fetcher == nil {
		return "", fmt.Errorf("no fetcher configured for %s", locator)
	}
	data, _, err := d.Fetcher.FetchRaw(ctx, locator)
	if err != nil {
		return "", err
	}
	return d.write(data, name)
}

func (d *Disk) write(data []byte, name string) (string, error) {
	target, err := d.resolve(name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	// reserve the final name under the lock so concurrent saves of the
	// same name get distinct files
	d.mu.Lock()
	final, err := reserve(target)
	d.mu.Unlock()
	if err != nil {
		return "", err
	}

	tempPath := final + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		os.Remove(tempPath)
		os.Remove(final)
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tempPath, final); err != nil {
		os.Remove(tempPath)
		os.Remove(final)
		return "", fmt.Errorf("failed to move file: %w", err)
	}

	slog.Info("Saved download", "path", final, "bytes", len(data))
	return final, nil
}

func (d *Disk) resolve(name string) (string, error) {
	root, err := filepath.Abs(d.Root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve download directory: %w", err)
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, name)
	}
	return target, nil
}

// reserve creates an empty placeholder at the first free name of the form
// "name.ext", "name (1).ext", "name (2).ext", ...
func reserve(target string) (string, error) {
	ext := filepath.Ext(target)
	stem := strings.TrimSuffix(target, ext)
	for i := 0; i < 10000; i++ {
		candidate := target
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		f, err := os.OpenFile(candidate, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create file: %w", err)
		}
		f.Close()
		return candidate, nil
	}
	return "", fmt.Errorf("no free file name for %s", target)
}
