package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/stitcher/internal/manifest"
	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePanelClient struct {
	injected bool
	calls    []string
	showErr  error
}

func (f *fakePanelClient) ShowPanel(ctx context.Context, tabID int) error {
	f.calls = append(f.calls, "showPanel")
	if f.showErr != nil {
		return f.showErr
	}
	if !f.injected {
		return &messaging.RemoteError{Type: messaging.ShowPanel, Message: messaging.MsgNoReceiver}
	}
	return nil
}

func (f *fakePanelClient) InjectContent(ctx context.Context, tabID int, pageURL string) error {
	f.calls = append(f.calls, "injectContent")
	f.injected = true
	return nil
}

func TestShowPanelInjectsOnce(t *testing.T) {
	client := &fakePanelClient{}
	require.NoError(t, showPanel(context.Background(), client, 1, "https://example.com"))
	assert.Equal(t, []string{"showPanel", "injectContent", "showPanel"}, client.calls)

	client.calls = nil
	require.NoError(t, showPanel(context.Background(), client, 1, "https://example.com"))
	assert.Equal(t, []string{"showPanel"}, client.calls)
}

func TestShowPanelUnreachableDaemon(t *testing.T) {
	client := &fakePanelClient{showErr: &messaging.CommunicationError{Reason: messaging.ReasonNoReceiver}}
	err := showPanel(context.Background(), client, 1, "https://example.com")
	require.Error(t, err)
	assert.Equal(t, []string{"showPanel"}, client.calls)

	client = &fakePanelClient{showErr: errors.New("boom")}
	assert.EqualError(t, showPanel(context.Background(), client, 1, "https://example.com"), "boom")
}

func TestTabForIsStable(t *testing.T) {
	a, b := tabFor("https://example.com/a"), tabFor("https://example.com/b")
	assert.Equal(t, a, tabFor("https://example.com/a"))
	assert.NotEqual(t, a, b)
	assert.Positive(t, a)
}

func TestSelectionFromArgsAndManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.yaml")
	require.NoError(t, manifest.Write(path, &models.Page{
		Title:  "Saved",
		Host:   "example.com",
		Images: []models.ImageCandidate{{Src: "https://example.com/1.png"}},
	}))

	sel := selectionFlags{from: path}
	page, err := sel.page([]string{"https://example.com/2.png", "https://example.com/1.png"})
	require.NoError(t, err)
	assert.Equal(t, "Saved", page.Title)
	require.Len(t, page.Images, 2)
	assert.Equal(t, "https://example.com/2.png", page.Images[1].Src)

	sel = selectionFlags{title: "Mine"}
	page, err = sel.page([]string{"a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Mine", page.Title)

	page, err = (&selectionFlags{}).page(nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBase, page.Title)
	assert.Empty(t, page.Images)
}

func TestStitchFallsBackWithoutDaemon(t *testing.T) {
	t.Chdir(t.TempDir())
	out := t.TempDir()

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"stitch", "--backend", "", "--output", out, "data:image/png;base64," + onePixelPNG, "--title", "Tiny"})

	require.NoError(t, root.ExecuteContext(context.Background()))
	assert.Contains(t, stdout.String(), "Done, download started (stitched locally)")
	assert.Contains(t, stderr.String(), "Background unavailable")

	saved := filepath.Join(out, "stitcher", "stitcher", "Tiny.png")
	_, err := os.Stat(saved)
	assert.NoError(t, err)
	assert.Contains(t, stdout.String(), "Saved "+saved)
}

func TestOpenRequiresRunningDaemon(t *testing.T) {
	t.Chdir(t.TempDir())

	root := NewRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"open", "--backend", "", "https://example.com/gallery"})

	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not available")
	assert.True(t, messaging.IsCommunicationError(err))
}

func TestConfigFlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile("custom.yaml", []byte("output: from-file\norientation: vertical\n"), 0644))

	t.Setenv("STITCHER_MIN_KB", "none")

	a := &app{}
	root := newRootCmd(a)
	root.SetArgs([]string{"--config", "custom.yaml", "stitch", "--orientation", "horizontal", "--backend", ""})
	var stderr bytes.Buffer
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&stderr)

	// nothing selected, so the router stops before any work
	err := root.ExecuteContext(context.Background())
	assert.EqualError(t, err, "Please select images first")
	assert.Contains(t, stderr.String(), "Please select images first")

	require.NotNil(t, a.cfg)
	assert.Equal(t, "from-file", a.cfg.Output)
	assert.Equal(t, models.Horizontal, a.cfg.Orientation)
	assert.Empty(t, a.cfg.Backend)
	assert.Nil(t, a.cfg.MinKB)
}

// 1x1 transparent PNG
const onePixelPNG = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="
