package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/lehigh-university-libraries/stitcher/internal/config"
	"github.com/lehigh-university-libraries/stitcher/internal/download"
	"github.com/lehigh-university-libraries/stitcher/internal/executor"
	"github.com/lehigh-university-libraries/stitcher/internal/images"
	"github.com/lehigh-university-libraries/stitcher/internal/manifest"
	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/router"
	"github.com/lehigh-university-libraries/stitcher/internal/scan"
	"github.com/lehigh-university-libraries/stitcher/internal/stitch"
	"github.com/spf13/cobra"
)

func parseDuration(v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", v, err)
	}
	return d, nil
}

func newFetcher(cfg *config.Config) *images.Fetcher {
	fetcher := images.NewFetcher()
	if cfg.MaxImageBytes > 0 {
		fetcher.MaxBytes = cfg.MaxImageBytes
	}
	return fetcher
}

// newExecutor builds an in-process executor writing below cfg.Output
func newExecutor(cfg *config.Config, opts ...executor.Option) *executor.Executor {
	fetcher := newFetcher(cfg)
	return executor.New(stitch.NewPipeline(fetcher), download.NewDisk(cfg.Output, fetcher), opts...)
}

func newCollector(cfg *config.Config) (scan.Collector, error) {
	filter, err := scan.NewFilter(cfg.Match...)
	if err != nil {
		return nil, err
	}
	if cfg.Render {
		return scan.NewBrowserCollector(filter), nil
	}
	return scan.NewHTMLCollector(newFetcher(cfg), filter), nil
}

func closeCollector(c scan.Collector) {
	if closer, ok := c.(io.Closer); ok {
		closer.Close()
	}
}

func newClient(cfg *config.Config) *messaging.Client {
	return messaging.NewClient(cfg.Backend, cfg.Timeout)
}

// newRouter sends work to the daemon and falls back to the returned
// in-process executor, which files downloads under the page host
func newRouter(cfg *config.Config, opts ...router.Option) (*router.Router, *executor.Executor) {
	local := newExecutor(cfg, executor.WithHostFolders())
	return router.New(newClient(cfg), local, opts...), local
}

// printSaved lists the files the in-process executor wrote
func printSaved(cmd *cobra.Command, local *executor.Executor) {
	for _, path := range local.Saved() {
		cmd.Println("Saved " + path)
	}
}

// lineStatus prints router status lines for non-interactive commands
type lineStatus struct {
	cmd *cobra.Command
}

func (s lineStatus) SetStatus(text string, isError bool) {
	if isError {
		s.cmd.PrintErrln(text)
		return
	}
	s.cmd.Println(text)
}

// selectionFlags names what to act on: locators as arguments or a manifest
type selectionFlags struct {
	from  string
	title string
	host  string
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "Read images from a manifest written by `collect --out`")
	cmd.Flags().StringVar(&f.title, "title", "", "Page title used for file names")
	cmd.Flags().StringVar(&f.host, "host", "", "Page host used for the local download folder")
}

// page builds the selection in argument order, or in manifest order
func (f *selectionFlags) page(args []string) (*models.Page, error) {
	page := &models.Page{}
	if f.from != "" {
		p, err := manifest.Read(f.from)
		if err != nil {
			return nil, err
		}
		page = p
	}
	for _, src := range args {
		page.Images = append(page.Images, models.ImageCandidate{Src: src})
	}
	page.Images = models.Dedupe(page.Images)

	if f.title != "" {
		page.Title = f.title
	}
	if f.host != "" {
		page.Host = f.host
	}
	if page.Title == "" {
		page.Title = models.DefaultBase
	}
	return page, nil
}
