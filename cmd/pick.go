package cmd

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lehigh-university-libraries/stitcher/internal/messaging"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/panel"
	"github.com/lehigh-university-libraries/stitcher/internal/router"
	"github.com/spf13/cobra"
)

func newPickCmd(a *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "pick <page-url>",
		Short: "Choose images from a page in an interactive panel",
		Long: `Scans the page in this process and opens the selection panel.

Keys: space select, a select all / none, h / v orientation, f size filter,
r rescan, m stitch, d download, q quit.`,
		Example: `  stitcher pick https://example.com/gallery
  stitcher pick --from gallery.parquet`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && from == "" {
				return errors.New("a page URL or --from manifest is required")
			}

			var refresh panel.Refresher
			if len(args) == 1 {
				collector, err := newCollector(a.cfg)
				if err != nil {
					return err
				}
				defer closeCollector(collector)
				pageURL := args[0]
				refresh = func(ctx context.Context) (*models.Page, error) {
					return collector.Collect(ctx, pageURL)
				}
			}

			var page *models.Page
			if from != "" {
				sel := selectionFlags{from: from}
				p, err := sel.page(nil)
				if err != nil {
					return err
				}
				page = p
			} else {
				p, err := refresh(cmd.Context())
				if err != nil {
					return err
				}
				page = p
			}

			return runPanel(cmd.Context(), a, page, refresh)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Open a manifest instead of scanning")
	cmd.Flags().String("min-kb", "", "Initial size filter in KB; \"none\" shows all (default 200)")
	cmd.Flags().StringSlice("match", nil, "Only keep images whose URL matches one of these glob patterns")
	cmd.Flags().Bool("render", false, "Scan the page in headless Chromium")

	return cmd
}

func newOpenCmd(a *app) *cobra.Command {
	var tabID int

	cmd := &cobra.Command{
		Use:   "open <page-url>",
		Short: "Show the selection panel for a page through the daemon",
		Long: `Asks the daemon to show the panel of a page. A page the daemon has not seen
yet is injected (scanned and registered) first, then the panel is requested
again. Scanning happens in the daemon; actions prefer the daemon and fall
back to this process.`,
		Example: `  stitcher open https://example.com/gallery
  stitcher open https://example.com/gallery --tab 3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pageURL := args[0]
			if !cmd.Flags().Changed("tab") {
				tabID = tabFor(pageURL)
			}

			client := newClient(a.cfg)
			if err := client.Ping(ctx); err != nil {
				return fmt.Errorf("daemon at %q is not available: %w", a.cfg.Backend, err)
			}
			if err := showPanel(ctx, client, tabID, pageURL); err != nil {
				return fmt.Errorf("failed to open panel: %w", err)
			}

			refresh := func(ctx context.Context) (*models.Page, error) {
				return client.CollectImages(ctx, tabID, "")
			}
			page, err := refresh(ctx)
			if err != nil {
				return err
			}
			return runPanel(ctx, a, page, refresh)
		},
	}

	cmd.Flags().IntVar(&tabID, "tab", 0, "Tab id to register the page under (default derived from the URL)")
	cmd.Flags().String("min-kb", "", "Initial size filter in KB; \"none\" shows all (default 200)")

	return cmd
}

// panelClient is the part of the daemon client showPanel needs
type panelClient interface {
	ShowPanel(ctx context.Context, tabID int) error
	InjectContent(ctx context.Context, tabID int, pageURL string) error
}

// showPanel asks for the panel and, when nobody answers for the tab,
// injects the page and asks once more
func showPanel(ctx context.Context, client panelClient, tabID int, pageURL string) error {
	err := client.ShowPanel(ctx, tabID)
	if err == nil || !messaging.IsCommunicationError(err) {
		return err
	}
	var remote *messaging.RemoteError
	if !errors.As(err, &remote) {
		// the daemon itself is unreachable
		return err
	}

	if err := client.InjectContent(ctx, tabID, pageURL); err != nil {
		return err
	}
	return client.ShowPanel(ctx, tabID)
}

// tabFor derives a stable positive tab id from a page URL
func tabFor(pageURL string) int {
	h := fnv.New32a()
	h.Write([]byte(pageURL))
	return int(h.Sum32()&0x7fffffff) + 1
}

func runPanel(ctx context.Context, a *app, page *models.Page, refresh panel.Refresher) error {
	events := panel.NewEvents()
	defer events.Close()
	r, _ := newRouter(a.cfg, router.WithControls(events), router.WithStatus(events))

	model := panel.New(ctx, panel.Options{
		Page:    page,
		Actions: r,
		Events:  events,
		Refresh: refresh,
		MinKB:   a.cfg.MinKB,
	})

	p := tea.NewProgram(model, tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("panel failed: %w", err)
	}
	return nil
}
