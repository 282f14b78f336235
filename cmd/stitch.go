package cmd

import (
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/lehigh-university-libraries/stitcher/internal/router"
	"github.com/spf13/cobra"
)

func newStitchCmd(a *app) *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "stitch [image-url...]",
		Short: "Merge images into one PNG strip",
		Long: `Scales the images to a common height (horizontal) or width (vertical) and
places them side by side in the given order.

A horizontal strip wider than 32767 pixels is laid out vertically instead.
The work goes to the daemon; when the daemon cannot be reached it is done
in-process.`,
		Example: `  stitcher stitch https://example.com/1.jpg https://example.com/2.jpg --title "My page"
  stitcher stitch --from gallery.yaml --orientation vertical`,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := sel.page(args)
			if err != nil {
				return err
			}

			r, local := newRouter(a.cfg, router.WithStatus(lineStatus{cmd: cmd}))
			_, err = r.Stitch(cmd.Context(), models.StitchRequest{
				Images:      page.Images,
				Orientation: a.cfg.Orientation,
				PageTitle:   page.Title,
				PageHost:    page.Host,
			})
			printSaved(cmd, local)
			return err
		},
	}

	sel.register(cmd)
	cmd.Flags().String("orientation", "", "horizontal or vertical (default horizontal)")

	return cmd
}

func newDownloadCmd(a *app) *cobra.Command {
	var sel selectionFlags

	cmd := &cobra.Command{
		Use:   "download [image-url...]",
		Short: "Save each image individually",
		Long: `Saves every image under a name taken from its URL path, or from the page
title and position when the URL has none.

The work goes to the daemon; when the daemon cannot be reached the files are
saved in-process under a folder named after each image host.`,
		Example: `  stitcher download https://example.com/1.jpg https://example.com/2.jpg
  stitcher download --from gallery.jsonl --output ./saved`,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := sel.page(args)
			if err != nil {
				return err
			}

			r, local := newRouter(a.cfg, router.WithStatus(lineStatus{cmd: cmd}))
			_, err = r.Download(cmd.Context(), models.DownloadRequest{
				Images:    page.Images,
				PageTitle: page.Title,
				PageHost:  page.Host,
			})
			printSaved(cmd, local)
			return err
		},
	}

	sel.register(cmd)

	return cmd
}
