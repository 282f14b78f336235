package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/stitcher/internal/manifest"
	"github.com/lehigh-university-libraries/stitcher/internal/selection"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newCollectCmd(a *app) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "collect <page-url>",
		Short: "List the candidate images of a page",
		Long: `Scans a page for images at least 200 pixels on both sides, in page order.

The size filter (--min-kb) is applied to the listing; images of unknown size
are always kept. Without --out the candidates are printed as YAML.`,
		Example: `  # Print candidates
  stitcher collect https://example.com/gallery

  # Save every candidate, then stitch them later
  stitcher collect https://example.com/gallery --min-kb none --out gallery.parquet
  stitcher stitch --from gallery.parquet`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			collector, err := newCollector(a.cfg)
			if err != nil {
				return err
			}
			defer closeCollector(collector)

			page, err := collector.Collect(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			page.Images = selection.FilterBySize(page.Images, a.cfg.MinKB)

			if out != "" {
				if err := manifest.Write(out, page); err != nil {
					return err
				}
				cmd.Printf("Saved %d images to %s\n", len(page.Images), out)
				return nil
			}

			data, err := yaml.Marshal(map[string]any{
				"title":  page.Title,
				"host":   page.Host,
				"images": page.Images,
			})
			if err != nil {
				return fmt.Errorf("failed to encode candidates: %w", err)
			}
			cmd.Print(string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write a manifest (.jsonl, .parquet or .yaml) instead of printing")
	cmd.Flags().String("min-kb", "", "Hide images smaller than this many KB; \"none\" shows all (default 200)")
	cmd.Flags().StringSlice("match", nil, "Only keep images whose URL matches one of these glob patterns")
	cmd.Flags().Bool("render", false, "Scan the page in headless Chromium")

	return cmd
}
