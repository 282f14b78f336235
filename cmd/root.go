package cmd

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/stitcher/internal/config"
	"github.com/lehigh-university-libraries/stitcher/internal/models"
	"github.com/spf13/cobra"
)

// app carries settings resolved once per invocation
type app struct {
	configPath string
	verbose    bool
	backend    string
	output     string
	timeout    string

	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stitcher",
		Short: "Pick images from a web page and save them individually or stitched into one strip",
		Long: `Stitcher collects the images of a web page, lets you pick some of them and either
saves each one or merges them into a single horizontal or vertical PNG strip.

Work is sent to a long-running daemon (stitcher serve) when one is reachable and
done in-process otherwise.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			if a.verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
			return a.load(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to a YAML config file (default ./"+config.DefaultFile+" when present)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&a.backend, "backend", "", "Daemon URL; empty string to always work in-process (default "+config.DefaultBackend+")")
	flags.StringVarP(&a.output, "output", "o", "", "Download directory (default "+config.DefaultOutput+")")
	flags.StringVar(&a.timeout, "timeout", "", "Per-request timeout for daemon messages, e.g. 30s")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newOpenCmd(a))
	cmd.AddCommand(newCollectCmd(a))
	cmd.AddCommand(newStitchCmd(a))
	cmd.AddCommand(newDownloadCmd(a))
	cmd.AddCommand(newPickCmd(a))

	return cmd
}

// load resolves config file, environment and flags, in that order
func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend = a.backend
	}
	if flags.Changed("output") {
		cfg.Output = a.output
	}
	if flags.Changed("timeout") {
		d, err := parseDuration(a.timeout)
		if err != nil {
			return err
		}
		cfg.Timeout = d
	}
	if err := applySharedFlags(cmd, cfg); err != nil {
		return err
	}

	a.cfg = cfg
	slog.Debug("Resolved config", "backend", cfg.Backend, "output", cfg.Output, "orientation", cfg.Orientation, "min_kb", cfg.MinKB)
	return nil
}

// applySharedFlags copies the per-command flags that exist on cmd
func applySharedFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if f := flags.Lookup("orientation"); f != nil && f.Changed {
		cfg.Orientation = models.ParseOrientation(f.Value.String())
	}
	if f := flags.Lookup("min-kb"); f != nil && f.Changed {
		kb, err := config.ParseMinKB(f.Value.String())
		if err != nil {
			return fmt.Errorf("--min-kb: %w", err)
		}
		cfg.MinKB = kb
	}
	if f := flags.Lookup("match"); f != nil && f.Changed {
		patterns, err := flags.GetStringSlice("match")
		if err != nil {
			return err
		}
		cfg.Match = patterns
	}
	if f := flags.Lookup("render"); f != nil && f.Changed {
		render, err := flags.GetBool("render")
		if err != nil {
			return err
		}
		cfg.Render = render
	}
	return nil
}
