package cmd

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/browser"
	"github.com/kestrelmotion/showreel-cli/internal/config"
	"github.com/kestrelmotion/showreel-cli/internal/encoder"
	"github.com/kestrelmotion/showreel-cli/internal/observability"
	"github.com/kestrelmotion/showreel-cli/internal/orchestrator"
	"github.com/kestrelmotion/showreel-cli/internal/report"
	"github.com/kestrelmotion/showreel-cli/internal/scenario"
	"github.com/kestrelmotion/showreel-cli/internal/tts"
)

// newRecordCmd creates and configures the `record` command.
func newRecordCmd() *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record <scenario.yaml>",
		Short: "Records a narrated demo video from a scenario file",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind flags to their Viper keys so command-line flags correctly
			// override values from the config file and environment.
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			if err := viper.BindPFlag("humanize.seed", cmd.Flags().Lookup("seed")); err != nil {
				return err
			}
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// Use the context passed from main.go (signal-aware).
			ctx := cmd.Context()
			logger := observability.GetLogger()

			// Re-load so the freshly bound flags take precedence.
			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}
			appConfig = cfg

			sc, err := scenario.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading scenario: %w", err)
			}
			if sc.Viewport != nil {
				cfg.Browser.ViewportWidth = sc.Viewport.Width
				cfg.Browser.ViewportHeight = sc.Viewport.Height
			}

			logger.Info("Starting recording run",
				zap.String("scenario", sc.Name),
				zap.String("url", sc.URL),
				zap.Int("beats", len(sc.Beats)),
				zap.Bool("headless", cfg.Browser.Headless),
			)

			components, err := initializeRunComponents(ctx, cfg, logger)
			if err != nil {
				if components != nil {
					components.Shutdown()
				}
				return fmt.Errorf("failed to initialize run components: %w", err)
			}
			defer components.Shutdown()

			rep, err := components.Runner.Run(ctx, sc)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Warn("Run aborted gracefully", zap.String("scenario", sc.Name))
					return fmt.Errorf("run aborted by user signal")
				}
				logger.Error("Run failed", zap.Error(err), zap.String("scenario", sc.Name))
				return err
			}

			if out := viper.GetString("report"); out != "" {
				path, werr := report.Write(out, "run", rep)
				if werr != nil {
					logger.Error("Failed to write run report", zap.Error(werr))
				} else {
					logger.Info("Run report written", zap.String("path", path))
				}
			}

			printRunSummary(rep)
			if rep.Failed > 0 && rep.Succeeded == 0 {
				return fmt.Errorf("all %d beats failed", rep.Failed)
			}
			return nil
		},
	}

	recordCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	recordCmd.Flags().Int64("seed", 0, "Seed for humanized motion; 0 derives one from the clock. (Overrides config/env)")
	recordCmd.Flags().StringP("report", "r", "", "Directory for the JSON run report. If unset, no report is written.")

	return recordCmd
}

// runComponents holds initialized services.
type runComponents struct {
	Browser *browser.Manager
	Runner  *orchestrator.Runner
}

// Shutdown gracefully closes everything that holds external resources.
func (rc *runComponents) Shutdown() {
	if rc.Browser != nil {
		rc.Browser.Close()
	}
}

// initializeRunComponents handles dependency injection for a recording run.
func initializeRunComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*runComponents, error) {
	components := &runComponents{}

	manager, err := browser.NewManager(ctx, cfg.Browser, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	components.Browser = manager

	enc := encoder.New(cfg.Encoder.FFmpegPath, logger)

	speech, err := tts.NewProvider(cfg.TTS, logger)
	if err != nil {
		return components, fmt.Errorf("failed to initialize narration provider: %w", err)
	}

	var rng *rand.Rand
	if cfg.Humanize.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Humanize.Seed))
	}

	runner, err := orchestrator.NewRunner(cfg, logger, &managerBrowser{manager}, enc, speech, rng)
	if err != nil {
		return components, err
	}
	components.Runner = runner

	return components, nil
}

// managerBrowser adapts *browser.Manager to the orchestrator's Browser
// interface; NewSession returns the concrete session type.
type managerBrowser struct {
	m *browser.Manager
}

func (b *managerBrowser) NewPage(ctx context.Context) (orchestrator.Page, error) {
	return b.m.NewSession(ctx)
}

func (b *managerBrowser) ActiveSessions() int { return b.m.ActiveSessions() }

func (b *managerBrowser) Close() { b.m.Close() }

// printRunSummary writes the operator-facing outcome to stdout.
func printRunSummary(rep *report.RunReport) {
	fmt.Printf("\nRun %s finished in %s\n", rep.RunID, rep.Elapsed.Round(time.Millisecond))
	fmt.Printf("%s Succeeded: %d\n", color.GreenString("✓"), rep.Succeeded)
	fmt.Printf("%s Failed:    %d\n", color.RedString("✗"), rep.Failed)
	if rep.Skipped > 0 {
		fmt.Printf("%s Skipped:   %d\n", color.YellowString("-"), rep.Skipped)
	}
	switch {
	case rep.Output != "" && rep.Fallback:
		fmt.Printf("Output (slideshow fallback): %s\n", rep.Output)
	case rep.Output != "":
		fmt.Printf("Output: %s\n", rep.Output)
	default:
		fmt.Println(color.RedString("No video produced."))
	}
}
