package cmd

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kestrelmotion/showreel-cli/internal/browser"
	"github.com/kestrelmotion/showreel-cli/internal/config"
	"github.com/kestrelmotion/showreel-cli/internal/discovery"
	"github.com/kestrelmotion/showreel-cli/internal/humanize"
	"github.com/kestrelmotion/showreel-cli/internal/match"
	"github.com/kestrelmotion/showreel-cli/internal/observability"
	"github.com/kestrelmotion/showreel-cli/internal/report"
	"github.com/kestrelmotion/showreel-cli/internal/scenario"
	"github.com/kestrelmotion/showreel-cli/internal/synth"
)

// newPlanCmd creates the `plan` command: a dry run that discovers the live
// page and prints what `record` would do, without moving the mouse or
// capturing a single frame.
func newPlanCmd() *cobra.Command {
	planCmd := &cobra.Command{
		Use:   "plan <scenario.yaml>",
		Short: "Resolves a scenario against the live page without recording",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			sc, err := scenario.Load(args[0])
			if err != nil {
				return fmt.Errorf("loading scenario: %w", err)
			}
			if sc.Viewport != nil {
				cfg.Browser.ViewportWidth = sc.Viewport.Width
				cfg.Browser.ViewportHeight = sc.Viewport.Height
			}

			manager, err := browser.NewManager(ctx, cfg.Browser, logger)
			if err != nil {
				return fmt.Errorf("failed to launch browser: %w", err)
			}
			defer manager.Close()

			session, err := manager.NewSession(ctx)
			if err != nil {
				return fmt.Errorf("acquiring page: %w", err)
			}
			defer session.Close()

			if err := session.Navigate(ctx, sc.URL); err != nil {
				return fmt.Errorf("navigating to %s: %w", sc.URL, err)
			}

			seed := cfg.Humanize.Seed
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			rng := rand.New(rand.NewSource(seed))
			synthesizer := synth.New(rng, logger)
			humanizer := humanize.New(rng)
			discoverer := discovery.New(logger)

			var (
				actions  []humanize.Action
				lastSnap *discovery.Snapshot
			)
			for _, beat := range sc.Beats {
				fmt.Printf("\n%s %s\n", color.CyanString("beat:"), beat.Name)
				for i, step := range beat.Steps {
					if !step.IsDescribed() {
						fmt.Printf("  %2d. literal %s %s\n", i+1, step.Action, step.Selector)
						continue
					}
					snap, err := discoverer.Discover(ctx, session)
					if err != nil {
						return fmt.Errorf("beat %q step %d: %w", beat.Name, i+1, err)
					}
					lastSnap = snap
					matches := match.FindByDescription(snap, step.Describe)
					act := humanizer.Humanize(synthesizer.Synthesize(step.Describe, matches))
					actions = append(actions, act)
					printPlannedAction(i+1, act)
				}
			}

			elemReport := report.BuildElementReport(sc.Name, actions, lastSnap)
			out := viper.GetString("report")
			if out == "" {
				out = cfg.Recorder.OutputDir
			}
			path, err := report.Write(out, "plan", elemReport)
			if err != nil {
				return fmt.Errorf("writing element report: %w", err)
			}
			logger.Info("Element report written", zap.String("path", path))
			fmt.Printf("\nElement report: %s\n", path)

			if len(elemReport.Issues) > 0 {
				fmt.Printf("%s %d unresolved descriptions\n", color.RedString("✗"), len(elemReport.Issues))
			}
			return nil
		},
	}

	planCmd.Flags().StringP("report", "r", "", "Directory for the element report (defaults to recorder.output_dir).")
	return planCmd
}

func printPlannedAction(index int, act humanize.Action) {
	conf := color.GreenString("%d", act.Confidence)
	if act.Confidence < 80 {
		conf = color.YellowString("%d", act.Confidence)
	}
	if act.Confidence == 0 {
		conf = color.RedString("unmatched")
	}
	fmt.Printf("  %2d. %-8s %-40q confidence=%s pattern=%s\n",
		index, act.Kind, act.Selector, conf, act.Pattern.Name)
}
