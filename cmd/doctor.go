package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelmotion/showreel-cli/internal/browser"
	"github.com/kestrelmotion/showreel-cli/internal/config"
	"github.com/kestrelmotion/showreel-cli/internal/encoder"
	"github.com/kestrelmotion/showreel-cli/internal/observability"
	"github.com/kestrelmotion/showreel-cli/internal/tts"
)

// newDoctorCmd creates the `doctor` command: environment checks for the
// pieces a recording run depends on. Exit code is the gate.
func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Checks that the environment can run a recording",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := config.Load(viper.GetViper())
			if err != nil {
				return err
			}

			failures := 0
			check := func(name string, err error) {
				if err != nil {
					failures++
					fmt.Printf("%s %s: %v\n", color.RedString("✗"), name, err)
					return
				}
				fmt.Printf("%s %s\n", color.GreenString("✓"), name)
			}

			enc := encoder.New(cfg.Encoder.FFmpegPath, logger)
			probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			check("ffmpeg", enc.Probe(probeCtx))
			cancel()

			_, ttsErr := tts.NewProvider(cfg.TTS, logger)
			check(fmt.Sprintf("narration provider (%s)", cfg.TTS.Provider), ttsErr)

			check("browser launch", func() error {
				launchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				manager, err := browser.NewManager(launchCtx, cfg.Browser, logger)
				if err != nil {
					return err
				}
				manager.Close()
				return nil
			}())

			if failures > 0 {
				return fmt.Errorf("%d check(s) failed", failures)
			}
			fmt.Println("\nEnvironment is ready.")
			return nil
		},
	}
}
