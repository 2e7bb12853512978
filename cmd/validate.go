package cmd

import (
	"fmt"
	"net/url"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kestrelmotion/showreel-cli/internal/config"
	"github.com/kestrelmotion/showreel-cli/internal/scenario"
)

// newValidateCmd creates the `validate` command. It is a hard gate for CI:
// exit code 0 means the scenario would be accepted by `record`, anything else
// means it would not.
func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>",
		Short: "Validates a scenario file and the active configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failures := 0
			check := func(name string, err error) {
				if err != nil {
					failures++
					fmt.Printf("%s %s: %v\n", color.RedString("✗"), name, err)
					return
				}
				fmt.Printf("%s %s\n", color.GreenString("✓"), name)
			}

			data, err := os.ReadFile(args[0])
			check("scenario readable", err)
			if err != nil {
				return fmt.Errorf("validation failed")
			}

			check("schema", scenario.ValidateYAML(data))

			sc, parseErr := scenario.Parse(data)
			check("structure", parseErr)
			if parseErr == nil {
				check("target url", validateURL(sc.URL))
				described, literal := 0, 0
				for _, beat := range sc.Beats {
					for _, step := range beat.Steps {
						if step.IsDescribed() {
							described++
						} else {
							literal++
						}
					}
				}
				fmt.Printf("  %d beats, %d described steps, %d literal steps\n",
					len(sc.Beats), described, literal)
			}

			_, cfgErr := config.Load(viper.GetViper())
			check("configuration", cfgErr)

			if failures > 0 {
				return fmt.Errorf("validation failed with %d error(s)", failures)
			}
			return nil
		},
	}
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("url has no host")
	}
	return nil
}
