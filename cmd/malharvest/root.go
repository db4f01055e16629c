package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"malharvest/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string
	outputDir  string
	startYear  int
	endYear    int
	seasons    []string
	profile    string
	noColor    bool
)

// rootCmd runs the full harvest when called without a subcommand
var rootCmd = &cobra.Command{
	Use:   "malharvest",
	Short: "Harvest MyAnimeList seasonal anime data and images",
	Long: `malharvest walks the MyAnimeList seasonal catalog year by year and season
by season. For every anime it stores the detail record as JSON and downloads
its main pictures:

  output/{year}/{season}/{id}.json
  output/{year}/{season}/{id}_{size}.jpg

Requests are spaced by fixed intervals and nothing is retried. Re-running
overwrites existing files.

The API client id is read from the config file, MALHARVEST_CLIENT_ID, or the
credential store ('malharvest auth set').`,
	Example: `  # Harvest everything from 1960 to 2024
  malharvest

  # Harvest a range of years, winter and fall only
  malharvest --start-year 2000 --end-year 2005 --seasons winter,fall

  # Harvest a single season into a custom directory
  malharvest season 2023 fall --output ./anime`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHarvest(cmd, nil)
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is ./.malharvest.yaml or ~/.config/malharvest/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&logFile, "log-file", "", "append log lines to this file (default anime_scraper.log)")
	flags.StringVarP(&outputDir, "output", "o", "", "output directory (default output)")
	flags.IntVar(&startYear, "start-year", 0, "first year to harvest (default 1960)")
	flags.IntVar(&endYear, "end-year", 0, "last year to harvest (default 2024)")
	flags.StringSliceVar(&seasons, "seasons", nil, "seasons to harvest in order (default winter,spring,summer,fall)")
	flags.StringVar(&profile, "profile", "default", "credential profile holding the client id")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`malharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
