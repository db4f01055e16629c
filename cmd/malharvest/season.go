package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"malharvest/pkg/config"
	"malharvest/pkg/mal"
)

// seasonCmd harvests a single year and season
var seasonCmd = &cobra.Command{
	Use:   "season <year> <season>",
	Short: "Harvest a single season",
	Long: `Harvest one season of one year, ignoring the configured year range and
season list.`,
	Example: `  malharvest season 2023 fall
  malharvest season 1998 spring --output ./archive`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		year, season, err := parseSeasonArgs(args)
		if err != nil {
			return err
		}
		return runHarvest(cmd, func(cfg *config.Config) {
			cfg.Harvest.StartYear = year
			cfg.Harvest.EndYear = year
			cfg.Harvest.Seasons = []string{season.String()}
		})
	},
}

func init() {
	rootCmd.AddCommand(seasonCmd)
}

func parseSeasonArgs(args []string) (int, mal.Season, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil || year <= 0 {
		return 0, "", fmt.Errorf("invalid year %q", args[0])
	}
	season, err := mal.ParseSeason(args[1])
	if err != nil {
		return 0, "", err
	}
	return year, season, nil
}
