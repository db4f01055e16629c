package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"malharvest/pkg/auth"
	"malharvest/pkg/config"
	"malharvest/pkg/harvester"
	"malharvest/pkg/logger"
	"malharvest/pkg/ui"
)

// collectFlags gathers the flags the user actually set
func collectFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	set := cmd.Flags().Changed

	if set("output") {
		flags["output"] = outputDir
	}
	if set("log-level") {
		flags["log-level"] = logLevel
	}
	if set("log-file") {
		flags["log-file"] = logFile
	}
	if set("start-year") {
		flags["start-year"] = startYear
	}
	if set("end-year") {
		flags["end-year"] = endYear
	}
	if set("seasons") {
		var labels []string
		for _, s := range seasons {
			labels = append(labels, config.SplitList(s)...)
		}
		flags["seasons"] = labels
	}
	if set("no-color") {
		flags["no-color"] = noColor
	}
	return flags
}

// loadConfig resolves configuration from every source, falling back to the
// credential store for the client id, and validates it
func loadConfig(cmd *cobra.Command, override func(cfg *config.Config)) (*config.Config, error) {
	cfg, err := config.Load(configFile, collectFlags(cmd))
	if err != nil {
		return nil, err
	}

	if override != nil {
		override(cfg)
	}

	if cfg.API.ClientID == "" {
		if manager, err := auth.NewManager(); err == nil {
			if clientID, err := manager.ClientID(profile); err == nil {
				cfg.API.ClientID = clientID
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		if cfg.API.ClientID == "" {
			ui.PrintWarning("No client ID configured. Run 'malharvest auth set' or export " + auth.ClientIDEnv)
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runHarvest loads configuration and runs a harvest until it finishes or is interrupted
func runHarvest(cmd *cobra.Command, override func(cfg *config.Config)) error {
	cfg, err := loadConfig(cmd, override)
	if err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Close()

	log.WithField("version", version).Info("malharvest starting")

	ui.PrintBanner()
	ui.PrintInfo("Years", fmt.Sprintf("%d..%d", cfg.Harvest.StartYear, cfg.Harvest.EndYear))
	ui.PrintInfo("Seasons", strings.Join(cfg.Harvest.Seasons, ", "))
	ui.PrintInfo("Output", cfg.Output.BaseDirectory)

	h, err := harvester.New(cfg, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize harvester")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, runErr := h.Run(ctx)

	if table := ui.RenderSummary(summary); table != "" {
		fmt.Fprintln(ui.Output(), table)
	}

	if errors.Is(runErr, context.Canceled) {
		ui.PrintWarning("Harvest interrupted; files written so far are kept")
	}
	if runErr != nil {
		return fmt.Errorf("harvest failed: %w", runErr)
	}

	if incomplete := summary.IncompleteSeasons(); len(incomplete) > 0 {
		ui.PrintWarning(fmt.Sprintf("%d season listing(s) ended early; see the log for details", len(incomplete)))
	}
	ui.PrintSuccess("Harvest complete")
	return nil
}
