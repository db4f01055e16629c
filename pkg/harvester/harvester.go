package harvester

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"malharvest/internal/downloader"
	"malharvest/pkg/config"
	"malharvest/pkg/logger"
	"malharvest/pkg/mal"
	"malharvest/pkg/ratelimit"
	"malharvest/pkg/storage"
)

// Harvester walks the configured years and seasons and stores every anime
type Harvester struct {
	client  CatalogClient
	images  ImageDownloader
	store   Store
	items   ratelimit.Limiter
	seasons []mal.Season
	config  *config.Config
	logger  logger.Logger
}

// Components overrides the parts a Harvester is built from.
// Nil fields fall back to the defaults derived from the config.
type Components struct {
	Client CatalogClient
	Images ImageDownloader
	Store  Store
	Items  ratelimit.Limiter
}

// New creates a Harvester wired to the MyAnimeList API and the local output tree
func New(cfg *config.Config, log logger.Logger) (*Harvester, error) {
	return NewWithComponents(cfg, Components{}, log)
}

// NewWithComponents creates a Harvester, using the given components where set
func NewWithComponents(cfg *config.Config, c Components, log logger.Logger) (*Harvester, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	seasons, err := mal.ParseSeasons(cfg.Harvest.Seasons)
	if err != nil {
		return nil, fmt.Errorf("invalid seasons: %w", err)
	}

	if c.Client == nil {
		c.Client = mal.NewClient(cfg, ratelimit.NewInterval(cfg.RateLimit.RequestInterval), log)
	}

	if c.Store == nil || c.Images == nil {
		manager, err := storage.NewManager(cfg.Output.BaseDirectory, log)
		if err != nil {
			return nil, err
		}
		if c.Store == nil {
			c.Store = manager
		}
		if c.Images == nil {
			c.Images = downloader.New(&cfg.Download, manager, log)
		}
	}

	if c.Items == nil {
		c.Items = ratelimit.NewInterval(cfg.RateLimit.ItemInterval)
	}

	return &Harvester{
		client:  c.Client,
		images:  c.Images,
		store:   c.Store,
		items:   c.Items,
		seasons: seasons,
		config:  cfg,
		logger:  log,
	}, nil
}

// Run harvests every season of every year in the configured range.
// Per-item failures are logged and skipped; a storage failure or a
// cancelled context ends the run with an error. The summary covers every
// season started before the run ended.
func (h *Harvester) Run(ctx context.Context) (*Summary, error) {
	summary := newSummary()
	defer summary.finish()

	h.logger.InfoWithFields("Starting harvest", map[string]interface{}{
		"start_year": h.config.Harvest.StartYear,
		"end_year":   h.config.Harvest.EndYear,
		"seasons":    h.config.Harvest.Seasons,
		"output":     h.config.Output.BaseDirectory,
	})

	for year := h.config.Harvest.StartYear; year <= h.config.Harvest.EndYear; year++ {
		for _, season := range h.seasons {
			if err := ctx.Err(); err != nil {
				h.logger.WithError(err).Warn("Harvest interrupted")
				return summary, err
			}

			stats, err := h.HarvestSeason(ctx, year, season)
			summary.add(stats)
			if err != nil {
				h.logger.WithError(err).ErrorWithFields("An error occurred during the harvest", map[string]interface{}{
					"year":   year,
					"season": season.String(),
				})
				return summary, err
			}
		}
	}

	totals := summary.Totals()
	h.logger.InfoWithFields("All data has been successfully fetched and saved.", map[string]interface{}{
		"seasons":       len(summary.Seasons),
		"saved":         totals.Saved,
		"failed":        totals.Failed,
		"images":        totals.ImagesSaved,
		"images_failed": totals.ImagesFailed,
		"bytes":         humanize.Bytes(uint64(totals.Bytes)),
	})
	return summary, nil
}

// HarvestSeason stores every anime listed for one year and season.
// A listing error marks the season incomplete but the items already
// listed are still processed.
func (h *Harvester) HarvestSeason(ctx context.Context, year int, season mal.Season) (SeasonStats, error) {
	start := time.Now()
	stats := SeasonStats{Year: year, Season: season}
	log := h.logger.WithFields(map[string]interface{}{
		"year":   year,
		"season": season.String(),
	})

	dir, err := h.store.EnsureSeason(year, season)
	if err != nil {
		return stats, fmt.Errorf("prepare %d %s: %w", year, season, err)
	}

	log.Info("Fetching season anime")
	entries, err := h.client.SeasonAnime(ctx, year, season)
	stats.Listed = len(entries)
	if err != nil {
		if ctx.Err() != nil {
			stats.Duration = time.Since(start)
			return stats, ctx.Err()
		}
		stats.Incomplete = true
		log.WithError(err).WarnWithFields("Season listing incomplete", map[string]interface{}{
			"items": len(entries),
		})
	}

	for i, entry := range entries {
		if err := h.harvestItem(ctx, log, dir, entry.Node.ID, &stats); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}
		logger.LogSeasonProgress(log, year, season.String(), i+1, len(entries))
	}

	stats.Duration = time.Since(start)
	log.InfoWithFields("Season complete", map[string]interface{}{
		"listed":     stats.Listed,
		"saved":      stats.Saved,
		"failed":     stats.Failed,
		"images":     stats.ImagesSaved,
		"incomplete": stats.Incomplete,
		"duration":   stats.Duration,
	})
	return stats, nil
}

// harvestItem fetches, stores and illustrates one anime. Only a cancelled
// context or a failed JSON write is returned; everything else is counted.
func (h *Harvester) harvestItem(ctx context.Context, log logger.Logger, dir string, id int64, stats *SeasonStats) error {
	if err := h.items.Wait(ctx); err != nil {
		return err
	}

	details, err := h.client.AnimeDetails(ctx, id)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		stats.Failed++
		log.WithError(err).WarnWithFields("Skipping anime", map[string]interface{}{"anime_id": id})
		return nil
	}

	path, err := h.store.SaveDetails(dir, details, h.config.Indent())
	if err != nil {
		return fmt.Errorf("save anime %d: %w", id, err)
	}
	stats.Saved++
	log.InfoWithFields("Saved anime", map[string]interface{}{
		"anime_id": id,
		"path":     path,
	})

	for _, size := range details.PictureSizes() {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := storage.CheckImageSize(size); err != nil {
			stats.ImagesFailed++
			log.WithError(err).WarnWithFields("Skipping image", map[string]interface{}{"anime_id": id})
			continue
		}

		n, err := h.images.Download(ctx, details.Pictures[size], storage.ImagePath(dir, id, size))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			stats.ImagesFailed++
			continue
		}
		stats.ImagesSaved++
		stats.Bytes += n
	}
	return nil
}
