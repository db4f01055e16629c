package harvester

import (
	"context"

	"malharvest/pkg/mal"
)

// CatalogClient defines the catalog operations a harvest needs
type CatalogClient interface {
	SeasonAnime(ctx context.Context, year int, season mal.Season) ([]mal.SeasonEntry, error)
	AnimeDetails(ctx context.Context, id int64) (*mal.Details, error)
}

// ImageDownloader fetches one image into dest
type ImageDownloader interface {
	Download(ctx context.Context, url, dest string) (int64, error)
}

// Store persists the output tree
type Store interface {
	EnsureSeason(year int, season mal.Season) (string, error)
	SaveDetails(dir string, details *mal.Details, indent string) (string, error)
}
