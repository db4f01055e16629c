package mal

import (
	"fmt"
	"strings"
)

const (
	// BaseURL is the base URL of the MyAnimeList v2 API
	BaseURL = "https://api.myanimelist.net/v2"

	// ClientIDHeader identifies the registered API client
	ClientIDHeader = "X-MAL-CLIENT-ID"

	// DefaultPageSize is the listing page size
	DefaultPageSize = 100

	// MaxPageSize is the largest page the season endpoint accepts
	MaxPageSize = 100
)

// SeasonURL constructs the seasonal listing URL for a year and season
func SeasonURL(baseURL string, year int, season Season) string {
	return fmt.Sprintf("%s/anime/season/%d/%s", strings.TrimRight(baseURL, "/"), year, season)
}

// DetailsURL constructs the detail URL for an anime
func DetailsURL(baseURL string, id int64) string {
	return fmt.Sprintf("%s/anime/%d", strings.TrimRight(baseURL, "/"), id)
}

// clampPageSize keeps a page size within what the API accepts
func clampPageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
