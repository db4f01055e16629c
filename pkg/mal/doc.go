// Package mal provides a client for the MyAnimeList v2 API.
//
// It covers the two endpoints a seasonal harvest needs:
//
//   - the seasonal listing, paged by offset until a page has no next link
//   - the per-anime detail record, requested with an explicit field set
//
// Every request carries the X-MAL-CLIENT-ID header. Failures are returned
// as *errors.Error values typed by HTTP status (not_found, auth,
// rate_limit, server_error), transport failure (network) or an
// undecodable body (parsing). Nothing is retried. Every request waits on
// the limiter passed to NewClient.
//
// Basic usage:
//
//	client := mal.NewClient(cfg, ratelimit.NewInterval(time.Second), log)
//	entries, err := client.SeasonAnime(ctx, 2023, mal.Fall)
//	if err != nil {
//		// entries still holds the pages fetched before the failure
//	}
//	for _, e := range entries {
//		details, err := client.AnimeDetails(ctx, e.Node.ID)
//		...
//	}
package mal
