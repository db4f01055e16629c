// Package harvester drives a seasonal harvest of the MyAnimeList catalog.
//
// A run walks years in ascending order and, within each year, the
// configured seasons in their declared order. For each season it lists
// every anime, then for each one fetches the detail record, writes it to
// {base}/{year}/{season}/{id}.json and downloads each main picture size to
// {id}_{size}.jpg.
//
// Everything runs on the calling goroutine. Consecutive items are spaced by
// the item limiter. Every API request, listing page or detail, also waits on
// the client's request limiter, so the last detail of a season and the first
// page of the next one are spaced like any other pair.
//
// Failure handling:
//
//   - a listing error marks the season incomplete; items already listed
//     are still harvested
//   - a detail error skips that anime, and no file is written for it
//   - an image error skips that image
//   - a storage error or a cancelled context ends the run
package harvester
