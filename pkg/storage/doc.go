// Package storage manages the harvest output tree.
//
// The layout is:
//
//	{base}/{year}/{season}/{id}.json
//	{base}/{year}/{season}/{id}_{size}.jpg
//
// Every file is written to a temporary sibling first and renamed into place,
// so a failed or interrupted write never leaves a partial file. Rewriting an
// existing file replaces it.
//
// Usage:
//
//	manager, err := storage.NewManager("output", log)
//	if err != nil {
//	    return err
//	}
//
//	dir, err := manager.EnsureSeason(2023, mal.Fall)
//	if err != nil {
//	    return err
//	}
//	path, err := manager.SaveDetails(dir, details, "    ")
package storage
