package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"malharvest/pkg/config"
	"malharvest/pkg/errors"
	"malharvest/pkg/logger"
)

// FileStore writes a stream to a path atomically
type FileStore interface {
	WriteStream(path string, r io.Reader, bufSize int) (int64, error)
}

// Downloader fetches images and streams them to disk
type Downloader struct {
	httpClient *http.Client
	store      FileStore
	chunkSize  int
	logger     logger.Logger
}

// New creates a downloader writing through store
func New(cfg *config.DownloadConfig, store FileStore, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		store:      store,
		chunkSize:  cfg.ChunkSize,
		logger:     log,
	}
}

// Download fetches url and writes the body to dest, returning the bytes written.
// On any failure dest is left untouched.
func (d *Downloader) Download(ctx context.Context, url, dest string) (int64, error) {
	start := time.Now()
	log := d.logger.WithFields(map[string]interface{}{
		"url":  url,
		"dest": dest,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.WithError(err).Error("Invalid image URL")
		return 0, errors.Wrap(errors.ErrorTypeNetwork, err, "failed to create request")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		log.WithError(err).Error("Failed to download image")
		return 0, errors.Wrap(errors.ErrorTypeNetwork, err, "image request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := errors.FromStatus(resp.StatusCode)
		log.WithError(err).WarnWithFields("Failed to download image", map[string]interface{}{
			"status_code": resp.StatusCode,
		})
		return 0, err
	}

	n, err := d.store.WriteStream(dest, resp.Body, d.chunkSize)
	if err != nil {
		log.WithError(err).Error("Failed to save image")
		return 0, fmt.Errorf("save %s: %w", dest, err)
	}

	log.InfoWithFields("Image saved", map[string]interface{}{
		"size":     humanize.Bytes(uint64(n)),
		"duration": time.Since(start),
	})
	return n, nil
}
