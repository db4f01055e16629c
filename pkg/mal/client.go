package mal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"malharvest/pkg/config"
	"malharvest/pkg/errors"
	"malharvest/pkg/logger"
	"malharvest/pkg/ratelimit"
	"resty.dev/v3"
)

// Client is a MyAnimeList v2 API client.
// It is not safe for concurrent use; the harvest drives it from one goroutine.
type Client struct {
	httpClient *resty.Client
	baseURL    string
	fields     string
	pageSize   int
	maxPages   int
	requests   ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a catalog client from the api and harvest sections of cfg.
// requests gates every API request, listing pages and details alike; nil
// means unlimited.
func NewClient(cfg *config.Config, requests ratelimit.Limiter, log logger.Logger) *Client {
	if requests == nil {
		requests = ratelimit.Unlimited()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	baseURL := cfg.API.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	httpClient := resty.New().
		SetTimeout(cfg.API.Timeout).
		SetRetryCount(0).
		SetLogger(&restyLogger{log: log}).
		SetHeader(ClientIDHeader, cfg.API.ClientID).
		SetHeader("Accept", "application/json")
	if cfg.API.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.API.UserAgent)
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		fields:     strings.Join(cfg.API.Fields, ","),
		pageSize:   clampPageSize(cfg.API.PageSize),
		maxPages:   cfg.Harvest.MaxPages,
		requests:   requests,
		logger:     log,
	}
}

// SeasonAnime lists every anime of a season, following pages until one has
// no next link. On failure it stops paging and returns the entries gathered
// so far along with the error.
func (c *Client) SeasonAnime(ctx context.Context, year int, season Season) ([]SeasonEntry, error) {
	endpoint := SeasonURL(c.baseURL, year, season)
	log := c.logger.WithFields(map[string]interface{}{
		"year":   year,
		"season": season.String(),
	})

	var entries []SeasonEntry
	for page, offset := 0, 0; ; page, offset = page+1, offset+c.pageSize {
		if c.maxPages > 0 && page >= c.maxPages {
			log.WarnWithFields("Page cap reached, listing truncated", map[string]interface{}{
				"max_pages": c.maxPages,
				"items":     len(entries),
			})
			return entries, nil
		}

		log.InfoWithFields("Fetching season page", map[string]interface{}{"offset": offset})

		body, err := c.get(ctx, endpoint, map[string]string{
			"limit":  strconv.Itoa(c.pageSize),
			"offset": strconv.Itoa(offset),
		})
		if err != nil {
			log.WithError(err).ErrorWithFields("Failed to fetch season page", map[string]interface{}{"offset": offset})
			return entries, fmt.Errorf("season %d %s at offset %d: %w", year, season, offset, err)
		}

		var p SeasonPage
		if err := json.Unmarshal(body, &p); err != nil {
			perr := errors.Wrap(errors.ErrorTypeParsing, err, "failed to decode season page")
			log.WithError(perr).ErrorWithFields("Failed to decode season page", map[string]interface{}{"offset": offset})
			return entries, fmt.Errorf("season %d %s at offset %d: %w", year, season, offset, perr)
		}

		entries = append(entries, p.Data...)
		if !p.HasNext() {
			log.InfoWithFields("Season listing complete", map[string]interface{}{
				"pages": page + 1,
				"items": len(entries),
			})
			return entries, nil
		}
	}
}

// AnimeDetails fetches the detail record of one anime with the configured field set
func (c *Client) AnimeDetails(ctx context.Context, id int64) (*Details, error) {
	log := c.logger.WithField("anime_id", id)
	log.Info("Fetching anime details")

	body, err := c.get(ctx, DetailsURL(c.baseURL, id), map[string]string{"fields": c.fields})
	if err != nil {
		log.WithError(err).Error("Failed to fetch anime details")
		return nil, fmt.Errorf("anime %d: %w", id, err)
	}

	var decoded struct {
		MainPicture json.RawMessage `json:"main_picture"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		perr := errors.Wrap(errors.ErrorTypeParsing, err, "failed to decode anime details")
		log.WithError(perr).Error("Failed to decode anime details")
		return nil, fmt.Errorf("anime %d: %w", id, perr)
	}

	return &Details{
		ID:       id,
		Pictures: pictureURLs(log, decoded.MainPicture),
		Raw:      json.RawMessage(body),
	}, nil
}

// pictureURLs keeps the string entries of a main_picture object. Anything
// else is logged and dropped; the detail record itself stays valid.
func pictureURLs(log logger.Logger, raw json.RawMessage) map[string]string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		log.WithError(err).Warn("Ignoring malformed main_picture")
		return nil
	}

	pictures := make(map[string]string, len(entries))
	for size, value := range entries {
		var url *string
		if err := json.Unmarshal(value, &url); err != nil || url == nil {
			log.WithField("size", size).Warn("Ignoring non-string picture URL")
			continue
		}
		pictures[size] = *url
	}
	return pictures
}

// get waits for the request limiter, performs a GET and returns the body of
// a 200 response
func (c *Client) get(ctx context.Context, endpoint string, query map[string]string) ([]byte, error) {
	if err := c.requests.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParams(query).
		Get(endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrorTypeNetwork, err, "request failed")
	}

	logger.LogRequest(c.logger, http.MethodGet, endpoint, resp.StatusCode(), time.Since(start))

	if resp.StatusCode() != http.StatusOK {
		return nil, errors.FromStatus(resp.StatusCode())
	}

	return []byte(resp.String()), nil
}

// restyLogger routes resty's internal messages into the harvest logger
type restyLogger struct {
	log logger.Logger
}

func (l *restyLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}

func (l *restyLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l *restyLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}
