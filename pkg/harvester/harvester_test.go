package harvester

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"malharvest/pkg/config"
	"malharvest/pkg/errors"
	"malharvest/pkg/logger"
	"malharvest/pkg/mal"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCatalogServer mimics the MyAnimeList API and its image CDN
type mockCatalogServer struct {
	server        *httptest.Server
	seasons       map[string][][]int64
	details       map[int64]string
	failPage      map[string]int
	failDetails   map[int64]int
	failImages    map[string]bool
	listCalls     []string
	apiRequests   []apiRequest
	detailCalls   int32
	downloadCalls int32
	mu            sync.Mutex
}

// apiRequest is one request the catalog API received
type apiRequest struct {
	path string
	at   time.Time
}

func newMockCatalogServer(t *testing.T) *mockCatalogServer {
	m := &mockCatalogServer{
		seasons:     make(map[string][][]int64),
		details:     make(map[int64]string),
		failPage:    make(map[string]int),
		failDetails: make(map[int64]int),
		failImages:  make(map[string]bool),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /anime/season/{year}/{season}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("year") + "/" + r.PathValue("season")
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit == 0 {
			limit = 1
		}
		page := offset / limit

		m.mu.Lock()
		defer m.mu.Unlock()
		m.listCalls = append(m.listCalls, key)
		m.apiRequests = append(m.apiRequests, apiRequest{path: r.URL.Path, at: time.Now()})

		if failAt, ok := m.failPage[key]; ok && failAt == page {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		pages := m.seasons[key]
		var nodes []string
		if page < len(pages) {
			for _, id := range pages[page] {
				nodes = append(nodes, fmt.Sprintf(`{"node":{"id":%d}}`, id))
			}
		}
		paging := `{}`
		if page < len(pages)-1 {
			paging = fmt.Sprintf(`{"next":"%s%s?offset=%d"}`, m.server.URL, r.URL.Path, offset+limit)
		}
		fmt.Fprintf(w, `{"data":[%s],"paging":%s}`, strings.Join(nodes, ","), paging)
	})

	mux.HandleFunc("GET /anime/{id}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.detailCalls, 1)
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)

		m.mu.Lock()
		defer m.mu.Unlock()
		m.apiRequests = append(m.apiRequests, apiRequest{path: r.URL.Path, at: time.Now()})

		if status, ok := m.failDetails[id]; ok {
			w.WriteHeader(status)
			return
		}
		body, ok := m.details[id]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	})

	mux.HandleFunc("GET /images/{name}", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&m.downloadCalls, 1)

		m.mu.Lock()
		fail := m.failImages[r.PathValue("name")]
		m.mu.Unlock()

		if fail {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, "jpeg:%s", r.PathValue("name"))
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

// addAnime registers a detail record with one picture per size
func (m *mockCatalogServer) addAnime(id int64, sizes ...string) {
	pictures := make([]string, 0, len(sizes))
	for _, size := range sizes {
		pictures = append(pictures, fmt.Sprintf(`"%s":"%s/images/%d_%s"`, size, m.server.URL, id, size))
	}
	m.details[id] = fmt.Sprintf(`{"id":%d,"title":"Anime №%d","synopsis":"<b>bold</b> & more","mean":7.10,"main_picture":{%s}}`,
		id, id, strings.Join(pictures, ","))
}

func newTestConfig(t *testing.T, m *mockCatalogServer) *config.Config {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = m.server.URL
	cfg.API.ClientID = "test-client"
	cfg.API.PageSize = 1
	cfg.API.Timeout = 5 * time.Second
	cfg.Harvest.StartYear = 2023
	cfg.Harvest.EndYear = 2023
	cfg.Harvest.Seasons = []string{"fall"}
	cfg.RateLimit.RequestInterval = 0
	cfg.RateLimit.ItemInterval = 0
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Download.Timeout = 5 * time.Second
	return cfg
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestEndToEndTwoPages(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}, {20}}
	m.addAnime(10, "large")
	m.addAnime(20)

	cfg := newTestConfig(t, m)
	log := logger.NewTestLogger()
	h, err := New(cfg, log)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.BaseDirectory, "2023", "fall")
	assert.Equal(t, []string{"10.json", "10_large.jpg", "20.json"}, listDir(t, dir))

	image, err := os.ReadFile(filepath.Join(dir, "10_large.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpeg:10_large", string(image))

	details, err := os.ReadFile(filepath.Join(dir, "10.json"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(details), "{\n    \"id\": 10,"), string(details))
	assert.Contains(t, string(details), `"synopsis": "<b>bold</b> & more"`)
	assert.Contains(t, string(details), `"title": "Anime №10"`)
	assert.Contains(t, string(details), `"mean": 7.10`)
	assert.True(t, strings.HasSuffix(string(details), "}\n"))

	require.Len(t, summary.Seasons, 1)
	totals := summary.Totals()
	assert.Equal(t, 2, totals.Listed)
	assert.Equal(t, 2, totals.Saved)
	assert.Equal(t, 0, totals.Failed)
	assert.Equal(t, 1, totals.ImagesSaved)
	assert.Equal(t, int64(len("jpeg:10_large")), totals.Bytes)
	assert.False(t, totals.Incomplete)

	assert.True(t, log.HasMessage("All data has been successfully fetched and saved."))
	assert.True(t, log.HasMessage("Created directory"))
}

func TestRerunIsByteIdentical(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}, {20}}
	m.addAnime(10, "large", "medium")
	m.addAnime(20)

	cfg := newTestConfig(t, m)
	dir := filepath.Join(cfg.Output.BaseDirectory, "2023", "fall")

	snapshot := func() map[string]string {
		files := make(map[string]string)
		for _, name := range listDir(t, dir) {
			content, err := os.ReadFile(filepath.Join(dir, name))
			require.NoError(t, err)
			files[name] = string(content)
		}
		return files
	}

	h, err := New(cfg, nil)
	require.NoError(t, err)
	_, err = h.Run(context.Background())
	require.NoError(t, err)
	first := snapshot()

	log := logger.NewTestLogger()
	h, err = New(cfg, log)
	require.NoError(t, err)
	_, err = h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, snapshot())
	assert.False(t, log.HasMessage("Created directory"), "existing directories are not recreated")
}

func TestDetailFailureWritesNoFile(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}, {20}, {30}}
	m.addAnime(10)
	m.addAnime(30)
	m.failDetails[20] = http.StatusInternalServerError

	cfg := newTestConfig(t, m)
	log := logger.NewTestLogger()
	h, err := New(cfg, log)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.BaseDirectory, "2023", "fall")
	assert.Equal(t, []string{"10.json", "30.json"}, listDir(t, dir))
	assert.Equal(t, 1, summary.Totals().Failed)
	assert.Equal(t, 2, summary.Totals().Saved)
	assert.True(t, log.HasMessage("Skipping anime"))
}

func TestEmptyPictureMappingStillWritesJSON(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}}
	m.addAnime(10)

	cfg := newTestConfig(t, m)
	h, err := New(cfg, nil)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.BaseDirectory, "2023", "fall")
	assert.Equal(t, []string{"10.json"}, listDir(t, dir))
	assert.Zero(t, summary.Totals().ImagesSaved)
	assert.Zero(t, atomic.LoadInt32(&m.downloadCalls))
}

func TestListingErrorProcessesPartialItems(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}, {20}}
	m.failPage["2023/fall"] = 1
	m.addAnime(10)
	m.addAnime(20)

	cfg := newTestConfig(t, m)
	h, err := New(cfg, nil)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.BaseDirectory, "2023", "fall")
	assert.Equal(t, []string{"10.json"}, listDir(t, dir))
	require.Len(t, summary.Seasons, 1)
	assert.True(t, summary.Seasons[0].Incomplete)
	assert.Equal(t, 1, summary.Seasons[0].Listed)
	assert.Len(t, summary.IncompleteSeasons(), 1)
}

func TestImageFailureSkipsImage(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}}
	m.addAnime(10, "large", "medium")
	m.failImages["10_large"] = true

	cfg := newTestConfig(t, m)
	h, err := New(cfg, nil)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.BaseDirectory, "2023", "fall")
	assert.Equal(t, []string{"10.json", "10_medium.jpg"}, listDir(t, dir))
	assert.Equal(t, 1, summary.Totals().ImagesFailed)
	assert.Equal(t, 1, summary.Totals().ImagesSaved)
}

func TestUnsafePictureSizeIsSkipped(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}}
	m.details[10] = fmt.Sprintf(`{"id":10,"main_picture":{"/../../../escaped":"%[1]s/images/escaped","large":"%[1]s/images/10_large"}}`,
		m.server.URL)

	cfg := newTestConfig(t, m)
	cfg.Output.BaseDirectory = filepath.Join(t.TempDir(), "out")
	log := logger.NewTestLogger()
	h, err := New(cfg, log)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)

	var written []string
	err = filepath.WalkDir(filepath.Dir(cfg.Output.BaseDirectory), func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			written = append(written, path)
		}
		return err
	})
	require.NoError(t, err)

	dir := filepath.Join(cfg.Output.BaseDirectory, "2023", "fall")
	assert.ElementsMatch(t, []string{filepath.Join(dir, "10.json"), filepath.Join(dir, "10_large.jpg")}, written)
	assert.Equal(t, 1, summary.Totals().ImagesFailed)
	assert.Equal(t, 1, summary.Totals().ImagesSaved)
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.downloadCalls))
	assert.True(t, log.HasMessage("Skipping image"))
}

func TestRunOrder(t *testing.T) {
	m := newMockCatalogServer(t)

	cfg := newTestConfig(t, m)
	cfg.Harvest.StartYear = 2000
	cfg.Harvest.EndYear = 2001
	cfg.Harvest.Seasons = []string{"winter", "fall"}

	h, err := New(cfg, nil)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"2000/winter", "2000/fall", "2001/winter", "2001/fall"}, m.listCalls)

	var visited []string
	for _, st := range summary.Seasons {
		visited = append(visited, fmt.Sprintf("%d/%s", st.Year, st.Season))
	}
	assert.Equal(t, m.listCalls, visited)

	for _, key := range m.listCalls {
		assert.DirExists(t, filepath.Join(cfg.Output.BaseDirectory, filepath.FromSlash(key)))
	}
}

// failingStore fails every detail write
type failingStore struct {
	dir string
}

func (s *failingStore) EnsureSeason(year int, season mal.Season) (string, error) {
	return s.dir, nil
}

func (s *failingStore) SaveDetails(dir string, details *mal.Details, indent string) (string, error) {
	return "", errors.Wrap(errors.ErrorTypeStorage, stderrors.New("disk full"), "failed to write data")
}

func TestStorageFailureEndsRun(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}, {20}}
	m.addAnime(10)
	m.addAnime(20)

	cfg := newTestConfig(t, m)
	cfg.Harvest.Seasons = []string{"summer", "fall"}
	m.seasons["2023/summer"] = [][]int64{{10}, {20}}

	log := logger.NewTestLogger()
	h, err := NewWithComponents(cfg, Components{Store: &failingStore{dir: t.TempDir()}}, log)
	require.NoError(t, err)

	summary, err := h.Run(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrorTypeStorage))
	assert.Equal(t, int32(1), atomic.LoadInt32(&m.detailCalls), "run stops at the first failed write")
	assert.NotContains(t, m.listCalls, "2023/fall")
	assert.Len(t, summary.Seasons, 1)
	assert.NotEmpty(t, log.GetMessagesByLevel("ERROR"))
	assert.False(t, log.HasMessage("All data has been successfully fetched and saved."))
}

// countingLimiter records waits and cancels after a number of them
type countingLimiter struct {
	waits  int
	after  int
	cancel context.CancelFunc
}

func (l *countingLimiter) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.waits++
	if l.after > 0 && l.waits == l.after {
		l.cancel()
	}
	return nil
}

func TestItemLimiterGatesEveryDetail(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}, {20}, {30}}
	m.addAnime(10)
	m.addAnime(20)
	m.addAnime(30)

	cfg := newTestConfig(t, m)
	limiter := &countingLimiter{}
	h, err := NewWithComponents(cfg, Components{Items: limiter}, nil)
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, limiter.waits)
	assert.Equal(t, int32(3), atomic.LoadInt32(&m.detailCalls))
}

func TestRequestsSpacedAcrossSeasons(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/summer"] = [][]int64{{1, 2, 3}}
	m.seasons["2023/fall"] = [][]int64{{4, 5, 6}}
	for id := int64(1); id <= 6; id++ {
		m.addAnime(id)
	}

	const interval = 100 * time.Millisecond
	cfg := newTestConfig(t, m)
	cfg.API.PageSize = 10
	cfg.Harvest.Seasons = []string{"summer", "fall"}
	cfg.RateLimit.RequestInterval = interval
	cfg.RateLimit.ItemInterval = interval

	h, err := New(cfg, nil)
	require.NoError(t, err)

	_, err = h.Run(context.Background())
	require.NoError(t, err)

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Len(t, m.apiRequests, 8)
	assert.Equal(t, "/anime/6", m.apiRequests[7].path)
	assert.Equal(t, "/anime/season/2023/fall", m.apiRequests[4].path)

	// Allow for scheduling jitter between the limiter and the server clock
	minGap := interval * 8 / 10
	for i := 1; i < len(m.apiRequests); i++ {
		prev, cur := m.apiRequests[i-1], m.apiRequests[i]
		gap := cur.at.Sub(prev.at)
		assert.GreaterOrEqual(t, gap, minGap, "%s -> %s came %v apart", prev.path, cur.path, gap)
	}
}

func TestCancelledRunStops(t *testing.T) {
	m := newMockCatalogServer(t)
	m.seasons["2023/fall"] = [][]int64{{10}, {20}, {30}}
	m.addAnime(10)
	m.addAnime(20)
	m.addAnime(30)

	cfg := newTestConfig(t, m)
	cfg.Harvest.EndYear = 2024

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	limiter := &countingLimiter{after: 2, cancel: cancel}

	h, err := NewWithComponents(cfg, Components{Items: limiter}, nil)
	require.NoError(t, err)

	_, err = h.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, m.listCalls, "2024/fall", "no further seasons after cancellation")
	assert.Less(t, atomic.LoadInt32(&m.detailCalls), int32(3))
}

func TestNewRejectsUnknownSeason(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Harvest.Seasons = []string{"monsoon"}

	_, err := New(cfg, nil)

	assert.Error(t, err)
}

func TestSummaryTotals(t *testing.T) {
	s := newSummary()
	s.add(SeasonStats{Year: 2000, Season: mal.Winter, Listed: 3, Saved: 2, Failed: 1, ImagesSaved: 4, Bytes: 100})
	s.add(SeasonStats{Year: 2000, Season: mal.Spring, Listed: 1, Saved: 1, ImagesFailed: 1, Bytes: 50, Incomplete: true})
	s.finish()

	totals := s.Totals()
	assert.Equal(t, 4, totals.Listed)
	assert.Equal(t, 3, totals.Saved)
	assert.Equal(t, 1, totals.Failed)
	assert.Equal(t, 4, totals.ImagesSaved)
	assert.Equal(t, 1, totals.ImagesFailed)
	assert.Equal(t, int64(150), totals.Bytes)
	assert.True(t, totals.Incomplete)
	assert.Len(t, s.IncompleteSeasons(), 1)
}
