package harvester

import (
	"time"

	"malharvest/pkg/mal"
)

// SeasonStats counts what happened while harvesting one (year, season)
type SeasonStats struct {
	Year         int
	Season       mal.Season
	Listed       int
	Saved        int
	Failed       int
	ImagesSaved  int
	ImagesFailed int
	Bytes        int64
	// Incomplete is set when the listing stopped on an error
	Incomplete bool
	Duration   time.Duration
}

// Summary collects the statistics of a run
type Summary struct {
	Started  time.Time
	Duration time.Duration
	Seasons  []SeasonStats
}

func newSummary() *Summary {
	return &Summary{Started: time.Now()}
}

func (s *Summary) add(stats SeasonStats) {
	s.Seasons = append(s.Seasons, stats)
}

func (s *Summary) finish() {
	s.Duration = time.Since(s.Started)
}

// Totals sums every season's counters
func (s *Summary) Totals() SeasonStats {
	var total SeasonStats
	for _, st := range s.Seasons {
		total.Listed += st.Listed
		total.Saved += st.Saved
		total.Failed += st.Failed
		total.ImagesSaved += st.ImagesSaved
		total.ImagesFailed += st.ImagesFailed
		total.Bytes += st.Bytes
		total.Duration += st.Duration
		if st.Incomplete {
			total.Incomplete = true
		}
	}
	return total
}

// IncompleteSeasons returns the seasons whose listing ended on an error
func (s *Summary) IncompleteSeasons() []SeasonStats {
	var out []SeasonStats
	for _, st := range s.Seasons {
		if st.Incomplete {
			out = append(out, st)
		}
	}
	return out
}
