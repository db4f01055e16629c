package ui

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"malharvest/pkg/harvester"
)

var summaryHeader = table.Row{"Year", "Season", "Listed", "Saved", "Failed", "Images", "Img failed", "Size", "Status"}

// RenderSummary renders per-season statistics and a totals footer as a table
func RenderSummary(summary *harvester.Summary) string {
	if summary == nil || len(summary.Seasons) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(summaryHeader)

	for _, st := range summary.Seasons {
		tw.AppendRow(table.Row{
			strconv.Itoa(st.Year),
			st.Season.String(),
			st.Listed,
			st.Saved,
			st.Failed,
			st.ImagesSaved,
			st.ImagesFailed,
			humanize.Bytes(uint64(st.Bytes)),
			status(st),
		})
	}

	totals := summary.Totals()
	tw.AppendFooter(table.Row{
		"Total",
		fmt.Sprintf("%d seasons", len(summary.Seasons)),
		totals.Listed,
		totals.Saved,
		totals.Failed,
		totals.ImagesSaved,
		totals.ImagesFailed,
		humanize.Bytes(uint64(totals.Bytes)),
		summary.Duration.Round(time.Second).String(),
	})

	configs := make([]table.ColumnConfig, 0, len(summaryHeader))
	for i := range summaryHeader {
		align := text.AlignLeft
		if i >= 2 && i <= 7 {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			AlignFooter: align,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func status(st harvester.SeasonStats) string {
	switch {
	case st.Incomplete:
		return "incomplete"
	case st.Failed > 0 || st.ImagesFailed > 0:
		return "partial"
	default:
		return "ok"
	}
}
