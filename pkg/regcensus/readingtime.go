package regcensus

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/QuantGov/regcensus-api-go/pkg/normalize"
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
)

// Work calendar used to convert word counts to reading time.
const (
	WordsPerYear = 36_000_000
	WorkYear     = 50
	WorkWeek     = 5
	WorkDay      = 8
)

// Reading-time passthrough columns.
const (
	ColumnSeriesName  = "series_name"
	ColumnReadingTime = "reading_time"
	ColumnFootnote    = "footNote"
)

// ReadingTimeFootnote states the work calendar behind ReadingTime.
const ReadingTimeFootnote = "Reading time calculation assumes an 8 hour work-day, a 5 day work-week, and a 50 week work-year."

// ReadingTime renders a word count as working time, e.g. "1 year, 25 weeks".
// Hours are omitted once a year is reached and minutes once a week is.
func ReadingTime(words float64) string {
	years := words / WordsPerYear
	weeks := frac(years) * WorkYear
	days := frac(weeks) * WorkWeek
	hours := frac(days) * WorkDay
	minutes := frac(hours) * 60

	y, w, d, h, m := whole(years), whole(weeks), whole(days), whole(hours), whole(minutes)
	var parts []string
	if y != 0 {
		parts = append(parts, unit(y, "year"))
	}
	if w != 0 {
		parts = append(parts, unit(w, "week"))
	}
	if d != 0 {
		parts = append(parts, unit(d, "day"))
	}
	if h != 0 && y == 0 {
		parts = append(parts, unit(h, "hour"))
	}
	if m != 0 && y == 0 && w == 0 {
		parts = append(parts, unit(m, "minute"))
	}
	if len(parts) == 0 {
		return "Less than a minute"
	}
	return strings.Join(parts, ", ")
}

// GetReadingTime resolves the word-count series for req and adds a
// reading_time column rendering each value with ReadingTime. Value keeps
// the word count.
func (c *Client) GetReadingTime(ctx context.Context, req ValuesRequest) (*regdata.ResultTable, error) {
	req.Series = normalize.One(SeriesWords)
	download := req.Download
	req.Download = ""

	t, err := c.GetValues(ctx, req)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{ColumnSeriesName, ColumnReadingTime, ColumnFootnote} {
		t.AddColumn(col)
	}
	for i := range t.Rows {
		row := &t.Rows[i]
		if row.Extra == nil {
			row.Extra = make(map[string]string, 3)
		}
		row.Extra[ColumnSeriesName] = "Reading Time"
		row.Extra[ColumnReadingTime] = ReadingTime(row.Value)
		row.Extra[ColumnFootnote] = ReadingTimeFootnote
	}

	if download != "" {
		if err := c.download(ctx, download, t); err != nil {
			return t, err
		}
	}
	return t, nil
}

func frac(x float64) float64 { return x - math.Trunc(x) }

func whole(x float64) int { return int(math.Trunc(x)) }

func unit(n int, name string) string {
	if n > 1 {
		name += "s"
	}
	return strconv.Itoa(n) + " " + name
}
