package regdata

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Granularity is the resolution of a Period.
type Granularity int

const (
	// GranularityYear is used by summary-level queries.
	GranularityYear Granularity = iota
	// GranularityDay is used by document-level queries.
	GranularityDay
)

func (g Granularity) String() string {
	if g == GranularityDay {
		return "day"
	}
	return "year"
}

const dateLayout = "2006-01-02"

var periodFormat = regexp.MustCompile(`^\d{4}(?:-\d{2}-\d{2})?$`)

// Period is either a bare year or a full calendar date. Month and Day are
// zero for bare years.
type Period struct {
	Year  int
	Month time.Month
	Day   int
}

// Year returns a bare-year period.
func Year(y int) Period { return Period{Year: y} }

// Date returns a full-date period.
func Date(y int, m time.Month, d int) Period {
	return FromTime(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the full-date period containing t.
func FromTime(t time.Time) Period {
	y, m, d := t.Date()
	return Period{Year: y, Month: m, Day: d}
}

// ParsePeriod accepts "YYYY" or "YYYY-MM-DD".
func ParsePeriod(s string) (Period, error) {
	if !periodFormat.MatchString(s) {
		return Period{}, fmt.Errorf("period %q: want YYYY or YYYY-MM-DD", s)
	}
	if len(s) == 4 {
		y, err := strconv.Atoi(s)
		if err != nil {
			return Period{}, fmt.Errorf("period %q: %w", s, err)
		}
		return Year(y), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", s, err)
	}
	return FromTime(t), nil
}

// MustParsePeriod is ParsePeriod for literals known to be valid.
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// IsFullDate reports whether p carries month and day.
func (p Period) IsFullDate() bool { return p.Month != 0 }

// Granularity returns the resolution of p.
func (p Period) Granularity() Granularity {
	if p.IsFullDate() {
		return GranularityDay
	}
	return GranularityYear
}

// Time returns the first instant of p in UTC.
func (p Period) Time() time.Time {
	m, d := p.Month, p.Day
	if m == 0 {
		m, d = time.January, 1
	}
	return time.Date(p.Year, m, d, 0, 0, 0, 0, time.UTC)
}

// Truncate reduces p to the given granularity. Widening a bare year to a day
// is not possible and returns p unchanged.
func (p Period) Truncate(g Granularity) Period {
	if g == GranularityYear {
		return Year(p.Year)
	}
	return p
}

// Next returns the following period at granularity g.
func (p Period) Next(g Granularity) Period {
	if g == GranularityDay {
		return FromTime(p.Time().AddDate(0, 0, 1))
	}
	return Year(p.Year + 1)
}

// Compare orders periods chronologically; a bare year sorts before any date
// in the same year.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year != o.Year:
		return cmpInt(p.Year, o.Year)
	case p.Month != o.Month:
		return cmpInt(int(p.Month), int(o.Month))
	default:
		return cmpInt(p.Day, o.Day)
	}
}

func (p Period) String() string {
	if !p.IsFullDate() {
		return strconv.Itoa(p.Year)
	}
	return p.Time().Format(dateLayout)
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
