// Package metadata holds the pre-fetched lookup data the query pipeline
// consults during validation: the jurisdiction parent/child relation, the
// subgroup support flags of each series and, optionally, the industry code
// table. An Index is immutable once built and safe for concurrent use.
package metadata

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
)

// Index is an in-memory view over jurisdiction, series and industry metadata.
type Index struct {
	jurisdictions map[int]regdata.Jurisdiction
	order         []int
	children      map[int][]int
	names         map[string]int

	series map[int]regdata.Series

	// industries maps level -> code -> service id.
	industries map[int]map[string]int
}

// Option configures an Index at build time.
type Option func(*Index) error

// WithIndustries registers the industry code table for one code level.
func WithIndustries(level int, industries []regdata.Industry) Option {
	return func(ix *Index) error {
		codes := make(map[string]int, len(industries))
		for _, ind := range industries {
			code := strings.TrimSpace(ind.Code)
			if code == "" {
				return fmt.Errorf("industry %d: code is required", ind.ID)
			}
			if _, dup := codes[code]; dup {
				return fmt.Errorf("industry code %q: duplicate at level %d", code, level)
			}
			codes[code] = ind.ID
		}
		ix.industries[level] = codes
		return nil
	}
}

// New builds an Index. Every sub-jurisdiction must reference a parent that
// is itself a country present in jurisdictions.
func New(jurisdictions []regdata.Jurisdiction, series []regdata.Series, opts ...Option) (*Index, error) {
	ix := &Index{
		jurisdictions: make(map[int]regdata.Jurisdiction, len(jurisdictions)),
		children:      make(map[int][]int),
		names:         make(map[string]int, len(jurisdictions)),
		series:        make(map[int]regdata.Series, len(series)),
		industries:    make(map[int]map[string]int),
	}

	for _, j := range jurisdictions {
		if _, dup := ix.jurisdictions[j.ID]; dup {
			return nil, fmt.Errorf("jurisdiction %d: duplicate id", j.ID)
		}
		ix.jurisdictions[j.ID] = j
		ix.order = append(ix.order, j.ID)
		if key := foldName(j.Name); key != "" {
			if _, taken := ix.names[key]; !taken {
				ix.names[key] = j.ID
			}
		}
	}

	for _, id := range ix.order {
		j := ix.jurisdictions[id]
		if j.ParentID == nil {
			continue
		}
		parent, ok := ix.jurisdictions[*j.ParentID]
		if !ok {
			return nil, fmt.Errorf("jurisdiction %d: unknown parent %d", j.ID, *j.ParentID)
		}
		if !parent.IsCountry() {
			return nil, fmt.Errorf("jurisdiction %d: parent %d is not a country", j.ID, parent.ID)
		}
		ix.children[parent.ID] = append(ix.children[parent.ID], j.ID)
	}

	for _, s := range series {
		if _, dup := ix.series[s.ID]; dup {
			return nil, fmt.Errorf("series %d: duplicate id", s.ID)
		}
		ix.series[s.ID] = s
	}

	for _, opt := range opts {
		if err := opt(ix); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// Extend returns a copy of ix with opts applied. ix itself is unchanged, so
// an Index in use by other goroutines can be extended with industry tables.
func (ix *Index) Extend(opts ...Option) (*Index, error) {
	next := *ix
	next.industries = make(map[int]map[string]int, len(ix.industries)+1)
	for level, codes := range ix.industries {
		next.industries[level] = codes
	}
	for _, opt := range opts {
		if err := opt(&next); err != nil {
			return nil, err
		}
	}
	return &next, nil
}

// Jurisdiction looks up a jurisdiction by id.
func (ix *Index) Jurisdiction(id int) (regdata.Jurisdiction, bool) {
	j, ok := ix.jurisdictions[id]
	return j, ok
}

// Jurisdictions returns every jurisdiction in insertion order.
func (ix *Index) Jurisdictions() []regdata.Jurisdiction {
	out := make([]regdata.Jurisdiction, 0, len(ix.order))
	for _, id := range ix.order {
		out = append(out, ix.jurisdictions[id])
	}
	return out
}

// Children returns the sub-jurisdictions of id in insertion order.
func (ix *Index) Children(id int) []int {
	return append([]int(nil), ix.children[id]...)
}

// Expand returns id followed by its children. ok is false when id is unknown.
func (ix *Index) Expand(id int) (ids []int, ok bool) {
	if _, known := ix.jurisdictions[id]; !known {
		return nil, false
	}
	return append([]int{id}, ix.children[id]...), true
}

// ResolveJurisdiction resolves a jurisdiction name, ignoring case, accents
// and surrounding whitespace. Numeric strings resolve as ids.
func (ix *Index) ResolveJurisdiction(name string) (int, bool) {
	if id, err := strconv.Atoi(strings.TrimSpace(name)); err == nil {
		_, ok := ix.jurisdictions[id]
		return id, ok
	}
	id, ok := ix.names[foldName(name)]
	return id, ok
}

// Series looks up a series by id.
func (ix *Index) Series(id int) (regdata.Series, bool) {
	s, ok := ix.series[id]
	return s, ok
}

// HasIndustries reports whether an industry code table was registered for level.
func (ix *Index) HasIndustries(level int) bool {
	_, ok := ix.industries[level]
	return ok
}

// Industry resolves an industry code at level to its service id.
func (ix *Index) Industry(code string, level int) (int, bool) {
	id, ok := ix.industries[level][strings.TrimSpace(code)]
	return id, ok
}

func foldName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strings.Join(strings.Fields(out), " ")
}
