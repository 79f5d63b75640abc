package metadata

import (
	"sort"

	"github.com/Masterminds/semver/v3"

	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
)

// SortVersions orders versions newest first. Names that parse as semantic
// versions sort by version; the rest sort after them by descending id.
func SortVersions(versions []regdata.Version) []regdata.Version {
	type versioned struct {
		v   *semver.Version
		rec regdata.Version
	}
	items := make([]versioned, 0, len(versions))
	for _, rec := range versions {
		v, err := semver.NewVersion(rec.Name)
		if err != nil {
			v = nil
		}
		items = append(items, versioned{v: v, rec: rec})
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		switch {
		case a.v != nil && b.v != nil:
			if a.v.Equal(b.v) {
				return a.rec.ID > b.rec.ID
			}
			return a.v.GreaterThan(b.v)
		case a.v != nil:
			return true
		case b.v != nil:
			return false
		default:
			return a.rec.ID > b.rec.ID
		}
	})

	out := make([]regdata.Version, len(items))
	for i, it := range items {
		out[i] = it.rec
	}
	return out
}

// Latest returns the newest version, or false when versions is empty.
func Latest(versions []regdata.Version) (regdata.Version, bool) {
	if len(versions) == 0 {
		return regdata.Version{}, false
	}
	return SortVersions(versions)[0], true
}
