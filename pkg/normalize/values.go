package normalize

import (
	"github.com/QuantGov/regcensus-api-go/pkg/regdata"
	"github.com/QuantGov/regcensus-api-go/pkg/regerr"
)

// Values holds one or a sequence of T. The zero value means "not supplied".
type Values[T any] struct {
	items []T
}

// One wraps a single value.
func One[T any](v T) Values[T] { return Values[T]{items: []T{v}} }

// Many wraps a sequence of values in the given order.
func Many[T any](vs ...T) Values[T] {
	return Values[T]{items: append([]T(nil), vs...)}
}

// Len returns the number of values.
func (v Values[T]) Len() int { return len(v.items) }

// IsZero reports whether no value was supplied.
func (v Values[T]) IsZero() bool { return len(v.items) == 0 }

// Slice returns a copy of the values.
func (v Values[T]) Slice() []T { return append([]T(nil), v.items...) }

// Years is shorthand for a sequence of bare-year periods.
func Years(ys ...int) Values[regdata.Period] {
	out := make([]regdata.Period, len(ys))
	for i, y := range ys {
		out[i] = regdata.Year(y)
	}
	return Values[regdata.Period]{items: out}
}

// Dates parses each string as YYYY or YYYY-MM-DD. A malformed string is an
// InvalidDateRange validation error.
func Dates(ss ...string) (Values[regdata.Period], error) {
	out := make([]regdata.Period, len(ss))
	for i, s := range ss {
		p, err := regdata.ParsePeriod(s)
		if err != nil {
			return Values[regdata.Period]{}, regerr.Validation(regerr.KindInvalidDateRange, "date", "%q: want YYYY or YYYY-MM-DD", s)
		}
		out[i] = p
	}
	return Values[regdata.Period]{items: out}, nil
}

// MustDates is Dates for literals known to be valid.
func MustDates(ss ...string) Values[regdata.Period] {
	v, err := Dates(ss...)
	if err != nil {
		panic(err)
	}
	return v
}

func dedupe[T comparable](in []T) []T {
	seen := make(map[T]struct{}, len(in))
	out := make([]T, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
