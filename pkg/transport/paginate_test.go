package transport

import (
	"context"
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/QuantGov/regcensus-api-go/pkg/request"
)

// pageFetcher serves pages of the given sizes; the body is the size itself.
func pageFetcher(sizes []int, seen *[]string) Fetcher {
	return FetcherFunc(func(_ context.Context, d request.Descriptor) ([]byte, error) {
		page := d.Params.Get(request.ParamPage)
		*seen = append(*seen, page)
		idx := 0
		if page != "" {
			n, err := strconv.Atoi(page)
			if err != nil {
				return nil, err
			}
			idx = n - 1
		}
		if idx >= len(sizes) {
			return []byte("0"), nil
		}
		return []byte(strconv.Itoa(sizes[idx])), nil
	})
}

func countBody(body []byte) (int, error) { return strconv.Atoi(string(body)) }

func TestPaginateFollowsFullPages(t *testing.T) {
	var seen []string
	pages, err := Paginate(context.Background(), pageFetcher([]int{3, 3, 1}, &seen), descriptor("/values"), 3, countBody)
	require.NoError(t, err)

	require.Len(t, pages, 3)
	assert.Equal(t, []string{"", "2", "3"}, seen)
	assert.Equal(t, "1", string(pages[2]))
}

func TestPaginateStopsOnShortFirstPage(t *testing.T) {
	var seen []string
	pages, err := Paginate(context.Background(), pageFetcher([]int{2}, &seen), descriptor("/values"), 3, countBody)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, []string{""}, seen)
}

func TestPaginateExactMultipleEndsWithEmptyPage(t *testing.T) {
	var seen []string
	pages, err := Paginate(context.Background(), pageFetcher([]int{3, 3}, &seen), descriptor("/values"), 3, countBody)
	require.NoError(t, err)
	assert.Len(t, pages, 3)
	assert.Equal(t, "0", string(pages[2]))
}

func TestPaginateRespectsExplicitPage(t *testing.T) {
	var seen []string
	pages, err := Paginate(context.Background(), pageFetcher([]int{3, 3, 3}, &seen), descriptor("/values", "page", "2"), 3, countBody)
	require.NoError(t, err)
	assert.Len(t, pages, 1)
	assert.Equal(t, []string{"2"}, seen)
}

func TestPaginateDoesNotMutateDescriptor(t *testing.T) {
	var seen []string
	d := descriptor("/values")
	_, err := Paginate(context.Background(), pageFetcher([]int{3, 1}, &seen), d, 3, countBody)
	require.NoError(t, err)
	assert.Empty(t, d.Params.Get(request.ParamPage))
}

func TestPaginatePropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	f := FetcherFunc(func(context.Context, request.Descriptor) ([]byte, error) { return nil, boom })
	_, err := Paginate(context.Background(), f, descriptor("/values"), 3, countBody)
	require.ErrorIs(t, err, boom)

	var seen []string
	_, err = Paginate(context.Background(), pageFetcher([]int{3}, &seen), descriptor("/values"), 3,
		func([]byte) (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)
}
