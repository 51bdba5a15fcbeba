package todo

import (
	"net/url"
	"strconv"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Query drives one list fetch. Optional fields are expressed natively:
// Completed == nil means no completion filter, empty strings mean server default.
type Query struct {
	Search    string
	Completed *bool
	SortBy    SortField
	SortOrder SortOrder
	Skip      int
	Limit     int
}

// DefaultQuery is the first page, newest first, unfiltered.
func DefaultQuery() Query {
	return Query{
		SortBy:    SortByCreatedAt,
		SortOrder: SortDesc,
		Limit:     DefaultLimit,
	}
}

// Validate checks the query before it is sent.
func (q Query) Validate() error {
	if err := q.SortBy.Validate(); err != nil {
		return err
	}
	if err := q.SortOrder.Validate(); err != nil {
		return err
	}
	if q.Skip < 0 {
		return &ValidationError{Field: "skip", Err: errNegative}
	}
	if q.Limit < 0 || q.Limit > MaxLimit {
		return &ValidationError{Field: "limit", Err: errLimitRange}
	}
	return nil
}

// FilterValues encodes search, completion filter and sort. Absent fields are omitted.
func (q Query) FilterValues() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Completed != nil {
		v.Set("completed", strconv.FormatBool(*q.Completed))
	}
	if q.SortBy != "" {
		v.Set("sort_by", string(q.SortBy))
	}
	if q.SortOrder != "" {
		v.Set("sort_order", string(q.SortOrder))
	}
	return v
}

// Values encodes the full list request including pagination.
func (q Query) Values() url.Values {
	v := q.FilterValues()
	v.Set("skip", strconv.Itoa(q.Skip))
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

// Key identifies the query for caching; equal queries give equal keys.
func (q Query) Key() string {
	return q.Values().Encode()
}

// Equal compares queries by their wire form.
func (q Query) Equal(other Query) bool {
	return q.Key() == other.Key()
}

// WithSearch returns a copy with a new search term on the first page.
func (q Query) WithSearch(s string) Query {
	q.Search = s
	q.Skip = 0
	return q
}

// WithCompleted returns a copy with a new completion filter on the first page.
func (q Query) WithCompleted(c *bool) Query {
	if c != nil {
		c = Bool(*c)
	}
	q.Completed = c
	q.Skip = 0
	return q
}

func (q Query) WithSort(f SortField) Query {
	q.SortBy = f
	q.Skip = 0
	return q
}

func (q Query) WithOrder(o SortOrder) Query {
	q.SortOrder = o
	q.Skip = 0
	return q
}

func (q Query) WithLimit(limit int) Query {
	q.Limit = limit
	q.Skip = 0
	return q
}

// WithSkip changes only the page offset.
func (q Query) WithSkip(skip int) Query {
	if skip < 0 {
		skip = 0
	}
	q.Skip = skip
	return q
}

func (q Query) limitOrDefault() int {
	if q.Limit > 0 {
		return q.Limit
	}
	return DefaultLimit
}

// Next moves one page forward; the offset never passes total.
func (q Query) Next(total int) Query {
	next := q.Skip + q.limitOrDefault()
	if next >= total {
		return q
	}
	return q.WithSkip(next)
}

// Prev moves one page back, stopping at the first page.
func (q Query) Prev() Query {
	return q.WithSkip(q.Skip - q.limitOrDefault())
}
