package todos

import (
	"sync"
	"time"

	"todoctl/internal/app/client/debounce"
	"todoctl/internal/domain/todo"
)

// View holds the committed list query and the transient search input.
// Search text is committed after a quiet period; every other change commits
// at once. Changes of filter, sort or page size go back to the first page.
type View struct {
	debounce *debounce.Debouncer
	onCommit func(todo.Query)

	mu    sync.Mutex
	query todo.Query
	input string
}

// NewView starts from initial. onCommit is called, outside any lock, with
// each new committed query; it may be nil.
func NewView(initial todo.Query, delay time.Duration, onCommit func(todo.Query)) *View {
	return &View{
		debounce: debounce.New(delay),
		onCommit: onCommit,
		query:    initial,
		input:    initial.Search,
	}
}

func (v *View) Query() todo.Query {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

// Input is the search text as typed, possibly not yet committed.
func (v *View) Input() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

// TypeSearch records keystrokes; only the last value within the quiet period is committed.
func (v *View) TypeSearch(s string) {
	v.mu.Lock()
	v.input = s
	v.mu.Unlock()

	v.debounce.Trigger(func() {
		v.commit(func(q todo.Query) todo.Query { return q.WithSearch(s) })
	})
}

// FlushSearch commits pending search input immediately.
func (v *View) FlushSearch() bool {
	return v.debounce.Flush()
}

func (v *View) SetStatus(completed *bool) bool {
	return v.commit(func(q todo.Query) todo.Query { return q.WithCompleted(completed) })
}

func (v *View) SetSort(f todo.SortField) bool {
	return v.commit(func(q todo.Query) todo.Query { return q.WithSort(f) })
}

func (v *View) SetOrder(o todo.SortOrder) bool {
	return v.commit(func(q todo.Query) todo.Query { return q.WithOrder(o) })
}

func (v *View) SetLimit(limit int) bool {
	return v.commit(func(q todo.Query) todo.Query { return q.WithLimit(limit) })
}

func (v *View) SetSkip(skip int) bool {
	return v.commit(func(q todo.Query) todo.Query { return q.WithSkip(skip) })
}

func (v *View) NextPage(total int) bool {
	return v.commit(func(q todo.Query) todo.Query { return q.Next(total) })
}

func (v *View) PrevPage() bool {
	return v.commit(func(q todo.Query) todo.Query { return q.Prev() })
}

// ResetFilters drops pending search input, the search term, the status
// filter and the offset. Sort and page size are kept.
func (v *View) ResetFilters() bool {
	v.debounce.Stop()

	v.mu.Lock()
	v.input = ""
	v.mu.Unlock()

	return v.commit(func(q todo.Query) todo.Query {
		q.Search = ""
		q.Completed = nil
		q.Skip = 0
		return q
	})
}

// Close cancels pending search input.
func (v *View) Close() {
	v.debounce.Stop()
}

// commit applies fn and reports whether the committed query changed.
func (v *View) commit(fn func(todo.Query) todo.Query) bool {
	v.mu.Lock()
	next := fn(v.query)
	if next.Equal(v.query) {
		v.mu.Unlock()
		return false
	}
	v.query = next
	v.mu.Unlock()

	if v.onCommit != nil {
		v.onCommit(next)
	}
	return true
}
