package todos

import (
	"context"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"todoctl/internal/domain/todo"
)

// Snapshot is one published state of the list.
type Snapshot struct {
	Query  todo.Query
	Result todo.ListResult
	Err    error
}

// Browser fetches the list for every committed query in the background and
// publishes a snapshot only for the latest one. Results of superseded
// fetches are dropped.
type Browser struct {
	ctx     context.Context
	coord   *Coordinator
	view    *View
	publish func(Snapshot)
	log     *slog.Logger

	mu  sync.Mutex
	seq uint64
	// pubMu keeps snapshots in fetch order
	pubMu sync.Mutex
	wg    sync.WaitGroup
}

func NewBrowser(ctx context.Context, coord *Coordinator, initial todo.Query, delay time.Duration, publish func(Snapshot), log *slog.Logger) *Browser {
	b := &Browser{
		ctx:     ctx,
		coord:   coord,
		publish: publish,
		log:     log.With(slog.String("component", "browser")),
	}
	b.view = NewView(initial, delay, b.load)
	return b
}

func (b *Browser) View() *View {
	return b.view
}

// Start loads the initial query.
func (b *Browser) Start() {
	b.load(b.view.Query())
}

// Refresh re-reads the current query through the cache.
func (b *Browser) Refresh() {
	b.load(b.view.Query())
}

// Create adds a todo and clears search and status filter so it is visible.
func (b *Browser) Create(ctx context.Context, req todo.CreateRequest) (todo.Todo, error) {
	t, err := b.coord.Create(ctx, req)
	if err != nil {
		return todo.Todo{}, err
	}
	if !b.view.ResetFilters() {
		b.Refresh()
	}
	return t, nil
}

func (b *Browser) Update(ctx context.Context, id int, req todo.UpdateRequest) (todo.Todo, error) {
	t, err := b.coord.Update(ctx, id, req)
	if err != nil {
		return todo.Todo{}, err
	}
	b.Refresh()
	return t, nil
}

func (b *Browser) Delete(ctx context.Context, id int) error {
	if err := b.coord.Delete(ctx, id); err != nil {
		return err
	}
	b.Refresh()
	return nil
}

// Wait blocks until in-flight fetches finish.
func (b *Browser) Wait() {
	b.wg.Wait()
}

func (b *Browser) Close() {
	b.view.Close()
	b.wg.Wait()
}

func (b *Browser) load(q todo.Query) {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		res, err := b.coord.List(b.ctx, q)

		b.pubMu.Lock()
		defer b.pubMu.Unlock()

		b.mu.Lock()
		latest := seq == b.seq
		b.mu.Unlock()
		if !latest {
			b.log.Debug("dropping superseded list result", "query", q.Key())
			return
		}

		if b.publish != nil {
			b.publish(Snapshot{Query: q, Result: res, Err: err})
		}
	}()
}
