// Package fetch dispatches asynchronous remote-peer loads of row documents.
// A small pool of workers executes submitted tasks and streams results back
// through per-task bounded channels.
package fetch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quiltdb/quilt/internal/circuitbreaker"
	"github.com/quiltdb/quilt/internal/doc"
)

// Fetcher is the remote peer client. Implementations are provided by the
// sync layer, which is outside this module.
type Fetcher interface {
	// FetchRow loads one row document from a remote peer.
	FetchRow(ctx context.Context, databaseID, rowID string) (*doc.Doc, error)

	// FetchRows loads a batch of row documents. Rows the peer does not have
	// are simply absent from the result map.
	FetchRows(ctx context.Context, databaseID string, rowIDs []string) (map[string]*doc.Doc, error)
}

// Result is one row's outcome, delivered through a task's result channel.
type Result struct {
	RowID string
	Doc   *doc.Doc
	Err   error
}

// Task asks the controller to fetch one or more rows of a database. Seq is
// the submitting block's sequence number for the dispatch; it is carried for
// tracing but results are applied in arrival order regardless of it.
type Task struct {
	DatabaseID string
	RowIDs     []string
	Seq        uint32
	Results    chan<- Result
}

// Controller owns the fetch worker pool.
type Controller struct {
	fetcher Fetcher
	tasks   chan Task
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// NewController creates a controller with the given worker count and task
// queue size. Call Start before submitting tasks.
func NewController(fetcher Fetcher, workers, queueSize int, breaker *circuitbreaker.Breaker, logger *slog.Logger) *Controller {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	c := &Controller{
		fetcher: fetcher,
		tasks:   make(chan Task, queueSize),
		breaker: breaker,
		logger:  logger,
	}
	for range workers {
		c.wg.Add(1)
		go c.worker()
	}
	return c
}

// Submit enqueues a task. Returns false when the queue is full or the
// controller is shut down; the task's result channel is closed either way
// once the task is finished or rejected.
func (c *Controller) Submit(t Task) bool {
	select {
	case c.tasks <- t:
		return true
	default:
		c.logger.Warn("fetch queue full, rejecting task", "database_id", t.DatabaseID, "rows", len(t.RowIDs), "seq", t.Seq)
		close(t.Results)
		return false
	}
}

// Shutdown stops accepting tasks and waits for in-flight tasks to finish.
func (c *Controller) Shutdown() {
	close(c.tasks)
	c.wg.Wait()
}

func (c *Controller) worker() {
	defer c.wg.Done()
	for t := range c.tasks {
		c.run(t)
	}
}

func (c *Controller) run(t Task) {
	defer close(t.Results)
	ctx := context.Background()

	if len(t.RowIDs) == 1 {
		rowID := t.RowIDs[0]
		var d *doc.Doc
		err := c.breaker.Execute(func() error {
			var ferr error
			d, ferr = c.fetcher.FetchRow(ctx, t.DatabaseID, rowID)
			return ferr
		})
		if err != nil {
			c.logger.Error("row fetch failed", "database_id", t.DatabaseID, "row_id", rowID, "seq", t.Seq, "error", err)
		}
		t.Results <- Result{RowID: rowID, Doc: d, Err: err}
		return
	}

	var docs map[string]*doc.Doc
	err := c.breaker.Execute(func() error {
		var ferr error
		docs, ferr = c.fetcher.FetchRows(ctx, t.DatabaseID, t.RowIDs)
		return ferr
	})
	if err != nil {
		c.logger.Error("batch row fetch failed", "database_id", t.DatabaseID, "rows", len(t.RowIDs), "seq", t.Seq, "error", err)
		for _, rowID := range t.RowIDs {
			t.Results <- Result{RowID: rowID, Err: err}
		}
		return
	}
	for _, rowID := range t.RowIDs {
		d, ok := docs[rowID]
		if !ok {
			continue
		}
		t.Results <- Result{RowID: rowID, Doc: d}
	}
}
