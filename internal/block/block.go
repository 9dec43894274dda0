// Package block is the row store: it caches materialized rows, loads them
// from local persistence, and falls back to asynchronous remote fetches for
// rows that only exist on a peer. At most one fetch is ever in flight per
// row, and a row access never blocks on the network.
package block

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/quiltdb/quilt/internal/broadcast"
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/fetch"
	"github.com/quiltdb/quilt/internal/metrics"
	"github.com/quiltdb/quilt/internal/row"
	"github.com/quiltdb/quilt/internal/storage"
)

// ErrRowPending is returned when a row is neither cached nor locally
// persisted and a remote fetch has been dispatched for it. Callers subscribe
// to Events to learn when the row arrives.
var ErrRowPending = errors.New("row is being fetched")

// Event announces rows that became available, either loaded from local
// persistence in a batch or populated from a remote fetch.
type Event struct {
	Rows []entity.RowDetail
}

type cacheEntry struct {
	mu  sync.Mutex
	row *row.DatabaseRow
	err error
}

func (e *cacheEntry) state() (*row.DatabaseRow, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.row, e.err
}

// Block owns the rows of one database.
type Block struct {
	databaseID string
	cache      sync.Map // rowID -> *cacheEntry
	store      *storage.Handle
	fetcher    *fetch.Controller
	seq        atomic.Uint32
	events     *broadcast.Broadcaster[Event]
	rowChanges *broadcast.Broadcaster[row.Change]
	logger     *slog.Logger
}

// New creates a block for the given database. fetcher may be nil when no
// remote peer is configured; missing rows then surface as not-found.
func New(databaseID string, store *storage.Handle, fetcher *fetch.Controller, logger *slog.Logger) *Block {
	return &Block{
		databaseID: databaseID,
		store:      store,
		fetcher:    fetcher,
		events:     broadcast.New[Event](16),
		rowChanges: broadcast.New[row.Change](64),
		logger:     logger.With("database_id", databaseID),
	}
}

// Subscribe returns a channel of row-availability events.
func (b *Block) Subscribe() (<-chan Event, func()) {
	return b.events.Subscribe()
}

// SubscribeRowChanges returns a channel of typed per-row mutations.
func (b *Block) SubscribeRowChanges() (<-chan row.Change, func()) {
	return b.rowChanges.Subscribe()
}

// CreateRow validates the params, persists a fresh row document, and caches
// it. The returned order is what views insert.
func (b *Block) CreateRow(params entity.CreateRowParams) (entity.RowOrder, error) {
	params, err := params.Validate()
	if err != nil {
		return entity.RowOrder{}, err
	}
	dr, err := row.Create(params.Row(), b.store, b.rowChanges, b.logger)
	if err != nil {
		return entity.RowOrder{}, err
	}
	b.cache.Store(params.ID, &cacheEntry{row: dr})
	return entity.RowOrder{ID: params.ID, Height: params.Height}, nil
}

// CreateRows creates a batch of rows. The first invalid or unpersistable row
// aborts the batch; rows created before it remain.
func (b *Block) CreateRows(params []entity.CreateRowParams) ([]entity.RowOrder, error) {
	orders := make([]entity.RowOrder, 0, len(params))
	for _, p := range params {
		order, err := b.CreateRow(p)
		if err != nil {
			return orders, fmt.Errorf("create row %q: %w", p.ID, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// GetRow returns the materialized row. A cached or locally persisted row is
// returned directly; otherwise a fetch is dispatched and ErrRowPending is
// returned without blocking.
func (b *Block) GetRow(rowID string) (entity.Row, error) {
	dr, err := b.resolve(rowID)
	if err != nil {
		return entity.Row{}, err
	}
	r, ok := dr.Row()
	if !ok {
		return entity.Row{}, storage.ErrDocNotFound
	}
	return r, nil
}

// GetOrInitRow is GetRow that degrades to an empty placeholder instead of
// ErrRowPending, for callers that render immediately.
func (b *Block) GetOrInitRow(rowID string) (entity.Row, error) {
	r, err := b.GetRow(rowID)
	if errors.Is(err, ErrRowPending) {
		return entity.EmptyRow(rowID, b.databaseID), nil
	}
	return r, err
}

// GetRowMeta returns the row's metadata. Pending rows yield only the derived
// document id.
func (b *Block) GetRowMeta(rowID string) (entity.RowMeta, error) {
	dr, err := b.resolve(rowID)
	if errors.Is(err, ErrRowPending) {
		return entity.RowMeta{DocumentID: entity.RowMetaID(rowID, entity.MetaDocumentID)}, nil
	}
	if err != nil {
		return entity.RowMeta{}, err
	}
	return dr.Meta(), nil
}

// GetCell returns the cell entered for fieldID on the given row. A pending
// or absent cell yields a nil cell, not an error.
func (b *Block) GetCell(rowID, fieldID string) (entity.RowCell, error) {
	dr, err := b.resolve(rowID)
	if errors.Is(err, ErrRowPending) {
		return entity.RowCell{RowID: rowID}, nil
	}
	if err != nil {
		return entity.RowCell{}, err
	}
	cell, ok := dr.Cell(fieldID)
	if !ok {
		return entity.RowCell{RowID: rowID}, nil
	}
	return entity.RowCell{RowID: rowID, Cell: cell}, nil
}

// UpdateRow applies fn to the row inside one write transaction. The row must
// be resolvable; pending rows return ErrRowPending.
func (b *Block) UpdateRow(rowID string, fn func(*row.Update)) error {
	dr, err := b.resolve(rowID)
	if err != nil {
		return err
	}
	return dr.ApplyUpdate(fn)
}

// UpdateRowMeta applies fn to the row's metadata sub-document.
func (b *Block) UpdateRowMeta(rowID string, fn func(*row.MetaUpdate)) error {
	dr, err := b.resolve(rowID)
	if err != nil {
		return err
	}
	return dr.ApplyMetaUpdate(fn)
}

// DeleteRow evicts the row from the cache and removes its persisted
// document. Deleting an unknown row is a no-op.
func (b *Block) DeleteRow(rowID string) error {
	v, loaded := b.cache.LoadAndDelete(rowID)
	if loaded {
		entry := v.(*cacheEntry)
		if dr, _ := entry.state(); dr != nil {
			dr.Close()
			return dr.Delete()
		}
	}
	store, err := b.store.Get()
	if err != nil {
		return nil
	}
	return store.Delete(context.Background(), b.databaseID, rowID)
}

// BatchLoadRows warms the cache for the given rows. Locally available rows
// are loaded synchronously and announced as one event; the rest are fetched
// in a single batch task whose results are announced as they arrive.
func (b *Block) BatchLoadRows(rowIDs []string) {
	var local []entity.RowDetail
	var missing []string
	for _, rowID := range rowIDs {
		dr, err := b.lookupOrLoad(rowID)
		switch {
		case err == nil:
			if detail, ok := dr.Detail(); ok {
				local = append(local, detail)
			}
		case errors.Is(err, storage.ErrDocNotFound):
			missing = append(missing, rowID)
		default:
			b.logger.Error("batch load failed", "row_id", rowID, "error", err)
		}
	}
	if len(local) > 0 {
		b.events.Send(Event{Rows: local})
	}
	if len(missing) == 0 || b.fetcher == nil {
		return
	}
	pending := b.markPending(missing)
	if len(pending) > 0 {
		b.dispatch(pending)
	}
}

// RowsFromOrders materializes the rows named by a view's order list, in
// order. Rows not yet available come back as empty placeholders.
func (b *Block) RowsFromOrders(orders []entity.RowOrder) []entity.Row {
	rows := make([]entity.Row, 0, len(orders))
	for _, order := range orders {
		r, err := b.GetOrInitRow(order.ID)
		if err != nil {
			r = entity.EmptyRow(order.ID, b.databaseID)
		}
		rows = append(rows, r)
	}
	return rows
}

// ContainsRow reports whether the row is cached or locally persisted.
func (b *Block) ContainsRow(rowID string) bool {
	if _, ok := b.cache.Load(rowID); ok {
		return true
	}
	store, err := b.store.Get()
	if err != nil {
		return false
	}
	exists, err := store.Exists(context.Background(), b.databaseID, rowID)
	return err == nil && exists
}

// Close cancels row subscriptions and closes the event streams. It does not
// delete any persisted data.
func (b *Block) Close() {
	b.cache.Range(func(_, v any) bool {
		if dr, _ := v.(*cacheEntry).state(); dr != nil {
			dr.Close()
		}
		return true
	})
	b.events.Close()
	b.rowChanges.Close()
}

// resolve returns the cached row, loading it from local persistence on a
// miss or dispatching a fetch when it is not persisted either.
func (b *Block) resolve(rowID string) (*row.DatabaseRow, error) {
	dr, err := b.lookupOrLoad(rowID)
	if err == nil || !errors.Is(err, storage.ErrDocNotFound) {
		return dr, err
	}
	if b.fetcher == nil {
		return nil, storage.ErrDocNotFound
	}
	pending := b.markPending([]string{rowID})
	if len(pending) > 0 {
		b.dispatch(pending)
	}
	return nil, ErrRowPending
}

// lookupOrLoad checks the cache, then local persistence. It never touches
// the network.
func (b *Block) lookupOrLoad(rowID string) (*row.DatabaseRow, error) {
	if v, ok := b.cache.Load(rowID); ok {
		metrics.RowCacheHits.Inc()
		entry := v.(*cacheEntry)
		dr, err := entry.state()
		if err != nil {
			return nil, err
		}
		return dr, nil
	}
	metrics.RowCacheMisses.Inc()

	store, err := b.store.Get()
	if err != nil {
		return nil, err
	}
	data, err := store.Load(context.Background(), b.databaseID, rowID)
	if err != nil {
		return nil, err
	}
	dr, err := row.FromBytes(b.databaseID, rowID, data, b.store, b.rowChanges, b.logger)
	if err != nil {
		return nil, err
	}
	entry := &cacheEntry{row: dr}
	if prev, raced := b.cache.LoadOrStore(rowID, entry); raced {
		dr.Close()
		pdr, perr := prev.(*cacheEntry).state()
		return pdr, perr
	}
	return dr, nil
}

// markPending installs pending entries and returns the row ids this caller
// won the dispatch for. Rows already pending are skipped, so each missing
// row has at most one fetch in flight.
func (b *Block) markPending(rowIDs []string) []string {
	var won []string
	for _, rowID := range rowIDs {
		if _, raced := b.cache.LoadOrStore(rowID, &cacheEntry{err: ErrRowPending}); !raced {
			won = append(won, rowID)
		}
	}
	return won
}

// dispatch submits one fetch task for the rows and applies its results in
// arrival order. The sequence number is allocated per dispatch and carried
// for tracing only.
func (b *Block) dispatch(rowIDs []string) {
	seq := b.seq.Add(1)
	results := make(chan fetch.Result, len(rowIDs))
	task := fetch.Task{
		DatabaseID: b.databaseID,
		RowIDs:     rowIDs,
		Seq:        seq,
		Results:    results,
	}
	metrics.FetchDispatches.Inc()
	if !b.fetcher.Submit(task) {
		for _, rowID := range rowIDs {
			b.cache.Delete(rowID)
		}
		return
	}
	go func() {
		delivered := make(map[string]bool, len(rowIDs))
		for res := range results {
			delivered[res.RowID] = true
			b.applyFetched(res)
		}
		// Rows the peer did not return stay absent; clear their pending
		// entries so a later access can retry.
		for _, rowID := range rowIDs {
			if !delivered[rowID] {
				b.clearPending(rowID)
			}
		}
	}()
}

// applyFetched resolves one fetch result: errors clear the pending entry so
// the next access retries, successes persist the document locally and
// announce the row.
func (b *Block) applyFetched(res fetch.Result) {
	if res.Err != nil {
		metrics.FetchErrors.Inc()
		b.clearPending(res.RowID)
		return
	}
	dr := b.wrapFetched(res.RowID, res.Doc)
	v, ok := b.cache.Load(res.RowID)
	if !ok {
		// Deleted while in flight. Drop the result.
		dr.Close()
		return
	}
	entry := v.(*cacheEntry)
	entry.mu.Lock()
	if entry.err == nil {
		// Already resolved by a concurrent local load. Last arrival wins.
		if entry.row != nil {
			entry.row.Close()
		}
	}
	entry.row = dr
	entry.err = nil
	entry.mu.Unlock()

	if err := dr.Flush(); err != nil {
		b.logger.Error("persisting fetched row failed", "row_id", res.RowID, "error", err)
	}
	metrics.FetchedRows.Inc()
	if detail, ok := dr.Detail(); ok {
		b.events.Send(Event{Rows: []entity.RowDetail{detail}})
	}
}

func (b *Block) wrapFetched(rowID string, d *doc.Doc) *row.DatabaseRow {
	return row.New(b.databaseID, rowID, d, b.store, b.rowChanges, b.logger)
}

func (b *Block) clearPending(rowID string) {
	v, ok := b.cache.Load(rowID)
	if !ok {
		return
	}
	entry := v.(*cacheEntry)
	entry.mu.Lock()
	pending := entry.err != nil
	entry.mu.Unlock()
	if pending {
		b.cache.Delete(rowID)
	}
}
