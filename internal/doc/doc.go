// Package doc provides the transactional map/array document that backs rows,
// views, fields, and metas. A document supports read snapshots, write
// transactions that commit as one atomic batch, mutation-path observation,
// and byte-level encode/decode for persistence.
//
// Values stored in a document are one of: nil, bool, int64, float64, string,
// *Map, or *Array. Plain map[string]any and []any values are deep-converted
// on insertion.
package doc

import (
	"sync"
)

// ChangeKind describes one observed mutation.
type ChangeKind int

const (
	EntryInserted ChangeKind = iota
	EntryUpdated
	EntryRemoved
	ItemInserted
	ItemRemoved
)

// Event is one mutation observed against a document, addressed by the path
// of the container it occurred in.
type Event struct {
	Path  []string
	Kind  ChangeKind
	Key   string // set for map entry changes
	Index int    // set for array item changes
	Value any
}

// Doc is a transactional document. All access goes through View or Update;
// mutations outside a writable transaction panic.
type Doc struct {
	mu   sync.RWMutex
	root *Map

	subMu   sync.Mutex
	subs    map[int]func([]Event)
	nextSub int
}

// Tx is a transaction handle. Mutating methods require a writable Tx.
type Tx struct {
	doc      *Doc
	writable bool
	events   []Event
}

// New creates an empty document whose root is a map.
func New() *Doc {
	d := &Doc{subs: make(map[int]func([]Event))}
	d.root = &Map{doc: d, entries: make(map[string]any)}
	return d
}

// Root returns the document's root map.
func (d *Doc) Root() *Map { return d.root }

// View runs fn under a read-only snapshot of the document.
func (d *Doc) View(fn func(tx *Tx)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(&Tx{doc: d})
}

// Update runs fn under an exclusive write transaction. All mutations made by
// fn are observed by subscribers as a single event batch after the
// transaction commits.
func (d *Doc) Update(fn func(tx *Tx)) {
	d.mu.Lock()
	tx := &Tx{doc: d, writable: true}
	fn(tx)
	events := tx.events
	d.mu.Unlock()

	if len(events) == 0 {
		return
	}
	d.subMu.Lock()
	subs := make([]func([]Event), 0, len(d.subs))
	for _, fn := range d.subs {
		subs = append(subs, fn)
	}
	d.subMu.Unlock()
	for _, fn := range subs {
		fn(events)
	}
}

// Subscribe registers fn to receive the event batch of every committed write
// transaction. The returned cancel function removes the subscription.
func (d *Doc) Subscribe(fn func([]Event)) (cancel func()) {
	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = fn
	d.subMu.Unlock()
	return func() {
		d.subMu.Lock()
		delete(d.subs, id)
		d.subMu.Unlock()
	}
}

func (tx *Tx) record(ev Event) {
	tx.events = append(tx.events, ev)
}

func (tx *Tx) mustWrite() {
	if !tx.writable {
		panic("doc: mutation outside a writable transaction")
	}
}

// convert deep-converts plain Go values into document values rooted at path.
func convert(d *Doc, path []string, v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := &Map{doc: d, path: path, entries: make(map[string]any, len(val))}
		for k, item := range val {
			m.entries[k] = convert(d, childPath(path, k), item)
		}
		return m
	case []any:
		a := &Array{doc: d, path: path}
		for _, item := range val {
			a.items = append(a.items, convert(d, path, item))
		}
		return a
	case int:
		return int64(val)
	case int32:
		return int64(val)
	default:
		return v
	}
}

func childPath(path []string, key string) []string {
	p := make([]string, len(path)+1)
	copy(p, path)
	p[len(path)] = key
	return p
}
