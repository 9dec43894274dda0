package view

import (
	"sort"

	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
)

// Ordered is anything held in an ordered view list and addressed by id.
type Ordered interface {
	OrderID() string
}

// OrderArray is a typed wrapper over a document array of ordered stand-ins.
// It resolves abstract positions to indexes at mutation time, so concurrent
// edits never leave a stale index behind.
type OrderArray[T Ordered] struct {
	arr    *doc.Array
	encode func(T) map[string]any
	decode func(*doc.Tx, any) (T, bool)
}

func newOrderArray[T Ordered](arr *doc.Array, encode func(T) map[string]any, decode func(*doc.Tx, any) (T, bool)) *OrderArray[T] {
	return &OrderArray[T]{arr: arr, encode: encode, decode: decode}
}

// All returns the list front to back. Undecodable items are skipped.
func (o *OrderArray[T]) All(tx *doc.Tx) []T {
	out := make([]T, 0, o.arr.Len(tx))
	for i := 0; i < o.arr.Len(tx); i++ {
		if item, ok := o.decode(tx, o.arr.Get(tx, i)); ok {
			out = append(out, item)
		}
	}
	return out
}

// Len returns the number of items.
func (o *OrderArray[T]) Len(tx *doc.Tx) int { return o.arr.Len(tx) }

// IndexOf returns the position of id, or -1.
func (o *OrderArray[T]) IndexOf(tx *doc.Tx, id string) int {
	for i := 0; i < o.arr.Len(tx); i++ {
		if item, ok := o.decode(tx, o.arr.Get(tx, i)); ok && item.OrderID() == id {
			return i
		}
	}
	return -1
}

// Get returns the item with the given id.
func (o *OrderArray[T]) Get(tx *doc.Tx, id string) (T, bool) {
	var zero T
	i := o.IndexOf(tx, id)
	if i < 0 {
		return zero, false
	}
	return o.decode(tx, o.arr.Get(tx, i))
}

// Push appends the item at the end.
func (o *OrderArray[T]) Push(tx *doc.Tx, item T) {
	o.arr.Push(tx, o.encode(item))
}

// InsertAt resolves pos against the current order and inserts the item
// there, returning the index it landed at. A Before/After reference to an
// absent id falls back to append-at-end.
func (o *OrderArray[T]) InsertAt(tx *doc.Tx, item T, pos entity.Position) int {
	i := o.resolve(tx, pos)
	o.arr.Insert(tx, i, o.encode(item))
	return i
}

// RemoveByID deletes the item with the given id, returning its former index.
func (o *OrderArray[T]) RemoveByID(tx *doc.Tx, id string) (int, bool) {
	i := o.IndexOf(tx, id)
	if i < 0 {
		return -1, false
	}
	o.arr.Remove(tx, i)
	return i, true
}

// RemoveIDs deletes every listed id and returns their indexes as they stood
// before any removal, ascending. Unknown ids are skipped. Removal runs from
// the highest index down so earlier indexes stay valid.
func (o *OrderArray[T]) RemoveIDs(tx *doc.Tx, ids []string) []int {
	indexes := make([]int, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if i := o.IndexOf(tx, id); i >= 0 && !seen[i] {
			seen[i] = true
			indexes = append(indexes, i)
		}
	}
	sort.Ints(indexes)
	for k := len(indexes) - 1; k >= 0; k-- {
		o.arr.Remove(tx, indexes[k])
	}
	return indexes
}

// Move removes the item with the given id and reinserts it at pos. Both
// returned indexes are relative to the order as it stood before the move.
// The item keeps its payload across the move.
func (o *OrderArray[T]) Move(tx *doc.Tx, id string, pos entity.Position) (from, to int, ok bool) {
	from = o.IndexOf(tx, id)
	if from < 0 {
		return -1, -1, false
	}
	to = o.resolve(tx, pos)
	item := o.arr.Remove(tx, from)
	insertAt := to
	if from < to {
		insertAt = to - 1
	}
	o.arr.Insert(tx, insertAt, item)
	return from, to, true
}

// ReplaceAll clears the list and pushes the given items in order.
func (o *OrderArray[T]) ReplaceAll(tx *doc.Tx, items []T) {
	o.arr.Clear(tx)
	for _, item := range items {
		o.Push(tx, item)
	}
}

// resolve maps an abstract position to a concrete insertion index against
// the current order.
func (o *OrderArray[T]) resolve(tx *doc.Tx, pos entity.Position) int {
	switch pos.Kind {
	case entity.PositionStart:
		return 0
	case entity.PositionBefore:
		if i := o.IndexOf(tx, pos.ObjectID); i >= 0 {
			return i
		}
		return o.arr.Len(tx)
	case entity.PositionAfter:
		if i := o.IndexOf(tx, pos.ObjectID); i >= 0 {
			return i + 1
		}
		return o.arr.Len(tx)
	default:
		return o.arr.Len(tx)
	}
}

func encodeRowOrder(r entity.RowOrder) map[string]any {
	return map[string]any{"id": r.ID, "height": r.Height}
}

func decodeRowOrder(tx *doc.Tx, v any) (entity.RowOrder, bool) {
	m, ok := v.(*doc.Map)
	if !ok {
		return entity.RowOrder{}, false
	}
	id, ok := m.GetString(tx, "id")
	if !ok {
		return entity.RowOrder{}, false
	}
	out := entity.RowOrder{ID: id, Height: entity.DefaultRowHeight}
	if h, found := m.GetInt(tx, "height"); found {
		out.Height = h
	}
	return out, true
}

func encodeFieldOrder(f entity.FieldOrder) map[string]any {
	return map[string]any{"id": f.ID}
}

func decodeFieldOrder(tx *doc.Tx, v any) (entity.FieldOrder, bool) {
	m, ok := v.(*doc.Map)
	if !ok {
		return entity.FieldOrder{}, false
	}
	id, ok := m.GetString(tx, "id")
	if !ok {
		return entity.FieldOrder{}, false
	}
	return entity.FieldOrder{ID: id}, true
}
