package view

import (
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
)

const recordIDKey = "id"

// RecordArray is a typed wrapper over a document array of id-keyed records.
// Filters, sorts, group settings, and calculations are all stored this way:
// ordered, addressed by their "id" key, free-form otherwise.
type RecordArray struct {
	arr *doc.Array
}

func newRecordArray(arr *doc.Array) *RecordArray {
	return &RecordArray{arr: arr}
}

// All returns every record front to back as plain Go maps.
func (r *RecordArray) All(tx *doc.Tx) []entity.RecordMap {
	out := make([]entity.RecordMap, 0, r.arr.Len(tx))
	for i := 0; i < r.arr.Len(tx); i++ {
		if m, ok := r.arr.Get(tx, i).(*doc.Map); ok {
			out = append(out, m.ToGo(tx))
		}
	}
	return out
}

// IndexOf returns the position of the record with the given id, or -1.
func (r *RecordArray) IndexOf(tx *doc.Tx, id string) int {
	for i := 0; i < r.arr.Len(tx); i++ {
		if m, ok := r.arr.Get(tx, i).(*doc.Map); ok {
			if got, found := m.GetString(tx, recordIDKey); found && got == id {
				return i
			}
		}
	}
	return -1
}

// Get returns the record with the given id.
func (r *RecordArray) Get(tx *doc.Tx, id string) (entity.RecordMap, bool) {
	i := r.IndexOf(tx, id)
	if i < 0 {
		return nil, false
	}
	m := r.arr.Get(tx, i).(*doc.Map)
	return m.ToGo(tx), true
}

// Upsert replaces the record sharing the new record's id in place, or
// appends when no record has that id. Records without an id are ignored.
func (r *RecordArray) Upsert(tx *doc.Tx, record entity.RecordMap) {
	id, ok := record[recordIDKey].(string)
	if !ok || id == "" {
		return
	}
	if i := r.IndexOf(tx, id); i >= 0 {
		r.arr.Remove(tx, i)
		r.arr.Insert(tx, i, map[string]any(record))
		return
	}
	r.arr.Push(tx, map[string]any(record))
}

// UpsertAt inserts the record at the resolved position, replacing any
// existing record with the same id first.
func (r *RecordArray) UpsertAt(tx *doc.Tx, record entity.RecordMap, pos entity.Position) {
	id, ok := record[recordIDKey].(string)
	if !ok || id == "" {
		return
	}
	if i := r.IndexOf(tx, id); i >= 0 {
		r.arr.Remove(tx, i)
	}
	r.arr.Insert(tx, r.resolve(tx, pos), map[string]any(record))
}

// UpdateByID applies fn to a copy of the record and writes the result back
// in place. Returns false when no record has that id.
func (r *RecordArray) UpdateByID(tx *doc.Tx, id string, fn func(entity.RecordMap)) bool {
	i := r.IndexOf(tx, id)
	if i < 0 {
		return false
	}
	m := r.arr.Get(tx, i).(*doc.Map)
	record := m.ToGo(tx)
	fn(record)
	record[recordIDKey] = id
	r.arr.Remove(tx, i)
	r.arr.Insert(tx, i, record)
	return true
}

// RemoveByID deletes the record with the given id. Unknown ids are a no-op.
func (r *RecordArray) RemoveByID(tx *doc.Tx, id string) bool {
	i := r.IndexOf(tx, id)
	if i < 0 {
		return false
	}
	r.arr.Remove(tx, i)
	return true
}

// Move repositions the record with the given id.
func (r *RecordArray) Move(tx *doc.Tx, id string, pos entity.Position) bool {
	from := r.IndexOf(tx, id)
	if from < 0 {
		return false
	}
	to := r.resolve(tx, pos)
	item := r.arr.Remove(tx, from)
	if from < to {
		to--
	}
	r.arr.Insert(tx, to, item)
	return true
}

// Clear removes every record.
func (r *RecordArray) Clear(tx *doc.Tx) {
	r.arr.Clear(tx)
}

// ReplaceAll clears the collection and appends the given records in order.
func (r *RecordArray) ReplaceAll(tx *doc.Tx, records []entity.RecordMap) {
	r.arr.Clear(tx)
	for _, record := range records {
		if id, ok := record[recordIDKey].(string); ok && id != "" {
			r.arr.Push(tx, map[string]any(record))
		}
	}
}

func (r *RecordArray) resolve(tx *doc.Tx, pos entity.Position) int {
	switch pos.Kind {
	case entity.PositionStart:
		return 0
	case entity.PositionBefore:
		if i := r.IndexOf(tx, pos.ObjectID); i >= 0 {
			return i
		}
		return r.arr.Len(tx)
	case entity.PositionAfter:
		if i := r.IndexOf(tx, pos.ObjectID); i >= 0 {
			return i + 1
		}
		return r.arr.Len(tx)
	default:
		return r.arr.Len(tx)
	}
}
