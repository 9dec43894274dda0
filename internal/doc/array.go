package doc

// Array is an ordered container inside a document.
type Array struct {
	doc   *Doc
	path  []string
	items []any
}

// Path returns the array's location in the document.
func (a *Array) Path() []string { return a.path }

// Len returns the number of items.
func (a *Array) Len(tx *Tx) int { return len(a.items) }

// Get returns the item at index i, or nil when out of range.
func (a *Array) Get(tx *Tx, i int) any {
	if i < 0 || i >= len(a.items) {
		return nil
	}
	return a.items[i]
}

// Insert places value at index i, shifting later items. An index past the
// end appends.
func (a *Array) Insert(tx *Tx, i int, value any) {
	tx.mustWrite()
	v := convert(a.doc, a.path, value)
	if i < 0 {
		i = 0
	}
	if i >= len(a.items) {
		a.items = append(a.items, v)
		tx.record(Event{Path: a.path, Kind: ItemInserted, Index: len(a.items) - 1, Value: v})
		return
	}
	a.items = append(a.items, nil)
	copy(a.items[i+1:], a.items[i:])
	a.items[i] = v
	tx.record(Event{Path: a.path, Kind: ItemInserted, Index: i, Value: v})
}

// Push appends value at the end.
func (a *Array) Push(tx *Tx, value any) {
	a.Insert(tx, len(a.items), value)
}

// Remove deletes the item at index i and returns it. Out-of-range indexes
// are a no-op returning nil.
func (a *Array) Remove(tx *Tx, i int) any {
	tx.mustWrite()
	if i < 0 || i >= len(a.items) {
		return nil
	}
	v := a.items[i]
	a.items = append(a.items[:i], a.items[i+1:]...)
	tx.record(Event{Path: a.path, Kind: ItemRemoved, Index: i, Value: v})
	return v
}

// Clear removes every item.
func (a *Array) Clear(tx *Tx) {
	tx.mustWrite()
	for len(a.items) > 0 {
		a.Remove(tx, len(a.items)-1)
	}
}

// ToGo materializes the array and everything below it as plain Go values.
func (a *Array) ToGo(tx *Tx) []any {
	out := make([]any, len(a.items))
	for i, v := range a.items {
		out[i] = toGo(tx, v)
	}
	return out
}
