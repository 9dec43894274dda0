package doc

// Map is a string-keyed container inside a document. A Map is only valid for
// the document it was created in.
type Map struct {
	doc     *Doc
	path    []string
	entries map[string]any
}

// Path returns the map's location in the document.
func (m *Map) Path() []string { return m.path }

// Get returns the raw value stored under key.
func (m *Map) Get(tx *Tx, key string) (any, bool) {
	v, ok := m.entries[key]
	return v, ok
}

// GetString returns the string stored under key.
func (m *Map) GetString(tx *Tx, key string) (string, bool) {
	v, ok := m.entries[key].(string)
	return v, ok
}

// GetInt returns the integer stored under key.
func (m *Map) GetInt(tx *Tx, key string) (int64, bool) {
	switch v := m.entries[key].(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	}
	return 0, false
}

// GetBool returns the bool stored under key.
func (m *Map) GetBool(tx *Tx, key string) (bool, bool) {
	v, ok := m.entries[key].(bool)
	return v, ok
}

// GetMap returns the nested map stored under key.
func (m *Map) GetMap(tx *Tx, key string) (*Map, bool) {
	v, ok := m.entries[key].(*Map)
	return v, ok
}

// GetArray returns the nested array stored under key.
func (m *Map) GetArray(tx *Tx, key string) (*Array, bool) {
	v, ok := m.entries[key].(*Array)
	return v, ok
}

// GetOrCreateMap returns the nested map under key, creating it if absent.
func (m *Map) GetOrCreateMap(tx *Tx, key string) *Map {
	if v, ok := m.entries[key].(*Map); ok {
		return v
	}
	tx.mustWrite()
	v := &Map{doc: m.doc, path: childPath(m.path, key), entries: make(map[string]any)}
	m.entries[key] = v
	tx.record(Event{Path: m.path, Kind: EntryInserted, Key: key, Value: v})
	return v
}

// GetOrCreateArray returns the nested array under key, creating it if absent.
func (m *Map) GetOrCreateArray(tx *Tx, key string) *Array {
	if v, ok := m.entries[key].(*Array); ok {
		return v
	}
	tx.mustWrite()
	v := &Array{doc: m.doc, path: childPath(m.path, key)}
	m.entries[key] = v
	tx.record(Event{Path: m.path, Kind: EntryInserted, Key: key, Value: v})
	return v
}

// Set stores value under key, recording an insert or update event.
func (m *Map) Set(tx *Tx, key string, value any) {
	tx.mustWrite()
	v := convert(m.doc, childPath(m.path, key), value)
	kind := EntryInserted
	if _, exists := m.entries[key]; exists {
		kind = EntryUpdated
	}
	m.entries[key] = v
	tx.record(Event{Path: m.path, Kind: kind, Key: key, Value: v})
}

// Delete removes key from the map. Removing an absent key is a no-op.
func (m *Map) Delete(tx *Tx, key string) {
	tx.mustWrite()
	if _, exists := m.entries[key]; !exists {
		return
	}
	delete(m.entries, key)
	tx.record(Event{Path: m.path, Kind: EntryRemoved, Key: key})
}

// Clear removes every entry.
func (m *Map) Clear(tx *Tx) {
	tx.mustWrite()
	for k := range m.entries {
		delete(m.entries, k)
		tx.record(Event{Path: m.path, Kind: EntryRemoved, Key: k})
	}
}

// Len returns the number of entries.
func (m *Map) Len(tx *Tx) int { return len(m.entries) }

// Keys returns the map's keys in unspecified order.
func (m *Map) Keys(tx *Tx) []string {
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// ToGo materializes the map and everything below it as plain Go values.
func (m *Map) ToGo(tx *Tx) map[string]any {
	out := make(map[string]any, len(m.entries))
	for k, v := range m.entries {
		out[k] = toGo(tx, v)
	}
	return out
}

func toGo(tx *Tx, v any) any {
	switch val := v.(type) {
	case *Map:
		return val.ToGo(tx)
	case *Array:
		return val.ToGo(tx)
	default:
		return v
	}
}
