package doc

import (
	"testing"
)

func TestMap_SetGet(t *testing.T) {
	d := New()
	d.Update(func(tx *Tx) {
		d.Root().Set(tx, "name", "grid")
		d.Root().Set(tx, "count", 42)
		d.Root().Set(tx, "visible", true)
	})
	d.View(func(tx *Tx) {
		if s, ok := d.Root().GetString(tx, "name"); !ok || s != "grid" {
			t.Errorf("GetString: got %q, %v", s, ok)
		}
		if n, ok := d.Root().GetInt(tx, "count"); !ok || n != 42 {
			t.Errorf("GetInt: got %d, %v", n, ok)
		}
		if b, ok := d.Root().GetBool(tx, "visible"); !ok || !b {
			t.Errorf("GetBool: got %v, %v", b, ok)
		}
	})
}

func TestMap_IntConversion(t *testing.T) {
	// Plain Go ints convert to int64 on insertion.
	d := New()
	d.Update(func(tx *Tx) {
		d.Root().Set(tx, "a", 7)
		d.Root().Set(tx, "b", int32(8))
		d.Root().Set(tx, "c", float64(9))
	})
	d.View(func(tx *Tx) {
		for key, want := range map[string]int64{"a": 7, "b": 8, "c": 9} {
			if n, ok := d.Root().GetInt(tx, key); !ok || n != want {
				t.Errorf("GetInt(%s): got %d, %v, want %d", key, n, ok, want)
			}
		}
	})
}

func TestMap_DeleteAbsentIsNoop(t *testing.T) {
	d := New()
	var events []Event
	cancel := d.Subscribe(func(evs []Event) { events = append(events, evs...) })
	defer cancel()

	d.Update(func(tx *Tx) {
		d.Root().Delete(tx, "nothing")
	})
	if len(events) != 0 {
		t.Errorf("expected no events for deleting an absent key, got %d", len(events))
	}
}

func TestMap_NestedContainers(t *testing.T) {
	d := New()
	d.Update(func(tx *Tx) {
		cells := d.Root().GetOrCreateMap(tx, "cells")
		cells.Set(tx, "f1", map[string]any{"field_type": 0, "data": "hello"})
	})
	d.View(func(tx *Tx) {
		cells, ok := d.Root().GetMap(tx, "cells")
		if !ok {
			t.Fatal("cells map missing")
		}
		cell, ok := cells.GetMap(tx, "f1")
		if !ok {
			t.Fatal("cell map missing")
		}
		if s, _ := cell.GetString(tx, "data"); s != "hello" {
			t.Errorf("nested value: got %q", s)
		}
		if ft, _ := cell.GetInt(tx, "field_type"); ft != 0 {
			t.Errorf("field_type: got %d", ft)
		}
	})
}

func TestArray_InsertShiftsAndPastEndAppends(t *testing.T) {
	d := New()
	d.Update(func(tx *Tx) {
		arr := d.Root().GetOrCreateArray(tx, "items")
		arr.Push(tx, "a")
		arr.Push(tx, "c")
		arr.Insert(tx, 1, "b")
		arr.Insert(tx, 99, "d")
	})
	d.View(func(tx *Tx) {
		arr, _ := d.Root().GetArray(tx, "items")
		got := arr.ToGo(tx)
		want := []any{"a", "b", "c", "d"}
		if len(got) != len(want) {
			t.Fatalf("length: got %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("item %d: got %v, want %v", i, got[i], want[i])
			}
		}
	})
}

func TestArray_RemoveOutOfRangeIsNoop(t *testing.T) {
	d := New()
	d.Update(func(tx *Tx) {
		arr := d.Root().GetOrCreateArray(tx, "items")
		arr.Push(tx, "a")
		if v := arr.Remove(tx, 5); v != nil {
			t.Errorf("out-of-range remove: got %v, want nil", v)
		}
		if arr.Len(tx) != 1 {
			t.Errorf("length changed by out-of-range remove")
		}
	})
}

func TestUpdate_EventsDeliveredAsOneBatch(t *testing.T) {
	d := New()
	var batches [][]Event
	cancel := d.Subscribe(func(evs []Event) { batches = append(batches, evs) })
	defer cancel()

	d.Update(func(tx *Tx) {
		d.Root().Set(tx, "a", 1)
		d.Root().Set(tx, "b", 2)
		d.Root().Set(tx, "a", 3)
	})

	if len(batches) != 1 {
		t.Fatalf("batches: got %d, want 1", len(batches))
	}
	evs := batches[0]
	if len(evs) != 3 {
		t.Fatalf("events: got %d, want 3", len(evs))
	}
	if evs[0].Kind != EntryInserted || evs[0].Key != "a" {
		t.Errorf("event 0: got kind %d key %q", evs[0].Kind, evs[0].Key)
	}
	if evs[2].Kind != EntryUpdated || evs[2].Key != "a" {
		t.Errorf("event 2: got kind %d key %q, want update of a", evs[2].Kind, evs[2].Key)
	}
}

func TestSubscribe_CancelStopsDelivery(t *testing.T) {
	d := New()
	var count int
	cancel := d.Subscribe(func(evs []Event) { count++ })

	d.Update(func(tx *Tx) { d.Root().Set(tx, "a", 1) })
	cancel()
	d.Update(func(tx *Tx) { d.Root().Set(tx, "b", 2) })

	if count != 1 {
		t.Errorf("deliveries after cancel: got %d, want 1", count)
	}
}

func TestEvent_PathAddressesContainer(t *testing.T) {
	d := New()
	var events []Event
	cancel := d.Subscribe(func(evs []Event) { events = append(events, evs...) })
	defer cancel()

	d.Update(func(tx *Tx) {
		data := d.Root().GetOrCreateMap(tx, "data")
		cells := data.GetOrCreateMap(tx, "cells")
		cells.Set(tx, "f1", "x")
	})

	last := events[len(events)-1]
	if len(last.Path) != 2 || last.Path[0] != "data" || last.Path[1] != "cells" {
		t.Errorf("path: got %v, want [data cells]", last.Path)
	}
	if last.Key != "f1" {
		t.Errorf("key: got %q, want f1", last.Key)
	}
}

func TestCodec_Roundtrip(t *testing.T) {
	d := New()
	d.Update(func(tx *Tx) {
		d.Root().Set(tx, "id", "db-1")
		fields := d.Root().GetOrCreateMap(tx, "fields")
		fields.Set(tx, "f1", map[string]any{"name": "Title", "field_type": 0})
		arr := d.Root().GetOrCreateArray(tx, "orders")
		arr.Push(tx, map[string]any{"id": "r1", "height": 60})
		d.Root().Set(tx, "ratio", 1.5)
	})

	data, err := d.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	d2, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	d2.View(func(tx *Tx) {
		if id, _ := d2.Root().GetString(tx, "id"); id != "db-1" {
			t.Errorf("id: got %q", id)
		}
		fields, ok := d2.Root().GetMap(tx, "fields")
		if !ok {
			t.Fatal("fields map missing after roundtrip")
		}
		f1, ok := fields.GetMap(tx, "f1")
		if !ok {
			t.Fatal("f1 missing after roundtrip")
		}
		if ft, _ := f1.GetInt(tx, "field_type"); ft != 0 {
			t.Errorf("field_type: got %d", ft)
		}
		arr, ok := d2.Root().GetArray(tx, "orders")
		if !ok || arr.Len(tx) != 1 {
			t.Fatal("orders array missing after roundtrip")
		}
		order := arr.Get(tx, 0).(*Map)
		if h, _ := order.GetInt(tx, "height"); h != 60 {
			t.Errorf("height decoded as %d, want int64 60", h)
		}
		if r, ok := d2.Root().Get(tx, "ratio"); !ok || r.(float64) != 1.5 {
			t.Errorf("ratio: got %v", r)
		}
	})
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected error for invalid payload")
	}
}

func TestMutationOutsideWriteTxPanics(t *testing.T) {
	d := New()
	defer func() {
		if recover() == nil {
			t.Error("expected panic for mutation in read tx")
		}
	}()
	d.View(func(tx *Tx) {
		d.Root().Set(tx, "a", 1)
	})
}
