package row

import (
	"github.com/quiltdb/quilt/internal/doc"
)

// ChangeKind classifies a typed row change.
type ChangeKind int

const (
	// HeightChanged reports a new display height in Height.
	HeightChanged ChangeKind = iota
	// VisibilityChanged reports a new visibility flag in Visible.
	VisibilityChanged
	// CellChanged reports that the cell for FieldID was written or cleared.
	// Insertions and updates are not distinguished.
	CellChanged
	// MetaChanged reports a write to the metadata sub-document.
	MetaChanged
	// CommentChanged reports a comment insertion or removal.
	CommentChanged
)

// Change is one typed mutation of a row, derived from the raw document
// events of a committed write transaction.
type Change struct {
	RowID   string
	Kind    ChangeKind
	FieldID string // set for CellChanged
	Height  int64  // set for HeightChanged
	Visible bool   // set for VisibilityChanged
}

// translate maps a committed event batch onto typed changes and broadcasts
// them. Duplicate cell changes within one batch collapse to a single event.
func (r *DatabaseRow) translate(events []doc.Event) {
	seenCells := make(map[string]bool)
	for _, ev := range events {
		switch {
		case pathEquals(ev.Path, keyData):
			switch ev.Key {
			case keyHeight:
				h, _ := ev.Value.(int64)
				r.changes.Send(Change{RowID: r.rowID, Kind: HeightChanged, Height: h})
			case keyVisibility:
				v, _ := ev.Value.(bool)
				r.changes.Send(Change{RowID: r.rowID, Kind: VisibilityChanged, Visible: v})
			}
		case pathEquals(ev.Path, keyData, keyCells):
			if ev.Key == "" || seenCells[ev.Key] {
				continue
			}
			seenCells[ev.Key] = true
			r.changes.Send(Change{RowID: r.rowID, Kind: CellChanged, FieldID: ev.Key})
		case pathEquals(ev.Path, keyMeta):
			r.changes.Send(Change{RowID: r.rowID, Kind: MetaChanged})
		case pathEquals(ev.Path, keyComments):
			r.changes.Send(Change{RowID: r.rowID, Kind: CommentChanged})
		}
	}
}

func pathEquals(path []string, want ...string) bool {
	if len(path) != len(want) {
		return false
	}
	for i := range want {
		if path[i] != want[i] {
			return false
		}
	}
	return true
}
