package entity

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestRowMetaID_Deterministic(t *testing.T) {
	rowID := GenRowID()

	a := RowMetaID(rowID, MetaDocumentID)
	b := RowMetaID(rowID, MetaDocumentID)
	if a != b {
		t.Errorf("same row and key should derive the same id: %q vs %q", a, b)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("derived id is not a uuid: %q", a)
	}

	if RowMetaID(rowID, MetaIconID) == a {
		t.Error("different keys should derive different ids")
	}
	if RowMetaID(GenRowID(), MetaDocumentID) == a {
		t.Error("different rows should derive different ids")
	}
}

func TestRowMetaID_InvalidRowIDFallsBack(t *testing.T) {
	id := RowMetaID("not-a-uuid", MetaDocumentID)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("fallback id is not a uuid: %q", id)
	}
}

func TestCreateRowParams_Validate(t *testing.T) {
	if _, err := (CreateRowParams{}).Validate(); !errors.Is(err, ErrInvalidID) {
		t.Errorf("empty id: got %v, want ErrInvalidID", err)
	}

	p, err := (CreateRowParams{ID: "r1"}).Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if p.CreatedAt == 0 || p.ModifiedAt == 0 {
		t.Error("zero timestamps should be filled")
	}

	p2, _ := (CreateRowParams{ID: "r1", CreatedAt: 5, ModifiedAt: 6}).Validate()
	if p2.CreatedAt != 5 || p2.ModifiedAt != 6 {
		t.Error("explicit timestamps should be kept")
	}
}

func TestNewRow_Defaults(t *testing.T) {
	r := NewRow("r1", "db1")
	if r.Height != DefaultRowHeight {
		t.Errorf("height: got %d, want %d", r.Height, DefaultRowHeight)
	}
	if !r.Visibility {
		t.Error("new rows should be visible")
	}
	if r.CreatedAt == 0 || r.ModifiedAt == 0 {
		t.Error("timestamps should be set")
	}
	if !r.IsEmpty() {
		t.Error("new row should have no cells")
	}
}

func TestEmptyRow_IsPlaceholder(t *testing.T) {
	r := EmptyRow("r1", "db1")
	if r.CreatedAt != 0 || r.ModifiedAt != 0 {
		t.Error("placeholder timestamps should be zero")
	}
	if len(r.Cells) != 0 {
		t.Error("placeholder should carry no cells")
	}
}

func TestCell_FieldType(t *testing.T) {
	c := NewCell(3)
	ft, ok := c.FieldType()
	if !ok || ft != 3 {
		t.Errorf("field type: got %d, %v", ft, ok)
	}
	if _, ok := (Cell{}).FieldType(); ok {
		t.Error("empty cell should have no field type")
	}
}

func TestGenFieldID_ShortAndDistinct(t *testing.T) {
	a := GenFieldID()
	b := GenFieldID()
	if len(a) != 6 {
		t.Errorf("length: got %d, want 6", len(a))
	}
	if a == b {
		t.Error("two generated ids collided")
	}
}

func TestLayoutString(t *testing.T) {
	cases := map[Layout]string{
		LayoutGrid:     "grid",
		LayoutBoard:    "board",
		LayoutCalendar: "calendar",
	}
	for layout, want := range cases {
		if got := layout.String(); got != want {
			t.Errorf("%d.String(): got %q, want %q", layout, got, want)
		}
	}
}
