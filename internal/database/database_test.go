package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/row"
	"github.com/quiltdb/quilt/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams() entity.CreateDatabaseParams {
	primary := entity.NewField("Name", 0)
	primary.Primary = true
	return entity.CreateDatabaseParams{
		DatabaseID:   entity.GenDatabaseID(),
		InlineViewID: entity.GenViewID(),
		Name:         "Tasks",
		Layout:       entity.LayoutGrid,
		Fields:       []entity.Field{primary, entity.NewField("Status", 3)},
		Rows: []entity.CreateRowParams{
			entity.NewCreateRowParams(entity.GenRowID(), ""),
			entity.NewCreateRowParams(entity.GenRowID(), ""),
		},
	}
}

func newTestDatabase(t *testing.T) (*Database, *storage.MemoryStore, entity.CreateDatabaseParams) {
	t.Helper()
	store := storage.NewMemoryStore()
	params := testParams()
	db, err := Create(params, storage.NewHandle(store), nil, testLogger())
	if err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(db.Close)
	return db, store, params
}

func collectChange(t *testing.T, ch <-chan ViewChange, kind ViewChangeKind) ViewChange {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case c := <-ch:
			if c.Kind == kind {
				return c
			}
		case <-timeout:
			t.Fatalf("no %v event arrived", kind)
		}
	}
}

func TestCreate_OpenRoundtrip(t *testing.T) {
	db, store, params := newTestDatabase(t)
	db.Close()

	reopened, err := Open(params.DatabaseID, storage.NewHandle(store), nil, testLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer reopened.Close()

	if reopened.InlineViewID() != params.InlineViewID {
		t.Errorf("inline view: got %q, want %q", reopened.InlineViewID(), params.InlineViewID)
	}
	v, err := reopened.GetView(params.InlineViewID)
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	if v.Name != "Tasks" || len(v.RowOrders) != 2 || len(v.FieldOrders) != 2 {
		t.Errorf("inline view after reopen: %+v", v)
	}
	fields, err := reopened.GetFields(params.InlineViewID)
	if err != nil || len(fields) != 2 {
		t.Errorf("fields after reopen: %v, %v", fields, err)
	}
}

func TestOpen_UnknownDatabase(t *testing.T) {
	store := storage.NewMemoryStore()
	_, err := Open("nope", storage.NewHandle(store), nil, testLogger())
	if !errors.Is(err, storage.ErrDocNotFound) {
		t.Errorf("got %v, want ErrDocNotFound", err)
	}
}

func TestOpen_RejectsBrokenSchema(t *testing.T) {
	store := storage.NewMemoryStore()
	d := doc.New()
	d.Update(func(tx *doc.Tx) {
		d.Root().Set(tx, "id", "db-1")
		// No fields, views, or metas containers.
	})
	data, err := d.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := store.Save(context.Background(), "db-1", "db-1", data); err != nil {
		t.Fatalf("save: %v", err)
	}

	_, err = Open("db-1", storage.NewHandle(store), nil, testLogger())
	if !errors.Is(err, ErrSchemaInvalid) {
		t.Errorf("got %v, want ErrSchemaInvalid", err)
	}
}

func TestCreateRow_AppearsInEveryView(t *testing.T) {
	db, _, params := newTestDatabase(t)
	linked, err := db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Board", entity.LayoutBoard))
	if err != nil {
		t.Fatalf("linked view: %v", err)
	}

	events, cancel := db.SubscribeViewChanges()
	defer cancel()

	order, err := db.CreateRow(entity.NewCreateRowParams(entity.GenRowID(), db.ID()))
	if err != nil {
		t.Fatalf("create row: %v", err)
	}

	for _, viewID := range []string{params.InlineViewID, linked.ID} {
		orders, err := db.GetRowOrders(viewID)
		if err != nil {
			t.Fatalf("row orders %s: %v", viewID, err)
		}
		if len(orders) != 3 || orders[2].ID != order.ID {
			t.Errorf("view %s: new row not appended, orders %v", viewID, orders)
		}
	}

	// One RowOrdersChanged diff per view, each carrying the insert index.
	seen := map[string]int{}
	for len(seen) < 2 {
		c := collectChange(t, events, RowOrdersChanged)
		if len(c.Inserts) != 1 || c.Inserts[0].Order.ID != order.ID {
			t.Fatalf("unexpected diff: %+v", c)
		}
		seen[c.ViewID] = c.Inserts[0].Index
	}
	if seen[params.InlineViewID] != 2 || seen[linked.ID] != 2 {
		t.Errorf("insert indexes: %v", seen)
	}
}

func TestCreateRow_AtPosition(t *testing.T) {
	db, _, params := newTestDatabase(t)
	orders, _ := db.GetRowOrders(params.InlineViewID)

	p := entity.NewCreateRowParams(entity.GenRowID(), db.ID())
	p.Position = entity.Before(orders[1].ID)
	created, err := db.CreateRow(p)
	if err != nil {
		t.Fatalf("create row: %v", err)
	}
	after, _ := db.GetRowOrders(params.InlineViewID)
	if len(after) != 3 || after[1].ID != created.ID {
		t.Errorf("row not inserted before reference: %v", after)
	}
}

func TestCreateRowInView_OnlyOriginResolvesPosition(t *testing.T) {
	db, _, params := newTestDatabase(t)
	linked, err := db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Linked", entity.LayoutGrid))
	if err != nil {
		t.Fatalf("linked view: %v", err)
	}

	p := entity.NewCreateRowParams(entity.GenRowID(), db.ID())
	p.Position = entity.AtStart()
	order, index, err := db.CreateRowInView(linked.ID, p)
	if err != nil {
		t.Fatalf("create row in view: %v", err)
	}
	if index != 0 {
		t.Errorf("origin index: got %d, want 0", index)
	}

	linkedOrders, _ := db.GetRowOrders(linked.ID)
	if linkedOrders[0].ID != order.ID {
		t.Errorf("origin view: row not at start, orders %v", linkedOrders)
	}
	inlineOrders, _ := db.GetRowOrders(params.InlineViewID)
	if inlineOrders[len(inlineOrders)-1].ID != order.ID {
		t.Errorf("non-origin view: row not appended, orders %v", inlineOrders)
	}
}

func TestCreateField_OnlyOriginResolvesPosition(t *testing.T) {
	db, _, params := newTestDatabase(t)
	linked, _ := db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Linked", entity.LayoutGrid))

	f := entity.NewField("Due", 2)
	if _, err := db.CreateField(linked.ID, f, entity.AtStart()); err != nil {
		t.Fatalf("create field: %v", err)
	}

	linkedFields, _ := db.GetFields(linked.ID)
	if linkedFields[0].ID != f.ID {
		t.Errorf("origin view: field not at start, %v", linkedFields)
	}
	inlineFields, _ := db.GetFields(params.InlineViewID)
	if inlineFields[len(inlineFields)-1].ID != f.ID {
		t.Errorf("non-origin view: field not appended, %v", inlineFields)
	}
}

func TestRemoveRows_BatchDiff(t *testing.T) {
	db, store, params := newTestDatabase(t)
	orders, _ := db.GetRowOrders(params.InlineViewID)

	events, cancel := db.SubscribeViewChanges()
	defer cancel()

	if err := db.RemoveRows([]string{orders[0].ID, orders[1].ID}); err != nil {
		t.Fatalf("remove: %v", err)
	}

	c := collectChange(t, events, RowOrdersChanged)
	if len(c.DeleteIndexes) != 2 || c.DeleteIndexes[0] != 0 || c.DeleteIndexes[1] != 1 {
		t.Errorf("delete indexes: %v, want [0 1]", c.DeleteIndexes)
	}

	remaining, _ := db.GetRowOrders(params.InlineViewID)
	if len(remaining) != 0 {
		t.Errorf("orders left: %v", remaining)
	}
	for _, o := range orders {
		exists, _ := store.Exists(context.Background(), db.ID(), o.ID)
		if exists {
			t.Errorf("row document %s still persisted", o.ID)
		}
	}
}

func TestMoveRow_DiffAgainstPreMoveOrder(t *testing.T) {
	db, _, params := newTestDatabase(t)
	third, _ := db.CreateRow(entity.NewCreateRowParams(entity.GenRowID(), db.ID()))
	orders, _ := db.GetRowOrders(params.InlineViewID)

	events, cancel := db.SubscribeViewChanges()
	defer cancel()

	// Move the first row after the last one.
	if err := db.MoveRow(params.InlineViewID, orders[0].ID, entity.After(third.ID)); err != nil {
		t.Fatalf("move: %v", err)
	}
	c := collectChange(t, events, RowOrdersChanged)
	if len(c.DeleteIndexes) != 1 || c.DeleteIndexes[0] != 0 {
		t.Errorf("delete index: %v", c.DeleteIndexes)
	}
	if len(c.Inserts) != 1 || c.Inserts[0].Index != 3 {
		t.Errorf("insert index: %+v", c.Inserts)
	}

	after, _ := db.GetRowOrders(params.InlineViewID)
	want := []string{orders[1].ID, orders[2].ID, orders[0].ID}
	for i, id := range want {
		if after[i].ID != id {
			t.Fatalf("order after move: %v", after)
		}
	}
}

func TestMoveRow_OtherViewsUntouched(t *testing.T) {
	db, _, params := newTestDatabase(t)
	linked, _ := db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Linked", entity.LayoutGrid))
	before, _ := db.GetRowOrders(linked.ID)

	orders, _ := db.GetRowOrders(params.InlineViewID)
	if err := db.MoveRow(params.InlineViewID, orders[0].ID, entity.AtEnd()); err != nil {
		t.Fatalf("move: %v", err)
	}

	after, _ := db.GetRowOrders(linked.ID)
	for i := range before {
		if after[i].ID != before[i].ID {
			t.Fatalf("linked view reordered: %v -> %v", before, after)
		}
	}
}

func TestDuplicateRow_PlacedAfterOriginal(t *testing.T) {
	db, _, params := newTestDatabase(t)
	orders, _ := db.GetRowOrders(params.InlineViewID)
	original := orders[0].ID

	if err := db.UpdateRow(original, func(u *row.Update) {
		u.SetCell("f1", entity.Cell{"data": "copied"})
		u.SetHeight(90)
	}); err != nil {
		t.Fatalf("seed cell: %v", err)
	}

	dup, err := db.DuplicateRow(params.InlineViewID, original)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.ID == original {
		t.Fatal("duplicate kept the original id")
	}

	after, _ := db.GetRowOrders(params.InlineViewID)
	if after[1].ID != dup.ID {
		t.Errorf("duplicate not placed after original: %v", after)
	}

	r, err := db.GetRow(dup.ID)
	if err != nil {
		t.Fatalf("get duplicate: %v", err)
	}
	if r.Cells["f1"]["data"] != "copied" || r.Height != 90 {
		t.Errorf("payload not copied: %+v", r)
	}

	// Mutating the duplicate leaves the original alone.
	db.UpdateRow(dup.ID, func(u *row.Update) {
		u.SetCell("f1", entity.Cell{"data": "changed"})
	})
	src, _ := db.GetRow(original)
	if src.Cells["f1"]["data"] != "copied" {
		t.Errorf("original mutated through duplicate: %v", src.Cells["f1"])
	}
}

func TestCreateLinkedView_InheritsInlineRows(t *testing.T) {
	db, _, params := newTestDatabase(t)

	deduced := entity.NewField("Due", 2)
	viewParams := entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Calendar", entity.LayoutCalendar)
	viewParams.DeducedFields = []entity.Field{deduced}

	created, err := db.CreateLinkedView(viewParams)
	if err != nil {
		t.Fatalf("create linked view: %v", err)
	}
	if created.Layout != entity.LayoutCalendar || created.Name != "Calendar" {
		t.Errorf("created view: %+v", created)
	}

	inline, _ := db.GetRowOrders(params.InlineViewID)
	linked, _ := db.GetRowOrders(created.ID)
	if len(linked) != len(inline) {
		t.Fatalf("row orders: inline %d, linked %d", len(inline), len(linked))
	}
	for i := range inline {
		if linked[i].ID != inline[i].ID {
			t.Errorf("row order diverges at %d", i)
		}
	}

	// The deduced field now exists and is part of the new view's field order.
	if _, err := db.GetField(deduced.ID); err != nil {
		t.Errorf("deduced field not created: %v", err)
	}
	if len(created.FieldOrders) != 3 {
		t.Errorf("field orders: %v", created.FieldOrders)
	}

	meta := db.Meta()
	if len(meta.LinkedViews) != 1 || meta.LinkedViews[0] != created.ID {
		t.Errorf("meta linked views: %v", meta.LinkedViews)
	}
}

func TestCreateLinkedView_DeducedFieldsReachEveryView(t *testing.T) {
	db, _, params := newTestDatabase(t)
	other, err := db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Board", entity.LayoutBoard))
	if err != nil {
		t.Fatalf("board view: %v", err)
	}

	deduced := entity.NewField("Due", 2)
	viewParams := entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Calendar", entity.LayoutCalendar)
	viewParams.DeducedFields = []entity.Field{deduced}
	created, err := db.CreateLinkedView(viewParams)
	if err != nil {
		t.Fatalf("create linked view: %v", err)
	}

	// Pre-existing views get the deduced field appended to their orders.
	for _, viewID := range []string{params.InlineViewID, other.ID} {
		fields, err := db.GetFields(viewID)
		if err != nil {
			t.Fatalf("fields %s: %v", viewID, err)
		}
		if len(fields) != 3 || fields[2].ID != deduced.ID {
			t.Errorf("view %s: deduced field not appended, %v", viewID, fields)
		}
	}

	// The new view follows the inline view's field order, deduced field last.
	want := []string{params.Fields[0].ID, params.Fields[1].ID, deduced.ID}
	if len(created.FieldOrders) != len(want) {
		t.Fatalf("field orders: %v", created.FieldOrders)
	}
	for i, id := range want {
		if created.FieldOrders[i].ID != id {
			t.Errorf("field order %d: got %s, want %s", i, created.FieldOrders[i].ID, id)
		}
	}
}

func TestCreateLinkedView_EmptyIDRejected(t *testing.T) {
	db, _, _ := newTestDatabase(t)
	_, err := db.CreateLinkedView(entity.CreateViewParams{Name: "x"})
	if !errors.Is(err, entity.ErrInvalidID) {
		t.Errorf("got %v, want ErrInvalidID", err)
	}
}

func TestDeleteView_Linked(t *testing.T) {
	db, _, _ := newTestDatabase(t)
	linked, _ := db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "x", entity.LayoutGrid))

	if err := db.DeleteView(linked.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.GetView(linked.ID); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("got %v, want ErrViewNotFound", err)
	}
	if err := db.DeleteView(linked.ID); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("second delete: got %v, want ErrViewNotFound", err)
	}
}

func TestDeleteView_InlineDeletesEverything(t *testing.T) {
	db, _, params := newTestDatabase(t)
	db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "a", entity.LayoutGrid))
	db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "b", entity.LayoutBoard))

	if err := db.DeleteView(params.InlineViewID); err != nil {
		t.Fatalf("delete inline: %v", err)
	}
	if views := db.GetAllViews(); len(views) != 0 {
		t.Errorf("views left after inline delete: %d", len(views))
	}
}

func TestDuplicateLinkedView(t *testing.T) {
	db, _, params := newTestDatabase(t)

	viewParams := entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Board", entity.LayoutBoard)
	linked, _ := db.CreateLinkedView(viewParams)
	db.UpsertFilter(linked.ID, entity.RecordMap{"id": "fl1", "condition": "eq"})

	copied, err := db.DuplicateLinkedView(linked.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if copied.Name != "Board-copy" {
		t.Errorf("name: got %q", copied.Name)
	}
	if copied.ID == linked.ID {
		t.Error("duplicate kept the source id")
	}
	if len(copied.Filters) != 1 || copied.Filters[0]["id"] != "fl1" {
		t.Errorf("filters not copied: %v", copied.Filters)
	}
	if len(copied.RowOrders) != len(linked.RowOrders) {
		t.Errorf("row orders: got %d, want %d", len(copied.RowOrders), len(linked.RowOrders))
	}

	if _, err := db.DuplicateLinkedView(params.InlineViewID); !errors.Is(err, ErrInlineViewRequired) {
		t.Errorf("inline duplicate: got %v, want ErrInlineViewRequired", err)
	}
}

func TestViewSettings_CRUD(t *testing.T) {
	db, _, params := newTestDatabase(t)
	viewID := params.InlineViewID

	db.UpsertSort(viewID, entity.RecordMap{"id": "s1", "field_id": "f1", "condition": "asc"})
	db.UpsertSort(viewID, entity.RecordMap{"id": "s2", "field_id": "f2", "condition": "desc"})
	db.MoveSort(viewID, "s2", entity.AtStart())

	sorts, err := db.GetSorts(viewID)
	if err != nil || len(sorts) != 2 || sorts[0]["id"] != "s2" {
		t.Errorf("sorts: %v, %v", sorts, err)
	}
	db.RemoveSort(viewID, "s1")
	if sorts, _ = db.GetSorts(viewID); len(sorts) != 1 {
		t.Errorf("sorts after remove: %v", sorts)
	}
	db.RemoveAllSorts(viewID)
	if sorts, _ = db.GetSorts(viewID); len(sorts) != 0 {
		t.Errorf("sorts after clear: %v", sorts)
	}

	db.UpsertGroupSetting(viewID, entity.RecordMap{"id": "g1", "field_id": "f1"})
	db.UpdateGroupSetting(viewID, "g1", func(r entity.RecordMap) { r["hidden"] = true })
	groups, _ := db.GetGroupSettings(viewID)
	if len(groups) != 1 || groups[0]["hidden"] != true {
		t.Errorf("groups: %v", groups)
	}

	db.UpsertCalculation(viewID, entity.RecordMap{"id": "c1", "field_id": "f1", "calculation_type": int64(1)})
	calcs, _ := db.GetCalculations(viewID)
	if len(calcs) != 1 {
		t.Errorf("calculations: %v", calcs)
	}
	db.RemoveCalculation(viewID, "c1")
	if calcs, _ = db.GetCalculations(viewID); len(calcs) != 0 {
		t.Errorf("calculations after remove: %v", calcs)
	}

	db.UpdateLayoutSetting(viewID, entity.LayoutBoard, map[string]any{"group_by": "f1"})
	settings, _ := db.GetLayoutSetting(viewID, entity.LayoutBoard)
	if settings["group_by"] != "f1" {
		t.Errorf("layout settings: %v", settings)
	}

	if err := db.UpsertFilter("ghost", entity.RecordMap{"id": "x"}); !errors.Is(err, ErrViewNotFound) {
		t.Errorf("unknown view: got %v", err)
	}
}

func TestFields_CreateMoveDelete(t *testing.T) {
	db, _, params := newTestDatabase(t)
	viewID := params.InlineViewID

	f := entity.NewField("Priority", 3)
	if _, err := db.CreateField(viewID, f, entity.AtStart()); err != nil {
		t.Fatalf("create field: %v", err)
	}
	fields, _ := db.GetFields(viewID)
	if len(fields) != 3 || fields[0].ID != f.ID {
		t.Errorf("fields after create: %v", fields)
	}

	if err := db.MoveField(viewID, f.ID, entity.AtEnd()); err != nil {
		t.Fatalf("move field: %v", err)
	}
	fields, _ = db.GetFields(viewID)
	if fields[len(fields)-1].ID != f.ID {
		t.Errorf("fields after move: %v", fields)
	}

	updated, err := db.UpdateField(f.ID, func(fl *entity.Field) {
		fl.Name = "Urgency"
		fl.ID = "ignored"
	})
	if err != nil {
		t.Fatalf("update field: %v", err)
	}
	if updated.Name != "Urgency" || updated.ID != f.ID {
		t.Errorf("updated field: %+v", updated)
	}

	db.UpdateFieldSetting(viewID, f.ID, map[string]any{"width": int64(200)})
	if err := db.DeleteField(f.ID); err != nil {
		t.Fatalf("delete field: %v", err)
	}
	if _, err := db.GetField(f.ID); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("got %v, want ErrFieldNotFound", err)
	}
	fields, _ = db.GetFields(viewID)
	if len(fields) != 2 {
		t.Errorf("fields after delete: %v", fields)
	}
	if fs, _ := db.GetFieldSetting(viewID, f.ID); fs != nil {
		t.Errorf("field setting survived delete: %v", fs)
	}
	if err := db.DeleteField("ghost"); !errors.Is(err, ErrFieldNotFound) {
		t.Errorf("delete unknown: got %v", err)
	}
}

func TestGetPrimaryField(t *testing.T) {
	db, _, params := newTestDatabase(t)
	f, ok := db.GetPrimaryField()
	if !ok || !f.Primary {
		t.Errorf("primary field: %+v ok=%v", f, ok)
	}
	if f.ID != params.Fields[0].ID {
		t.Errorf("primary id: got %q, want %q", f.ID, params.Fields[0].ID)
	}
}

func TestGetCells_ViewOrderWithNilGaps(t *testing.T) {
	db, _, params := newTestDatabase(t)
	orders, _ := db.GetRowOrders(params.InlineViewID)
	fieldID := params.Fields[1].ID

	db.UpdateRow(orders[1].ID, func(u *row.Update) {
		u.SetCell(fieldID, entity.Cell{"data": "done"})
	})

	cells, err := db.GetCells(params.InlineViewID, fieldID)
	if err != nil {
		t.Fatalf("get cells: %v", err)
	}
	if len(cells) != 2 {
		t.Fatalf("cells: got %d", len(cells))
	}
	if cells[0].Cell != nil {
		t.Errorf("row without value should have nil cell: %v", cells[0])
	}
	if cells[1].Cell["data"] != "done" {
		t.Errorf("cell: %v", cells[1])
	}
}

func TestGetRowsForView(t *testing.T) {
	db, _, params := newTestDatabase(t)
	rows, err := db.GetRowsForView(params.InlineViewID)
	if err != nil {
		t.Fatalf("rows for view: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: got %d", len(rows))
	}
	orders, _ := db.GetRowOrders(params.InlineViewID)
	for i := range orders {
		if rows[i].ID != orders[i].ID {
			t.Errorf("rows out of view order: %v", rows)
		}
		if rows[i].CreatedAt == 0 {
			t.Errorf("known row came back as placeholder: %+v", rows[i])
		}
	}
}

func TestGetDatabaseData_Snapshot(t *testing.T) {
	db, _, params := newTestDatabase(t)
	db.CreateLinkedView(entity.NewCreateViewParams(db.ID(), entity.GenViewID(), "Board", entity.LayoutBoard))

	data := db.GetDatabaseData()
	if data.DatabaseID != db.ID() {
		t.Errorf("database id: %q", data.DatabaseID)
	}
	if len(data.Fields) != 2 {
		t.Errorf("fields: %d", len(data.Fields))
	}
	if len(data.Views) != 2 {
		t.Errorf("views: %d", len(data.Views))
	}
	if len(data.Rows) != len(params.Rows) {
		t.Errorf("rows: %d", len(data.Rows))
	}
}

func TestRowChanges_SurfaceThroughBlock(t *testing.T) {
	db, _, params := newTestDatabase(t)
	orders, _ := db.GetRowOrders(params.InlineViewID)

	changes, cancel := db.Block().SubscribeRowChanges()
	defer cancel()

	db.UpdateRow(orders[0].ID, func(u *row.Update) {
		u.SetCell("f1", entity.Cell{"data": "x"})
	})

	select {
	case c := <-changes:
		if c.Kind != row.CellChanged || c.RowID != orders[0].ID || c.FieldID != "f1" {
			t.Errorf("change: %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("no row change arrived")
	}
}
