package entity

import (
	"crypto/rand"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidID is returned when a row, view, or database id is empty.
var ErrInvalidID = errors.New("id is empty")

// DefaultRowHeight is used when a row is created without an explicit height.
const DefaultRowHeight int64 = 60

// Cell is a small dynamically-typed key/value map. The "field_type" key
// carries the numeric type of the owning field; the remaining keys hold the
// typed payload.
type Cell map[string]any

// FieldTypeKey is the cell key that stores the numeric field type.
const FieldTypeKey = "field_type"

// NewCell creates a cell carrying the given field type.
func NewCell(fieldType int64) Cell {
	return Cell{FieldTypeKey: fieldType}
}

// FieldType returns the numeric field type stored in the cell, if any.
func (c Cell) FieldType() (int64, bool) {
	v, ok := c[FieldTypeKey].(int64)
	return v, ok
}

// Cells maps a field id to the cell entered for that field. A missing field
// id means no value was entered.
type Cells map[string]Cell

// Row is the full materialized state of one record. Each row is backed by
// its own document, separate from the document holding views and fields.
type Row struct {
	ID         string `json:"id"`
	DatabaseID string `json:"database_id"`
	Cells      Cells  `json:"cells"`
	Height     int64  `json:"height"`
	Visibility bool   `json:"visibility"`
	CreatedAt  int64  `json:"created_at"`
	ModifiedAt int64  `json:"modified_at"`
}

// NewRow returns a row with default height, visible, and both timestamps set
// to the current time.
func NewRow(id, databaseID string) Row {
	now := Timestamp()
	return Row{
		ID:         id,
		DatabaseID: databaseID,
		Cells:      Cells{},
		Height:     DefaultRowHeight,
		Visibility: true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// EmptyRow is the placeholder returned when a row cannot be resolved without
// blocking: no cells and zero timestamps.
func EmptyRow(id, databaseID string) Row {
	return Row{
		ID:         id,
		DatabaseID: databaseID,
		Cells:      Cells{},
		Height:     DefaultRowHeight,
		Visibility: true,
	}
}

// IsEmpty reports whether the row carries no cell data.
func (r Row) IsEmpty() bool {
	return len(r.Cells) == 0
}

// DocumentID returns the id of the document linked to this row.
func (r Row) DocumentID() string {
	return RowMetaID(r.ID, MetaDocumentID)
}

// RowOrder is the lightweight stand-in for a row held inside a view's
// ordered list. It deliberately excludes cell data so listing or reordering
// a view never loads full row payloads.
type RowOrder struct {
	ID     string `json:"id"`
	Height int64  `json:"height"`
}

// OrderID implements view ordering identity.
func (r RowOrder) OrderID() string { return r.ID }

// RowMeta holds the per-row metadata sub-document.
type RowMeta struct {
	IconURL         string `json:"icon_url"`
	CoverURL        string `json:"cover_url"`
	IsDocumentEmpty bool   `json:"is_document_empty"`
	DocumentID      string `json:"document_id"`
}

// RowDetail bundles a row with its metadata and derived document id. It is
// the payload of fetch-completed events.
type RowDetail struct {
	Row        Row     `json:"row"`
	Meta       RowMeta `json:"meta"`
	DocumentID string  `json:"document_id"`
}

// RowCell pairs a row id with the cell read for one field. The cell is nil
// when no value was ever written.
type RowCell struct {
	RowID string `json:"row_id"`
	Cell  Cell   `json:"cell"`
}

// MetaKey names one of the ids derived from a row id.
type MetaKey string

const (
	MetaDocumentID MetaKey = "document_id"
	MetaIconID     MetaKey = "icon_id"
	MetaCoverID    MetaKey = "cover_id"
)

// RowMetaID derives a stable namespaced id from the row id, so linked
// documents need no separate allocation. Falls back to a fresh id when the
// row id is not a valid UUID, which never happens for generated row ids.
func RowMetaID(rowID string, key MetaKey) string {
	ns, err := uuid.Parse(rowID)
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(ns, []byte(key)).String()
}

// CreateRowParams describes a row to be created and where to place it.
type CreateRowParams struct {
	ID         string `json:"id"`
	DatabaseID string `json:"database_id"`
	Cells      Cells  `json:"cells"`
	Height     int64  `json:"height"`
	Visibility bool   `json:"visibility"`
	Position   Position
	CreatedAt  int64 `json:"created_at"`
	ModifiedAt int64 `json:"modified_at"`
}

// NewCreateRowParams returns params for a visible, default-height row
// appended at the end.
func NewCreateRowParams(id, databaseID string) CreateRowParams {
	now := Timestamp()
	return CreateRowParams{
		ID:         id,
		DatabaseID: databaseID,
		Cells:      Cells{},
		Height:     DefaultRowHeight,
		Visibility: true,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// Validate rejects empty ids and fills zero timestamps. Timestamps are set
// once here and never reset to zero afterwards.
func (p CreateRowParams) Validate() (CreateRowParams, error) {
	if p.ID == "" {
		return p, ErrInvalidID
	}
	now := Timestamp()
	if p.CreatedAt == 0 {
		p.CreatedAt = now
	}
	if p.ModifiedAt == 0 {
		p.ModifiedAt = now
	}
	return p, nil
}

// Row converts the params into the row to persist.
func (p CreateRowParams) Row() Row {
	return Row{
		ID:         p.ID,
		DatabaseID: p.DatabaseID,
		Cells:      p.Cells,
		Height:     p.Height,
		Visibility: p.Visibility,
		CreatedAt:  p.CreatedAt,
		ModifiedAt: p.ModifiedAt,
	}
}

// Timestamp returns the current unix time in seconds.
func Timestamp() int64 {
	return time.Now().Unix()
}

// GenDatabaseID returns a fresh database id.
func GenDatabaseID() string { return uuid.NewString() }

// GenViewID returns a fresh view id.
func GenViewID() string { return uuid.NewString() }

// GenRowID returns a fresh row id. Row ids must be UUIDs so meta ids can be
// derived from them.
func GenRowID() string { return uuid.NewString() }

// GenFieldID returns a short random field id.
func GenFieldID() string { return shortID(6) }

// GenRecordID returns a short random id for filters, sorts, group settings
// and calculations.
func GenRecordID() string { return shortID(6) }

const shortIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func shortID(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		return uuid.NewString()[:n]
	}
	for i := range b {
		b[i] = shortIDAlphabet[int(b[i])%len(shortIDAlphabet)]
	}
	return string(b)
}
