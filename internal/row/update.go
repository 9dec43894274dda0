package row

import (
	"github.com/quiltdb/quilt/internal/doc"
	"github.com/quiltdb/quilt/internal/entity"
)

// Update mutates the row's data sub-document inside one write transaction.
// Obtain one through DatabaseRow.ApplyUpdate.
type Update struct {
	tx   *doc.Tx
	data *doc.Map
	meta *doc.Map
}

// SetRowID writes the row and database identity keys.
func (u *Update) SetRowID(rowID, databaseID string) *Update {
	u.data.Set(u.tx, keyRowID, rowID)
	u.data.Set(u.tx, keyDatabaseID, databaseID)
	return u
}

// SetHeight sets the row's display height.
func (u *Update) SetHeight(height int64) *Update {
	u.data.Set(u.tx, keyHeight, height)
	return u
}

// SetVisibility toggles the row's visibility flag.
func (u *Update) SetVisibility(visible bool) *Update {
	u.data.Set(u.tx, keyVisibility, visible)
	return u
}

// SetCreatedAt sets the row's creation timestamp.
func (u *Update) SetCreatedAt(ts int64) *Update {
	u.data.Set(u.tx, keyCreatedAt, ts)
	return u
}

// SetLastModified sets the row's modification timestamp.
func (u *Update) SetLastModified(ts int64) *Update {
	u.data.Set(u.tx, keyLastModified, ts)
	return u
}

// SetCells replaces the entire cell map.
func (u *Update) SetCells(cells entity.Cells) *Update {
	cm := u.data.GetOrCreateMap(u.tx, keyCells)
	cm.Clear(u.tx)
	for fieldID, cell := range cells {
		cm.Set(u.tx, fieldID, map[string]any(cell))
	}
	return u
}

// SetCell writes one field's cell. The cell's created_at is written only on
// first insertion; last_modified is refreshed on every write.
func (u *Update) SetCell(fieldID string, cell entity.Cell) *Update {
	now := entity.Timestamp()
	cm := u.data.GetOrCreateMap(u.tx, keyCells)
	existing, had := cm.GetMap(u.tx, fieldID)
	createdAt := now
	if had {
		if prev, ok := existing.GetInt(u.tx, keyCreatedAt); ok {
			createdAt = prev
		}
	}
	payload := make(map[string]any, len(cell)+2)
	for k, v := range cell {
		payload[k] = v
	}
	payload[keyCreatedAt] = createdAt
	payload[keyLastModified] = now
	cm.Set(u.tx, fieldID, payload)
	return u
}

// ClearCell removes one field's cell. Clearing an absent cell is a no-op.
func (u *Update) ClearCell(fieldID string) *Update {
	if cm, ok := u.data.GetMap(u.tx, keyCells); ok {
		cm.Delete(u.tx, fieldID)
	}
	return u
}

// MetaUpdate mutates the row's metadata sub-document. Obtain one through
// DatabaseRow.ApplyMetaUpdate.
type MetaUpdate struct {
	tx   *doc.Tx
	meta *doc.Map
}

// SetIconURL sets the row icon. An empty value removes it.
func (u *MetaUpdate) SetIconURL(url string) *MetaUpdate {
	if url == "" {
		u.meta.Delete(u.tx, keyIconURL)
		return u
	}
	u.meta.Set(u.tx, keyIconURL, url)
	return u
}

// SetCoverURL sets the row cover. An empty value removes it.
func (u *MetaUpdate) SetCoverURL(url string) *MetaUpdate {
	if url == "" {
		u.meta.Delete(u.tx, keyCoverURL)
		return u
	}
	u.meta.Set(u.tx, keyCoverURL, url)
	return u
}

// SetIsDocumentEmpty marks whether the row's attached document has content.
func (u *MetaUpdate) SetIsDocumentEmpty(empty bool) *MetaUpdate {
	u.meta.Set(u.tx, keyIsDocumentEmpty, empty)
	return u
}
