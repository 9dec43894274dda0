package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quiltdb/quilt/internal/database"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/row"
)

type PositionPayload struct {
	Kind     string `json:"kind,omitempty" doc:"One of end, start, before, after" enum:"end,start,before,after"`
	ObjectID string `json:"object_id,omitempty" doc:"Reference id for before/after"`
}

func (p PositionPayload) toPosition() entity.Position {
	switch p.Kind {
	case "start":
		return entity.AtStart()
	case "before":
		return entity.Before(p.ObjectID)
	case "after":
		return entity.After(p.ObjectID)
	default:
		return entity.AtEnd()
	}
}

type CreateRowBody struct {
	Cells    map[string]map[string]any `json:"cells,omitempty" doc:"Initial cells keyed by field id"`
	Height   int64                     `json:"height,omitempty" doc:"Row height; defaults to 60"`
	ViewID   string                    `json:"view_id,omitempty" doc:"Originating view; only it resolves the position, other views append. Defaults to the inline view"`
	Position PositionPayload           `json:"position,omitempty" doc:"Where to place the row"`
}

type CreateRowInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	Body       CreateRowBody
}

type CreateRowOutput struct {
	Body entity.RowOrder
}

type GetRowInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	RowID      string `path:"row_id" doc:"Row id"`
}

type GetRowOutput struct {
	Body entity.Row
}

type GetRowMetaInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	RowID      string `path:"row_id" doc:"Row id"`
}

type GetRowMetaOutput struct {
	Body entity.RowMeta
}

type UpdateRowMetaBody struct {
	IconURL         *string `json:"icon_url,omitempty" doc:"Row icon URL; empty string removes it"`
	CoverURL        *string `json:"cover_url,omitempty" doc:"Row cover URL; empty string removes it"`
	IsDocumentEmpty *bool   `json:"is_document_empty,omitempty" doc:"Whether the linked document is empty"`
}

type UpdateRowMetaInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	RowID      string `path:"row_id" doc:"Row id"`
	Body       UpdateRowMetaBody
}

type UpdateCellBody struct {
	Cell map[string]any `json:"cell" doc:"Cell payload" required:"true"`
}

type UpdateCellInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	RowID      string `path:"row_id" doc:"Row id"`
	FieldID    string `path:"field_id" doc:"Field id"`
	Body       UpdateCellBody
}

type GetCellInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	RowID      string `path:"row_id" doc:"Row id"`
	FieldID    string `path:"field_id" doc:"Field id"`
}

type GetCellOutput struct {
	Body entity.RowCell
}

type DeleteRowInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	RowID      string `path:"row_id" doc:"Row id"`
}

type MoveRowBody struct {
	Position PositionPayload `json:"position" doc:"Target position" required:"true"`
}

type MoveRowInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
	RowID      string `path:"row_id" doc:"Row id"`
	Body       MoveRowBody
}

type DuplicateRowInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View in which the copy lands after the original"`
	RowID      string `path:"row_id" doc:"Row id"`
}

type DuplicateRowOutput struct {
	Body entity.RowOrder
}

type GetViewRowsInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
}

type GetViewRowsOutput struct {
	Body []entity.Row
}

type RowHandler struct {
	manager *database.Manager
	logger  *slog.Logger
}

func NewRowHandler(manager *database.Manager, logger *slog.Logger) *RowHandler {
	return &RowHandler{manager: manager, logger: logger}
}

func registerRowRoutes(api huma.API, h *RowHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-row",
		Method:        http.MethodPost,
		Path:          "/v1/databases/{database_id}/rows",
		Summary:       "Create a row",
		Tags:          []string{"rows"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateRow)

	huma.Register(api, huma.Operation{
		OperationID: "get-row",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/rows/{row_id}",
		Summary:     "Get a row",
		Tags:        []string{"rows"},
	}, h.GetRow)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-row",
		Method:        http.MethodDelete,
		Path:          "/v1/databases/{database_id}/rows/{row_id}",
		Summary:       "Delete a row",
		Tags:          []string{"rows"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteRow)

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-row",
		Method:        http.MethodPost,
		Path:          "/v1/databases/{database_id}/views/{view_id}/rows/{row_id}/duplicate",
		Summary:       "Duplicate a row",
		Tags:          []string{"rows"},
		DefaultStatus: http.StatusCreated,
	}, h.DuplicateRow)

	huma.Register(api, huma.Operation{
		OperationID: "get-row-meta",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/rows/{row_id}/meta",
		Summary:     "Get row metadata",
		Tags:        []string{"rows"},
	}, h.GetRowMeta)

	huma.Register(api, huma.Operation{
		OperationID: "update-row-meta",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/rows/{row_id}/meta",
		Summary:     "Update row metadata",
		Tags:        []string{"rows"},
	}, h.UpdateRowMeta)

	huma.Register(api, huma.Operation{
		OperationID: "get-cell",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/rows/{row_id}/cells/{field_id}",
		Summary:     "Get a cell",
		Tags:        []string{"rows"},
	}, h.GetCell)

	huma.Register(api, huma.Operation{
		OperationID: "update-cell",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/rows/{row_id}/cells/{field_id}",
		Summary:     "Write a cell",
		Tags:        []string{"rows"},
	}, h.UpdateCell)

	huma.Register(api, huma.Operation{
		OperationID: "get-view-rows",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/views/{view_id}/rows",
		Summary:     "List a view's rows in view order",
		Tags:        []string{"rows"},
	}, h.GetViewRows)

	huma.Register(api, huma.Operation{
		OperationID: "move-row",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/views/{view_id}/rows/{row_id}/position",
		Summary:     "Move a row within a view",
		Tags:        []string{"rows"},
	}, h.MoveRow)
}

func (h *RowHandler) CreateRow(ctx context.Context, input *CreateRowInput) (*CreateRowOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	params := entity.NewCreateRowParams(entity.GenRowID(), input.DatabaseID)
	for fieldID, cell := range input.Body.Cells {
		params.Cells[fieldID] = entity.Cell(cell)
	}
	if input.Body.Height > 0 {
		params.Height = input.Body.Height
	}
	params.Position = input.Body.Position.toPosition()
	var order entity.RowOrder
	if input.Body.ViewID != "" {
		order, _, err = db.CreateRowInView(input.Body.ViewID, params)
	} else {
		order, err = db.CreateRow(params)
	}
	if err != nil {
		return nil, apiError(err)
	}
	return &CreateRowOutput{Body: order}, nil
}

func (h *RowHandler) GetRow(ctx context.Context, input *GetRowInput) (*GetRowOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	r, err := db.GetRow(input.RowID)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetRowOutput{Body: r}, nil
}

func (h *RowHandler) DeleteRow(ctx context.Context, input *DeleteRowInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.RemoveRow(input.RowID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (h *RowHandler) DuplicateRow(ctx context.Context, input *DuplicateRowInput) (*DuplicateRowOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	order, err := db.DuplicateRow(input.ViewID, input.RowID)
	if err != nil {
		return nil, apiError(err)
	}
	return &DuplicateRowOutput{Body: order}, nil
}

func (h *RowHandler) GetRowMeta(ctx context.Context, input *GetRowMetaInput) (*GetRowMetaOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	meta, err := db.GetRowMeta(input.RowID)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetRowMetaOutput{Body: meta}, nil
}

func (h *RowHandler) UpdateRowMeta(ctx context.Context, input *UpdateRowMetaInput) (*GetRowMetaOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	err = db.UpdateRowMeta(input.RowID, func(u *row.MetaUpdate) {
		if input.Body.IconURL != nil {
			u.SetIconURL(*input.Body.IconURL)
		}
		if input.Body.CoverURL != nil {
			u.SetCoverURL(*input.Body.CoverURL)
		}
		if input.Body.IsDocumentEmpty != nil {
			u.SetIsDocumentEmpty(*input.Body.IsDocumentEmpty)
		}
	})
	if err != nil {
		return nil, apiError(err)
	}
	meta, err := db.GetRowMeta(input.RowID)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetRowMetaOutput{Body: meta}, nil
}

func (h *RowHandler) GetCell(ctx context.Context, input *GetCellInput) (*GetCellOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	rc, err := db.GetCell(input.RowID, input.FieldID)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetCellOutput{Body: rc}, nil
}

func (h *RowHandler) UpdateCell(ctx context.Context, input *UpdateCellInput) (*GetCellOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	err = db.UpdateRow(input.RowID, func(u *row.Update) {
		u.SetCell(input.FieldID, entity.Cell(input.Body.Cell))
	})
	if err != nil {
		return nil, apiError(err)
	}
	rc, err := db.GetCell(input.RowID, input.FieldID)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetCellOutput{Body: rc}, nil
}

func (h *RowHandler) GetViewRows(ctx context.Context, input *GetViewRowsInput) (*GetViewRowsOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	rows, err := db.GetRowsForView(input.ViewID)
	if err != nil {
		return nil, apiError(err)
	}
	if rows == nil {
		rows = []entity.Row{}
	}
	return &GetViewRowsOutput{Body: rows}, nil
}

func (h *RowHandler) MoveRow(ctx context.Context, input *MoveRowInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.MoveRow(input.ViewID, input.RowID, input.Body.Position.toPosition()); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}
