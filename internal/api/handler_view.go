package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quiltdb/quilt/internal/database"
	"github.com/quiltdb/quilt/internal/entity"
)

type CreateViewBody struct {
	Name   string `json:"name" doc:"View name" required:"true" minLength:"1"`
	Layout int64  `json:"layout,omitempty" doc:"View layout: 0 grid, 1 board, 2 calendar" minimum:"0" maximum:"2"`
}

type CreateViewInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	Body       CreateViewBody
}

type ViewOutput struct {
	Body entity.DatabaseView
}

type ListViewsInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
}

type ListViewsOutput struct {
	Body []entity.ViewDescription
}

type GetViewInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
}

type DeleteViewInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
}

type DuplicateViewInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
}

type RenameViewBody struct {
	Name string `json:"name" doc:"New view name" required:"true" minLength:"1"`
}

type RenameViewInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
	Body       RenameViewBody
}

type RecordBody struct {
	Record map[string]any `json:"record" doc:"Record payload; must carry an id key" required:"true"`
}

type UpsertRecordInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
	Body       RecordBody
}

type RemoveRecordInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
	RecordID   string `path:"record_id" doc:"Record id"`
}

type ListRecordsInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
}

type ListRecordsOutput struct {
	Body []entity.RecordMap
}

type ViewHandler struct {
	manager *database.Manager
	logger  *slog.Logger
}

func NewViewHandler(manager *database.Manager, logger *slog.Logger) *ViewHandler {
	return &ViewHandler{manager: manager, logger: logger}
}

func registerViewRoutes(api huma.API, h *ViewHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-linked-view",
		Method:        http.MethodPost,
		Path:          "/v1/databases/{database_id}/views",
		Summary:       "Create a linked view",
		Tags:          []string{"views"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateView)

	huma.Register(api, huma.Operation{
		OperationID: "list-views",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/views",
		Summary:     "List views",
		Tags:        []string{"views"},
	}, h.ListViews)

	huma.Register(api, huma.Operation{
		OperationID: "get-view",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/views/{view_id}",
		Summary:     "Get a view",
		Tags:        []string{"views"},
	}, h.GetView)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-view",
		Method:        http.MethodDelete,
		Path:          "/v1/databases/{database_id}/views/{view_id}",
		Summary:       "Delete a view",
		Tags:          []string{"views"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteView)

	huma.Register(api, huma.Operation{
		OperationID:   "duplicate-view",
		Method:        http.MethodPost,
		Path:          "/v1/databases/{database_id}/views/{view_id}/duplicate",
		Summary:       "Duplicate a linked view",
		Tags:          []string{"views"},
		DefaultStatus: http.StatusCreated,
	}, h.DuplicateView)

	huma.Register(api, huma.Operation{
		OperationID: "rename-view",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/views/{view_id}/name",
		Summary:     "Rename a view",
		Tags:        []string{"views"},
	}, h.RenameView)

	huma.Register(api, huma.Operation{
		OperationID: "upsert-filter",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/views/{view_id}/filters",
		Summary:     "Insert or replace a filter",
		Tags:        []string{"views"},
	}, h.UpsertFilter)

	huma.Register(api, huma.Operation{
		OperationID: "list-filters",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/views/{view_id}/filters",
		Summary:     "List a view's filters",
		Tags:        []string{"views"},
	}, h.ListFilters)

	huma.Register(api, huma.Operation{
		OperationID:   "remove-filter",
		Method:        http.MethodDelete,
		Path:          "/v1/databases/{database_id}/views/{view_id}/filters/{record_id}",
		Summary:       "Remove a filter",
		Tags:          []string{"views"},
		DefaultStatus: http.StatusNoContent,
	}, h.RemoveFilter)

	huma.Register(api, huma.Operation{
		OperationID: "upsert-sort",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/views/{view_id}/sorts",
		Summary:     "Insert or replace a sort",
		Tags:        []string{"views"},
	}, h.UpsertSort)

	huma.Register(api, huma.Operation{
		OperationID: "list-sorts",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/views/{view_id}/sorts",
		Summary:     "List a view's sorts",
		Tags:        []string{"views"},
	}, h.ListSorts)

	huma.Register(api, huma.Operation{
		OperationID:   "remove-sort",
		Method:        http.MethodDelete,
		Path:          "/v1/databases/{database_id}/views/{view_id}/sorts/{record_id}",
		Summary:       "Remove a sort",
		Tags:          []string{"views"},
		DefaultStatus: http.StatusNoContent,
	}, h.RemoveSort)
}

func (h *ViewHandler) CreateView(ctx context.Context, input *CreateViewInput) (*ViewOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	params := entity.NewCreateViewParams(input.DatabaseID, entity.GenViewID(), input.Body.Name, entity.Layout(input.Body.Layout))
	created, err := db.CreateLinkedView(params)
	if err != nil {
		return nil, apiError(err)
	}
	return &ViewOutput{Body: created}, nil
}

func (h *ViewHandler) ListViews(ctx context.Context, input *ListViewsInput) (*ListViewsOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	views := db.ViewDescriptions()
	if views == nil {
		views = []entity.ViewDescription{}
	}
	return &ListViewsOutput{Body: views}, nil
}

func (h *ViewHandler) GetView(ctx context.Context, input *GetViewInput) (*ViewOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	v, err := db.GetView(input.ViewID)
	if err != nil {
		return nil, apiError(err)
	}
	return &ViewOutput{Body: v}, nil
}

func (h *ViewHandler) DeleteView(ctx context.Context, input *DeleteViewInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.DeleteView(input.ViewID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (h *ViewHandler) DuplicateView(ctx context.Context, input *DuplicateViewInput) (*ViewOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	created, err := db.DuplicateLinkedView(input.ViewID)
	if err != nil {
		return nil, apiError(err)
	}
	return &ViewOutput{Body: created}, nil
}

func (h *ViewHandler) RenameView(ctx context.Context, input *RenameViewInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.UpdateViewName(input.ViewID, input.Body.Name); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (h *ViewHandler) UpsertFilter(ctx context.Context, input *UpsertRecordInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.UpsertFilter(input.ViewID, input.Body.Record); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (h *ViewHandler) ListFilters(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	records, err := db.GetFilters(input.ViewID)
	if err != nil {
		return nil, apiError(err)
	}
	if records == nil {
		records = []entity.RecordMap{}
	}
	return &ListRecordsOutput{Body: records}, nil
}

func (h *ViewHandler) RemoveFilter(ctx context.Context, input *RemoveRecordInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.RemoveFilter(input.ViewID, input.RecordID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (h *ViewHandler) UpsertSort(ctx context.Context, input *UpsertRecordInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.UpsertSort(input.ViewID, input.Body.Record); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (h *ViewHandler) ListSorts(ctx context.Context, input *ListRecordsInput) (*ListRecordsOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	records, err := db.GetSorts(input.ViewID)
	if err != nil {
		return nil, apiError(err)
	}
	if records == nil {
		records = []entity.RecordMap{}
	}
	return &ListRecordsOutput{Body: records}, nil
}

func (h *ViewHandler) RemoveSort(ctx context.Context, input *RemoveRecordInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.RemoveSort(input.ViewID, input.RecordID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}
