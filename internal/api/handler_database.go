package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quiltdb/quilt/internal/database"
	"github.com/quiltdb/quilt/internal/entity"
)

type CreateDatabaseBody struct {
	Name   string         `json:"name" doc:"Database name" required:"true" minLength:"1"`
	Layout int64          `json:"layout,omitempty" doc:"Inline view layout: 0 grid, 1 board, 2 calendar" minimum:"0" maximum:"2"`
	Fields []FieldPayload `json:"fields,omitempty" doc:"Initial field definitions"`
}

type FieldPayload struct {
	ID          string         `json:"id,omitempty" doc:"Field id; generated when empty"`
	Name        string         `json:"name" doc:"Field name" required:"true"`
	FieldType   int64          `json:"field_type" doc:"Numeric field type"`
	Primary     bool           `json:"is_primary,omitempty" doc:"Primary field marker"`
	TypeOptions map[string]any `json:"type_options,omitempty" doc:"Per-type options"`
}

type CreateDatabaseInput struct {
	Body CreateDatabaseBody
}

type DatabaseResponse struct {
	DatabaseID   string `json:"database_id" doc:"Database id"`
	InlineViewID string `json:"inline_view_id" doc:"Inline view id"`
}

type CreateDatabaseOutput struct {
	Body DatabaseResponse
}

type ListDatabasesInput struct{}

type ListDatabasesOutput struct {
	Body []entity.DatabaseMeta
}

type GetDatabaseDataInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
}

type GetDatabaseDataOutput struct {
	Body entity.DatabaseData
}

type DeleteDatabaseInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
}

type DatabaseHandler struct {
	manager *database.Manager
	logger  *slog.Logger
}

func NewDatabaseHandler(manager *database.Manager, logger *slog.Logger) *DatabaseHandler {
	return &DatabaseHandler{manager: manager, logger: logger}
}

func registerDatabaseRoutes(api huma.API, h *DatabaseHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-database",
		Method:        http.MethodPost,
		Path:          "/v1/databases",
		Summary:       "Create a database",
		Tags:          []string{"databases"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateDatabase)

	huma.Register(api, huma.Operation{
		OperationID: "list-databases",
		Method:      http.MethodGet,
		Path:        "/v1/databases",
		Summary:     "List databases",
		Tags:        []string{"databases"},
	}, h.ListDatabases)

	huma.Register(api, huma.Operation{
		OperationID: "get-database-data",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}",
		Summary:     "Export a database snapshot",
		Tags:        []string{"databases"},
	}, h.GetDatabaseData)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-database",
		Method:        http.MethodDelete,
		Path:          "/v1/databases/{database_id}",
		Summary:       "Delete a database",
		Tags:          []string{"databases"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteDatabase)
}

func (h *DatabaseHandler) CreateDatabase(ctx context.Context, input *CreateDatabaseInput) (*CreateDatabaseOutput, error) {
	fields := make([]entity.Field, 0, len(input.Body.Fields))
	for _, f := range input.Body.Fields {
		fields = append(fields, fieldFromPayload(f))
	}
	params := entity.CreateDatabaseParams{
		Name:   input.Body.Name,
		Layout: entity.Layout(input.Body.Layout),
		Fields: fields,
	}
	db, err := h.manager.CreateDatabase(params)
	if err != nil {
		return nil, apiError(err)
	}
	h.logger.Info("database created via api", "database_id", db.ID())
	return &CreateDatabaseOutput{Body: DatabaseResponse{
		DatabaseID:   db.ID(),
		InlineViewID: db.InlineViewID(),
	}}, nil
}

func (h *DatabaseHandler) ListDatabases(ctx context.Context, input *ListDatabasesInput) (*ListDatabasesOutput, error) {
	metas := h.manager.ListDatabases()
	if metas == nil {
		metas = []entity.DatabaseMeta{}
	}
	return &ListDatabasesOutput{Body: metas}, nil
}

func (h *DatabaseHandler) GetDatabaseData(ctx context.Context, input *GetDatabaseDataInput) (*GetDatabaseDataOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	return &GetDatabaseDataOutput{Body: db.GetDatabaseData()}, nil
}

func (h *DatabaseHandler) DeleteDatabase(ctx context.Context, input *DeleteDatabaseInput) (*struct{}, error) {
	if err := h.manager.DeleteDatabase(input.DatabaseID); err != nil {
		return nil, apiError(err)
	}
	h.logger.Info("database deleted via api", "database_id", input.DatabaseID)
	return nil, nil
}

func fieldFromPayload(p FieldPayload) entity.Field {
	f := entity.Field{
		ID:          p.ID,
		Name:        p.Name,
		FieldType:   p.FieldType,
		Primary:     p.Primary,
		TypeOptions: p.TypeOptions,
	}
	if f.ID == "" {
		f.ID = entity.GenFieldID()
	}
	return f
}
