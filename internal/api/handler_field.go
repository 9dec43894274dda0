package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quiltdb/quilt/internal/database"
	"github.com/quiltdb/quilt/internal/entity"
)

type CreateFieldBody struct {
	Field    FieldPayload    `json:"field" doc:"Field definition" required:"true"`
	ViewID   string          `json:"view_id,omitempty" doc:"Originating view; only it resolves the position, other views append"`
	Position PositionPayload `json:"position,omitempty" doc:"Where to place the field"`
}

type CreateFieldInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	Body       CreateFieldBody
}

type FieldOutput struct {
	Body entity.Field
}

type ListFieldsInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id whose order to use"`
}

type ListFieldsOutput struct {
	Body []entity.Field
}

type UpdateFieldBody struct {
	Name        *string        `json:"name,omitempty" doc:"New field name"`
	FieldType   *int64         `json:"field_type,omitempty" doc:"New field type"`
	TypeOptions map[string]any `json:"type_options,omitempty" doc:"Replacement type options"`
}

type UpdateFieldInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	FieldID    string `path:"field_id" doc:"Field id"`
	Body       UpdateFieldBody
}

type DeleteFieldInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	FieldID    string `path:"field_id" doc:"Field id"`
}

type MoveFieldBody struct {
	Position PositionPayload `json:"position" doc:"Target position" required:"true"`
}

type MoveFieldInput struct {
	DatabaseID string `path:"database_id" doc:"Database id"`
	ViewID     string `path:"view_id" doc:"View id"`
	FieldID    string `path:"field_id" doc:"Field id"`
	Body       MoveFieldBody
}

type FieldHandler struct {
	manager *database.Manager
	logger  *slog.Logger
}

func NewFieldHandler(manager *database.Manager, logger *slog.Logger) *FieldHandler {
	return &FieldHandler{manager: manager, logger: logger}
}

func registerFieldRoutes(api huma.API, h *FieldHandler) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-field",
		Method:        http.MethodPost,
		Path:          "/v1/databases/{database_id}/fields",
		Summary:       "Create a field",
		Tags:          []string{"fields"},
		DefaultStatus: http.StatusCreated,
	}, h.CreateField)

	huma.Register(api, huma.Operation{
		OperationID: "list-fields",
		Method:      http.MethodGet,
		Path:        "/v1/databases/{database_id}/views/{view_id}/fields",
		Summary:     "List fields in a view's order",
		Tags:        []string{"fields"},
	}, h.ListFields)

	huma.Register(api, huma.Operation{
		OperationID: "update-field",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/fields/{field_id}",
		Summary:     "Update a field",
		Tags:        []string{"fields"},
	}, h.UpdateField)

	huma.Register(api, huma.Operation{
		OperationID:   "delete-field",
		Method:        http.MethodDelete,
		Path:          "/v1/databases/{database_id}/fields/{field_id}",
		Summary:       "Delete a field",
		Tags:          []string{"fields"},
		DefaultStatus: http.StatusNoContent,
	}, h.DeleteField)

	huma.Register(api, huma.Operation{
		OperationID: "move-field",
		Method:      http.MethodPut,
		Path:        "/v1/databases/{database_id}/views/{view_id}/fields/{field_id}/position",
		Summary:     "Move a field within a view",
		Tags:        []string{"fields"},
	}, h.MoveField)
}

func (h *FieldHandler) CreateField(ctx context.Context, input *CreateFieldInput) (*FieldOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	created, err := db.CreateField(input.Body.ViewID, fieldFromPayload(input.Body.Field), input.Body.Position.toPosition())
	if err != nil {
		return nil, apiError(err)
	}
	return &FieldOutput{Body: created}, nil
}

func (h *FieldHandler) ListFields(ctx context.Context, input *ListFieldsInput) (*ListFieldsOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	fields, err := db.GetFields(input.ViewID)
	if err != nil {
		return nil, apiError(err)
	}
	if fields == nil {
		fields = []entity.Field{}
	}
	return &ListFieldsOutput{Body: fields}, nil
}

func (h *FieldHandler) UpdateField(ctx context.Context, input *UpdateFieldInput) (*FieldOutput, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	updated, err := db.UpdateField(input.FieldID, func(f *entity.Field) {
		if input.Body.Name != nil {
			f.Name = *input.Body.Name
		}
		if input.Body.FieldType != nil {
			f.FieldType = *input.Body.FieldType
		}
		if input.Body.TypeOptions != nil {
			f.TypeOptions = input.Body.TypeOptions
		}
	})
	if err != nil {
		return nil, apiError(err)
	}
	return &FieldOutput{Body: updated}, nil
}

func (h *FieldHandler) DeleteField(ctx context.Context, input *DeleteFieldInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.DeleteField(input.FieldID); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}

func (h *FieldHandler) MoveField(ctx context.Context, input *MoveFieldInput) (*struct{}, error) {
	db, err := h.manager.GetDatabase(input.DatabaseID)
	if err != nil {
		return nil, apiError(err)
	}
	if err := db.MoveField(input.ViewID, input.FieldID, input.Body.Position.toPosition()); err != nil {
		return nil, apiError(err)
	}
	return nil, nil
}
