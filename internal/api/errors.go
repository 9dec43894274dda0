package api

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/quiltdb/quilt/internal/block"
	"github.com/quiltdb/quilt/internal/database"
	"github.com/quiltdb/quilt/internal/entity"
	"github.com/quiltdb/quilt/internal/storage"
)

// apiError maps domain errors onto HTTP status errors. Pending rows are a
// 202 so clients know to retry rather than give up.
func apiError(err error) error {
	switch {
	case errors.Is(err, entity.ErrInvalidID):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, database.ErrDatabaseNotFound),
		errors.Is(err, database.ErrViewNotFound),
		errors.Is(err, database.ErrFieldNotFound),
		errors.Is(err, storage.ErrDocNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, database.ErrInlineViewRequired):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, block.ErrRowPending):
		return huma.NewError(202, err.Error())
	case errors.Is(err, storage.ErrStoreClosed):
		return huma.Error503ServiceUnavailable(err.Error())
	default:
		return huma.Error500InternalServerError(err.Error())
	}
}
