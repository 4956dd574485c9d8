package table

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

const basePath = "/api/v1/tables/{table}"

func (h *Handler) selectOp() huma.Operation {
	return huma.Operation{
		OperationID: "select-rows",
		Method:      http.MethodGet,
		Path:        basePath,
		Summary:     "Select rows",
		Tags:        []string{"tables"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares: h.middleware,
	}
}

func (h *Handler) insertOp() huma.Operation {
	return huma.Operation{
		OperationID:   "insert-rows",
		Method:        http.MethodPost,
		Path:          basePath,
		Summary:       "Insert rows",
		Tags:          []string{"tables"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares:   h.middleware,
	}
}

func (h *Handler) updateOp() huma.Operation {
	return huma.Operation{
		OperationID: "update-rows",
		Method:      http.MethodPatch,
		Path:        basePath,
		Summary:     "Update rows matching a filter",
		Tags:        []string{"tables"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares: h.middleware,
	}
}

func (h *Handler) upsertOp() huma.Operation {
	return huma.Operation{
		OperationID: "upsert-rows",
		Method:      http.MethodPut,
		Path:        basePath,
		Summary:     "Insert rows or update them on conflict",
		Description: "Rows carrying updated_at never overwrite a newer stored row.",
		Tags:        []string{"tables"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares: h.middleware,
	}
}

func (h *Handler) deleteOp() huma.Operation {
	return huma.Operation{
		OperationID: "delete-rows",
		Method:      http.MethodDelete,
		Path:        basePath,
		Summary:     "Delete rows matching a filter",
		Tags:        []string{"tables"},
		Errors:      []int{http.StatusNotFound, http.StatusUnprocessableEntity},
		Middlewares: h.middleware,
	}
}

func (h *Handler) eventsOp() huma.Operation {
	return huma.Operation{
		OperationID: "table-events",
		Method:      http.MethodGet,
		Path:        basePath + "/events",
		Summary:     "Stream inserted rows",
		Tags:        []string{"tables"},
		Middlewares: h.middleware,
	}
}
