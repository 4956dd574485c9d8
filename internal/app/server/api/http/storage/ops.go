package storage

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (h *Handler) uploadOp() huma.Operation {
	return huma.Operation{
		OperationID:   "upload-object",
		Method:        http.MethodPost,
		Path:          "/api/v1/storage",
		Summary:       "Upload a photo or signature",
		Tags:          []string{"storage"},
		DefaultStatus: http.StatusCreated,
		MaxBodyBytes:  32 << 20,
		Errors:        []int{http.StatusUnprocessableEntity},
		Middlewares:   h.middleware,
	}
}
