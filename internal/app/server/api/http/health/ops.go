package health

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// Path - адрес проверки доступности, его же опрашивает клиентский пробер
const Path = "/api/v1/health"

func (h *Handler) healthCheckOp() huma.Operation {
	return huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        Path,
		Summary:     "Health check endpoint",
		Description: "Returns the health status of the service and its database",
		Tags:        []string{"health"},
		Errors:      []int{http.StatusServiceUnavailable},
		Middlewares: h.middleware,
	}
}
