// Сервер шлюза для полевого приложения:
// табличный CRUD поверх PostgreSQL, поток вставок, загрузка и раздача фотографий и подписей.

// GET    /api/v1/health                  # Доступность сервиса и БД
// GET    /api/v1/tables/{table}?filter=  # Выборка строк
// POST   /api/v1/tables/{table}          # Вставка
// PATCH  /api/v1/tables/{table}          # Обновление по фильтру
// PUT    /api/v1/tables/{table}          # Upsert по ключу конфликта
// DELETE /api/v1/tables/{table}?filter=  # Удаление по фильтру
// GET    /api/v1/tables/{table}/events   # SSE-поток вставленных строк
// POST   /api/v1/storage                 # Загрузка объекта
// GET    /files/{bucket}/*               # Раздача объекта

package api

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"golang.org/x/exp/slog"

	healthAPI "liftkeeper/internal/app/server/api/http/health"
	"liftkeeper/internal/app/server/api/http/middleware"
	"liftkeeper/internal/app/server/api/http/middleware/logger"
	storageAPI "liftkeeper/internal/app/server/api/http/storage"
	tableAPI "liftkeeper/internal/app/server/api/http/table"
	"liftkeeper/internal/domain/gateway"
	"liftkeeper/internal/infrastructure/storage/filestore"
)

// Store - хранилище строк, которое обслуживает сервер
type Store interface {
	gateway.Gateway
	gateway.Subscriber
	gateway.Pinger
}

type Handlers struct {
	Health  *healthAPI.Handler
	Table   *tableAPI.Handler
	Storage *storageAPI.Handler
}

// New собирает роутер со всеми операциями и оборачивает его в CORS
func New(store Store, files *filestore.Store, corsOrigins []string, log *slog.Logger) http.Handler {
	mux := chi.NewMux()

	config := huma.DefaultConfig("Liftkeeper Gateway API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(store, files, log)
	h.Health.SetupRoutes(API)
	h.Table.SetupRoutes(API)
	h.Storage.SetupRoutes(API)
	h.Storage.Mount(mux)

	return cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)
}

func handlers(store Store, files *filestore.Store, log *slog.Logger) *Handlers {
	loggerMW := logger.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(loggerMW.Middleware())
	healthHandler := healthAPI.NewHandler(store, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	tableHandler := tableAPI.NewHandler(store, log, middlewares.GetAllAndClear())

	middlewares.Add(loggerMW.Middleware())
	storageHandler := storageAPI.NewHandler(files, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health:  healthHandler,
		Table:   tableHandler,
		Storage: storageHandler,
	}
}
