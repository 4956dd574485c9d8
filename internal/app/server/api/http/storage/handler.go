package storage

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/infrastructure/storage/filestore"
)

// FilesPrefix - префикс, под которым раздаются загруженные объекты
const FilesPrefix = "/files"

type Handler struct {
	store      *filestore.Store
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(store *filestore.Store, log *slog.Logger, mws huma.Middlewares) *Handler {
	return &Handler{
		store:      store,
		log:        log.With("component", "storage_handler"),
		middleware: mws,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.uploadOp(), h.upload)
}

// Mount вешает раздачу файлов на роутер мимо huma: ответ - сырой файл, а не JSON.
func (h *Handler) Mount(r chi.Router) {
	r.Get(FilesPrefix+"/{bucket}/*", h.serve)
}

func (h *Handler) upload(ctx context.Context, input *uploadInput) (*uploadOutput, error) {
	b := input.Body
	url, err := h.store.Upload(ctx, b.Bucket, b.Path, b.ContentType, b.Data)
	if err != nil {
		if errors.Is(err, filestore.ErrInvalidPath) || errors.Is(err, filestore.ErrEmptyObject) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		h.log.Error("upload failed", "bucket", b.Bucket, "path", b.Path, "error", err)
		return nil, huma.Error500InternalServerError("upload failed")
	}

	h.log.Info("object uploaded", "bucket", b.Bucket, "path", b.Path, "size", len(b.Data))
	return &uploadOutput{Body: uploadResponse{URL: url}}, nil
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	objectPath := strings.TrimPrefix(chi.URLParam(r, "*"), "/")

	full, err := h.store.Open(bucket, objectPath)
	switch {
	case errors.Is(err, filestore.ErrNotFound), errors.Is(err, filestore.ErrInvalidPath):
		http.NotFound(w, r)
		return
	case err != nil:
		h.log.Error("serve object failed", "bucket", bucket, "path", objectPath, "error", err)
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, full)
}
