package storage

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/infrastructure/storage/filestore"
)

func setup(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	mux := chi.NewMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	store, err := filestore.New(t.TempDir(), srv.URL+FilesPrefix, log)
	require.NoError(t, err)

	api := humachi.New(mux, huma.DefaultConfig("test", "1.0.0"))
	h := NewHandler(store, log, huma.Middlewares{})
	h.SetupRoutes(api)
	h.Mount(mux)
	return srv
}

func TestHandler_UploadThenServe(t *testing.T) {
	srv := setup(t)

	// "aGVsbG8=" - base64 от "hello"
	body := `{"bucket":"signatures","path":"v1/signature.png","content_type":"image/png","data":"aGVsbG8="}`
	resp, err := http.Post(srv.URL+"/api/v1/storage", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out uploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, srv.URL+"/files/signatures/v1/signature.png", out.URL)

	file, err := http.Get(out.URL)
	require.NoError(t, err)
	defer file.Body.Close()
	require.Equal(t, http.StatusOK, file.StatusCode)
	data, _ := io.ReadAll(file.Body)
	assert.Equal(t, "hello", string(data))
}

func TestHandler_UploadRejectsUnknownBucket(t *testing.T) {
	srv := setup(t)

	body := `{"bucket":"secrets","path":"a.png","content_type":"image/png","data":"aGVsbG8="}`
	resp, err := http.Post(srv.URL+"/api/v1/storage", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestHandler_ServeMissing(t *testing.T) {
	srv := setup(t)

	resp, err := http.Get(srv.URL + "/files/signatures/none.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
