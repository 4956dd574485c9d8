package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
)

// HTTPGateway - шлюз устройства поверх HTTP API сервера.
// Реализует CRUD, загрузку объектов и проверку связи. Подписки обслуживаются
// локально: подписчик узнает о строках, вставленных этим же процессом.
type HTTPGateway struct {
	client    *http.Client
	log       *slog.Logger
	baseURL   string
	userAgent string
	hub       *gateway.Hub
}

var (
	_ gateway.Gateway       = (*HTTPGateway)(nil)
	_ gateway.ObjectStorage = (*HTTPGateway)(nil)
	_ gateway.Subscriber    = (*HTTPGateway)(nil)
	_ gateway.Pinger        = (*HTTPGateway)(nil)
)

func NewHTTPGateway(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPGateway {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPGateway{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:       log.With("component", "http_gateway"),
		baseURL:   baseURL,
		userAgent: "Liftkeeper-Device/1.0",
		hub:       gateway.NewHub(),
	}
}

// Ping проверяет доступность сервера и его БД
func (h *HTTPGateway) Ping(ctx context.Context) error {
	return h.do(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

func (h *HTTPGateway) Select(ctx context.Context, table string, filter gateway.Filter) ([]gateway.Row, error) {
	path, err := tablePath(table, &filter)
	if err != nil {
		return nil, err
	}
	var rows []gateway.Row
	if err := h.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return rows, nil
}

func (h *HTTPGateway) Insert(ctx context.Context, table string, rows ...gateway.Row) error {
	if len(rows) == 0 {
		return nil
	}
	path, _ := tablePath(table, nil)
	body := map[string]any{"rows": rows}
	if err := h.do(ctx, http.MethodPost, path, body, nil); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	h.hub.Publish(table, rows...)
	return nil
}

func (h *HTTPGateway) Update(ctx context.Context, table string, patch gateway.Row, filter gateway.Filter) error {
	path, _ := tablePath(table, nil)
	body := map[string]any{"patch": patch, "filter": filter}
	if err := h.do(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return nil
}

func (h *HTTPGateway) Upsert(ctx context.Context, table string, rows []gateway.Row, conflictKey ...string) error {
	if len(rows) == 0 {
		return nil
	}
	path, _ := tablePath(table, nil)
	body := map[string]any{"rows": rows, "conflict_key": conflictKey}
	if err := h.do(ctx, http.MethodPut, path, body, nil); err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

func (h *HTTPGateway) Delete(ctx context.Context, table string, filter gateway.Filter) error {
	path, err := tablePath(table, &filter)
	if err != nil {
		return err
	}
	if err := h.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

func (h *HTTPGateway) Subscribe(table string, filter gateway.Filter, onInsert func(gateway.Row)) func() {
	return h.hub.Subscribe(table, filter, onInsert)
}

// Upload отправляет объект на сервер и возвращает публичную ссылку
func (h *HTTPGateway) Upload(ctx context.Context, bucket, path, contentType string, data []byte) (string, error) {
	body := map[string]any{
		"bucket":       bucket,
		"path":         path,
		"content_type": contentType,
		"data":         data,
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := h.do(ctx, http.MethodPost, "/api/v1/storage", body, &out); err != nil {
		return "", fmt.Errorf("upload %s/%s: %w", bucket, path, err)
	}
	return out.URL, nil
}

// PublicURL строит ссылку так же, как ее строит сервер при раздаче через /files
func (h *HTTPGateway) PublicURL(bucket, path string) string {
	return h.baseURL + "/files/" + bucket + "/" + path
}

func tablePath(table string, filter *gateway.Filter) (string, error) {
	path := "/api/v1/tables/" + url.PathEscape(table)
	if filter == nil {
		return path, nil
	}
	data, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("%w: %v", gateway.ErrInvalidFilter, err)
	}
	return path + "?filter=" + url.QueryEscape(string(data)), nil
}

func (h *HTTPGateway) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	h.log.Debug("sending request", "method", method, "path", path)

	resp, err := h.client.Do(req)
	if err != nil {
		return errors.Join(gateway.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Join(gateway.ErrUnavailable, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp.StatusCode, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError переводит ответ huma (application/problem+json) в ошибки шлюза
func statusError(status int, body []byte) error {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(body, &problem)
	msg := problem.Detail
	if msg == "" {
		msg = problem.Title
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", gateway.ErrUnknownTable, msg)
	case status == http.StatusUnprocessableEntity, status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", gateway.ErrInvalidRow, msg)
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway, status == http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %s", gateway.ErrUnavailable, msg)
	}
	return fmt.Errorf("server error: status %d: %s", status, msg)
}
