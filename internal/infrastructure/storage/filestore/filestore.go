// Package filestore - файловое хранилище фотографий и подписей на диске сервера.
package filestore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/exp/slog"

	"liftkeeper/internal/domain/gateway"
)

var (
	ErrInvalidPath = errors.New("invalid object path")
	ErrEmptyObject = errors.New("empty object")
	ErrNotFound    = errors.New("object not found")
)

const checksumSuffix = ".blake2b"

// Store раскладывает объекты по каталогам root/bucket/path.
// Рядом с каждым объектом лежит контрольная сумма BLAKE2b-256.
type Store struct {
	root    string
	baseURL string
	log     *slog.Logger
}

var _ gateway.ObjectStorage = (*Store)(nil)

func New(root, publicBaseURL string, log *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Store{
		root:    root,
		baseURL: strings.TrimRight(publicBaseURL, "/"),
		log:     log.With("component", "filestore"),
	}, nil
}

// Upload записывает объект атомарно через временный файл и возвращает публичную ссылку.
func (s *Store) Upload(ctx context.Context, bucket, objectPath, contentType string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", ErrEmptyObject
	}
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	if err := writeAtomic(full, data); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	sum := Checksum(data)
	if err := writeAtomic(full+checksumSuffix, []byte(sum)); err != nil {
		return "", fmt.Errorf("write checksum: %w", err)
	}

	s.log.Debug("object stored", "bucket", bucket, "path", objectPath,
		"content_type", contentType, "size", len(data), "blake2b", sum)
	return s.PublicURL(bucket, objectPath), nil
}

func (s *Store) PublicURL(bucket, objectPath string) string {
	return s.baseURL + "/" + path.Join(bucket, objectPath)
}

// Open возвращает путь к объекту на диске после сверки контрольной суммы.
func (s *Store) Open(bucket, objectPath string) (string, error) {
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}

	want, err := os.ReadFile(full + checksumSuffix)
	if err == nil && string(want) != Checksum(data) {
		s.log.Error("checksum mismatch", "bucket", bucket, "path", objectPath)
		return "", fmt.Errorf("checksum mismatch for %s/%s", bucket, objectPath)
	}
	return full, nil
}

// Checksum - BLAKE2b-256 в hex.
func Checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func (s *Store) resolve(bucket, objectPath string) (string, error) {
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || bucket == "." || bucket == ".." {
		return "", fmt.Errorf("%w: bucket %q", ErrInvalidPath, bucket)
	}
	clean := path.Clean("/" + objectPath)
	if objectPath == "" || clean == "/" || strings.HasSuffix(clean, checksumSuffix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean)), nil
}

func writeAtomic(name string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(name), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), name)
}
