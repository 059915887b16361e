package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/oops"

	"github.com/iliyamo/contenthub/internal/storage"
)

// Upload size limits.
const (
	MaxImageBytes    int64 = 5 << 20
	MaxDocumentBytes int64 = 50 << 20
)

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}

var documentTypes = map[string]string{
	".pdf":  "application/pdf",
	".epub": "application/epub+zip",
	".fb2":  "application/x-fictionbook+xml",
	".txt":  "text/plain",
}

// FileService validates uploads and moves them in and out of the blob store.
type FileService struct {
	blobs  storage.BlobStore
	logger *slog.Logger
}

func NewFileService(blobs storage.BlobStore, logger *slog.Logger) *FileService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileService{blobs: blobs, logger: logger}
}

// SaveImage stores an image upload and returns its blob id.
func (s *FileService) SaveImage(ctx context.Context, up Upload) (string, error) {
	return s.save(ctx, up, imageTypes, MaxImageBytes, "image")
}

// SaveDocument stores a book document and returns its blob id.
func (s *FileService) SaveDocument(ctx context.Context, up Upload) (string, error) {
	return s.save(ctx, up, documentTypes, MaxDocumentBytes, "document")
}

func (s *FileService) save(ctx context.Context, up Upload, allowed map[string]string, limit int64, what string) (string, error) {
	ext := strings.ToLower(filepath.Ext(up.FileName))
	ct, ok := allowed[ext]
	fe := FieldErrors{}
	fe.Check(up.Body != nil && up.Size > 0, "file", "is required")
	fe.Check(up.Size <= limit, "file", "is too large")
	fe.Check(ok, "file", "unsupported "+what+" type "+ext)
	if err := fe.Err(); err != nil {
		return "", err
	}

	id := uuid.NewString()
	if err := s.blobs.Put(ctx, id, filepath.Base(up.FileName), ct, up.Body, up.Size); err != nil {
		return "", oops.With("file_name", up.FileName).Wrapf(err, "store %s", what)
	}
	return id, nil
}

// Open returns the blob id for reading; NOT_FOUND when it is gone.
func (s *FileService) Open(ctx context.Context, id string) (*storage.Object, error) {
	obj, err := s.blobs.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, errNotFound("file", id)
	}
	if err != nil {
		return nil, oops.With("file_id", id).Wrapf(err, "open file")
	}
	return obj, nil
}

// OpenImage is Open restricted to image blobs. Any other blob reads as
// NOT_FOUND so documents never leak through the image endpoint.
func (s *FileService) OpenImage(ctx context.Context, id string) (*storage.Object, error) {
	obj, err := s.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(obj.ContentType, "image/") {
		obj.Body.Close()
		return nil, errNotFound("image", id)
	}
	return obj, nil
}

// Remove deletes a blob.  Failures are logged, never returned: the row
// that pointed at the blob is already gone.
func (s *FileService) Remove(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := s.blobs.Delete(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("blob delete failed", "file_id", id, "error", err)
	}
}
