// Package storage keeps binary files (avatars, covers, book documents,
// recipe images) outside the relational store.  Drivers share the
// BlobStore contract and the ErrNotFound sentinel.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Get and Delete for unknown ids.
var ErrNotFound = errors.New("blob not found")

// BlobStore stores opaque files under caller-chosen ids.
type BlobStore interface {
	Put(ctx context.Context, id, fileName, contentType string, r io.Reader, size int64) error
	Get(ctx context.Context, id string) (*Object, error)
	Delete(ctx context.Context, id string) error
}

// ObjectInfo describes a stored file.
type ObjectInfo struct {
	ID          string
	FileName    string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

// Object is an open file; the caller closes Body.
type Object struct {
	ObjectInfo
	Body io.ReadCloser
}
