package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// MemoryStore keeps blobs in process memory.  Used by tests and local runs.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memBlob
}

type memBlob struct {
	info ObjectInfo
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memBlob)}
}

func (m *MemoryStore) Put(ctx context.Context, id, fileName, contentType string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[id] = memBlob{
		info: ObjectInfo{ID: id, FileName: fileName, ContentType: contentType, Size: int64(len(data)), UploadedAt: time.Now().UTC()},
		data: data,
	}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Object, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{ObjectInfo: b.info, Body: io.NopCloser(bytes.NewReader(b.data))}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[id]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, id)
	return nil
}

// Len reports how many blobs are stored.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
