package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// GridFSStore keeps blobs in a MongoDB GridFS bucket.  The blob id is
// used as the GridFS file id.
type GridFSStore struct {
	client *mongo.Client
	bucket *mongo.GridFSBucket
}

// NewGridFSStore connects to uri and opens bucketName in database dbName.
func NewGridFSStore(uri, dbName, bucketName string) (*GridFSStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("gridfs: connect failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("gridfs: ping failed: %w", err)
	}
	bucket := client.Database(dbName).GridFSBucket(options.GridFSBucket().SetName(bucketName))
	return &GridFSStore{client: client, bucket: bucket}, nil
}

// Close disconnects the client.
func (g *GridFSStore) Close(ctx context.Context) error {
	return g.client.Disconnect(ctx)
}

func (g *GridFSStore) Put(ctx context.Context, id, fileName, contentType string, r io.Reader, size int64) error {
	meta := bson.D{{Key: "contentType", Value: contentType}, {Key: "size", Value: size}}
	if err := g.bucket.UploadFromStreamWithID(ctx, id, fileName, r, options.GridFSUpload().SetMetadata(meta)); err != nil {
		return fmt.Errorf("gridfs: upload %s: %w", id, err)
	}
	return nil
}

func (g *GridFSStore) Get(ctx context.Context, id string) (*Object, error) {
	ds, err := g.bucket.OpenDownloadStream(ctx, id)
	if errors.Is(err, mongo.ErrFileNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gridfs: open %s: %w", id, err)
	}
	f := ds.GetFile()
	info := ObjectInfo{ID: id, FileName: f.Name, Size: f.Length, UploadedAt: f.UploadDate}
	if f.Metadata != nil {
		if ct, ok := f.Metadata.Lookup("contentType").StringValueOK(); ok {
			info.ContentType = ct
		}
	}
	return &Object{ObjectInfo: info, Body: ds}, nil
}

func (g *GridFSStore) Delete(ctx context.Context, id string) error {
	err := g.bucket.Delete(ctx, id)
	if errors.Is(err, mongo.ErrFileNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("gridfs: delete %s: %w", id, err)
	}
	return nil
}
