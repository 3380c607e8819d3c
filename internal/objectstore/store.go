// Package objectstore keeps narration inputs and audio in a NATS JetStream
// object store bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	metadataContentType = "content-type"
	contentTypeMP3      = "audio/mpeg"
	contentTypeText     = "text/plain; charset=utf-8"
	contentTypeBinary   = "application/octet-stream"
)

// ErrKeyEmpty is returned for operations without an object key.
var ErrKeyEmpty = errors.New("object key cannot be empty")

// Store implements core.ObjectStore on a JetStream object store bucket.
type Store struct {
	bucket string
	store  nats.ObjectStore
}

// New binds to the named bucket, creating it on first use.
func New(jetstreamContext nats.JetStreamContext, bucketName string) (*Store, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("Narration objects for the %s bucket.", bucketName),
		Storage:     nats.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &Store{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves an object. A missing key wraps nats.ErrObjectNotFound.
func (s *Store) Download(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrKeyEmpty
	}

	data, err := s.store.GetBytes(key, nats.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to download '%s' from bucket '%s': %w", key, s.bucket, err)
	}

	return data, nil
}

// Upload stores an object, tagging it with a content type derived from the
// key's extension.
func (s *Store) Upload(ctx context.Context, key string, data []byte) error {
	if key == "" {
		return ErrKeyEmpty
	}

	_, err := s.store.Put(&nats.ObjectMeta{
		Name:     key,
		Metadata: map[string]string{metadataContentType: ContentType(key)},
	}, bytes.NewReader(data), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to upload '%s' to bucket '%s': %w", key, s.bucket, err)
	}

	return nil
}

// ContentType returns the content type stored with an object key.
func ContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".mp3":
		return contentTypeMP3
	case ".txt", ".md", ".py":
		return contentTypeText
	default:
		return contentTypeBinary
	}
}
