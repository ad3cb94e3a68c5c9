package gcsuploader

import (
	"context"
	"fmt"
	"os"
)

// ObjectStore reads and writes whole objects addressed by gs:// URIs.
type ObjectStore interface {
	Download(ctx context.Context, gcsURI string) ([]byte, error)
	UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error
}

// GCSObjectStore is the Cloud Storage backed ObjectStore.
type GCSObjectStore struct{}

func NewGCSObjectStore() *GCSObjectStore {
	return &GCSObjectStore{}
}

func (s *GCSObjectStore) Download(ctx context.Context, gcsURI string) ([]byte, error) {
	return Download(ctx, gcsURI)
}

func (s *GCSObjectStore) UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error {
	return UploadBytes(ctx, gcsURI, data, contentType)
}

var _ ObjectStore = (*GCSObjectStore)(nil)

// ReadLocation reads a local path or, for gs:// URIs, the object from store.
func ReadLocation(ctx context.Context, store ObjectStore, location string) ([]byte, error) {
	if !IsGCSURI(location) {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("ReadLocation: %w", err)
		}
		return data, nil
	}
	if store == nil {
		return nil, fmt.Errorf("ReadLocation: no object store configured for %s", location)
	}
	return store.Download(ctx, location)
}

// WriteLocation replaces the content of a local path or gs:// object.
func WriteLocation(ctx context.Context, store ObjectStore, location string, data []byte, contentType string) error {
	if !IsGCSURI(location) {
		if err := os.WriteFile(location, data, 0o644); err != nil {
			return fmt.Errorf("WriteLocation: %w", err)
		}
		return nil
	}
	if store == nil {
		return fmt.Errorf("WriteLocation: no object store configured for %s", location)
	}
	return store.UploadBytes(ctx, location, data, contentType)
}
