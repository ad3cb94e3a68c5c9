package gcsuploader

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
)

// Download reads the whole object named by a gs:// URI.
func Download(ctx context.Context, gcsURI string) ([]byte, error) {
	bucketName, objectName, err := ParseURI(gcsURI)
	if err != nil {
		return nil, err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download: creating storage client: %w", err)
	}
	defer client.Close()

	r, err := client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("Download: reading object %s/%s: %w", bucketName, objectName, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("Download: reading bytes: %w", err)
	}
	return data, nil
}
