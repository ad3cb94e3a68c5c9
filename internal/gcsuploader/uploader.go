package gcsuploader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// UploadBytes writes data to the object named by a gs:// URI, replacing any
// existing object. It assumes Application Default Credentials are configured.
func UploadBytes(ctx context.Context, gcsURI string, data []byte, contentType string) error {
	bucketName, objectName, err := ParseURI(gcsURI)
	if err != nil {
		return err
	}

	client, err := storage.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := client.Bucket(bucketName).Object(objectName).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy to GCS writer: %w", err)
	}

	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload of %s: %w", gcsURI, err)
	}
	return nil
}
