package gcsuploader

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ReadObject downloads the bytes of bucketName/objectName.
func (s *GCSStorageService) ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, error) {
	r, err := s.client.Bucket(bucketName).Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open GCS object reader: %w", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read GCS object: %w", err)
	}

	return data, nil
}

// ParseGCSURI splits "gs://bucket/path/to/object" into bucket and object path.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}

	return parts[0], parts[1], nil
}

// FetchFromGCS downloads the object the given GCS URI points at.
func FetchFromGCS(ctx context.Context, storage StorageService, gcsURI string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(gcsURI)
	if err != nil {
		return nil, err
	}
	data, err := storage.ReadObject(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("fetchFromGCS: %s: %w", gcsURI, err)
	}
	return data, nil
}
