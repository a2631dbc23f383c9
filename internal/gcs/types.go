package gcs

import (
	"context"
)

// StorageService provides an interface for cloud storage operations.
// This interface enables mocking and testing of storage functionality.
type StorageService interface {
	// WriteObject stores data under bucketName/objectName with the given content type.
	WriteObject(ctx context.Context, bucketName, objectName string, data []byte, contentType string) error

	// ReadObject downloads the bytes of bucketName/objectName.
	ReadObject(ctx context.Context, bucketName, objectName string) ([]byte, error)
}
