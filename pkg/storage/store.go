package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist in the object store.
var ErrObjectNotFound = errors.New("object not found")

// PutOptions carries per-write object attributes.
type PutOptions struct {
	ContentType string
	// ServerSideKey selects the server-side encryption key (a KMS key id for S3).
	ServerSideKey string
	Metadata      map[string]string
}

// ObjectInfo describes a stored object without its payload.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ObjectStore is a flat key/value blob store with prefix listing.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error
	Get(ctx context.Context, key string) ([]byte, error)
	Head(ctx context.Context, key string) (*ObjectInfo, error)
	Delete(ctx context.Context, key string) error
	Copy(ctx context.Context, srcKey, dstKey string, opts PutOptions) error
	List(ctx context.Context, prefix string) ([]string, error)
	HealthCheck(ctx context.Context) error
}

// IsNotFound reports whether err signals a missing object.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// JoinKey joins key segments with single slashes, dropping empty segments.
func JoinKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part != "" {
			cleaned = append(cleaned, part)
		}
	}
	return strings.Join(cleaned, "/")
}

// ParentPrefix returns the "folder" prefix of a key including the trailing slash.
func ParentPrefix(key string) string {
	idx := strings.LastIndex(key, "/")
	if idx < 0 {
		return ""
	}
	return key[:idx+1]
}
