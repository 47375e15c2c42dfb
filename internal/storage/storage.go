// Package storage provides object storage for NexLeads.
//
// Two backends implement Storage:
// - LocalStorage: files under a directory, served by the API at /files/
// - S3Storage: any S3-compatible bucket (AWS S3, Cloudflare R2, MinIO)
//
// Email attachments and profile pictures are the only objects stored.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage defines the interface for object storage operations.
// All methods are context-aware for timeout and cancellation support.
type Storage interface {
	// Put stores data at key. Returns ErrKeyExists when the key is taken
	// and opts.Overwrite is false, ErrTooLarge when data exceeds opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get returns the object at key. The caller must close the reader.
	// Returns ErrNotFound if the key doesn't exist.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes the object at key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL for the object. A zero expires asks for a permanent
	// public URL when the backend has one; otherwise a presigned URL valid
	// for expires is returned.
	URL(ctx context.Context, key string, expires time.Duration) (string, error)

	// Exists reports whether an object is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures how an object is stored.
type PutOptions struct {
	// ContentType is the MIME type. Detected from the key when empty.
	ContentType string

	// MaxSize in bytes; 0 means no limit.
	MaxSize int64

	// Overwrite allows replacing an existing object at the same key.
	Overwrite bool

	// Public marks the object world-readable (S3 public-read ACL).
	Public bool
}

// ObjectInfo contains metadata about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// LocalConfig holds configuration for local filesystem storage.
type LocalConfig struct {
	// BasePath is the root directory, e.g. "./uploads".
	BasePath string

	// BaseURL is the public URL prefix, e.g. "http://localhost:8080/files".
	BaseURL string
}

// S3Config holds configuration for S3-compatible storage.
type S3Config struct {
	// Endpoint overrides the AWS endpoint, e.g.
	// "https://<account>.r2.cloudflarestorage.com" for R2. Empty uses AWS.
	Endpoint string

	// Region defaults to "auto" (accepted by R2).
	Region string

	AccessKeyID     string
	SecretAccessKey string
	Bucket          string

	// PublicURL is the bucket's public base URL (custom domain). When empty
	// every URL is presigned.
	PublicURL string

	// UsePathStyle addresses the bucket as a path segment (MinIO).
	UsePathStyle bool
}

const (
	ProviderLocal = "local"
	ProviderS3    = "s3"
)

// =============================================================================
// Keys
// =============================================================================

// AttachmentKey generates a key for an email attachment.
// Format: users/{userID}/attachments/{uuid}/{sanitized filename}
func AttachmentKey(userID uuid.UUID, filename string) string {
	return fmt.Sprintf("users/%s/attachments/%s/%s", userID, uuid.New(), SanitizeFilename(filename))
}

// ProfilePictureKey generates a key for a user's profile picture. A fresh id
// per upload keeps cached URLs from serving the previous image.
// Format: users/{userID}/avatar/{uuid}.jpg
func ProfilePictureKey(userID uuid.UUID) string {
	return fmt.Sprintf("users/%s/avatar/%s.jpg", userID, uuid.New())
}

// SanitizeFilename reduces a client-supplied filename to a safe single path
// segment.
func SanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "file"
	}
	if len(out) > 128 {
		out = out[len(out)-128:]
	}
	return out
}

// validateKey rejects empty keys, absolute keys and traversal attempts.
func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return ErrInvalidKey
		}
	}
	return nil
}

// =============================================================================
// Errors
// =============================================================================

var (
	ErrNotFound     = errors.New("object not found")
	ErrKeyExists    = errors.New("object already exists at this key")
	ErrInvalidKey   = errors.New("invalid storage key")
	ErrTooLarge     = errors.New("object exceeds maximum size")
	ErrAccessDenied = errors.New("access denied")
)

// StorageError records the operation and key of a failed call.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
