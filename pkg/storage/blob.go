package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Buckets used by the application.
const (
	BucketLogos         = "logos"
	BucketSectionImages = "section-images"
	BucketSurahPDFs     = "surah-pdfs"
)

var (
	// ErrObjectExists is returned by Upload when upsert is false and the object is present.
	ErrObjectExists = errors.New("storage: object already exists")
	// ErrObjectNotFound is returned when reading a missing object.
	ErrObjectNotFound = errors.New("storage: object not found")
	// ErrInvalidPath rejects traversal or empty object paths.
	ErrInvalidPath = errors.New("storage: invalid object path")
)

// BlobStore is a bucketed object store.
type BlobStore interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string, upsert bool) error
	Remove(ctx context.Context, bucket string, objectPaths ...string) error
	Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error)
	PublicURL(bucket, objectPath string) string
	PublicBase() string
}

// Object identifies a stored blob.
type Object struct {
	Bucket string `json:"bucket"`
	Path   string `json:"path"`
}

// CleanPath normalises an object path and rejects traversal.
func CleanPath(objectPath string) (string, error) {
	trimmed := strings.TrimSpace(strings.ReplaceAll(objectPath, "\\", "/"))
	trimmed = strings.TrimLeft(trimmed, "/")
	if trimmed == "" {
		return "", ErrInvalidPath
	}
	for _, part := range strings.Split(trimmed, "/") {
		if part == ".." {
			return "", ErrInvalidPath
		}
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return "", ErrInvalidPath
	}
	return cleaned, nil
}

// UniqueName returns base-<unix>-<short uuid>.ext, keeping names readable in the bucket listing.
func UniqueName(base, ext string, now time.Time) string {
	base = strings.Trim(strings.ToLower(strings.ReplaceAll(strings.TrimSpace(base), " ", "-")), "-")
	if base == "" {
		base = "file"
	}
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	name := fmt.Sprintf("%s-%d-%s", base, now.Unix(), uuid.NewString()[:8])
	if ext == "" {
		return name
	}
	return name + "." + ext
}

// ObjectFromURL extracts the bucket and object path from a public URL produced
// by PublicURL for the given public base. ok is false for foreign URLs.
func ObjectFromURL(publicBase, raw string) (Object, bool) {
	publicBase = strings.TrimRight(publicBase, "/")
	if publicBase == "" || !strings.HasPrefix(raw, publicBase+"/") {
		return Object{}, false
	}
	rest := strings.TrimPrefix(raw, publicBase+"/")
	if idx := strings.IndexAny(rest, "?#"); idx >= 0 {
		rest = rest[:idx]
	}
	bucket, objectPath, found := strings.Cut(rest, "/")
	if !found || bucket == "" || objectPath == "" {
		return Object{}, false
	}
	if unescaped, err := url.PathUnescape(objectPath); err == nil {
		objectPath = unescaped
	}
	return Object{Bucket: bucket, Path: objectPath}, true
}

func joinURL(base, bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
