package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalBlobStore persists objects on disk under baseDir/<bucket>/<path>.
type LocalBlobStore struct {
	baseDir    string
	publicBase string
}

// NewLocalBlobStore ensures the base directory exists and returns a handle.
func NewLocalBlobStore(baseDir, publicBase string) (*LocalBlobStore, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalBlobStore{baseDir: baseDir, publicBase: publicBase}, nil
}

// Upload writes r to the object path. Without upsert an existing object is an error.
func (s *LocalBlobStore) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, _ string, upsert bool) error {
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("prepare bucket directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !upsert {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return ErrObjectExists
		}
		return fmt.Errorf("create object file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	if _, err := io.Copy(file, readerWithContext(ctx, r)); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return nil
}

// Remove deletes the listed objects; missing ones are ignored.
func (s *LocalBlobStore) Remove(_ context.Context, bucket string, objectPaths ...string) error {
	for _, p := range objectPaths {
		target, err := s.resolve(bucket, p)
		if err != nil {
			return err
		}
		if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete object %s/%s: %w", bucket, p, err)
		}
	}
	return nil
}

// Open returns a read handle for the object.
func (s *LocalBlobStore) Open(_ context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	target, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// PublicURL builds the URL served by the file handler.
func (s *LocalBlobStore) PublicURL(bucket, objectPath string) string {
	return joinURL(s.publicBase, bucket, objectPath)
}

// PublicBase returns the URL prefix used by PublicURL.
func (s *LocalBlobStore) PublicBase() string {
	return s.publicBase
}

func (s *LocalBlobStore) resolve(bucket, objectPath string) (string, error) {
	cleanBucket, err := CleanPath(bucket)
	if err != nil || filepath.Base(cleanBucket) != cleanBucket {
		return "", ErrInvalidPath
	}
	cleanPath, err := CleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, cleanBucket, filepath.FromSlash(cleanPath)), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	if ctx == nil {
		return r
	}
	return ctxReader{ctx: ctx, r: r}
}
