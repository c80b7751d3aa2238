package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SupabaseBlobStore talks to the Supabase Storage REST API with a service role key.
type SupabaseBlobStore struct {
	projectURL string
	serviceKey string
	client     *http.Client
	logger     *zap.Logger
}

// NewSupabaseBlobStore validates credentials and builds the driver.
func NewSupabaseBlobStore(projectURL, serviceKey string, timeout time.Duration, logger *zap.Logger) (*SupabaseBlobStore, error) {
	projectURL = strings.TrimRight(projectURL, "/")
	if projectURL == "" || serviceKey == "" {
		return nil, fmt.Errorf("supabase storage requires SUPABASE_PROJECT_URL and SUPABASE_SERVICE_ROLE_KEY")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupabaseBlobStore{
		projectURL: projectURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Upload sends the object; x-upsert controls overwrite behaviour.
func (s *SupabaseBlobStore) Upload(ctx context.Context, bucket, objectPath string, r io.Reader, contentType string, upsert bool) error {
	cleanPath, err := CleanPath(objectPath)
	if err != nil {
		return err
	}
	endpoint := joinURL(s.projectURL+"/storage/v1/object", bucket, cleanPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, r)
	if err != nil {
		return fmt.Errorf("build upload request: %w", err)
	}
	s.authorize(req)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if upsert {
		req.Header.Set("x-upsert", "true")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send upload request: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if resp.StatusCode == http.StatusConflict || strings.Contains(strings.ToLower(string(body)), "duplicate") {
			return ErrObjectExists
		}
		return fmt.Errorf("upload %s/%s failed with status %d: %s", bucket, cleanPath, resp.StatusCode, string(body))
	}
	s.logger.Debug("supabase object uploaded", zap.String("bucket", bucket), zap.String("path", cleanPath))
	return nil
}

// Remove deletes each object; a 404 is treated as already removed.
func (s *SupabaseBlobStore) Remove(ctx context.Context, bucket string, objectPaths ...string) error {
	for _, p := range objectPaths {
		cleanPath, err := CleanPath(p)
		if err != nil {
			return err
		}
		endpoint := joinURL(s.projectURL+"/storage/v1/object", bucket, cleanPath)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return fmt.Errorf("build delete request: %w", err)
		}
		s.authorize(req)

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("send delete request: %w", err)
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			continue
		}
		if resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("delete %s/%s failed with status %d: %s", bucket, cleanPath, resp.StatusCode, string(body))
		}
	}
	return nil
}

// Open streams an object through the authenticated endpoint.
func (s *SupabaseBlobStore) Open(ctx context.Context, bucket, objectPath string) (io.ReadCloser, error) {
	cleanPath, err := CleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	endpoint := joinURL(s.projectURL+"/storage/v1/object/authenticated", bucket, cleanPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	s.authorize(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send download request: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		_ = resp.Body.Close()
		return nil, ErrObjectNotFound
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("download %s/%s failed with status %d: %s", bucket, cleanPath, resp.StatusCode, string(body))
	}
	return resp.Body, nil
}

// PublicURL returns the public object URL for public buckets.
func (s *SupabaseBlobStore) PublicURL(bucket, objectPath string) string {
	return joinURL(s.PublicBase(), bucket, objectPath)
}

// PublicBase returns the URL prefix used by PublicURL.
func (s *SupabaseBlobStore) PublicBase() string {
	return s.projectURL + "/storage/v1/object/public"
}

func (s *SupabaseBlobStore) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
}
