package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestSupabaseBlobStoreUpload(t *testing.T) {
	var gotPath, gotAuth, gotUpsert, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotUpsert = r.Header.Get("x-upsert")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store, err := NewSupabaseBlobStore(srv.URL, "service-key", time.Second, nil)
	require.NoError(t, err)

	err = store.Upload(context.Background(), BucketSurahPDFs, "surah-96.pdf", strings.NewReader("%PDF"), "application/pdf", true)
	require.NoError(t, err)
	assert.Equal(t, "/storage/v1/object/surah-pdfs/surah-96.pdf", gotPath)
	assert.Equal(t, "Bearer service-key", gotAuth)
	assert.Equal(t, "true", gotUpsert)
	assert.Equal(t, "%PDF", gotBody)
}

func TestSupabaseBlobStoreUploadDuplicate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"Duplicate","message":"The resource already exists"}`))
	}))
	defer srv.Close()

	store, err := NewSupabaseBlobStore(srv.URL, "key", time.Second, nil)
	require.NoError(t, err)
	err = store.Upload(context.Background(), BucketLogos, "logo.png", strings.NewReader("x"), "image/png", false)
	assert.ErrorIs(t, err, ErrObjectExists)
}

func TestSupabaseBlobStoreRemoveAndOpen(t *testing.T) {
	var deleted []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			if strings.HasSuffix(r.URL.Path, "gone.png") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			if strings.HasSuffix(r.URL.Path, "missing.pdf") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_, _ = w.Write([]byte("pdf-bytes"))
		}
	}))
	defer srv.Close()

	store, err := NewSupabaseBlobStore(srv.URL, "key", time.Second, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Remove(ctx, BucketSectionImages, "a.png", "gone.png"))
	assert.Equal(t, []string{"/storage/v1/object/section-images/a.png", "/storage/v1/object/section-images/gone.png"}, deleted)

	rc, err := store.Open(ctx, BucketSurahPDFs, "surah-96.pdf")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	assert.Equal(t, "pdf-bytes", string(body))

	_, err = store.Open(ctx, BucketSurahPDFs, "missing.pdf")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestSupabasePublicURL(t *testing.T) {
	store, err := NewSupabaseBlobStore("https://demo.supabase.co/", "key", 0, nil)
	require.NoError(t, err)
	url := store.PublicURL(BucketLogos, "bkash_qr.png")
	assert.Equal(t, "https://demo.supabase.co/storage/v1/object/public/logos/bkash_qr.png", url)

	obj, ok := ObjectFromURL(store.PublicBase(), url)
	require.True(t, ok)
	assert.Equal(t, BucketLogos, obj.Bucket)
}

func TestNewSupabaseBlobStoreRequiresCredentials(t *testing.T) {
	_, err := NewSupabaseBlobStore("", "", 0, nil)
	assert.Error(t, err)
}
