package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/eknojore-quran-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "quran:")
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "settings:all", &dest)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "settings:all", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, repo.Delete(ctx, "settings:all"))
	assert.Equal(t, "quran:home:composed", repo.key("home:composed"))
}
