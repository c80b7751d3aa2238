package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
}

func TestCloneMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", Clone(ErrNotFound, "surah not found"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "surah not found", FromError(err).Message)
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(sql.ErrNoRows, ErrInternal.Code, ErrInternal.Status, "failed")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestWithDetailsCopiesMap(t *testing.T) {
	details := map[string]string{"name": "নাম কমপক্ষে ২ অক্ষর হতে হবে"}
	err := WithDetails(ErrValidation, "invalid registration payload", details)
	details["name"] = "changed"

	assert.Equal(t, "নাম কমপক্ষে ২ অক্ষর হতে হবে", err.Details["name"])
	assert.Nil(t, ErrValidation.Details)
}
