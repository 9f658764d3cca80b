package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/archiver/internal/auth"
	"github.com/phrazzld/archiver/internal/domain"
	"github.com/phrazzld/archiver/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{auth.ErrExpiredToken, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", auth.ErrInvalidToken), http.StatusUnauthorized},
		{store.ErrQueueItemNotFound, http.StatusNotFound},
		{store.ErrFailedDownloadNotFound, http.StatusNotFound},
		{store.ErrDuplicate, http.StatusConflict},
		{store.ErrInvalidEntity, http.StatusBadRequest},
		{domain.ErrNotAbsoluteURL, http.StatusBadRequest},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage_DoesNotLeakDetails(t *testing.T) {
	err := fmt.Errorf("query SELECT * FROM download_queue failed: %w", errors.New("pq: password authentication failed"))

	msg := GetSafeErrorMessage(err)
	assert.Equal(t, "An unexpected error occurred", msg)
	assert.NotContains(t, msg, "SELECT")

	assert.Equal(t, "Queue item not found", GetSafeErrorMessage(store.ErrQueueItemNotFound))
	assert.Equal(t, "Failed download not found", GetSafeErrorMessage(store.ErrFailedDownloadNotFound))
	assert.Equal(t, "Invalid URL", GetSafeErrorMessage(domain.ErrEmptyURL))
}

func TestSanitizeValidationError(t *testing.T) {
	v := validator.New()

	err := v.Struct(EnqueueRequest{URL: "not a url"})
	assert.Equal(t, "Invalid URL: must be an absolute URL", SanitizeValidationError(err))

	err = v.Struct(EnqueueRequest{})
	assert.Equal(t, "Invalid URL: required field", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("something else")))
}
