package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueueItem(t *testing.T) {
	t.Parallel()

	item, err := NewQueueItem("  https://example.com/manga/1  ")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, item.ID)
	assert.Equal(t, "https://example.com/manga/1", item.URL)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, uuid.Version(7), item.ID.Version())
}

func TestNewQueueItem_IDsAreOrdered(t *testing.T) {
	t.Parallel()

	first, err := NewQueueItem("https://example.com/a")
	require.NoError(t, err)
	second, err := NewQueueItem("https://example.com/b")
	require.NoError(t, err)

	assert.Less(t, first.ID.String(), second.ID.String())
}

func TestValidateURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "valid https", url: "https://siteA.com/x"},
		{name: "valid with port", url: "http://localhost:8080/file.zip"},
		{name: "empty", url: "", wantErr: ErrEmptyURL},
		{name: "whitespace", url: "   ", wantErr: ErrEmptyURL},
		{name: "relative", url: "/just/a/path", wantErr: ErrNotAbsoluteURL},
		{name: "no scheme", url: "example.com/x", wantErr: ErrNotAbsoluteURL},
		{name: "unparseable", url: "http://[::1", wantErr: ErrInvalidFormat},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateURL(tc.url)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestNewFailedDownload(t *testing.T) {
	t.Parallel()

	f, err := NewFailedDownload("https://siteA.com/x", "403")
	require.NoError(t, err)
	assert.Equal(t, "403", f.ErrorMessage)
	assert.NotEqual(t, uuid.Nil, f.ID)

	_, err = NewFailedDownload("https://siteA.com/x", "")
	assert.ErrorIs(t, err, ErrEmptyErrorMessage)

	_, err = NewFailedDownload("", "boom")
	assert.ErrorIs(t, err, ErrEmptyURL)

	// Malformed URLs are still recordable as failures.
	f, err = NewFailedDownload("not a url", "invalid url")
	require.NoError(t, err)
	assert.Equal(t, "not a url", f.URL)
}
