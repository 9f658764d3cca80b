package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/archiver/internal/api/shared"
	"github.com/phrazzld/archiver/internal/domain"
)

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidFormat, paramName)
	}

	return id, nil
}

// decodeEnqueueRequest reads the URL from the "url" query parameter or, when
// absent, from a JSON body.
func decodeEnqueueRequest(r *http.Request) (EnqueueRequest, error) {
	var req EnqueueRequest
	if q := strings.TrimSpace(r.URL.Query().Get("url")); q != "" {
		req.URL = q
		return req, nil
	}

	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	if err := shared.DecodeJSON(r, &req); err != nil {
		return req, err
	}
	req.URL = strings.TrimSpace(req.URL)
	return req, nil
}
