package handler

import (
	"fmt"
	"net/url"
	"strings"
)

// Origin extracts the lower-cased "scheme://hostname" of raw. The port, path,
// query and fragment are dropped.
func Origin(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, raw)
	}

	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Hostname()), nil
}
