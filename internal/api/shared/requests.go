package shared

import (
	"encoding/json"
	"io"
	"net/http"
)

// MaxRequestBodyBytes bounds the JSON bodies accepted by DecodeJSON.
const MaxRequestBodyBytes = 1 << 20

// DecodeJSON decodes the request body into v. Bodies larger than
// MaxRequestBodyBytes fail to decode.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, MaxRequestBodyBytes)).Decode(v)
}
