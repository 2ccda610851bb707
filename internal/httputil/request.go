package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodyBytes bounds inbound request bodies. Chat requests may carry a
// base64-encoded image inline, so the limit is generous.
const maxBodyBytes = 32 << 20

// ParseJSON decodes JSON from the request body into the given
// destination, limiting the body size so a misbehaving client cannot
// exhaust memory.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
