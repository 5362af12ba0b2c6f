package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// maxBodySize caps request bodies at 1MB; rule sets and customer payloads are
// tiny, so anything larger is abuse.
const maxBodySize = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// decodeJSON decodes a JSON request body into dst, enforcing the body size
// cap. An empty body is reported as io.EOF for callers that allow it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errBodyTooLarge
		}
		return err
	}
	return nil
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
