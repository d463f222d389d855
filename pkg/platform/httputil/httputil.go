// Package httputil holds the JSON response helpers shared by HTTP handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	dErrors "pedcare/pkg/domain-errors"
)

// MaxLimit caps list sizes accepted from query strings.
const MaxLimit = 1000

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the JSON error envelope.
// Internal errors never expose their description.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	msg := ""
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		msg = de.Message
	}
	status := dErrors.ToHTTPStatus(code)

	resp := errorResponse{Error: string(code)}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = msg
	}
	WriteJSON(w, status, resp)
}

// ParseLimit reads the "limit" query parameter, falling back to def when it
// is absent. Values outside [1, MaxLimit] are rejected.
func ParseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be an integer")
	}
	if n < 1 || n > MaxLimit {
		return 0, dErrors.New(dErrors.CodeBadRequest, "limit must be between 1 and 1000")
	}
	return n, nil
}
