package testutil

import (
	"net/http"

	"pedcare/pkg/requestcontext"
)

// WithPrincipal simulates what the auth middleware does for an
// authenticated request.
func WithPrincipal(req *http.Request, p requestcontext.Principal) *http.Request {
	return req.WithContext(requestcontext.WithPrincipal(req.Context(), p))
}

// Owner is the default principal for owner-only routes.
var Owner = requestcontext.Principal{
	UserID:   "owner-1",
	Email:    "owner@example.com",
	FullName: "Clinic Owner",
	Role:     "owner",
}
