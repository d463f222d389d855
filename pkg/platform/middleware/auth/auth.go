package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/mssola/useragent"

	audit "pedcare/pkg/platform/audit"
	request "pedcare/pkg/platform/middleware/request"
	"pedcare/pkg/requestcontext"
)

// TokenValidator validates a bearer token and returns the caller it asserts.
type TokenValidator interface {
	ValidateToken(tokenString string) (requestcontext.Principal, error)
}

// Recorder receives denied-access events.
type Recorder interface {
	LogEvent(ctx context.Context, entry audit.Entry) audit.Event
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			principal, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, principal)))
		})
	}
}

// RequireRoles admits principals holding one of roles. A denial is answered
// with 403 and recorded as an unauthorized access. Must run after
// RequireAuth.
func RequireRoles(recorder Recorder, logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal, ok := requestcontext.PrincipalFrom(ctx)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if slices.Contains(roles, principal.Role) {
				next.ServeHTTP(w, r)
				return
			}

			event := recorder.LogEvent(ctx, deniedEntry(r, principal, roles))
			logger.WarnContext(ctx, "forbidden - insufficient role",
				"user_id", principal.UserID,
				"role", principal.Role,
				"path", r.URL.Path,
				"audit_event_id", event.ID,
				"request_id", request.GetRequestID(ctx),
			)
			writeJSONError(w, http.StatusForbidden, "forbidden", "Forbidden: insufficient role")
		})
	}
}

func deniedEntry(r *http.Request, p requestcontext.Principal, roles []string) audit.Entry {
	ctx := r.Context()
	details := audit.Details{
		"method":         audit.String(r.Method),
		"path":           audit.String(r.URL.Path),
		"required_roles": audit.String(strings.Join(roles, ",")),
	}
	if id := request.GetRequestID(ctx); id != "" {
		details["request_id"] = audit.String(id)
	}
	if raw := requestcontext.UserAgent(ctx); raw != "" {
		ua := useragent.New(raw)
		browser, version := ua.Browser()
		details["browser"] = audit.String(strings.TrimSpace(browser + " " + version))
		details["os"] = audit.String(ua.OS())
		details["mobile"] = audit.Bool(ua.Mobile())
		details["bot"] = audit.Bool(ua.Bot())
	}
	if p.PatientID != "" {
		details[audit.DetailUserPatientID] = audit.String(p.PatientID)
	}
	return audit.Entry{
		Type:         audit.EventUnauthorizedAccess,
		UserID:       p.UserID,
		UserEmail:    p.Email,
		UserRole:     p.Role,
		ResourceType: "endpoint",
		ResourceID:   r.URL.Path,
		IPAddress:    requestcontext.ClientIP(ctx),
		Details:      details,
	}
}
