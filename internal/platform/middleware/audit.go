package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/nurselink/nurselink/internal/platform/auth"
)

// AuditEntry captures who accessed what, when, from where, and how the
// request ended. The middleware builds one per audited request.
type AuditEntry struct {
	ActorID    uuid.UUID
	ActorRole  string
	Action     string // read, create, update, delete
	Resource   string
	PatientID  uuid.UUID
	Method     string
	Path       string
	Status     int
	RemoteAddr string
	UserAgent  string
	RequestID  string
	Recorded   time.Time
}

// AuditRecorder persists audit entries. The interface decouples the
// middleware from the audit store so tests can provide a mock.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit returns middleware that writes an audit entry for every request under
// /api/v1/ and /auth/. It runs inside the auth middleware, so the entry
// carries the authenticated principal; login attempts pass through the auth
// skipper and are recorded without one.
//
// A recorder failure never fails the request; it is logged and the response
// goes out as the handler produced it. Without a recorder the middleware
// still emits a structured log line per audited request.
func Audit(logger zerolog.Logger, recorders ...AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if !isAuditablePath(path) {
				return next(c)
			}

			err := next(c)

			req := c.Request()
			entry := AuditEntry{
				Action:     methodToAction(req.Method),
				Resource:   resourceFromPath(path),
				Method:     req.Method,
				Path:       path,
				Status:     responseStatus(c, err),
				RemoteAddr: c.RealIP(),
				UserAgent:  req.UserAgent(),
				Recorded:   time.Now().UTC(),
			}
			if p, ok := auth.PrincipalFromContext(req.Context()); ok {
				entry.ActorID = p.UserID
				entry.ActorRole = string(p.Role)
			}
			if rid, ok := c.Get("request_id").(string); ok {
				entry.RequestID = rid
			}
			entry.PatientID = patientIDFromPath(path)

			if len(recorders) > 0 && recorders[0] != nil {
				if recErr := recorders[0].RecordAccess(req.Context(), entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
			}

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("actor_id", entry.ActorID.String()).
				Str("actor_role", entry.ActorRole).
				Str("action", entry.Action).
				Str("resource", entry.Resource).
				Str("method", entry.Method).
				Str("path", entry.Path).
				Int("status", entry.Status).
				Str("remote_ip", entry.RemoteAddr).
				Msg("access")

			return err
		}
	}
}

func isAuditablePath(path string) bool {
	return strings.HasPrefix(path, "/api/v1/") || strings.HasPrefix(path, "/auth/")
}

// responseStatus resolves the status the client will see. When the handler
// chain returned an error the response is not committed yet, so the status
// comes from the error rather than c.Response().
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	return http.StatusInternalServerError
}

func methodToAction(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return "read"
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// resourceFromPath returns the first path segment under the audited prefix:
// /api/v1/assignments/123 -> assignments, /auth/login -> login.
func resourceFromPath(path string) string {
	var rest string
	switch {
	case strings.HasPrefix(path, "/api/v1/"):
		rest = strings.TrimPrefix(path, "/api/v1/")
	case strings.HasPrefix(path, "/auth/"):
		rest = strings.TrimPrefix(path, "/auth/")
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	if rest == "" {
		return "unknown"
	}
	return rest
}

// patientIDFromPath pulls the patient id out of /api/v1/patients/<id> paths.
// Other routes carry no patient reference in the URL; uuid.Nil means none.
func patientIDFromPath(path string) uuid.UUID {
	const prefix = "/api/v1/patients/"
	if !strings.HasPrefix(path, prefix) {
		return uuid.Nil
	}
	seg := strings.TrimPrefix(path, prefix)
	if i := strings.IndexByte(seg, '/'); i >= 0 {
		seg = seg[:i]
	}
	id, err := uuid.Parse(seg)
	if err != nil {
		return uuid.Nil
	}
	return id
}
