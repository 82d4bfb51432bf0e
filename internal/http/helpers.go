package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/securecookie"

	"custdash/internal/core"
	applog "custdash/internal/log"
	"custdash/internal/services"
)

// SessionCookieName identifies the dashboard session cookie.
const SessionCookieName = "custdash_session"

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// session returns the caller's controller, starting a new session with a
// fresh id when the cookie is missing, invalid or its session has expired.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *services.Controller {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		var id string
		if err := s.cookies.Decode(SessionCookieName, c.Value, &id); err != nil {
			logCookieError(r, err)
		} else if ctrl, ok := s.sessions.Get(id); ok {
			return ctrl
		}
	}

	id, err := services.NewSessionID()
	if err != nil {
		// Unreachable in practice; fall back to a throwaway controller so the
		// request still renders.
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to create session id",
			applog.FieldError, err)
		ctrl := services.NewController(nil, s.logger)
		if snap := s.snapshot(); snap != nil {
			ctrl.Load(snap)
		}
		return ctrl
	}

	ctrl, _ := s.sessions.GetOrCreate(id)
	encoded, err := s.cookies.Encode(SessionCookieName, id)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to sign session cookie",
			applog.FieldError, err)
		return ctrl
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return ctrl
}

// logCookieError records why a session cookie was rejected. Expired cookies
// are routine; anything else may be tampering.
func logCookieError(r *http.Request, err error) {
	logger := applog.FromContext(r.Context())
	var scErr securecookie.Error
	if errors.As(err, &scErr) && scErr.IsDecode() && strings.Contains(strings.ToLower(err.Error()), "expired") {
		logger.DebugContext(r.Context(), "Session cookie expired")
		return
	}
	logger.WarnContext(r.Context(), "Rejected session cookie",
		applog.FieldError, err,
		"error_type", applog.ErrorTypeValidation)
}

func (s *Server) snapshot() *core.Snapshot {
	if s.loader == nil {
		return nil
	}
	return s.loader.Snapshot()
}

func (s *Server) loadStatus() services.LoadStatus {
	if s.loader == nil {
		return services.StatusUnavailable
	}
	return s.loader.Status()
}
