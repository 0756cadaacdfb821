package http

import (
	"fmt"
	"net/http"
)

const (
	sessionName  = "picshed_session"
	sessionOwner = "owner_id"
)

// ownerFromSession reads the authenticated owner id from the request's
// session cookie. A missing or malformed cookie simply means no session.
func (h *Handler) ownerFromSession(r *http.Request) (string, bool) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		return "", false
	}

	owner, ok := session.Values[sessionOwner].(string)
	if !ok || owner == "" {
		return "", false
	}

	return owner, true
}

// startSession stores the owner id in a fresh session cookie.
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, ownerID string) error {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil {
		// A stale or tampered cookie decodes with an error but still yields
		// a usable new session; only a nil session is fatal.
		if session == nil {
			return fmt.Errorf("get session: %w", err)
		}
	}

	session.Values[sessionOwner] = ownerID
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	return nil
}

// endSession expires the session cookie.
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.Get(r, sessionName)
	if err != nil && session == nil {
		return
	}

	delete(session.Values, sessionOwner)
	session.Options.MaxAge = -1
	_ = session.Save(r, w)
}
