package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopchat/shopchat/internal/auth"
	"github.com/shopchat/shopchat/internal/session"
)

type chatRequest struct {
	Question string `json:"question"`
}

func handleChat(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Pipeline == nil || deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat dependencies are not configured", false, nil)
		return
	}
	if err := requireRole(r, "chat_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.Question) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "QUESTION_REQUIRED", "question is required", false, nil)
		return
	}

	manager := deps.Sessions.Get(sessionFromRequest(r))
	// Turn-level failures (rejected SQL, execution errors) are part of
	// the conversation, not transport errors.
	response := deps.Pipeline.ProcessQuery(r.Context(), manager, request.Question)
	writeJSON(w, http.StatusOK, response)
}

func sessionFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Session-ID"))
}

func requireRole(r *http.Request, role string) error {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		return nil
	}
	if identity.HasRole(role) {
		return nil
	}
	return fmt.Errorf("missing required role %q", role)
}

func managerFromRequest(deps Dependencies, r *http.Request) (*session.Manager, string) {
	sessionID := sessionFromRequest(r)
	if sessionID == "" {
		sessionID = session.DefaultSessionID
	}
	return deps.Sessions.Get(sessionID), sessionID
}
