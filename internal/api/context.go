package api

import (
	"net/http"
)

func handleContextSummary(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}
	if err := requireRole(r, "chat_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	manager, sessionID := managerFromRequest(deps, r)
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"summary":    manager.Summary(),
		"warning":    manager.Warning(),
	})
}

func handleContextHistory(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}
	if err := requireRole(r, "chat_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	manager, _ := managerFromRequest(deps, r)
	data, err := manager.Export()
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "EXPORT_FAILED", "failed to export conversation history", true, map[string]any{"details": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func handleContextClear(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}
	if err := requireRole(r, "chat_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	manager, sessionID := managerFromRequest(deps, r)
	manager.Clear()
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "session_id": sessionID})
}

func handleContextArchive(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Sessions == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SESSIONS_NOT_CONFIGURED", "session store is not configured", false, nil)
		return
	}
	if deps.Archiver == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ARCHIVE_NOT_CONFIGURED", "transcript archiving is not configured", false, nil)
		return
	}
	if err := requireRole(r, "chat_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	manager, sessionID := managerFromRequest(deps, r)
	entries := manager.Entries()
	if len(entries) == 0 {
		writeError(r.Context(), w, http.StatusBadRequest, "EMPTY_CONTEXT", "session has no conversation to archive", false, map[string]any{"session_id": sessionID})
		return
	}

	key, count, err := deps.Archiver.ArchiveSession(r.Context(), sessionID, entries)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "ARCHIVE_FAILED", "failed to archive transcript", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":   sessionID,
		"object_key":   key,
		"record_count": count,
	})
}
