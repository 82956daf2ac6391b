package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type validateRequest struct {
	SQL string `json:"sql"`
}

type validateResponse struct {
	Valid  bool     `json:"valid"`
	Reason string   `json:"reason,omitempty"`
	Check  string   `json:"check,omitempty"`
	Tables []string `json:"tables,omitempty"`
}

func handleValidateSQL(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Validator == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "VALIDATOR_NOT_CONFIGURED", "validator is not configured", false, nil)
		return
	}
	if err := requireRole(r, "chat_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	var request validateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid validate request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	verdict := deps.Validator.Validate(request.SQL)
	writeJSON(w, http.StatusOK, validateResponse{
		Valid:  verdict.Valid,
		Reason: verdict.Reason,
		Check:  verdict.Check,
		Tables: verdict.Tables,
	})
}
