package api

import "net/http"

type schemaColumn struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

type schemaTable struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Columns     []schemaColumn `json:"columns"`
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Schema == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SCHEMA_NOT_CONFIGURED", "schema catalog is not configured", false, nil)
		return
	}
	if err := requireRole(r, "chat_user"); err != nil {
		writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
		return
	}

	tables := deps.Schema.Tables()
	response := make([]schemaTable, 0, len(tables))
	for _, table := range tables {
		columns := make([]schemaColumn, 0, len(table.Columns))
		for _, column := range table.Columns {
			columns = append(columns, schemaColumn{
				Name:        column.Name,
				Type:        column.Type,
				Description: column.Description,
			})
		}
		response = append(response, schemaTable{
			Name:        table.Name,
			Description: table.Description,
			Columns:     columns,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": response})
}
