package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/db"
)

// Handler exposes HTTP endpoints for working with audit logs.
type Handler struct {
	Service Service
}

// Log is the API view of an audit entry.
type Log struct {
	ID           string          `json:"id"`
	ActorUserID  string          `json:"actorUserId,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Status       int32           `json:"status"`
	UserAgent    string          `json:"userAgent,omitempty"`
	RequestID    string          `json:"requestId,omitempty"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// List handles GET /api/v1/admin/audit?resource=&page=&limit=.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, 50, 200)
	p := common.Pagination{Page: page, PerPage: perPage}
	rows, err := h.Service.List(r.Context(), r.URL.Query().Get("resource"), p)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "AUDIT_QUERY_FAILED", "unable to fetch audit logs", nil)
		return
	}
	out := make([]Log, 0, len(rows))
	for _, row := range rows {
		out = append(out, toLog(row))
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out, "pagination": p})
}

func toLog(a db.AuditLog) Log {
	return Log{
		ID:           db.UUIDString(a.ID),
		ActorUserID:  db.UUIDString(a.ActorUserID),
		Action:       a.Action,
		ResourceType: a.ResourceType,
		ResourceID:   a.ResourceID.String,
		Status:       a.Status,
		UserAgent:    a.UserAgent.String,
		RequestID:    a.RequestID.String,
		Metadata:     a.Metadata,
		CreatedAt:    a.CreatedAt.Time,
	}
}
