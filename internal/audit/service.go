// Package audit records administrative changes to pricing inputs: discount
// profiles, delivery rules, products and user tiers.
package audit

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/noah-isme/backend-apotek/internal/common"
	"github.com/noah-isme/backend-apotek/internal/db"
	"github.com/noah-isme/backend-apotek/internal/obs"
)

// Resource types.
const (
	ResourceProduct      = "product"
	ResourceDiscounts    = "product_discounts"
	ResourceDeliveryRule = "delivery_rule"
	ResourceUserTier     = "user_tier"
)

// Store defines the database operations required for auditing.
type Store interface {
	InsertAuditLog(ctx context.Context, arg db.InsertAuditLogParams) (db.AuditLog, error)
	ListAuditLogs(ctx context.Context, arg db.ListAuditLogsParams) ([]db.AuditLog, error)
}

// Entry is one audited change.
type Entry struct {
	ActorUserID  string
	Action       string
	ResourceType string
	ResourceID   string
	Method       string
	Route        string
	Status       int
	IP           string
	UserAgent    string
	RequestID    string
	Metadata     []byte
}

// Service persists audit entries.
type Service struct {
	Store   Store
	Enabled bool
}

// EntryFromRequest fills the request derived fields of an entry.
func EntryFromRequest(req *http.Request, resourceType, resourceID string, status int) Entry {
	route := obs.RoutePattern(req)
	if route == "" {
		route = req.URL.Path
	}
	userID, _ := common.UserID(req.Context())
	return Entry{
		ActorUserID:  userID,
		Action:       strings.ToUpper(req.Method) + " " + route,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Method:       req.Method,
		Route:        route,
		Status:       status,
		IP:           common.ClientIP(req),
		UserAgent:    strings.TrimSpace(req.UserAgent()),
		RequestID:    middleware.GetReqID(req.Context()),
	}
}

// Record persists e when auditing is enabled.
func (s Service) Record(ctx context.Context, e Entry) error {
	if !s.Enabled {
		return nil
	}
	if s.Store == nil {
		return errors.New("audit: store not configured")
	}
	if strings.TrimSpace(e.ResourceType) == "" {
		return errors.New("audit: resource type is required")
	}
	status := e.Status
	if status == 0 {
		status = http.StatusOK
	}
	actor, err := db.ParseUUID(e.ActorUserID)
	if err != nil {
		actor = pgtype.UUID{}
	}
	_, err = s.Store.InsertAuditLog(ctx, db.InsertAuditLogParams{
		ActorUserID:  actor,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   nullText(e.ResourceID),
		Method:       e.Method,
		Route:        e.Route,
		Status:       int32(status),
		IP:           nullText(e.IP),
		UserAgent:    nullText(e.UserAgent),
		RequestID:    nullText(e.RequestID),
		Metadata:     e.Metadata,
	})
	return err
}

// List returns the newest entries first, optionally for one resource type.
func (s Service) List(ctx context.Context, resourceType string, p common.Pagination) ([]db.AuditLog, error) {
	if s.Store == nil {
		return nil, errors.New("audit: store not configured")
	}
	return s.Store.ListAuditLogs(ctx, db.ListAuditLogsParams{
		ResourceType: strings.TrimSpace(resourceType),
		Limit:        int32(p.PerPage),
		Offset:       int32(p.Offset()),
	})
}

func nullText(v string) pgtype.Text {
	v = strings.TrimSpace(v)
	if v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: v, Valid: true}
}
