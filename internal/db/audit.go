package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const auditLogColumns = `id, actor_user_id, action, resource_type, resource_id, method, route, status, ip, user_agent, request_id, metadata, created_at`

type InsertAuditLogParams struct {
	ActorUserID  pgtype.UUID
	Action       string
	ResourceType string
	ResourceID   pgtype.Text
	Method       string
	Route        string
	Status       int32
	IP           pgtype.Text
	UserAgent    pgtype.Text
	RequestID    pgtype.Text
	Metadata     []byte
}

const insertAuditLog = `INSERT INTO audit_logs (actor_user_id, action, resource_type, resource_id, method, route, status, ip, user_agent, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + auditLogColumns

func scanAuditLog(row pgx.Row) (AuditLog, error) {
	var a AuditLog
	err := row.Scan(&a.ID, &a.ActorUserID, &a.Action, &a.ResourceType, &a.ResourceID, &a.Method,
		&a.Route, &a.Status, &a.IP, &a.UserAgent, &a.RequestID, &a.Metadata, &a.CreatedAt)
	return a, err
}

func (q *Queries) InsertAuditLog(ctx context.Context, arg InsertAuditLogParams) (AuditLog, error) {
	return scanAuditLog(q.db.QueryRow(ctx, insertAuditLog, arg.ActorUserID, arg.Action, arg.ResourceType,
		arg.ResourceID, arg.Method, arg.Route, arg.Status, arg.IP, arg.UserAgent, arg.RequestID, arg.Metadata))
}

type ListAuditLogsParams struct {
	ResourceType string
	Limit        int32
	Offset       int32
}

const listAuditLogs = `SELECT ` + auditLogColumns + ` FROM audit_logs
WHERE ($1::text = '' OR resource_type = $1::text)
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListAuditLogs(ctx context.Context, arg ListAuditLogsParams) ([]AuditLog, error) {
	rows, err := q.db.Query(ctx, listAuditLogs, arg.ResourceType, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AuditLog
	for rows.Next() {
		a, err := scanAuditLog(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}
