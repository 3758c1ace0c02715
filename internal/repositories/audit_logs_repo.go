package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"agencydesk/internal/models"

	"github.com/google/uuid"
)

type AuditLogRepository interface {
	Create(ctx context.Context, auditLog *models.AuditLog) error
	// List returns entries newest first.
	List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
	// DeleteBefore removes entries older than before and reports how many went.
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type auditLogRepo struct {
	db  DBTX
	now func() time.Time
}

func NewAuditLogRepo(db DBTX, now func() time.Time) AuditLogRepository {
	if now == nil {
		now = time.Now
	}
	return &auditLogRepo{db: db, now: now}
}

func (r *auditLogRepo) Create(ctx context.Context, auditLog *models.AuditLog) error {
	if auditLog.ID == uuid.Nil {
		auditLog.ID = uuid.New()
	}
	if auditLog.CreatedAt.IsZero() {
		auditLog.CreatedAt = r.now().UTC()
	}

	var details []byte
	if auditLog.Details != nil {
		var err error
		details, err = json.Marshal(auditLog.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_logs (id, tenant_id, actor_id, action, status, request_id, remote_ip, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query, auditLog.ID, auditLog.TenantID, auditLog.ActorID, auditLog.Action,
		auditLog.Status, auditLog.RequestID, auditLog.RemoteIP, details, auditLog.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *auditLogRepo) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}

	query := `
		SELECT id, tenant_id, actor_id, action, status, request_id, remote_ip, details, created_at
		FROM audit_logs
		WHERE 1 = 1
	`
	var args []any
	argIdx := 0

	if filters.Action != "" {
		argIdx++
		query += fmt.Sprintf(" AND action = $%d", argIdx)
		args = append(args, filters.Action)
	}
	if filters.ActorID != nil {
		argIdx++
		query += fmt.Sprintf(" AND actor_id = $%d", argIdx)
		args = append(args, *filters.ActorID)
	}
	if filters.TenantID != nil {
		argIdx++
		query += fmt.Sprintf(" AND tenant_id = $%d", argIdx)
		args = append(args, *filters.TenantID)
	}
	if filters.From != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filters.From)
	}
	if filters.To != nil {
		argIdx++
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filters.To)
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		argIdx++
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		if filters.Offset > 0 {
			argIdx++
			query += fmt.Sprintf(" OFFSET $%d", argIdx)
			args = append(args, filters.Offset)
		}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	defer rows.Close()

	auditLogs := make([]*models.AuditLog, 0)
	for rows.Next() {
		auditLog := &models.AuditLog{}
		var details []byte
		if err := rows.Scan(&auditLog.ID, &auditLog.TenantID, &auditLog.ActorID, &auditLog.Action,
			&auditLog.Status, &auditLog.RequestID, &auditLog.RemoteIP, &details, &auditLog.CreatedAt); err != nil {
			return nil, err
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &auditLog.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		auditLogs = append(auditLogs, auditLog)
	}
	return auditLogs, rows.Err()
}

func (r *auditLogRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete audit logs: %w", err)
	}
	return tag.RowsAffected(), nil
}
