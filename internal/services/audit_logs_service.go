package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"agencydesk/internal/models"
	"agencydesk/internal/repositories"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type AuditLogService interface {
	// Record persists entry. Failures are logged and swallowed so a broken audit
	// table never fails the request being audited.
	Record(ctx context.Context, entry *models.AuditLog)
	List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error)
	// Prune deletes entries older than the retention window.
	Prune(ctx context.Context) (int64, error)
}

type auditLogService struct {
	repo      repositories.AuditLogRepository
	retention time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewAuditLogService(repo repositories.AuditLogRepository, retention time.Duration, now func() time.Time, logger *slog.Logger) AuditLogService {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &auditLogService{
		repo:      repo,
		retention: retention,
		now:       now,
		logger:    logger.With("component", "audit"),
	}
}

func (s *auditLogService) Record(ctx context.Context, entry *models.AuditLog) {
	if entry == nil || strings.TrimSpace(entry.Action) == "" {
		return
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", "action", entry.Action, "status", entry.Status, "error", err)
	}
}

func (s *auditLogService) List(ctx context.Context, filters *models.AuditLogFilters) ([]*models.AuditLog, error) {
	if filters == nil {
		filters = &models.AuditLogFilters{}
	}
	if err := validateAuditFilters(filters); err != nil {
		return nil, err
	}
	logs, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return logs, nil
}

func (s *auditLogService) Prune(ctx context.Context) (int64, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	return s.repo.DeleteBefore(ctx, s.now().UTC().Add(-s.retention))
}

// validateAuditFilters clamps paging in place and rejects inverted ranges.
func validateAuditFilters(filters *models.AuditLogFilters) error {
	if filters.Limit <= 0 || filters.Limit > maxAuditLimit {
		filters.Limit = defaultAuditLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	if filters.From != nil && filters.To != nil && filters.From.After(*filters.To) {
		return ValidationError("from", "from must not be after to")
	}
	return nil
}
