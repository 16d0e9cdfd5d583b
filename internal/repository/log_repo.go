package repository

import (
	"context"
	"errors"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"gorm.io/gorm"
)

type LogListParams struct {
	Status    *domain.Status
	Channel   *domain.Channel
	EventType *domain.EventType
	UserID    *string
	CompanyID *string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

// LogRepository persists notification log rows. Rows are append/update
// only: nothing in the core ever deletes a delivery record.
type LogRepository interface {
	Create(ctx context.Context, n *domain.NotificationLog) error
	GetByID(ctx context.Context, id string) (*domain.NotificationLog, error)
	List(ctx context.Context, params LogListParams) ([]domain.NotificationLog, int64, error)

	// GetDueScheduled returns PENDING rows whose scheduledFor has passed.
	GetDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error)
	// ClaimScheduled atomically moves a PENDING row to QUEUED. Returns
	// false when another sweep already claimed it.
	ClaimScheduled(ctx context.Context, id string, now time.Time) (bool, error)

	// GetRetryable returns FAILED rows with retry budget remaining.
	GetRetryable(ctx context.Context, limit int) ([]domain.NotificationLog, error)
	// ClaimRetry atomically moves a FAILED row back to QUEUED and
	// increments its retry count, guarded by the retry budget. Returns
	// false when the row was already claimed or has exhausted retries.
	ClaimRetry(ctx context.Context, id string) (bool, error)

	// FailStaleQueued finalizes QUEUED rows untouched since before cutoff
	// as FAILED. A crash between claiming (or creating) a row and the
	// send leaves it QUEUED forever otherwise, since neither sweep
	// selects QUEUED. Returns the number of rescued rows.
	FailStaleQueued(ctx context.Context, cutoff time.Time, reason string, at time.Time) (int64, error)

	// MarkSent finalizes a QUEUED row as SENT. SENT is terminal: the
	// conditional status guard keeps concurrent sweeps from re-touching
	// an already finished row.
	MarkSent(ctx context.Context, id string, messageID *string, at time.Time) error
	// MarkFailed finalizes a QUEUED row as FAILED with the failure reason.
	MarkFailed(ctx context.Context, id string, reason string, at time.Time) error
}

type GormLogRepo struct {
	db *gorm.DB
}

func NewGormLogRepo(db *gorm.DB) *GormLogRepo {
	return &GormLogRepo{db: db}
}

func (r *GormLogRepo) Create(ctx context.Context, n *domain.NotificationLog) error {
	model := logModelFromDomain(n)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if n != nil {
		*n = *logModelToDomain(model)
	}
	return nil
}

func (r *GormLogRepo) GetByID(ctx context.Context, id string) (*domain.NotificationLog, error) {
	var model NotificationLogModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return logModelToDomain(&model), nil
}

func (r *GormLogRepo) List(ctx context.Context, params LogListParams) ([]domain.NotificationLog, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationLogModel{})

	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Channel != nil {
		query = query.Where("channel = ?", *params.Channel)
	}
	if params.EventType != nil {
		query = query.Where("event_type = ?", *params.EventType)
	}
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.CompanyID != nil {
		query = query.Where("company_id = ?", *params.CompanyID)
	}
	if params.From != nil {
		query = query.Where("created_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("created_at <= ?", *params.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []NotificationLogModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	logs := make([]domain.NotificationLog, 0, len(models))
	for i := range models {
		logs = append(logs, *logModelToDomain(&models[i]))
	}

	return logs, total, nil
}

func (r *GormLogRepo) GetDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error) {
	var models []NotificationLogModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?", domain.StatusPending, now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.NotificationLog, 0, len(models))
	for i := range models {
		logs = append(logs, *logModelToDomain(&models[i]))
	}

	return logs, nil
}

func (r *GormLogRepo) ClaimScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationLogModel{}).
		Where("id = ? AND status = ? AND scheduled_for <= ?", id, domain.StatusPending, now).
		Update("status", domain.StatusQueued)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormLogRepo) GetRetryable(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
	var models []NotificationLogModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND retry_count < max_retries", domain.StatusFailed).
		Order("failed_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	logs := make([]domain.NotificationLog, 0, len(models))
	for i := range models {
		logs = append(logs, *logModelToDomain(&models[i]))
	}

	return logs, nil
}

func (r *GormLogRepo) ClaimRetry(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationLogModel{}).
		Where("id = ? AND status = ? AND retry_count < max_retries", id, domain.StatusFailed).
		Updates(map[string]any{
			"status":      domain.StatusQueued,
			"retry_count": gorm.Expr("retry_count + 1"),
			"failed_at":   nil,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormLogRepo) FailStaleQueued(ctx context.Context, cutoff time.Time, reason string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&NotificationLogModel{}).
		Where("status = ? AND updated_at < ?", domain.StatusQueued, cutoff).
		Updates(map[string]any{
			"status":     domain.StatusFailed,
			"failed_at":  at,
			"last_error": reason,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *GormLogRepo) MarkSent(ctx context.Context, id string, messageID *string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationLogModel{}).
		Where("id = ? AND status = ?", id, domain.StatusQueued).
		Updates(map[string]any{
			"status":     domain.StatusSent,
			"message_id": messageID,
			"sent_at":    at,
			"failed_at":  nil,
			"last_error": nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormLogRepo) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NotificationLogModel{}).
		Where("id = ? AND status = ?", id, domain.StatusQueued).
		Updates(map[string]any{
			"status":     domain.StatusFailed,
			"failed_at":  at,
			"sent_at":    nil,
			"last_error": reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}
