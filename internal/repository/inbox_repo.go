package repository

import (
	"context"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"gorm.io/gorm"
)

// InboxRepository stores in-app notifications. The in-app channel
// provider writes rows; the inbox read surface consumes them.
type InboxRepository interface {
	Create(ctx context.Context, msg *domain.InboxMessage) error
	ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.InboxMessage, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string, userID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) error
}

type GormInboxRepo struct {
	db *gorm.DB
}

func NewGormInboxRepo(db *gorm.DB) *GormInboxRepo {
	return &GormInboxRepo{db: db}
}

func (r *GormInboxRepo) Create(ctx context.Context, msg *domain.InboxMessage) error {
	model := inboxModelFromDomain(msg)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if msg != nil {
		*msg = *inboxModelToDomain(model)
	}
	return nil
}

func (r *GormInboxRepo) ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.InboxMessage, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&InboxMessageModel{}).
		Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page = max(page, 1)
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []InboxMessageModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	messages := make([]domain.InboxMessage, 0, len(models))
	for i := range models {
		messages = append(messages, *inboxModelToDomain(&models[i]))
	}

	return messages, total, nil
}

func (r *GormInboxRepo) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&InboxMessageModel{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormInboxRepo) MarkRead(ctx context.Context, id string, userID string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&InboxMessageModel{}).
		Where("id = ? AND user_id = ? AND read_at IS NULL", id, userID).
		Update("read_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormInboxRepo) MarkAllRead(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&InboxMessageModel{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", at).Error
}
