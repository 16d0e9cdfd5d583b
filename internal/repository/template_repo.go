package repository

import (
	"context"
	"errors"

	"github.com/carebridge/notification-engine/internal/domain"
	"gorm.io/gorm"
)

// TemplateRepository resolves authored templates. FindActive implements
// the first two resolution tiers: an active tenant template wins over an
// active system-wide default. The compiled-in builtin (third tier) lives
// in the template package, not in storage.
type TemplateRepository interface {
	FindActive(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) FindActive(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error) {
	var model NotificationTemplateModel
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND event_type = ? AND channel = ? AND is_active = ?", companyID, event, channel, true).
		Order("updated_at DESC").
		First(&model).Error
	if err == nil {
		return templateModelToDomain(&model), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	err = r.db.WithContext(ctx).
		Where("company_id IS NULL AND event_type = ? AND channel = ? AND is_default = ? AND is_active = ?", event, channel, true, true).
		Order("updated_at DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return templateModelToDomain(&model), nil
}
