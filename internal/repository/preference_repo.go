package repository

import (
	"context"

	"github.com/carebridge/notification-engine/internal/domain"
	"gorm.io/gorm"
)

// PreferenceRepository reads user channel preferences. Writes happen via
// the settings surface outside this core.
type PreferenceRepository interface {
	GetEnabled(ctx context.Context, userID string, event domain.EventType) ([]domain.NotificationPreference, error)
}

type GormPreferenceRepo struct {
	db *gorm.DB
}

func NewGormPreferenceRepo(db *gorm.DB) *GormPreferenceRepo {
	return &GormPreferenceRepo{db: db}
}

func (r *GormPreferenceRepo) GetEnabled(ctx context.Context, userID string, event domain.EventType) ([]domain.NotificationPreference, error) {
	var models []NotificationPreferenceModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_type = ? AND enabled = ?", userID, event, true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	prefs := make([]domain.NotificationPreference, 0, len(models))
	for i := range models {
		prefs = append(prefs, *preferenceModelToDomain(&models[i]))
	}

	return prefs, nil
}
