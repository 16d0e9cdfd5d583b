package repository

import (
	"context"
	"errors"

	"github.com/carebridge/notification-engine/internal/domain"
	"gorm.io/gorm"
)

// RecipientRepository reads the user directory mirror. Lookups are always
// scoped or verifiable by tenant so one company's dispatch can never
// address another company's users.
type RecipientRepository interface {
	// GetActiveByIDs loads the given recipients, keeping only active rows
	// belonging to companyID. Missing ids are silently absent from the
	// result; they are not an error.
	GetActiveByIDs(ctx context.Context, companyID string, ids []string) ([]domain.Recipient, error)
	GetByID(ctx context.Context, id string) (*domain.Recipient, error)
}

type GormRecipientRepo struct {
	db *gorm.DB
}

func NewGormRecipientRepo(db *gorm.DB) *GormRecipientRepo {
	return &GormRecipientRepo{db: db}
}

func (r *GormRecipientRepo) GetActiveByIDs(ctx context.Context, companyID string, ids []string) ([]domain.Recipient, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []RecipientModel
	err := r.db.WithContext(ctx).
		Where("id IN ? AND company_id = ? AND is_active = ?", ids, companyID, true).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	recipients := make([]domain.Recipient, 0, len(models))
	for i := range models {
		recipients = append(recipients, *recipientModelToDomain(&models[i]))
	}

	return recipients, nil
}

func (r *GormRecipientRepo) GetByID(ctx context.Context, id string) (*domain.Recipient, error) {
	var model RecipientModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return recipientModelToDomain(&model), nil
}
