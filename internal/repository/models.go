package repository

import (
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
)

// NotificationLogModel is the persistence model for notification_logs.
type NotificationLogModel struct {
	ID                string           `gorm:"type:uuid;primaryKey"`
	EventType         domain.EventType `gorm:"type:varchar(40);not null"`
	Channel           domain.Channel   `gorm:"type:varchar(10);not null"`
	Status            domain.Status    `gorm:"type:varchar(10);not null"`
	Subject           *string          `gorm:"type:varchar(500)"`
	Body              string           `gorm:"type:text;not null"`
	UserID            string           `gorm:"type:uuid;not null"`
	CompanyID         string           `gorm:"type:uuid;not null"`
	ScheduledFor      *time.Time       `gorm:"type:timestamptz"`
	RelatedEntityType *string          `gorm:"type:varchar(60)"`
	RelatedEntityID   *string          `gorm:"type:varchar(64)"`
	RetryCount        int              `gorm:"not null;default:0"`
	MaxRetries        int              `gorm:"not null;default:3"`
	LastError         *string          `gorm:"type:text"`
	MessageID         *string          `gorm:"type:varchar(255)"`
	SentAt            *time.Time       `gorm:"type:timestamptz"`
	FailedAt          *time.Time       `gorm:"type:timestamptz"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

// NotificationPreferenceModel is the persistence model for notification_preferences.
type NotificationPreferenceModel struct {
	ID        string           `gorm:"type:uuid;primaryKey"`
	UserID    string           `gorm:"type:uuid;not null"`
	EventType domain.EventType `gorm:"type:varchar(40);not null"`
	Channel   domain.Channel   `gorm:"type:varchar(10);not null"`
	Enabled   bool             `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NotificationPreferenceModel) TableName() string {
	return "notification_preferences"
}

// NotificationTemplateModel is the persistence model for notification_templates.
type NotificationTemplateModel struct {
	ID        string           `gorm:"type:uuid;primaryKey"`
	CompanyID *string          `gorm:"type:uuid"`
	EventType domain.EventType `gorm:"type:varchar(40);not null"`
	Channel   domain.Channel   `gorm:"type:varchar(10);not null"`
	Subject   *string          `gorm:"type:varchar(500)"`
	Body      string           `gorm:"type:text;not null"`
	IsDefault bool             `gorm:"not null;default:false"`
	IsActive  bool             `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (NotificationTemplateModel) TableName() string {
	return "notification_templates"
}

// RecipientModel is the read-only persistence view of the user directory.
type RecipientModel struct {
	ID          string  `gorm:"type:uuid;primaryKey"`
	Email       string  `gorm:"type:varchar(255);not null"`
	Phone       *string `gorm:"type:varchar(32)"`
	FirstName   string  `gorm:"type:varchar(100);not null"`
	LastName    string  `gorm:"type:varchar(100);not null"`
	CompanyID   string  `gorm:"type:uuid;not null"`
	CompanyName string  `gorm:"type:varchar(200);not null"`
	IsActive    bool    `gorm:"not null;default:true"`
}

func (RecipientModel) TableName() string {
	return "recipients"
}

// InboxMessageModel is the persistence model for inbox_messages.
type InboxMessageModel struct {
	ID                string           `gorm:"type:uuid;primaryKey"`
	UserID            string           `gorm:"type:uuid;not null"`
	CompanyID         string           `gorm:"type:uuid;not null"`
	EventType         domain.EventType `gorm:"type:varchar(40);not null"`
	Title             string           `gorm:"type:varchar(500);not null"`
	Body              string           `gorm:"type:text;not null"`
	RelatedEntityType *string          `gorm:"type:varchar(60)"`
	RelatedEntityID   *string          `gorm:"type:varchar(64)"`
	ReadAt            *time.Time       `gorm:"type:timestamptz"`
	CreatedAt         time.Time
}

func (InboxMessageModel) TableName() string {
	return "inbox_messages"
}

func logModelFromDomain(n *domain.NotificationLog) *NotificationLogModel {
	if n == nil {
		return nil
	}

	return &NotificationLogModel{
		ID:                n.ID,
		EventType:         n.EventType,
		Channel:           n.Channel,
		Status:            n.Status,
		Subject:           n.Subject,
		Body:              n.Body,
		UserID:            n.UserID,
		CompanyID:         n.CompanyID,
		ScheduledFor:      n.ScheduledFor,
		RelatedEntityType: n.RelatedEntityType,
		RelatedEntityID:   n.RelatedEntityID,
		RetryCount:        n.RetryCount,
		MaxRetries:        n.MaxRetries,
		LastError:         n.LastError,
		MessageID:         n.MessageID,
		SentAt:            n.SentAt,
		FailedAt:          n.FailedAt,
		CreatedAt:         n.CreatedAt,
		UpdatedAt:         n.UpdatedAt,
	}
}

func logModelToDomain(m *NotificationLogModel) *domain.NotificationLog {
	if m == nil {
		return nil
	}

	return &domain.NotificationLog{
		ID:                m.ID,
		EventType:         m.EventType,
		Channel:           m.Channel,
		Status:            m.Status,
		Subject:           m.Subject,
		Body:              m.Body,
		UserID:            m.UserID,
		CompanyID:         m.CompanyID,
		ScheduledFor:      m.ScheduledFor,
		RelatedEntityType: m.RelatedEntityType,
		RelatedEntityID:   m.RelatedEntityID,
		RetryCount:        m.RetryCount,
		MaxRetries:        m.MaxRetries,
		LastError:         m.LastError,
		MessageID:         m.MessageID,
		SentAt:            m.SentAt,
		FailedAt:          m.FailedAt,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func preferenceModelToDomain(m *NotificationPreferenceModel) *domain.NotificationPreference {
	if m == nil {
		return nil
	}

	return &domain.NotificationPreference{
		ID:        m.ID,
		UserID:    m.UserID,
		EventType: m.EventType,
		Channel:   m.Channel,
		Enabled:   m.Enabled,
	}
}

func templateModelToDomain(m *NotificationTemplateModel) *domain.NotificationTemplate {
	if m == nil {
		return nil
	}

	return &domain.NotificationTemplate{
		ID:        m.ID,
		CompanyID: m.CompanyID,
		EventType: m.EventType,
		Channel:   m.Channel,
		Subject:   m.Subject,
		Body:      m.Body,
		IsDefault: m.IsDefault,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func recipientModelToDomain(m *RecipientModel) *domain.Recipient {
	if m == nil {
		return nil
	}

	return &domain.Recipient{
		ID:          m.ID,
		Email:       m.Email,
		Phone:       m.Phone,
		FirstName:   m.FirstName,
		LastName:    m.LastName,
		CompanyID:   m.CompanyID,
		CompanyName: m.CompanyName,
		IsActive:    m.IsActive,
	}
}

func inboxModelFromDomain(msg *domain.InboxMessage) *InboxMessageModel {
	if msg == nil {
		return nil
	}

	return &InboxMessageModel{
		ID:                msg.ID,
		UserID:            msg.UserID,
		CompanyID:         msg.CompanyID,
		EventType:         msg.EventType,
		Title:             msg.Title,
		Body:              msg.Body,
		RelatedEntityType: msg.RelatedEntityType,
		RelatedEntityID:   msg.RelatedEntityID,
		ReadAt:            msg.ReadAt,
		CreatedAt:         msg.CreatedAt,
	}
}

func inboxModelToDomain(m *InboxMessageModel) *domain.InboxMessage {
	if m == nil {
		return nil
	}

	return &domain.InboxMessage{
		ID:                m.ID,
		UserID:            m.UserID,
		CompanyID:         m.CompanyID,
		EventType:         m.EventType,
		Title:             m.Title,
		Body:              m.Body,
		RelatedEntityType: m.RelatedEntityType,
		RelatedEntityID:   m.RelatedEntityID,
		ReadAt:            m.ReadAt,
		CreatedAt:         m.CreatedAt,
	}
}
