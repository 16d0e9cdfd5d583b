package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type NotificationReader interface {
	GetByID(ctx context.Context, id string) (*domain.NotificationLog, error)
	List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error)
}

// NotificationHandler exposes the delivery audit log read surface.
type NotificationHandler struct {
	logs NotificationReader
}

func NewNotificationHandler(logs NotificationReader) (*NotificationHandler, error) {
	if logs == nil {
		return nil, fmt.Errorf("notification reader is required")
	}
	return &NotificationHandler{logs: logs}, nil
}

func RegisterNotificationRoutes(router fiber.Router, logs NotificationReader) error {
	h, err := NewNotificationHandler(logs)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/notifications", h.ListNotifications)
	v1.Get("/notifications/:id", h.GetNotification)

	return nil
}

type notificationResponse struct {
	ID                string     `json:"id"`
	EventType         string     `json:"eventType"`
	Channel           string     `json:"channel"`
	Status            string     `json:"status"`
	Subject           *string    `json:"subject,omitempty"`
	Body              string     `json:"body"`
	UserID            string     `json:"userId"`
	CompanyID         string     `json:"companyId"`
	ScheduledFor      *time.Time `json:"scheduledFor,omitempty"`
	RelatedEntityType *string    `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *string    `json:"relatedEntityId,omitempty"`
	RetryCount        int        `json:"retryCount"`
	MaxRetries        int        `json:"maxRetries"`
	LastError         *string    `json:"lastError,omitempty"`
	MessageID         *string    `json:"messageId,omitempty"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	FailedAt          *time.Time `json:"failedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

type listNotificationsResponse struct {
	Data []notificationResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *NotificationHandler) GetNotification(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	log, err := h.logs.GetByID(c.Context(), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toNotificationResponse(log))
}

func (h *NotificationHandler) ListNotifications(c *fiber.Ctx) error {
	params, err := parseLogListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	logs, total, err := h.logs.List(c.Context(), params)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]notificationResponse, 0, len(logs))
	for i := range logs {
		responses = append(responses, toNotificationResponse(&logs[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listNotificationsResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func parseLogListParams(c *fiber.Ctx) (repository.LogListParams, error) {
	params := repository.LogListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.LogListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.LogListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawStatus := strings.TrimSpace(c.Query("status")); rawStatus != "" {
		status, err := domain.ParseStatusFromString(rawStatus)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.Status = &status
	}

	if rawChannel := strings.TrimSpace(c.Query("channel")); rawChannel != "" {
		channel, err := domain.ParseChannelFromString(rawChannel)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.Channel = &channel
	}

	if rawEvent := strings.TrimSpace(c.Query("eventType")); rawEvent != "" {
		event, err := domain.ParseEventTypeFromString(rawEvent)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.EventType = &event
	}

	if userID := strings.TrimSpace(c.Query("userId")); userID != "" {
		params.UserID = &userID
	}
	if companyID := strings.TrimSpace(c.Query("companyId")); companyID != "" {
		params.CompanyID = &companyID
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.LogListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.LogListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func parseRFC3339Query(value string, field string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}

	t, err := time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %s must be RFC3339", domain.ErrValidation, field)
	}
	return &t, nil
}

func toNotificationResponse(n *domain.NotificationLog) notificationResponse {
	if n == nil {
		return notificationResponse{}
	}

	return notificationResponse{
		ID:                n.ID,
		EventType:         n.EventType.String(),
		Channel:           n.Channel.String(),
		Status:            n.Status.String(),
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
