package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type InboxService interface {
	ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]domain.InboxMessage, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string, userID string, at time.Time) error
	MarkAllRead(ctx context.Context, userID string, at time.Time) error
}

// InboxHandler exposes the in-app message surface. The caller identifies
// the user through the X-User-ID header set by the gateway.
type InboxHandler struct {
	inbox InboxService
	now   func() time.Time
}

func NewInboxHandler(inbox InboxService) (*InboxHandler, error) {
	if inbox == nil {
		return nil, fmt.Errorf("inbox service is required")
	}
	return &InboxHandler{
		inbox: inbox,
		now:   time.Now,
	}, nil
}

func RegisterInboxRoutes(router fiber.Router, inbox InboxService) error {
	h, err := NewInboxHandler(inbox)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/inbox", h.ListMessages)
	v1.Get("/inbox/unread-count", h.UnreadCount)
	v1.Post("/inbox/read-all", h.MarkAllRead)
	v1.Post("/inbox/:id/read", h.MarkRead)

	return nil
}

type inboxMessageResponse struct {
	ID                string     `json:"id"`
	EventType         string     `json:"eventType"`
	Title             string     `json:"title"`
	Body              string     `json:"body"`
	RelatedEntityType *string    `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *string    `json:"relatedEntityId,omitempty"`
	Read              bool       `json:"read"`
	ReadAt            *time.Time `json:"readAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
}

type listInboxResponse struct {
	Data []inboxMessageResponse `json:"data"`
	Meta listMeta               `json:"meta"`
}

func (h *InboxHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return toHTTPError(err)
	}

	page := c.QueryInt("page", defaultPage)
	pageSize := c.QueryInt("pageSize", defaultPageSize)
	if page < 1 {
		return toHTTPError(fmt.Errorf("%w: page must be >= 1", domain.ErrValidation))
	}
	if pageSize < 1 || pageSize > maxPageSize {
		return toHTTPError(fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize))
	}

	unreadOnly := c.QueryBool("unreadOnly", false)

	messages, total, err := h.inbox.ListByUser(c.Context(), userID, unreadOnly, page, pageSize)
	if err != nil {
		return toHTTPError(err)
	}

	responses := make([]inboxMessageResponse, 0, len(messages))
	for i := range messages {
		responses = append(responses, toInboxMessageResponse(&messages[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listInboxResponse{
		Data: responses,
		Meta: listMeta{
			Page:     page,
			PageSize: pageSize,
			Total:    total,
		},
	})
}

func (h *InboxHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return toHTTPError(err)
	}

	count, err := h.inbox.UnreadCount(c.Context(), userID)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"unreadCount": count,
	})
}

func (h *InboxHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return toHTTPError(err)
	}

	id := strings.TrimSpace(c.Params("id"))
	if err := h.inbox.MarkRead(c.Context(), id, userID, h.now().UTC()); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"messageId": id,
		"read":      true,
	})
}

func (h *InboxHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := requestUserID(c)
	if err != nil {
		return toHTTPError(err)
	}

	if err := h.inbox.MarkAllRead(c.Context(), userID, h.now().UTC()); err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"read": true,
	})
}

func requestUserID(c *fiber.Ctx) (string, error) {
	userID := strings.TrimSpace(c.Get("X-User-ID"))
	if userID == "" {
		return "", fmt.Errorf("%w: X-User-ID header is required", domain.ErrValidation)
	}
	return userID, nil
}

func toInboxMessageResponse(msg *domain.InboxMessage) inboxMessageResponse {
	if msg == nil {
		return inboxMessageResponse{}
	}

	return inboxMessageResponse{
		ID:                msg.ID,
		EventType:         msg.EventType.String(),
		Title:             msg.Title,
		Body:              msg.Body,
		RelatedEntityType: msg.RelatedEntityType,
		RelatedEntityID:   msg.RelatedEntityID,
		Read:              msg.IsRead(),
		ReadAt:            msg.ReadAt,
		CreatedAt:         msg.CreatedAt,
	}
}
