package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carebridge/notification-engine/internal/dispatch"
	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/gofiber/fiber/v2"
)

type DispatchService interface {
	Dispatch(ctx context.Context, payload dispatch.Payload) (*dispatch.Result, error)
}

type DispatchHandler struct {
	dispatcher DispatchService
}

func NewDispatchHandler(dispatcher DispatchService) (*DispatchHandler, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	return &DispatchHandler{dispatcher: dispatcher}, nil
}

func RegisterDispatchRoutes(router fiber.Router, dispatcher DispatchService) error {
	h, err := NewDispatchHandler(dispatcher)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/dispatch", h.DispatchEvent)

	return nil
}

type dispatchRequest struct {
	EventType         string         `json:"eventType"`
	CompanyID         string         `json:"companyId"`
	RecipientIDs      []string       `json:"recipientIds"`
	Data              map[string]any `json:"data,omitempty"`
	Channels          []string       `json:"channels,omitempty"`
	ScheduledFor      *time.Time     `json:"scheduledFor,omitempty"`
	RelatedEntityType *string        `json:"relatedEntityType,omitempty"`
	RelatedEntityID   *string        `json:"relatedEntityId,omitempty"`
}

func (h *DispatchHandler) DispatchEvent(c *fiber.Ctx) error {
	var req dispatchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	payload, err := requestToPayload(req)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.dispatcher.Dispatch(c.Context(), payload)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}

func requestToPayload(req dispatchRequest) (dispatch.Payload, error) {
	event, err := domain.ParseEventTypeFromString(req.EventType)
	if err != nil {
		return dispatch.Payload{}, err
	}

	channels := make([]domain.Channel, 0, len(req.Channels))
	for _, raw := range req.Channels {
		channel, err := domain.ParseChannelFromString(raw)
		if err != nil {
			return dispatch.Payload{}, err
		}
		channels = append(channels, channel)
	}

	return dispatch.Payload{
		EventType:         event,
		CompanyID:         strings.TrimSpace(req.CompanyID),
		RecipientIDs:      req.RecipientIDs,
		Data:              req.Data,
		Channels:          channels,
		ScheduledFor:      req.ScheduledFor,
		RelatedEntityType: req.RelatedEntityType,
		RelatedEntityID:   req.RelatedEntityID,
	}, nil
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
