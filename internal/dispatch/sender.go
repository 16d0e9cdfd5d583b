package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/observability"
	"github.com/carebridge/notification-engine/internal/provider"
	"github.com/carebridge/notification-engine/internal/repository"
	"go.uber.org/zap"
)

const defaultSendTimeout = 10 * time.Second

// AttemptResult reports the outcome of one (recipient, channel) attempt.
type AttemptResult struct {
	LogID     string         `json:"logId"`
	UserID    string         `json:"userId"`
	Channel   domain.Channel `json:"channel"`
	Status    domain.Status  `json:"status"`
	MessageID *string        `json:"messageId,omitempty"`
	Error     *string        `json:"error,omitempty"`
	Deferred  bool           `json:"deferred"`
}

// Sender executes the send step shared by the dispatcher and the
// sweeps: resolve the transport address, invoke the provider under a
// timeout, and finalize the log row as SENT or FAILED.
type Sender struct {
	logs        repository.LogRepository
	registry    *provider.Registry
	logger      *zap.Logger
	metrics     *observability.Metrics
	sendTimeout time.Duration
	now         func() time.Time
}

func NewSender(
	logs repository.LogRepository,
	registry *provider.Registry,
	sendTimeout time.Duration,
	logger *zap.Logger,
) (*Sender, error) {
	if logs == nil {
		return nil, fmt.Errorf("log repository is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry is required")
	}
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		logs:        logs,
		registry:    registry,
		logger:      logger,
		metrics:     nil,
		sendTimeout: sendTimeout,
		now:         time.Now,
	}, nil
}

func (s *Sender) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Deliver attempts delivery of a QUEUED log row to its recipient and
// transitions the row to a terminal state. It never returns an error for
// ordinary send failures; those are absorbed into the log row.
func (s *Sender) Deliver(ctx context.Context, log *domain.NotificationLog, recipient *domain.Recipient) AttemptResult {
	address, addrErr := resolveAddress(log.Channel, recipient)
	if addrErr != nil {
		return s.fail(ctx, log, addrErr.Error(), "missing_address")
	}

	p := s.registry.Get(log.Channel)
	if p == nil || !p.IsConfigured() {
		return s.fail(ctx, log, fmt.Sprintf("channel %s has no configured provider", log.Channel), "unconfigured_channel")
	}

	msg := provider.Message{
		To:      address,
		Subject: log.Subject,
		Body:    log.Body,
		Metadata: map[string]string{
			provider.MetadataCompanyID: log.CompanyID,
			provider.MetadataEventType: log.EventType.String(),
		},
	}
	if log.RelatedEntityType != nil {
		msg.Metadata[provider.MetadataRelatedEntityType] = *log.RelatedEntityType
	}
	if log.RelatedEntityID != nil {
		msg.Metadata[provider.MetadataRelatedEntityID] = *log.RelatedEntityID
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	sendStart := s.now()
	result, sendErr := p.Send(sendCtx, msg)
	if s.metrics != nil {
		s.metrics.ObserveNotificationSendDuration(log.Channel.String(), s.now().Sub(sendStart))
	}

	if sendErr != nil {
		return s.fail(ctx, log, sendErr.Error(), "transport_error")
	}

	var messageID *string
	if result != nil && result.MessageID != "" {
		messageID = &result.MessageID
	}

	if s.metrics != nil {
		s.metrics.IncNotificationSent(log.Channel.String(), log.EventType.String())
	}

	sentAt := s.now().UTC()
	if err := s.logs.MarkSent(ctx, log.ID, messageID, sentAt); err != nil {
		s.logger.Error("failed to mark notification as sent",
			zap.String("notificationId", log.ID),
			zap.Error(err),
		)
		// The provider accepted the message, so the attempt counts as
		// sent. The marker tells callers the log row does not reflect it.
		errMsg := fmt.Sprintf("delivered but not recorded: %v", err)
		return AttemptResult{
			LogID:     log.ID,
			UserID:    log.UserID,
			Channel:   log.Channel,
			Status:    domain.StatusSent,
			MessageID: messageID,
			Error:     &errMsg,
		}
	}

	return AttemptResult{
		LogID:     log.ID,
		UserID:    log.UserID,
		Channel:   log.Channel,
		Status:    domain.StatusSent,
		MessageID: messageID,
	}
}

func (s *Sender) fail(ctx context.Context, log *domain.NotificationLog, reason string, metricReason string) AttemptResult {
	failedAt := s.now().UTC()
	if err := s.logs.MarkFailed(ctx, log.ID, reason, failedAt); err != nil {
		s.logger.Error("failed to mark notification as failed",
			zap.String("notificationId", log.ID),
			zap.Error(err),
		)
	}

	if s.metrics != nil {
		s.metrics.IncNotificationFailed(log.Channel.String(), log.EventType.String(), metricReason)
	}

	return AttemptResult{
		LogID:   log.ID,
		UserID:  log.UserID,
		Channel: log.Channel,
		Status:  domain.StatusFailed,
		Error:   &reason,
	}
}

// resolveAddress picks the transport address for a channel. On error
// the attempt is recorded as FAILED and the provider is never called.
func resolveAddress(channel domain.Channel, recipient *domain.Recipient) (string, error) {
	if recipient == nil {
		return "", errors.New("recipient not found")
	}

	switch channel {
	case domain.ChannelEmail:
		if recipient.Email == "" {
			return "", errors.New("no email address available")
		}
		return recipient.Email, nil
	case domain.ChannelSMS, domain.ChannelWhatsApp:
		if !recipient.HasPhone() {
			return "", errors.New("no phone number available")
		}
		return *recipient.Phone, nil
	case domain.ChannelInApp:
		return recipient.ID, nil
	}
	return "", fmt.Errorf("unsupported channel %s", channel)
}
