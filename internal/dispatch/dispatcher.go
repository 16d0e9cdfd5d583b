package dispatch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/observability"
	"github.com/carebridge/notification-engine/internal/repository"
	"github.com/carebridge/notification-engine/internal/template"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minDispatchConcurrency = 1
	maxRecipientsPerEvent  = 500
)

// Payload is the sole producer-facing dispatch request.
type Payload struct {
	EventType         domain.EventType
	CompanyID         string
	RecipientIDs      []string
	Data              map[string]any
	Channels          []domain.Channel
	ScheduledFor      *time.Time
	RelatedEntityType *string
	RelatedEntityID   *string
}

// Result aggregates the synchronous outcome of one dispatch call.
// Deferred attempts count as neither sent nor failed.
type Result struct {
	TotalSent   int             `json:"totalSent"`
	TotalFailed int             `json:"totalFailed"`
	Attempts    []AttemptResult `json:"attempts"`
}

// Dispatcher fans a single domain event out to N recipients on M
// channels, creating one log row per (recipient, channel) attempt.
type Dispatcher struct {
	logs        repository.LogRepository
	recipients  repository.RecipientRepository
	resolver    *ChannelResolver
	renderer    *template.Engine
	sender      *Sender
	logger      *zap.Logger
	metrics     *observability.Metrics
	appBaseURL  string
	maxRetries  int
	concurrency int
	now         func() time.Time
}

func NewDispatcher(
	logs repository.LogRepository,
	recipients repository.RecipientRepository,
	resolver *ChannelResolver,
	renderer *template.Engine,
	sender *Sender,
	appBaseURL string,
	maxRetries int,
	concurrency int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if logs == nil {
		return nil, fmt.Errorf("log repository is required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("channel resolver is required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("template engine is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if maxRetries <= 0 {
		maxRetries = domain.DefaultMaxRetries
	}
	if concurrency < minDispatchConcurrency {
		concurrency = minDispatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		logs:        logs,
		recipients:  recipients,
		resolver:    resolver,
		renderer:    renderer,
		sender:      sender,
		logger:      logger,
		appBaseURL:  strings.TrimRight(appBaseURL, "/"),
		maxRetries:  maxRetries,
		concurrency: concurrency,
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch is the producer API. Per-attempt failures are absorbed into
// log rows; only structural errors (malformed payload, storage
// unavailable) are returned.
func (d *Dispatcher) Dispatch(ctx context.Context, payload Payload) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validatePayload(&payload); err != nil {
		return nil, err
	}

	recipients, err := d.recipients.GetActiveByIDs(ctx, payload.CompanyID, payload.RecipientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients: %w", err)
	}
	if skipped := len(payload.RecipientIDs) - len(recipients); skipped > 0 {
		d.logger.Debug("skipping missing or inactive recipients",
			zap.String("eventType", payload.EventType.String()),
			zap.Int("skipped", skipped),
		)
	}

	now := d.now().UTC()
	deferred := payload.ScheduledFor != nil && payload.ScheduledFor.After(now)

	var (
		mu     sync.Mutex
		result Result
	)

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for i := range recipients {
		recipient := recipients[i]
		g.Go(func() error {
			attempts := d.dispatchToRecipient(groupCtx, payload, &recipient, deferred)

			mu.Lock()
			defer mu.Unlock()
			for _, attempt := range attempts {
				result.Attempts = append(result.Attempts, attempt)
				if attempt.Deferred {
					continue
				}
				switch attempt.Status {
				case domain.StatusSent:
					result.TotalSent++
				case domain.StatusFailed:
					result.TotalFailed++
				}
			}
			return nil
		})
	}

	// Attempt goroutines absorb their own failures, so Wait only
	// surfaces context cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.AddDispatchRecipients(payload.EventType.String(), len(recipients))
	}

	return &result, nil
}

// dispatchToRecipient renders and records every channel attempt for one
// recipient. Failures here never abort sibling recipients.
func (d *Dispatcher) dispatchToRecipient(
	ctx context.Context,
	payload Payload,
	recipient *domain.Recipient,
	deferred bool,
) []AttemptResult {
	channels, err := d.resolver.ResolveChannels(ctx, recipient.ID, payload.EventType, payload.Channels)
	if err != nil {
		d.logger.Error("failed to resolve channels for recipient",
			zap.String("userId", recipient.ID),
			zap.String("eventType", payload.EventType.String()),
			zap.Error(err),
		)
		return nil
	}

	vars := d.buildVariables(payload, recipient)

	attempts := make([]AttemptResult, 0, len(channels))
	for _, channel := range channels {
		attempt, ok := d.dispatchToChannel(ctx, payload, recipient, channel, vars, deferred)
		if ok {
			attempts = append(attempts, attempt)
		}
	}
	return attempts
}

func (d *Dispatcher) dispatchToChannel(
	ctx context.Context,
	payload Payload,
	recipient *domain.Recipient,
	channel domain.Channel,
	vars map[string]any,
	deferred bool,
) (AttemptResult, bool) {
	rendered, err := d.renderer.Render(ctx, recipient.CompanyID, payload.EventType, channel, vars)
	if err != nil {
		d.logger.Error("failed to render notification template",
			zap.String("userId", recipient.ID),
			zap.String("eventType", payload.EventType.String()),
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
		return AttemptResult{}, false
	}

	status := domain.StatusQueued
	if deferred {
		status = domain.StatusPending
	}

	log := &domain.NotificationLog{
		ID:                uuid.NewString(),
		EventType:         payload.EventType,
		Channel:           channel,
		Status:            status,
		Subject:           rendered.Subject,
		Body:              rendered.Body,
		UserID:            recipient.ID,
		CompanyID:         recipient.CompanyID,
		ScheduledFor:      payload.ScheduledFor,
		RelatedEntityType: payload.RelatedEntityType,
		RelatedEntityID:   payload.RelatedEntityID,
		MaxRetries:        d.maxRetries,
	}

	if err := d.logs.Create(ctx, log); err != nil {
		d.logger.Error("failed to create notification log",
			zap.String("userId", recipient.ID),
			zap.String("channel", channel.String()),
			zap.Error(err),
		)
		return AttemptResult{}, false
	}

	if deferred {
		return AttemptResult{
			LogID:    log.ID,
			UserID:   recipient.ID,
			Channel:  channel,
			Status:   domain.StatusPending,
			Deferred: true,
		}, true
	}

	return d.sender.Deliver(ctx, log, recipient), true
}

// buildVariables merges the common variable set with the caller's data;
// caller data wins on key collision.
func (d *Dispatcher) buildVariables(payload Payload, recipient *domain.Recipient) map[string]any {
	vars := map[string]any{
		"firstName":   recipient.FirstName,
		"lastName":    recipient.LastName,
		"fullName":    recipient.FullName(),
		"companyName": recipient.CompanyName,
		"currentDate": d.now().UTC().Format("January 2, 2006"),
		"appUrl":      d.appBaseURL,
	}
	for key, value := range payload.Data {
		vars[key] = value
	}
	return vars
}

func validatePayload(payload *Payload) error {
	if payload == nil {
		return fmt.Errorf("%w: payload is required", domain.ErrValidation)
	}
	if !payload.EventType.IsValid() {
		return fmt.Errorf("%w: invalid event type %q", domain.ErrValidation, payload.EventType)
	}
	if strings.TrimSpace(payload.CompanyID) == "" {
		return fmt.Errorf("%w: company id is required", domain.ErrValidation)
	}
	if len(payload.RecipientIDs) == 0 {
		return fmt.Errorf("%w: at least one recipient is required", domain.ErrValidation)
	}
	if len(payload.RecipientIDs) > maxRecipientsPerEvent {
		return fmt.Errorf("%w: recipient count exceeds %d", domain.ErrValidation, maxRecipientsPerEvent)
	}
	for _, channel := range payload.Channels {
		if !channel.IsValid() {
			return fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
		}
	}
	return nil
}
