package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carebridge/notification-engine/internal/dispatch"
	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/observability"
	"github.com/carebridge/notification-engine/internal/repository"
	"go.uber.org/zap"
)

const (
	// KindScheduled identifies the deferred-delivery sweep.
	KindScheduled = "scheduled"
	// KindRetry identifies the failed-delivery retry sweep.
	KindRetry = "retry"
	// KindStalled identifies the stuck-QUEUED rescue sweep.
	KindStalled = "stalled"

	defaultScheduledLimit = 100
	defaultRetryLimit     = 50

	// stalledAfter is how long a row may sit QUEUED before the rescue
	// sweep fails it. Far above the send timeout, so in-flight attempts
	// are never rescued out from under a live worker.
	stalledAfter = 15 * time.Minute

	stalledReason = "attempt interrupted"
)

// Processor runs the periodic sweeps over the notification log: due
// deferred rows, retryable failed rows, and stalled QUEUED rows. Each
// delivery candidate is claimed with a conditional update before any send,
// so overlapping sweeps can share a batch without double-delivering.
type Processor struct {
	logs           repository.LogRepository
	recipients     repository.RecipientRepository
	sender         *dispatch.Sender
	logger         *zap.Logger
	metrics        *observability.Metrics
	scheduledLimit int
	retryLimit     int
	now            func() time.Time
}

func NewProcessor(
	logs repository.LogRepository,
	recipients repository.RecipientRepository,
	sender *dispatch.Sender,
	scheduledLimit int,
	retryLimit int,
	logger *zap.Logger,
) (*Processor, error) {
	if logs == nil {
		return nil, fmt.Errorf("log repository is required")
	}
	if recipients == nil {
		return nil, fmt.Errorf("recipient repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if scheduledLimit <= 0 {
		scheduledLimit = defaultScheduledLimit
	}
	if retryLimit <= 0 {
		retryLimit = defaultRetryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Processor{
		logs:           logs,
		recipients:     recipients,
		sender:         sender,
		logger:         logger,
		scheduledLimit: scheduledLimit,
		retryLimit:     retryLimit,
		now:            time.Now,
	}, nil
}

func (p *Processor) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

// ProcessScheduled delivers deferred notifications whose scheduled time
// has arrived. Returns the number of rows this instance claimed.
func (p *Processor) ProcessScheduled(ctx context.Context) (int, error) {
	now := p.now().UTC()

	due, err := p.logs.GetDueScheduled(ctx, now, p.scheduledLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch due scheduled notifications: %w", err)
	}

	claimed := 0
	for i := range due {
		log := due[i]

		ok, err := p.logs.ClaimScheduled(ctx, log.ID, now)
		if err != nil {
			p.logger.Error("failed to claim scheduled notification",
				zap.String("notificationId", log.ID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			// Another sweep got there first.
			continue
		}
		claimed++

		log.Status = domain.StatusQueued
		p.deliver(ctx, &log)
	}

	if p.metrics != nil {
		p.metrics.AddSweepClaimed(KindScheduled, claimed)
	}

	return claimed, nil
}

// RetryFailed re-attempts failed notifications that still have retry
// budget. Each claim consumes one unit of budget up front, so a crash
// mid-send cannot grant extra attempts.
func (p *Processor) RetryFailed(ctx context.Context) (int, error) {
	retryable, err := p.logs.GetRetryable(ctx, p.retryLimit)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch retryable notifications: %w", err)
	}

	claimed := 0
	for i := range retryable {
		log := retryable[i]

		ok, err := p.logs.ClaimRetry(ctx, log.ID)
		if err != nil {
			p.logger.Error("failed to claim notification for retry",
				zap.String("notificationId", log.ID),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}
		claimed++

		log.Status = domain.StatusQueued
		log.RetryCount++

		result := p.deliver(ctx, &log)
		if result.Status == domain.StatusFailed && log.RetryCount >= log.MaxRetries {
			p.logger.Warn("notification exhausted its retry budget",
				zap.String("notificationId", log.ID),
				zap.String("channel", log.Channel.String()),
				zap.Int("retryCount", log.RetryCount),
			)
			if p.metrics != nil {
				p.metrics.IncRetriesExhausted(log.Channel.String())
			}
		}
	}

	if p.metrics != nil {
		p.metrics.AddSweepClaimed(KindRetry, claimed)
	}

	return claimed, nil
}

// RescueStalled fails QUEUED rows that have not moved since before the
// stale window. A crash between claim and send strands rows in QUEUED,
// where neither other sweep looks. Rescued rows keep their retry budget,
// so the retry sweep re-attempts them on a later pass.
func (p *Processor) RescueStalled(ctx context.Context) (int, error) {
	now := p.now().UTC()

	rescued, err := p.logs.FailStaleQueued(ctx, now.Add(-stalledAfter), stalledReason, now)
	if err != nil {
		return 0, fmt.Errorf("failed to rescue stalled notifications: %w", err)
	}

	if rescued > 0 {
		p.logger.Warn("rescued stalled notifications",
			zap.Int64("count", rescued),
		)
	}
	if p.metrics != nil {
		p.metrics.AddSweepClaimed(KindStalled, int(rescued))
	}

	return int(rescued), nil
}

func (p *Processor) deliver(ctx context.Context, log *domain.NotificationLog) dispatch.AttemptResult {
	recipient, err := p.recipients.GetByID(ctx, log.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		p.logger.Error("failed to load recipient for claimed notification",
			zap.String("notificationId", log.ID),
			zap.String("userId", log.UserID),
			zap.Error(err),
		)
	}

	// A missing recipient still flows through Deliver so the claimed row
	// is finalized as FAILED rather than stranded in QUEUED.
	return p.sender.Deliver(ctx, log, recipient)
}
