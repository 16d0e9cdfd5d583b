package sweep

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/carebridge/notification-engine/internal/dispatch"
	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/provider"
	"github.com/carebridge/notification-engine/internal/repository"
)

type fakeLogRepo struct {
	mu     sync.Mutex
	sent   []string
	failed map[string]string

	getDueScheduledFn func(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error)
	claimScheduledFn  func(ctx context.Context, id string, now time.Time) (bool, error)
	getRetryableFn    func(ctx context.Context, limit int) ([]domain.NotificationLog, error)
	claimRetryFn      func(ctx context.Context, id string) (bool, error)
	failStaleFn       func(ctx context.Context, cutoff time.Time, reason string, at time.Time) (int64, error)
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{failed: make(map[string]string)}
}

func (f *fakeLogRepo) Create(ctx context.Context, n *domain.NotificationLog) error { return nil }

func (f *fakeLogRepo) GetByID(ctx context.Context, id string) (*domain.NotificationLog, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeLogRepo) List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error) {
	return nil, 0, nil
}

func (f *fakeLogRepo) GetDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error) {
	if f.getDueScheduledFn == nil {
		return nil, nil
	}
	return f.getDueScheduledFn(ctx, now, limit)
}

func (f *fakeLogRepo) ClaimScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	if f.claimScheduledFn == nil {
		return true, nil
	}
	return f.claimScheduledFn(ctx, id, now)
}

func (f *fakeLogRepo) GetRetryable(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
	if f.getRetryableFn == nil {
		return nil, nil
	}
	return f.getRetryableFn(ctx, limit)
}

func (f *fakeLogRepo) ClaimRetry(ctx context.Context, id string) (bool, error) {
	if f.claimRetryFn == nil {
		return true, nil
	}
	return f.claimRetryFn(ctx, id)
}

func (f *fakeLogRepo) FailStaleQueued(ctx context.Context, cutoff time.Time, reason string, at time.Time) (int64, error) {
	if f.failStaleFn == nil {
		return 0, nil
	}
	return f.failStaleFn(ctx, cutoff, reason, at)
}

func (f *fakeLogRepo) MarkSent(ctx context.Context, id string, messageID *string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeLogRepo) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	return nil
}

type fakeRecipientRepo struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Recipient, error)
}

func (f *fakeRecipientRepo) GetActiveByIDs(ctx context.Context, companyID string, ids []string) ([]domain.Recipient, error) {
	return nil, nil
}

func (f *fakeRecipientRepo) GetByID(ctx context.Context, id string) (*domain.Recipient, error) {
	if f.getByIDFn == nil {
		return &domain.Recipient{
			ID:          id,
			Email:       "maria@example.com",
			FirstName:   "Maria",
			LastName:    "Lopez",
			CompanyID:   "company-1",
			CompanyName: "Sunrise Care",
			IsActive:    true,
		}, nil
	}
	return f.getByIDFn(ctx, id)
}

type fakeProvider struct {
	mu      sync.Mutex
	channel domain.Channel
	sendFn  func(ctx context.Context, msg provider.Message) (*provider.SendResult, error)
	sends   int
}

func (f *fakeProvider) Channel() domain.Channel { return f.channel }

func (f *fakeProvider) IsConfigured() bool { return true }

func (f *fakeProvider) Send(ctx context.Context, msg provider.Message) (*provider.SendResult, error) {
	f.mu.Lock()
	f.sends++
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.SendResult{MessageID: "msg-1"}, nil
}

func (f *fakeProvider) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sends
}

func newTestProcessor(t *testing.T, logs *fakeLogRepo, recipients *fakeRecipientRepo, p provider.Provider) *Processor {
	t.Helper()

	registry, err := provider.NewRegistryWithProviders(p)
	if err != nil {
		t.Fatalf("NewRegistryWithProviders() error = %v", err)
	}

	sender, err := dispatch.NewSender(logs, registry, time.Second, nil)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}

	processor, err := NewProcessor(logs, recipients, sender, 0, 0, nil)
	if err != nil {
		t.Fatalf("NewProcessor() error = %v", err)
	}
	return processor
}

func dueLog(id string) domain.NotificationLog {
	scheduled := time.Now().Add(-time.Minute).UTC()
	return domain.NotificationLog{
		ID:           id,
		EventType:    domain.EventAssessmentDue,
		Channel:      domain.ChannelEmail,
		Status:       domain.StatusPending,
		Body:         "Assessment is due.",
		UserID:       "user-1",
		CompanyID:    "company-1",
		ScheduledFor: &scheduled,
		MaxRetries:   domain.DefaultMaxRetries,
	}
}

func failedLog(id string, retryCount int) domain.NotificationLog {
	return domain.NotificationLog{
		ID:         id,
		EventType:  domain.EventAssessmentDue,
		Channel:    domain.ChannelEmail,
		Status:     domain.StatusFailed,
		Body:       "Assessment is due.",
		UserID:     "user-1",
		CompanyID:  "company-1",
		RetryCount: retryCount,
		MaxRetries: domain.DefaultMaxRetries,
	}
}

func TestProcessScheduledDeliversClaimedRows(t *testing.T) {
	t.Parallel()

	logs := newFakeLogRepo()
	logs.getDueScheduledFn = func(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error) {
		return []domain.NotificationLog{dueLog("log-1"), dueLog("log-2")}, nil
	}

	email := &fakeProvider{channel: domain.ChannelEmail}
	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, email)

	claimed, err := processor.ProcessScheduled(context.Background())
	if err != nil {
		t.Fatalf("ProcessScheduled() error = %v", err)
	}

	if claimed != 2 {
		t.Fatalf("claimed = %d, want 2", claimed)
	}
	if email.sendCount() != 2 {
		t.Fatalf("sends = %d, want 2", email.sendCount())
	}
	logs.mu.Lock()
	defer logs.mu.Unlock()
	if len(logs.sent) != 2 {
		t.Fatalf("sent rows = %v, want 2", logs.sent)
	}
}

func TestProcessScheduledSkipsLostClaims(t *testing.T) {
	t.Parallel()

	logs := newFakeLogRepo()
	logs.getDueScheduledFn = func(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error) {
		return []domain.NotificationLog{dueLog("log-1"), dueLog("log-2")}, nil
	}
	logs.claimScheduledFn = func(ctx context.Context, id string, now time.Time) (bool, error) {
		// Another sweeper already claimed log-1.
		return id != "log-1", nil
	}

	email := &fakeProvider{channel: domain.ChannelEmail}
	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, email)

	claimed, err := processor.ProcessScheduled(context.Background())
	if err != nil {
		t.Fatalf("ProcessScheduled() error = %v", err)
	}

	if claimed != 1 {
		t.Fatalf("claimed = %d, want 1", claimed)
	}
	if email.sendCount() != 1 {
		t.Fatalf("sends = %d, want 1 (lost claims must not deliver)", email.sendCount())
	}
}

func TestProcessScheduledMissingRecipientFailsRow(t *testing.T) {
	t.Parallel()

	logs := newFakeLogRepo()
	logs.getDueScheduledFn = func(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error) {
		return []domain.NotificationLog{dueLog("log-1")}, nil
	}
	recipients := &fakeRecipientRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Recipient, error) {
			return nil, domain.ErrNotFound
		},
	}

	email := &fakeProvider{channel: domain.ChannelEmail}
	processor := newTestProcessor(t, logs, recipients, email)

	if _, err := processor.ProcessScheduled(context.Background()); err != nil {
		t.Fatalf("ProcessScheduled() error = %v", err)
	}

	logs.mu.Lock()
	defer logs.mu.Unlock()
	if _, ok := logs.failed["log-1"]; !ok {
		t.Fatal("claimed row with missing recipient should be finalized FAILED")
	}
	if email.sendCount() != 0 {
		t.Fatal("missing recipient should not reach the provider")
	}
}

func TestProcessScheduledFetchError(t *testing.T) {
	t.Parallel()

	fetchErr := errors.New("db timeout")
	logs := newFakeLogRepo()
	logs.getDueScheduledFn = func(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error) {
		return nil, fetchErr
	}

	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, &fakeProvider{channel: domain.ChannelEmail})

	if _, err := processor.ProcessScheduled(context.Background()); !errors.Is(err, fetchErr) {
		t.Fatalf("ProcessScheduled() error = %v, want wrapped fetch error", err)
	}
}

func TestRetryFailedRedelivers(t *testing.T) {
	t.Parallel()

	logs := newFakeLogRepo()
	logs.getRetryableFn = func(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
		return []domain.NotificationLog{failedLog("log-1", 1)}, nil
	}

	email := &fakeProvider{channel: domain.ChannelEmail}
	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, email)

	claimed, err := processor.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}

	if claimed != 1 {
		t.Fatalf("claimed = %d, want 1", claimed)
	}
	logs.mu.Lock()
	defer logs.mu.Unlock()
	if len(logs.sent) != 1 {
		t.Fatal("retried row should be marked SENT on success")
	}
}

func TestRetryFailedSkipsLostClaims(t *testing.T) {
	t.Parallel()

	logs := newFakeLogRepo()
	logs.getRetryableFn = func(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
		return []domain.NotificationLog{failedLog("log-1", 2)}, nil
	}
	logs.claimRetryFn = func(ctx context.Context, id string) (bool, error) {
		return false, nil
	}

	email := &fakeProvider{channel: domain.ChannelEmail}
	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, email)

	claimed, err := processor.RetryFailed(context.Background())
	if err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}

	if claimed != 0 {
		t.Fatalf("claimed = %d, want 0", claimed)
	}
	if email.sendCount() != 0 {
		t.Fatal("a lost claim must not deliver")
	}
}

func TestRetryFailedExhaustionStaysFailed(t *testing.T) {
	t.Parallel()

	logs := newFakeLogRepo()
	logs.getRetryableFn = func(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
		// Last unit of budget: claim bumps retryCount to MaxRetries.
		return []domain.NotificationLog{failedLog("log-1", domain.DefaultMaxRetries-1)}, nil
	}

	email := &fakeProvider{
		channel: domain.ChannelEmail,
		sendFn: func(ctx context.Context, msg provider.Message) (*provider.SendResult, error) {
			return nil, errors.New("still failing")
		},
	}
	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, email)

	if _, err := processor.RetryFailed(context.Background()); err != nil {
		t.Fatalf("RetryFailed() error = %v", err)
	}

	logs.mu.Lock()
	defer logs.mu.Unlock()
	if reason, ok := logs.failed["log-1"]; !ok || reason != "still failing" {
		t.Fatalf("failed = %v, want log-1 finalized with last error", logs.failed)
	}
}

func TestRescueStalledFailsStuckRows(t *testing.T) {
	t.Parallel()

	var gotCutoff time.Time
	var gotReason string
	logs := newFakeLogRepo()
	logs.failStaleFn = func(ctx context.Context, cutoff time.Time, reason string, at time.Time) (int64, error) {
		gotCutoff = cutoff
		gotReason = reason
		return 3, nil
	}

	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, &fakeProvider{channel: domain.ChannelEmail})

	rescued, err := processor.RescueStalled(context.Background())
	if err != nil {
		t.Fatalf("RescueStalled() error = %v", err)
	}
	if rescued != 3 {
		t.Fatalf("rescued = %d, want 3", rescued)
	}
	if gotReason != "attempt interrupted" {
		t.Fatalf("reason = %q, want %q", gotReason, "attempt interrupted")
	}

	// The cutoff must trail now by the stale window, so rows claimed by a
	// live worker are never rescued mid-send.
	age := time.Since(gotCutoff)
	if age < 14*time.Minute || age > 16*time.Minute {
		t.Fatalf("cutoff trails now by %s, want about %s", age, stalledAfter)
	}
}

func TestRescueStalledWrapsRepositoryError(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("connection reset")
	logs := newFakeLogRepo()
	logs.failStaleFn = func(ctx context.Context, cutoff time.Time, reason string, at time.Time) (int64, error) {
		return 0, repoErr
	}

	processor := newTestProcessor(t, logs, &fakeRecipientRepo{}, &fakeProvider{channel: domain.ChannelEmail})

	if _, err := processor.RescueStalled(context.Background()); !errors.Is(err, repoErr) {
		t.Fatalf("RescueStalled() error = %v, want it to wrap %v", err, repoErr)
	}
}
