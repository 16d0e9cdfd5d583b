package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/provider"
	"github.com/carebridge/notification-engine/internal/repository"
)

type fakeLogRepo struct {
	mu      sync.Mutex
	created []domain.NotificationLog
	sent    []string
	failed  map[string]string

	createFn     func(ctx context.Context, n *domain.NotificationLog) error
	markSentFn   func(ctx context.Context, id string, messageID *string, at time.Time) error
	markFailedFn func(ctx context.Context, id string, reason string, at time.Time) error
}

func newFakeLogRepo() *fakeLogRepo {
	return &fakeLogRepo{failed: make(map[string]string)}
}

func (f *fakeLogRepo) Create(ctx context.Context, n *domain.NotificationLog) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, n); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeLogRepo) GetByID(ctx context.Context, id string) (*domain.NotificationLog, error) {
	return nil, domain.ErrNotFound
}

func (f *fakeLogRepo) List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLog, int64, error) {
	return nil, 0, nil
}

func (f *fakeLogRepo) GetDueScheduled(ctx context.Context, now time.Time, limit int) ([]domain.NotificationLog, error) {
	return nil, nil
}

func (f *fakeLogRepo) ClaimScheduled(ctx context.Context, id string, now time.Time) (bool, error) {
	return false, nil
}

func (f *fakeLogRepo) GetRetryable(ctx context.Context, limit int) ([]domain.NotificationLog, error) {
	return nil, nil
}

func (f *fakeLogRepo) ClaimRetry(ctx context.Context, id string) (bool, error) {
	return false, nil
}

func (f *fakeLogRepo) FailStaleQueued(ctx context.Context, cutoff time.Time, reason string, at time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeLogRepo) MarkSent(ctx context.Context, id string, messageID *string, at time.Time) error {
	if f.markSentFn != nil {
		if err := f.markSentFn(ctx, id, messageID, at); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeLogRepo) MarkFailed(ctx context.Context, id string, reason string, at time.Time) error {
	if f.markFailedFn != nil {
		if err := f.markFailedFn(ctx, id, reason, at); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed[id] = reason
	return nil
}

func (f *fakeLogRepo) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func (f *fakeLogRepo) failureReason(id string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	reason, ok := f.failed[id]
	return reason, ok
}

type fakePreferenceRepo struct {
	getEnabledFn func(ctx context.Context, userID string, event domain.EventType) ([]domain.NotificationPreference, error)
}

func (f *fakePreferenceRepo) GetEnabled(ctx context.Context, userID string, event domain.EventType) ([]domain.NotificationPreference, error) {
	if f.getEnabledFn == nil {
		return nil, nil
	}
	return f.getEnabledFn(ctx, userID, event)
}

type fakeRecipientRepo struct {
	getActiveByIDsFn func(ctx context.Context, companyID string, ids []string) ([]domain.Recipient, error)
	getByIDFn        func(ctx context.Context, id string) (*domain.Recipient, error)
}

func (f *fakeRecipientRepo) GetActiveByIDs(ctx context.Context, companyID string, ids []string) ([]domain.Recipient, error) {
	if f.getActiveByIDsFn == nil {
		return nil, nil
	}
	return f.getActiveByIDsFn(ctx, companyID, ids)
}

func (f *fakeRecipientRepo) GetByID(ctx context.Context, id string) (*domain.Recipient, error) {
	if f.getByIDFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.getByIDFn(ctx, id)
}

type fakeTemplateRepo struct {
	findActiveFn func(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error)
}

func (f *fakeTemplateRepo) FindActive(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error) {
	if f.findActiveFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.findActiveFn(ctx, companyID, event, channel)
}

// fakeProvider records sends and lets tests control configuration and
// outcomes per channel.
type fakeProvider struct {
	mu         sync.Mutex
	channel    domain.Channel
	configured bool
	sendFn     func(ctx context.Context, msg provider.Message) (*provider.SendResult, error)
	sends      []provider.Message
}

func newFakeProvider(channel domain.Channel, configured bool) *fakeProvider {
	return &fakeProvider{channel: channel, configured: configured}
}

func (f *fakeProvider) Channel() domain.Channel { return f.channel }

func (f *fakeProvider) IsConfigured() bool { return f.configured }

func (f *fakeProvider) Send(ctx context.Context, msg provider.Message) (*provider.SendResult, error) {
	f.mu.Lock()
	f.sends = append(f.sends, msg)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.SendResult{MessageID: "msg-" + string(f.channel)}, nil
}

func (f *fakeProvider) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sends)
}

func testRegistry(t interface{ Fatalf(string, ...any) }, providers ...provider.Provider) *provider.Registry {
	registry, err := provider.NewRegistryWithProviders(providers...)
	if err != nil {
		t.Fatalf("NewRegistryWithProviders() error = %v", err)
	}
	return registry
}

func strPtr(s string) *string { return &s }
