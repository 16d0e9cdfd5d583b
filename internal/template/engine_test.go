package template

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
)

type fakeTemplateRepo struct {
	findActiveFn func(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error)
}

func (f *fakeTemplateRepo) FindActive(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error) {
	if f.findActiveFn == nil {
		return nil, domain.ErrNotFound
	}
	return f.findActiveFn(ctx, companyID, event, channel)
}

func TestRenderString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tmpl string
		vars map[string]any
		want string
	}{
		{
			name: "simple variable",
			tmpl: "Hello {{firstName}}!",
			vars: map[string]any{"firstName": "Maria"},
			want: "Hello Maria!",
		},
		{
			name: "absent variable becomes empty",
			tmpl: "Hello {{firstName}}{{punctuation}}",
			vars: map[string]any{"firstName": "Maria"},
			want: "Hello Maria",
		},
		{
			name: "conditional kept when truthy",
			tmpl: "Hi {{name}}{{#urgent}}, URGENT{{/urgent}}!",
			vars: map[string]any{"name": "Sam", "urgent": true},
			want: "Hi Sam, URGENT!",
		},
		{
			name: "conditional removed when falsy",
			tmpl: "Hi {{name}}{{#urgent}}, URGENT{{/urgent}}!",
			vars: map[string]any{"name": "Sam", "urgent": false},
			want: "Hi Sam!",
		},
		{
			name: "conditional removed when absent",
			tmpl: "Hi {{name}}{{#urgent}}, URGENT{{/urgent}}!",
			vars: map[string]any{"name": "Sam"},
			want: "Hi Sam!",
		},
		{
			name: "empty string is falsy",
			tmpl: "Shift{{#clientName}} with {{clientName}}{{/clientName}} booked",
			vars: map[string]any{"clientName": "  "},
			want: "Shift booked",
		},
		{
			name: "variables inside kept block render",
			tmpl: "{{#notes}}Notes: {{notes}}{{/notes}}",
			vars: map[string]any{"notes": "bring badge"},
			want: "Notes: bring badge",
		},
		{
			name: "two blocks resolved independently",
			tmpl: "{{#a}}A{{/a}}{{#b}}B{{/b}}",
			vars: map[string]any{"a": true},
			want: "A",
		},
		{
			name: "unclosed block left literal",
			tmpl: "Hi {{#urgent}}there",
			vars: map[string]any{"urgent": true},
			want: "Hi {{#urgent}}there",
		},
		{
			name: "mismatched close left literal",
			tmpl: "{{#urgent}}now{{/later}}",
			vars: map[string]any{"urgent": true, "later": true},
			want: "{{#urgent}}now{{/later}}",
		},
		{
			name: "number formatting",
			tmpl: "{{count}} documents expire in {{days}} days",
			vars: map[string]any{"count": 3, "days": int64(14)},
			want: "3 documents expire in 14 days",
		},
		{
			name: "time formatting",
			tmpl: "Due {{dueDate}}",
			vars: map[string]any{"dueDate": time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)},
			want: "Due September 14, 2026",
		},
		{
			name: "no markers",
			tmpl: "plain text",
			vars: nil,
			want: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := RenderString(tt.tmpl, tt.vars); got != tt.want {
				t.Fatalf("RenderString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEngineRenderUsesStoredTemplate(t *testing.T) {
	t.Parallel()

	subject := "Welcome {{firstName}}"
	repo := &fakeTemplateRepo{
		findActiveFn: func(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error) {
			if companyID != "company-1" {
				t.Fatalf("companyID = %s, want company-1", companyID)
			}
			return &domain.NotificationTemplate{
				EventType: event,
				Channel:   channel,
				Subject:   &subject,
				Body:      "Hello {{firstName}}, your shift is on {{shiftDate}}.",
			}, nil
		},
	}

	engine, err := NewEngine(repo)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rendered, err := engine.Render(context.Background(), "company-1", domain.EventShiftAssigned, domain.ChannelEmail, map[string]any{
		"firstName": "Maria",
		"shiftDate": "March 3, 2026",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if rendered.Subject == nil || *rendered.Subject != "Welcome Maria" {
		t.Fatalf("subject = %v, want Welcome Maria", rendered.Subject)
	}
	if rendered.Body != "Hello Maria, your shift is on March 3, 2026." {
		t.Fatalf("body = %q", rendered.Body)
	}
}

func TestEngineRenderFallsBackToBuiltin(t *testing.T) {
	t.Parallel()

	repo := &fakeTemplateRepo{
		findActiveFn: func(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error) {
			return nil, domain.ErrNotFound
		},
	}

	engine, err := NewEngine(repo)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	rendered, err := engine.Render(context.Background(), "company-1", domain.EventShiftAssigned, domain.ChannelInApp, map[string]any{
		"shiftDate": "March 3, 2026",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if rendered.Subject == nil || *rendered.Subject == "" {
		t.Fatal("builtin in-app template should have a subject")
	}
	if rendered.Body == "" {
		t.Fatal("builtin in-app template should have a body")
	}
}

func TestEngineRenderPropagatesRepoError(t *testing.T) {
	t.Parallel()

	repoErr := errors.New("connection reset")
	repo := &fakeTemplateRepo{
		findActiveFn: func(ctx context.Context, companyID string, event domain.EventType, channel domain.Channel) (*domain.NotificationTemplate, error) {
			return nil, repoErr
		},
	}

	engine, err := NewEngine(repo)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	if _, err := engine.Render(context.Background(), "company-1", domain.EventShiftAssigned, domain.ChannelEmail, nil); !errors.Is(err, repoErr) {
		t.Fatalf("Render() error = %v, want wrapped repo error", err)
	}
}

func TestBuiltinsCoverEveryEventAndChannel(t *testing.T) {
	t.Parallel()

	for _, event := range domain.AllEventTypes {
		for _, channel := range domain.AllChannels {
			tmpl, ok := builtinTemplate(event, channel)
			if !ok {
				t.Fatalf("no builtin template for %s on %s", event, channel)
			}
			if tmpl.Body == "" {
				t.Fatalf("builtin for %s on %s has empty body", event, channel)
			}
			if channel == domain.ChannelEmail && tmpl.Subject == nil {
				t.Fatalf("builtin email template for %s has no subject", event)
			}
		}
	}
}
