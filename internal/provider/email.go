package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/go-resty/resty/v2"
)

const defaultEmailTimeout = 10 * time.Second

type emailAPIRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type emailAPIResponse struct {
	ID string `json:"id"`
}

// EmailAPIProvider delivers email through a Resend-style HTTP API.
type EmailAPIProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	from     string
}

func NewEmailAPIProvider(endpoint, apiKey, from string) (*EmailAPIProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultEmailTimeout)
	client.SetRetryCount(0)

	return NewEmailAPIProviderWithClient(endpoint, apiKey, from, client)
}

func NewEmailAPIProviderWithClient(endpoint, apiKey, from string, client *resty.Client) (*EmailAPIProvider, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, fmt.Errorf("email api endpoint is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("email from address is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultEmailTimeout)
	}
	client.SetRetryCount(0)

	return &EmailAPIProvider{
		client:   client,
		endpoint: strings.TrimSpace(endpoint),
		apiKey:   strings.TrimSpace(apiKey),
		from:     strings.TrimSpace(from),
	}, nil
}

func (p *EmailAPIProvider) Channel() domain.Channel { return domain.ChannelEmail }

func (p *EmailAPIProvider) IsConfigured() bool {
	return p != nil && p.apiKey != ""
}

func (p *EmailAPIProvider) Send(ctx context.Context, msg Message) (*SendResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if strings.TrimSpace(msg.To) == "" {
		return nil, &ProviderError{Message: "recipient address is required"}
	}

	subject := ""
	if msg.Subject != nil {
		subject = *msg.Subject
	}

	reqBody := emailAPIRequest{
		From:    p.from,
		To:      msg.To,
		Subject: subject,
		HTML:    wrapEmailBody(subject, msg.Body),
	}

	var parsed emailAPIResponse
	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+p.apiKey).
		SetBody(reqBody).
		SetResult(&parsed).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "email api request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "email api returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &SendResult{
			MessageID:  strings.TrimSpace(parsed.ID),
			StatusCode: statusCode,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    emailErrorMessage(statusCode, strings.TrimSpace(response.String())),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func emailErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("email api returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

// wrapEmailBody places the rendered body inside the shared document
// shell so every outgoing email carries consistent styling.
func wrapEmailBody(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
  <div style="max-width:600px;margin:24px auto;background-color:#ffffff;border-radius:8px;padding:32px;">
    %s
    <hr style="border:none;border-top:1px solid #e2e4e8;margin-top:32px;">
    <p style="color:#6b7280;font-size:12px;">You are receiving this message because of your notification settings.</p>
  </div>
</body>
</html>`, title, body)
}
