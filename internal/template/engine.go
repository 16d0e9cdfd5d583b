package template

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/carebridge/notification-engine/internal/domain"
	"github.com/carebridge/notification-engine/internal/repository"
)

// Rendered is fully substituted content ready for a channel provider.
// Subject stays nil when the resolved template has no subject.
type Rendered struct {
	Subject *string
	Body    string
}

// Engine resolves the template for an (event, channel, tenant) triple and
// performs placeholder substitution. Resolution order: active tenant
// template, active system-wide default, compiled-in builtin.
type Engine struct {
	templates repository.TemplateRepository
}

func NewEngine(templates repository.TemplateRepository) (*Engine, error) {
	if templates == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	return &Engine{templates: templates}, nil
}

func (e *Engine) Render(
	ctx context.Context,
	companyID string,
	event domain.EventType,
	channel domain.Channel,
	vars map[string]any,
) (*Rendered, error) {
	subject, body, err := e.resolve(ctx, companyID, event, channel)
	if err != nil {
		return nil, err
	}

	rendered := &Rendered{
		Body: RenderString(body, vars),
	}
	if subject != nil {
		s := RenderString(*subject, vars)
		rendered.Subject = &s
	}

	return rendered, nil
}

func (e *Engine) resolve(
	ctx context.Context,
	companyID string,
	event domain.EventType,
	channel domain.Channel,
) (*string, string, error) {
	tmpl, err := e.templates.FindActive(ctx, companyID, event, channel)
	if err == nil {
		return tmpl.Subject, tmpl.Body, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to resolve template: %w", err)
	}

	builtin, ok := builtinTemplate(event, channel)
	if !ok {
		return nil, "", fmt.Errorf("%w: no template for event %s on channel %s", domain.ErrNotFound, event, channel)
	}
	return builtin.Subject, builtin.Body, nil
}

// RenderString applies both substitution passes to a single template
// string: conditional blocks first, then simple variables. Unknown keys
// degrade to removed blocks and empty substitutions rather than errors.
func RenderString(s string, vars map[string]any) string {
	s = renderConditionalBlocks(s, vars)
	return renderVariables(s, vars)
}

const (
	blockOpenPrefix  = "{{#"
	blockClosePrefix = "{{/"
	markerSuffix     = "}}"
)

// renderConditionalBlocks resolves {{#KEY}}...{{/KEY}} pairs. Blocks do
// not nest and must close with the same KEY that opened them. A truthy
// variable keeps the inner content with its own markers intact for the
// variable pass; a falsy or absent one removes the whole block. An open
// marker without a matching close is left as literal text.
func renderConditionalBlocks(s string, vars map[string]any) string {
	var out strings.Builder
	rest := s

	for {
		open := strings.Index(rest, blockOpenPrefix)
		if open < 0 {
			out.WriteString(rest)
			return out.String()
		}

		out.WriteString(rest[:open])
		rest = rest[open:]

		keyEnd := strings.Index(rest, markerSuffix)
		if keyEnd < 0 {
			out.WriteString(rest)
			return out.String()
		}

		key := rest[len(blockOpenPrefix):keyEnd]
		closeMarker := blockClosePrefix + key + markerSuffix
		afterOpen := rest[keyEnd+len(markerSuffix):]

		closeIdx := strings.Index(afterOpen, closeMarker)
		if !isBlockKey(key) || closeIdx < 0 {
			// Malformed block: emit the open marker literally and move on.
			out.WriteString(rest[:keyEnd+len(markerSuffix)])
			rest = afterOpen
			continue
		}

		if isTruthy(vars[key]) {
			out.WriteString(afterOpen[:closeIdx])
		}
		rest = afterOpen[closeIdx+len(closeMarker):]
	}
}

var variablePattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// renderVariables replaces every {{KEY}} with the stringified variable
// value; absent keys substitute the empty string.
func renderVariables(s string, vars map[string]any) string {
	return variablePattern.ReplaceAllStringFunc(s, func(marker string) string {
		key := marker[2 : len(marker)-2]
		value, ok := vars[key]
		if !ok {
			return ""
		}
		return formatValue(value)
	})
}

func isBlockKey(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_':
		default:
			return false
		}
	}
	return true
}

func isTruthy(v any) bool {
	switch value := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(value) != ""
	case bool:
		return value
	default:
		return true
	}
}

// formatValue stringifies the small closed set of renderable scalars.
func formatValue(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case int:
		return strconv.Itoa(value)
	case int32:
		return strconv.FormatInt(int64(value), 10)
	case int64:
		return strconv.FormatInt(value, 10)
	case float32:
		return strconv.FormatFloat(float64(value), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case time.Time:
		return value.Format("January 2, 2006")
	default:
		return fmt.Sprintf("%v", value)
	}
}
