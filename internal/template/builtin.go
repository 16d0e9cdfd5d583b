package template

import "github.com/carebridge/notification-engine/internal/domain"

// BuiltinTemplate is the compiled-in fallback used when neither a tenant
// template nor a system-wide default exists for an (event, channel) pair.
type BuiltinTemplate struct {
	Subject *string
	Body    string
}

func subjectOf(s string) *string { return &s }

// builtins covers every event type on every channel so rendering can
// never fail for lack of content. IN_APP, SMS, and WHATSAPP bodies are
// plain text; EMAIL bodies carry light markup that the email provider
// wraps in its document shell.
var builtins = map[domain.EventType]map[domain.Channel]BuiltinTemplate{
	domain.EventShiftAssigned: {
		domain.ChannelEmail: {
			Subject: subjectOf("New shift assigned: {{shiftDate}}"),
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>You have been assigned a shift on <strong>{{shiftDate}}</strong>" +
				"{{#shiftTime}} at {{shiftTime}}{{/shiftTime}}{{#clientName}} with {{clientName}}{{/clientName}}.</p>" +
				"{{#notes}}<p>Notes: {{notes}}</p>{{/notes}}" +
				"<p>View your schedule at {{appUrl}}/schedule.</p>",
		},
		domain.ChannelInApp: {
			Subject: subjectOf("New shift assigned"),
			Body:    "You have been assigned a shift on {{shiftDate}}{{#shiftTime}} at {{shiftTime}}{{/shiftTime}}{{#clientName}} with {{clientName}}{{/clientName}}.",
		},
		domain.ChannelSMS: {
			Body: "{{companyName}}: new shift on {{shiftDate}}{{#shiftTime}} at {{shiftTime}}{{/shiftTime}}. Details: {{appUrl}}/schedule",
		},
		domain.ChannelWhatsApp: {
			Body: "{{companyName}}: you have a new shift on {{shiftDate}}{{#shiftTime}} at {{shiftTime}}{{/shiftTime}}. Details: {{appUrl}}/schedule",
		},
	},
	domain.EventShiftCancelled: {
		domain.ChannelEmail: {
			Subject: subjectOf("Shift cancelled: {{shiftDate}}"),
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>Your shift on <strong>{{shiftDate}}</strong>{{#shiftTime}} at {{shiftTime}}{{/shiftTime}} has been cancelled." +
				"{{#reason}} Reason: {{reason}}.{{/reason}}</p>" +
				"<p>Check {{appUrl}}/schedule for your updated roster.</p>",
		},
		domain.ChannelInApp: {
			Subject: subjectOf("Shift cancelled"),
			Body:    "Your shift on {{shiftDate}}{{#shiftTime}} at {{shiftTime}}{{/shiftTime}} has been cancelled.{{#reason}} Reason: {{reason}}.{{/reason}}",
		},
		domain.ChannelSMS: {
			Body: "{{companyName}}: your shift on {{shiftDate}} has been cancelled.{{#reason}} Reason: {{reason}}.{{/reason}}",
		},
		domain.ChannelWhatsApp: {
			Body: "{{companyName}}: your shift on {{shiftDate}} has been cancelled.{{#reason}} Reason: {{reason}}.{{/reason}}",
		},
	},
	domain.EventCredentialExpiring: {
		domain.ChannelEmail: {
			Subject: subjectOf("Credential expiring{{#credentialName}}: {{credentialName}}{{/credentialName}}"),
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>Your credential {{#credentialName}}<strong>{{credentialName}}</strong> {{/credentialName}}expires on {{expiryDate}}.</p>" +
				"<p>Please upload a renewed document at {{appUrl}}/credentials before the expiry date to stay eligible for shifts.</p>",
		},
		domain.ChannelInApp: {
			Subject: subjectOf("Credential expiring"),
			Body:    "Your credential {{#credentialName}}{{credentialName}} {{/credentialName}}expires on {{expiryDate}}. Upload a renewal to stay eligible for shifts.",
		},
		domain.ChannelSMS: {
			Body: "{{companyName}}: your credential expires on {{expiryDate}}. Renew at {{appUrl}}/credentials",
		},
		domain.ChannelWhatsApp: {
			Body: "{{companyName}}: your credential {{#credentialName}}{{credentialName}} {{/credentialName}}expires on {{expiryDate}}. Renew at {{appUrl}}/credentials",
		},
	},
	domain.EventAuthExpired: {
		domain.ChannelEmail: {
			Subject: subjectOf("Authorization expired{{#clientName}} for {{clientName}}{{/clientName}}"),
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>An authorization {{#clientName}}for <strong>{{clientName}}</strong> {{/clientName}}expired on {{expiryDate}}.</p>" +
				"<p>Services may not be billable until a new authorization is on file. Review it at {{appUrl}}/authorizations.</p>",
		},
		domain.ChannelInApp: {
			Subject: subjectOf("Authorization expired"),
			Body:    "An authorization {{#clientName}}for {{clientName}} {{/clientName}}expired on {{expiryDate}}. Review it before scheduling further visits.",
		},
		domain.ChannelSMS: {
			Body: "{{companyName}}: an authorization expired on {{expiryDate}}. Review: {{appUrl}}/authorizations",
		},
		domain.ChannelWhatsApp: {
			Body: "{{companyName}}: an authorization {{#clientName}}for {{clientName}} {{/clientName}}expired on {{expiryDate}}.",
		},
	},
	domain.EventThresholdBreach: {
		domain.ChannelEmail: {
			Subject: subjectOf("Threshold alert{{#metricName}}: {{metricName}}{{/metricName}}"),
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>The metric {{#metricName}}<strong>{{metricName}}</strong> {{/metricName}}breached its threshold on {{currentDate}}." +
				"{{#currentValue}} Current value: {{currentValue}}.{{/currentValue}}{{#thresholdValue}} Threshold: {{thresholdValue}}.{{/thresholdValue}}</p>" +
				"<p>Open the dashboard at {{appUrl}}/dashboard for details.</p>",
		},
		domain.ChannelInApp: {
			Subject: subjectOf("Threshold alert"),
			Body:    "{{#metricName}}{{metricName}} {{/metricName}}breached its threshold.{{#currentValue}} Current value: {{currentValue}}.{{/currentValue}}",
		},
		domain.ChannelSMS: {
			Body: "{{companyName}} alert: {{#metricName}}{{metricName}} {{/metricName}}threshold breached.{{#currentValue}} Now {{currentValue}}.{{/currentValue}}",
		},
		domain.ChannelWhatsApp: {
			Body: "{{companyName}} alert: {{#metricName}}{{metricName}} {{/metricName}}threshold breached.{{#currentValue}} Now {{currentValue}}.{{/currentValue}}",
		},
	},
	domain.EventAssessmentDue: {
		domain.ChannelEmail: {
			Subject: subjectOf("Assessment due{{#clientName}} for {{clientName}}{{/clientName}}"),
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>An assessment {{#clientName}}for <strong>{{clientName}}</strong> {{/clientName}}is due{{#dueDate}} by {{dueDate}}{{/dueDate}}.</p>" +
				"<p>Complete it at {{appUrl}}/assessments.</p>",
		},
		domain.ChannelInApp: {
			Subject: subjectOf("Assessment due"),
			Body:    "An assessment {{#clientName}}for {{clientName}} {{/clientName}}is due{{#dueDate}} by {{dueDate}}{{/dueDate}}.",
		},
		domain.ChannelSMS: {
			Body: "{{companyName}}: an assessment is due{{#dueDate}} by {{dueDate}}{{/dueDate}}. Complete: {{appUrl}}/assessments",
		},
		domain.ChannelWhatsApp: {
			Body: "{{companyName}}: an assessment {{#clientName}}for {{clientName}} {{/clientName}}is due{{#dueDate}} by {{dueDate}}{{/dueDate}}.",
		},
	},
	domain.EventDocumentExpiring: {
		domain.ChannelEmail: {
			Subject: subjectOf("Document expiring{{#documentName}}: {{documentName}}{{/documentName}}"),
			Body: "<p>Hi {{firstName}},</p>" +
				"<p>The document {{#documentName}}<strong>{{documentName}}</strong> {{/documentName}}expires on {{expiryDate}}.</p>" +
				"<p>Upload a replacement at {{appUrl}}/documents.</p>",
		},
		domain.ChannelInApp: {
			Subject: subjectOf("Document expiring"),
			Body:    "The document {{#documentName}}{{documentName}} {{/documentName}}expires on {{expiryDate}}.",
		},
		domain.ChannelSMS: {
			Body: "{{companyName}}: a document expires on {{expiryDate}}. Replace: {{appUrl}}/documents",
		},
		domain.ChannelWhatsApp: {
			Body: "{{companyName}}: the document {{#documentName}}{{documentName}} {{/documentName}}expires on {{expiryDate}}.",
		},
	},
}

func builtinTemplate(event domain.EventType, channel domain.Channel) (BuiltinTemplate, bool) {
	channels, ok := builtins[event]
	if !ok {
		return BuiltinTemplate{}, false
	}
	tmpl, ok := channels[channel]
	return tmpl, ok
}
