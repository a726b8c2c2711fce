package notifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"historia-diaria/internal/domain/entity"
	factUC "historia-diaria/internal/usecase/fact"
)

// SlackConfig configures the Slack incoming webhook.
type SlackConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
	SiteURL    string
}

// Slack Block Kit limits.
const (
	maxSectionText  = 3000
	maxContextText  = 2000
	maxFallbackText = 150
)

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string       `json:"type"`
	Text     *slackText   `json:"text,omitempty"`
	Elements []*slackText `json:"elements,omitempty"`
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

// Slack posts a Block Kit message per fact at one request per second.
type Slack struct {
	hook    *webhook
	siteURL string
}

// NewSlack returns a Slack notifier.
func NewSlack(cfg SlackConfig, opts ...Option) *Slack {
	return &Slack{
		hook:    newWebhook("slack", cfg.WebhookURL, cfg.Timeout, rate.Limit(1), 1, opts),
		siteURL: cfg.SiteURL,
	}
}

func (s *Slack) Name() string { return "slack" }

// NotifyFact posts fact as a header, a section and a context block.
func (s *Slack) NotifyFact(ctx context.Context, fact *entity.HistoricalFact) error {
	return s.hook.post(ctx, s.payload(fact))
}

func (s *Slack) payload(fact *entity.HistoricalFact) slackPayload {
	title := fact.Title
	if link := factLink(s.siteURL, fact); link != "" {
		title = fmt.Sprintf("<%s|%s>", link, fact.Title)
	}
	section := fmt.Sprintf("*%s*\n_%s_\n\n%s", title, factUC.HistoricalDateLabel(fact.HistoricalDate), fact.Description)

	contextParts := []string{"Historia Diaria", fact.PublishDate}
	if fact.Category != "" {
		contextParts = append(contextParts, strings.ToUpper(fact.Category))
	}
	if n := len(fact.Sources); n > 0 {
		contextParts = append(contextParts, fmt.Sprintf("%d fuentes", n))
	}

	return slackPayload{
		Text: truncate("Dato histórico del día: "+fact.Title, maxFallbackText),
		Blocks: []slackBlock{
			{Type: "header", Text: &slackText{Type: "plain_text", Text: "Dato Histórico del Día", Emoji: true}},
			{Type: "section", Text: &slackText{Type: "mrkdwn", Text: truncate(section, maxSectionText)}},
			{Type: "context", Elements: []*slackText{{Type: "mrkdwn", Text: truncate(strings.Join(contextParts, " • "), maxContextText)}}},
		},
	}
}
