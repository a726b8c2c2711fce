package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"historia-diaria/internal/domain/entity"
	factUC "historia-diaria/internal/usecase/fact"
)

// DiscordConfig configures the Discord webhook.
type DiscordConfig struct {
	Enabled    bool
	WebhookURL string
	Timeout    time.Duration
	// SiteURL, when set, links the embed title to the fact on the site.
	SiteURL string
}

// Discord embed limits.
const (
	maxEmbedTitle       = 256
	maxEmbedDescription = 4096
	maxEmbedFieldValue  = 1024

	terminalGreen = 0x33FF33
)

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Footer      discordEmbedFooter  `json:"footer"`
	Timestamp   string              `json:"timestamp,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordEmbedFooter struct {
	Text string `json:"text"`
}

// Discord posts an embed per fact. It allows 30 requests per minute.
type Discord struct {
	hook    *webhook
	siteURL string
}

// NewDiscord returns a Discord notifier.
func NewDiscord(cfg DiscordConfig, opts ...Option) *Discord {
	hook := newWebhook("discord", cfg.WebhookURL, cfg.Timeout, rate.Limit(0.5), 3, opts)
	hook.retryAfter = discordRetryAfter
	return &Discord{hook: hook, siteURL: cfg.SiteURL}
}

func (d *Discord) Name() string { return "discord" }

// NotifyFact posts fact as an embed.
func (d *Discord) NotifyFact(ctx context.Context, fact *entity.HistoricalFact) error {
	return d.hook.post(ctx, d.payload(fact))
}

func (d *Discord) payload(fact *entity.HistoricalFact) discordPayload {
	embed := discordEmbed{
		Title:       truncate(fact.Title, maxEmbedTitle),
		Description: truncate("**"+factUC.HistoricalDateLabel(fact.HistoricalDate)+"**\n\n"+fact.Description, maxEmbedDescription),
		URL:         factLink(d.siteURL, fact),
		Color:       terminalGreen,
		Footer:      discordEmbedFooter{Text: "Historia Diaria · " + fact.PublishDate},
	}
	if !fact.CreatedAt.IsZero() {
		embed.Timestamp = fact.CreatedAt.UTC().Format(time.RFC3339)
	}
	if fact.Category != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name: "Categoría", Value: strings.ToUpper(fact.Category), Inline: true,
		})
	}
	if len(fact.Sources) > 0 {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name: "Fuentes", Value: truncate(strings.Join(fact.Sources, "\n"), maxEmbedFieldValue),
		})
	}
	return discordPayload{Embeds: []discordEmbed{embed}}
}

// discordRetryAfter prefers the retry_after field of the JSON error body.
func discordRetryAfter(resp *http.Response, body []byte) time.Duration {
	var errBody struct {
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil && errBody.RetryAfter > 0 {
		return time.Duration(errBody.RetryAfter * float64(time.Second))
	}
	return headerRetryAfter(resp, body)
}

// factLink returns the anchor of fact on the site, or "" without a site URL.
func factLink(siteURL string, fact *entity.HistoricalFact) string {
	if siteURL == "" || fact.ID == 0 {
		return ""
	}
	return strings.TrimRight(siteURL, "/") + "/#fact-" + strconv.FormatInt(fact.ID, 10)
}
