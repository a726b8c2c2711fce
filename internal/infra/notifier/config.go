package notifier

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	envcfg "historia-diaria/pkg/config"
)

// ValidateWebhookURL checks that raw is an https URL on host whose path
// starts with pathPrefix.
func ValidateWebhookURL(raw, host, pathPrefix string) error {
	if raw == "" {
		return fmt.Errorf("webhook URL is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use https, got %q", u.Scheme)
	}
	if u.Host != host {
		return fmt.Errorf("webhook host must be %s, got %q", host, u.Host)
	}
	if !strings.HasPrefix(u.Path, pathPrefix) {
		return fmt.Errorf("webhook path must start with %s", pathPrefix)
	}
	return nil
}

// LoadDiscordConfig reads DISCORD_ENABLED, DISCORD_WEBHOOK_URL and SITE_URL.
// An enabled channel with an invalid URL is disabled with a warning.
func LoadDiscordConfig(logger *slog.Logger) DiscordConfig {
	if !envcfg.GetEnvBool("DISCORD_ENABLED", false) {
		return DiscordConfig{}
	}
	raw := envcfg.GetEnvString("DISCORD_WEBHOOK_URL", "")
	if err := ValidateWebhookURL(raw, "discord.com", "/api/webhooks/"); err != nil {
		logger.Warn("discord notifications disabled", slog.Any("error", err))
		return DiscordConfig{}
	}
	return DiscordConfig{
		Enabled:    true,
		WebhookURL: raw,
		Timeout:    envcfg.GetEnvDuration("NOTIFY_TIMEOUT", defaultTimeout),
		SiteURL:    envcfg.GetEnvString("SITE_URL", ""),
	}
}

// LoadSlackConfig reads SLACK_ENABLED, SLACK_WEBHOOK_URL and SITE_URL.
func LoadSlackConfig(logger *slog.Logger) SlackConfig {
	if !envcfg.GetEnvBool("SLACK_ENABLED", false) {
		return SlackConfig{}
	}
	raw := envcfg.GetEnvString("SLACK_WEBHOOK_URL", "")
	if err := ValidateWebhookURL(raw, "hooks.slack.com", "/services/"); err != nil {
		logger.Warn("slack notifications disabled", slog.Any("error", err))
		return SlackConfig{}
	}
	return SlackConfig{
		Enabled:    true,
		WebhookURL: raw,
		Timeout:    envcfg.GetEnvDuration("NOTIFY_TIMEOUT", defaultTimeout),
		SiteURL:    envcfg.GetEnvString("SITE_URL", ""),
	}
}

// FromEnv builds a Multi over every enabled channel.
func FromEnv(logger *slog.Logger) *Multi {
	if logger == nil {
		logger = slog.Default()
	}
	var ns []Notifier
	if cfg := LoadDiscordConfig(logger); cfg.Enabled {
		ns = append(ns, NewDiscord(cfg, WithLogger(logger)))
	}
	if cfg := LoadSlackConfig(logger); cfg.Enabled {
		ns = append(ns, NewSlack(cfg, WithLogger(logger)))
	}
	logger.Info("notification channels configured", slog.Int("channels", len(ns)))
	return NewMulti(logger, ns...)
}
