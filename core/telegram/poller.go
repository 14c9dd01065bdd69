package telegram

import (
	coreconfig "github.com/m3rciful/potluckbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// BuildPoller returns the webhook or long poller selected by cfg. Both honour
// telegram.allowed_updates.
func BuildPoller(cfg *coreconfig.Config) tele.Poller {
	if cfg.Telegram.IsWebhook() {
		return &tele.Webhook{
			Listen:         cfg.Webhook.Addr(),
			SecretToken:    cfg.Webhook.Secret,
			AllowedUpdates: cfg.Telegram.AllowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: cfg.Webhook.URL},
		}
	}
	return &tele.LongPoller{
		Timeout:        cfg.Telegram.LongPollTimeout(),
		AllowedUpdates: cfg.Telegram.AllowedUpdates,
	}
}
