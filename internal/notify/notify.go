// Package notify delivers run summaries to a chat webhook. Delivery is
// fire-and-forget: a failed post is logged and never retried.
package notify

import (
	"context"

	"avinfo/internal/httpclient"
	"avinfo/internal/logger"
)

// Notifier sends one human-readable message.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

type Message struct {
	Text string `json:"text"`
}

// Webhook posts {"text": ...} to URL.
type Webhook struct {
	URL    string
	client *httpclient.Client
	log    *logger.Logger
}

func NewWebhook(url string, client *httpclient.Client, log *logger.Logger) *Webhook {
	if log == nil {
		log = logger.Nop()
	}
	return &Webhook{URL: url, client: client, log: log}
}

// Notify is a no-op without a URL.
func (w *Webhook) Notify(ctx context.Context, text string) {
	if w.URL == "" {
		w.log.Debug("notification skipped, no webhook configured")
		return
	}
	if _, err := w.client.PostJSON(ctx, w.URL, Message{Text: text}); err != nil {
		w.log.Warn("notification failed", "error", err)
		return
	}
	w.log.Debug("notification sent")
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(context.Context, string) {}
