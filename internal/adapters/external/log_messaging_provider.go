package external

import (
	"context"
	"sync"

	"citabot.app/internal/ports"
)

// LogMessagingProvider writes notifications to the log instead of delivering
// them. It is the default when no push credentials are configured.
type LogMessagingProvider struct {
	logger ports.Logger

	mu   sync.Mutex
	sent int
}

func NewLogMessagingProvider(logger ports.Logger) *LogMessagingProvider {
	return &LogMessagingProvider{logger: logger}
}

func (p *LogMessagingProvider) SendMessage(ctx context.Context, msg ports.PushMessage) error {
	if err := ctx.Err(); err != nil {
		return &ports.DeliveryError{Kind: ports.DeliveryTransient, Token: msg.Token, Cause: err}
	}

	p.mu.Lock()
	p.sent++
	p.mu.Unlock()

	p.logger.Info("Push notification",
		ports.F("token", maskToken(msg.Token)),
		ports.F("title", msg.Title),
		ports.F("body", msg.Body),
		ports.F("event_id", msg.Data["event_id"]),
		ports.F("provider", p.ProviderName()))
	return nil
}

func (p *LogMessagingProvider) ProviderName() string {
	return "log"
}

// Sent counts messages logged so far
func (p *LogMessagingProvider) Sent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sent
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

var _ ports.MessagingProvider = (*LogMessagingProvider)(nil)
