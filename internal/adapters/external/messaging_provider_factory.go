package external

import (
	"context"
	"fmt"

	"citabot.app/internal/config"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
)

type MessagingProviderFactory struct {
	logger ports.Logger
}

func NewMessagingProviderFactory(logger ports.Logger) *MessagingProviderFactory {
	return &MessagingProviderFactory{logger: logger}
}

func (f *MessagingProviderFactory) CreateMessagingProvider(ctx context.Context, cfg *config.PushConfig) (ports.MessagingProvider, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("push config cannot be nil", nil)
	}

	switch cfg.Provider {
	case "log", "":
		return NewLogMessagingProvider(f.logger), nil
	case "fcm":
		return NewFCMProvider(ctx, cfg, f.logger)
	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("unsupported push provider: %s", cfg.Provider), nil)
	}
}
