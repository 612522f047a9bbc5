package external

import (
	"context"

	"citabot.app/internal/config"
	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// fcmSender is the part of messaging.Client the provider uses
type fcmSender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMProvider delivers push notifications through Firebase Cloud Messaging
type FCMProvider struct {
	client fcmSender
	logger ports.Logger
}

// NewFCMProvider initializes a Firebase app from a service account file or
// application default credentials
func NewFCMProvider(ctx context.Context, cfg *config.PushConfig, logger ports.Logger) (*FCMProvider, error) {
	if cfg == nil {
		return nil, errors.NewConfigurationError("push config cannot be nil", nil)
	}
	if logger == nil {
		return nil, errors.NewConfigurationError("fcm provider requires a logger", nil)
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to initialize firebase app", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create firebase messaging client", err)
	}

	return &FCMProvider{client: client, logger: logger}, nil
}

func (p *FCMProvider) SendMessage(ctx context.Context, msg ports.PushMessage) error {
	id, err := p.client.Send(ctx, buildFCMMessage(msg))
	if err != nil {
		return &ports.DeliveryError{Kind: classifyFCMError(err), Token: msg.Token, Cause: err}
	}

	p.logger.Debug("Push notification sent", ports.F("message_id", id), ports.F("provider", p.ProviderName()))
	return nil
}

func (p *FCMProvider) ProviderName() string {
	return "fcm"
}

func buildFCMMessage(msg ports.PushMessage) *messaging.Message {
	return &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{Sound: "default"},
			},
		},
	}
}

// classifyFCMError reports tokens FCM will never accept again as invalid
func classifyFCMError(err error) ports.DeliveryErrorKind {
	if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) || messaging.IsInvalidArgument(err) {
		return ports.DeliveryInvalidToken
	}
	return ports.DeliveryTransient
}

var _ ports.MessagingProvider = (*FCMProvider)(nil)
