package mocks

import (
	"context"

	"citabot.app/internal/ports"
	"github.com/stretchr/testify/mock"
)

// MessagingProvider is a testify mock for ports.MessagingProvider
type MessagingProvider struct {
	mock.Mock
}

func NewMessagingProvider(t testingT) *MessagingProvider {
	m := &MessagingProvider{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MessagingProvider) SendMessage(ctx context.Context, msg ports.PushMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *MessagingProvider) ProviderName() string {
	return "mock"
}
