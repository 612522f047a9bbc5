package mocks

import (
	"context"

	"citabot.app/internal/ports"
	"github.com/stretchr/testify/mock"
)

// SubscriberStore is a testify mock for ports.SubscriberStore
type SubscriberStore struct {
	mock.Mock
}

func NewSubscriberStore(t testingT) *SubscriberStore {
	m := &SubscriberStore{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *SubscriberStore) Load(ctx context.Context) ([]ports.SubscriberData, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.([]ports.SubscriberData), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SubscriberStore) Save(ctx context.Context, subscribers []ports.SubscriberData) error {
	return m.Called(ctx, subscribers).Error(0)
}
