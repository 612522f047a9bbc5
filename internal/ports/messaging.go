package ports

import (
	"context"
	"fmt"
)

// PushMessage is a single notification addressed to one device token
type PushMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// DeliveryErrorKind classifies delivery failures
type DeliveryErrorKind int

const (
	DeliveryTransient DeliveryErrorKind = iota
	DeliveryInvalidToken
)

func (k DeliveryErrorKind) String() string {
	switch k {
	case DeliveryInvalidToken:
		return "invalid_token"
	default:
		return "transient"
	}
}

// DeliveryError is returned by messaging providers when a message could not be delivered
type DeliveryError struct {
	Kind  DeliveryErrorKind
	Token string
	Cause error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %v", e.Kind, e.Cause)
}

func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// MessagingProvider defines the contract for push delivery
type MessagingProvider interface {
	SendMessage(ctx context.Context, msg PushMessage) error
	ProviderName() string
}
