package ports

import (
	"context"
	"time"
)

// SubscriberData represents one registered device for persistence
type SubscriberData struct {
	Token     string              `json:"token"`
	UserID    string              `json:"user_id,omitempty"`
	Favorites []string            `json:"favorites"`
	LastSeen  map[string][]string `json:"last_seen"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// SubscriberStore persists the whole registry as one document
type SubscriberStore interface {
	Load(ctx context.Context) ([]SubscriberData, error)
	Save(ctx context.Context, subscribers []SubscriberData) error
}
