// Package storage persists the subscriber registry as a single JSON document,
// either on the local filesystem or in a Cloud Storage bucket.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"citabot.app/internal/ports"
)

type subscriberDocument struct {
	SavedAt     time.Time              `json:"saved_at"`
	Subscribers []ports.SubscriberData `json:"subscribers"`
}

func encodeDocument(subscribers []ports.SubscriberData, now time.Time) ([]byte, error) {
	if subscribers == nil {
		subscribers = []ports.SubscriberData{}
	}
	data, err := json.MarshalIndent(subscriberDocument{SavedAt: now.UTC(), Subscribers: subscribers}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal subscribers: %w", err)
	}
	return data, nil
}

// decodeDocument also accepts a bare JSON list of subscribers
func decodeDocument(data []byte) ([]ports.SubscriberData, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '[' {
		var list []ports.SubscriberData
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("unmarshal subscribers: %w", err)
		}
		return list, nil
	}

	var doc subscriberDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal subscribers: %w", err)
	}
	return doc.Subscribers, nil
}
