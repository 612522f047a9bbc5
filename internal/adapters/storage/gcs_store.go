package storage

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"cloud.google.com/go/storage"
	"github.com/codeGROOVE-dev/retry"
)

// GCSStore keeps the registry as one object in a Cloud Storage bucket
type GCSStore struct {
	client *storage.Client
	bucket string
	object string
	logger ports.Logger
	now    func() time.Time

	attempts uint
	delay    time.Duration
}

func NewGCSStore(client *storage.Client, bucket, object string, logger ports.Logger) *GCSStore {
	return &GCSStore{
		client:   client,
		bucket:   bucket,
		object:   object,
		logger:   logger,
		now:      time.Now,
		attempts: 3,
		delay:    time.Second,
	}
}

func (s *GCSStore) Load(ctx context.Context) ([]ports.SubscriberData, error) {
	var data []byte
	missing := false

	err := retry.Do(
		func() error {
			r, openErr := s.client.Bucket(s.bucket).Object(s.object).NewReader(ctx)
			if openErr != nil {
				if stderrors.Is(openErr, storage.ErrObjectNotExist) {
					missing = true
					return nil
				}
				return fmt.Errorf("open storage reader: %w", openErr)
			}
			defer func() {
				if closeErr := r.Close(); closeErr != nil {
					s.logger.Warn("Failed to close storage reader", ports.F("error", closeErr))
				}
			}()

			var readErr error
			data, readErr = io.ReadAll(r)
			if readErr != nil {
				return fmt.Errorf("read from storage: %w", readErr)
			}
			return nil
		},
		s.retryOptions(ctx, "load")...,
	)
	if err != nil {
		return nil, errors.NewPersistenceError("failed to load subscribers from bucket", err)
	}
	if missing {
		s.logger.Info("No subscriber object yet, starting empty",
			ports.F("bucket", s.bucket), ports.F("object", s.object))
		return nil, nil
	}

	subscribers, err := decodeDocument(data)
	if err != nil {
		return nil, errors.NewPersistenceError("subscriber object is corrupt", err)
	}
	return subscribers, nil
}

func (s *GCSStore) Save(ctx context.Context, subscribers []ports.SubscriberData) error {
	data, err := encodeDocument(subscribers, s.now())
	if err != nil {
		return errors.NewPersistenceError("failed to encode subscribers", err)
	}

	err = retry.Do(
		func() error {
			w := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
			w.ContentType = "application/json"
			if _, writeErr := w.Write(data); writeErr != nil {
				if closeErr := w.Close(); closeErr != nil {
					s.logger.Warn("Failed to close writer after error", ports.F("error", closeErr))
				}
				return fmt.Errorf("write to storage: %w", writeErr)
			}
			if closeErr := w.Close(); closeErr != nil {
				return fmt.Errorf("close storage writer: %w", closeErr)
			}
			return nil
		},
		s.retryOptions(ctx, "save")...,
	)
	if err != nil {
		return errors.NewPersistenceError("failed to save subscribers to bucket", err)
	}

	s.logger.Debug("Subscribers saved",
		ports.F("bucket", s.bucket), ports.F("object", s.object), ports.F("count", len(subscribers)))
	return nil
}

func (s *GCSStore) retryOptions(ctx context.Context, op string) []retry.Option {
	return []retry.Option{
		retry.Attempts(s.attempts),
		retry.Delay(s.delay),
		retry.MaxDelay(30 * time.Second),
		retry.MaxJitter(s.delay),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Info("Retrying storage operation",
				ports.F("operation", op), ports.F("attempt", n), ports.F("error", err))
		}),
	}
}

var _ ports.SubscriberStore = (*GCSStore)(nil)
