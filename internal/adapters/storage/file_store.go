package storage

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
)

// FileStore keeps the registry in a local JSON file. Writes go to a temporary
// file that is renamed over the target so readers never see a partial file.
type FileStore struct {
	path   string
	logger ports.Logger
	now    func() time.Time
}

func NewFileStore(path string, logger ports.Logger) *FileStore {
	return &FileStore{path: path, logger: logger, now: time.Now}
}

func (s *FileStore) Load(ctx context.Context) ([]ports.SubscriberData, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.Info("No subscriber file yet, starting empty", ports.F("path", s.path))
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewPersistenceError("failed to read subscriber file", err)
	}

	subscribers, err := decodeDocument(data)
	if err != nil {
		return nil, errors.NewPersistenceError("subscriber file is corrupt", err)
	}
	return subscribers, nil
}

func (s *FileStore) Save(ctx context.Context, subscribers []ports.SubscriberData) error {
	data, err := encodeDocument(subscribers, s.now())
	if err != nil {
		return errors.NewPersistenceError("failed to encode subscribers", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.NewPersistenceError("failed to create subscriber directory", err)
	}

	tmp, err := os.CreateTemp(dir, ".subscribers-*.json")
	if err != nil {
		return errors.NewPersistenceError("failed to create temporary file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.NewPersistenceError("failed to write subscriber file", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return errors.NewPersistenceError("failed to sync subscriber file", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewPersistenceError("failed to close subscriber file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.NewPersistenceError("failed to replace subscriber file", err)
	}

	s.logger.Debug("Subscribers saved", ports.F("path", s.path), ports.F("count", len(subscribers)))
	return nil
}

var _ ports.SubscriberStore = (*FileStore)(nil)
