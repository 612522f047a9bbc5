package database

import (
	"context"
	"time"

	"citabot.app/internal/ports"
	"citabot.app/pkg/errors"
	"gorm.io/gorm"
)

// SubscriberModel is one registered device
type SubscriberModel struct {
	Token     string              `gorm:"primaryKey;size:512"`
	UserID    string              `gorm:"index;size:255"`
	Favorites []string            `gorm:"serializer:json"`
	LastSeen  map[string][]string `gorm:"serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SubscriberModel) TableName() string {
	return "subscribers"
}

// SubscriberStoreAdapter implements ports.SubscriberStore on a relational database
type SubscriberStoreAdapter struct {
	db *gorm.DB
}

func NewSubscriberStoreAdapter(db *gorm.DB) *SubscriberStoreAdapter {
	return &SubscriberStoreAdapter{db: db}
}

func (s *SubscriberStoreAdapter) Load(ctx context.Context) ([]ports.SubscriberData, error) {
	var models []SubscriberModel
	if err := s.db.WithContext(ctx).Order("token").Find(&models).Error; err != nil {
		return nil, errors.NewPersistenceError("failed to load subscribers", err)
	}

	out := make([]ports.SubscriberData, 0, len(models))
	for i := range models {
		out = append(out, modelToData(&models[i]))
	}
	return out, nil
}

// Save replaces the stored registry with subscribers in one transaction
func (s *SubscriberStoreAdapter) Save(ctx context.Context, subscribers []ports.SubscriberData) error {
	models := make([]SubscriberModel, 0, len(subscribers))
	for _, sub := range subscribers {
		models = append(models, dataToModel(sub))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&SubscriberModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.CreateInBatches(models, 100).Error
	})
	if err != nil {
		return errors.NewPersistenceError("failed to save subscribers", err)
	}
	return nil
}

// Ping checks the database connection
func (s *SubscriberStoreAdapter) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func dataToModel(data ports.SubscriberData) SubscriberModel {
	return SubscriberModel{
		Token:     data.Token,
		UserID:    data.UserID,
		Favorites: data.Favorites,
		LastSeen:  data.LastSeen,
		CreatedAt: data.CreatedAt,
		UpdatedAt: data.UpdatedAt,
	}
}

func modelToData(model *SubscriberModel) ports.SubscriberData {
	favorites := model.Favorites
	if favorites == nil {
		favorites = []string{}
	}
	lastSeen := model.LastSeen
	if lastSeen == nil {
		lastSeen = map[string][]string{}
	}
	return ports.SubscriberData{
		Token:     model.Token,
		UserID:    model.UserID,
		Favorites: favorites,
		LastSeen:  lastSeen,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

var _ ports.SubscriberStore = (*SubscriberStoreAdapter)(nil)
