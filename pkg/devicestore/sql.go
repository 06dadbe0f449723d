package devicestore

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/packfinderz-cart/pkg/db"
	"github.com/angelmondragon/packfinderz-cart/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL stores slots in the device_kv table through gorm.
type SQL struct {
	client *db.Client
	now    func() time.Time
}

func NewSQL(client *db.Client) *SQL {
	return &SQL{client: client, now: time.Now}
}

func (s *SQL) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.DeviceEntry
	err := s.client.DB().WithContext(ctx).
		Where("key = ?", key).
		First(&entry).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *SQL) Set(ctx context.Context, key, value string) error {
	entry := models.DeviceEntry{Key: key, Value: value, UpdatedAt: s.now().UTC()}
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&entry).
		Error
}

func (s *SQL) Remove(ctx context.Context, key string) error {
	return s.client.DB().WithContext(ctx).
		Where("key = ?", key).
		Delete(&models.DeviceEntry{}).
		Error
}

func (s *SQL) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *SQL) Close() error { return s.client.Close() }
