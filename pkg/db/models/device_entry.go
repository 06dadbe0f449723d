package models

import "time"

// DeviceEntry is one named slot of the device key-value store.
type DeviceEntry struct {
	Key       string    `gorm:"column:key;primaryKey;size:191"`
	Value     string    `gorm:"column:value;type:text;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null"`
}

func (DeviceEntry) TableName() string { return "device_kv" }
