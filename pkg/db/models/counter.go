package models

import "time"

// Counter stores monotonically increasing sequences, one row per counter name.
// Receipt numbering uses one counter per prefix and day.
type Counter struct {
	Name      string    `gorm:"column:name;primaryKey"`
	Value     int64     `gorm:"column:value;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
