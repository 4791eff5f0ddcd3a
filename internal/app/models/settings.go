package models

import (
	"encoding/json"
	"time"
)

// Well-known system settings keys
const (
	SettingLessonDurations = "lesson_durations"
)

// SystemSetting is one key/value row of the 'system_settings' table
type SystemSetting struct {
	Key       string          `json:"key" db:"key"`
	Value     json.RawMessage `json:"value" db:"value"`
	UpdatedBy *int64          `json:"updatedBy,omitempty" db:"updated_by"`
	UpdatedAt time.Time       `json:"updatedAt" db:"updated_at"`
}
