package dto

import "github.com/yigit/lingoschool/internal/pkg/lessonsettings"

// UpdateLessonDurationsRequest merges duration/buffer pairs into the settings
type UpdateLessonDurationsRequest struct {
	Durations []lessonsettings.DurationBuffer `json:"durations" binding:"required,min=1,dive"`
}

// LessonDurationsResponse lists the configured durations
type LessonDurationsResponse struct {
	Durations []lessonsettings.DurationBuffer `json:"durations"`
}
