package models

import "time"

type ActivityType string

const (
	ActivityAnalysis      ActivityType = "analysis"
	ActivityUpload        ActivityType = "upload"
	ActivityDownload      ActivityType = "download"
	ActivityShare         ActivityType = "share"
	ActivityLogin         ActivityType = "login"
	ActivitySettings      ActivityType = "settings"
	ActivityProfileUpdate ActivityType = "profile_update"
)

var activityTypes = map[ActivityType]struct{}{
	ActivityAnalysis: {}, ActivityUpload: {}, ActivityDownload: {}, ActivityShare: {},
	ActivityLogin: {}, ActivitySettings: {}, ActivityProfileUpdate: {},
}

func (t ActivityType) Valid() bool {
	_, ok := activityTypes[t]
	return ok
}

type ActivityStatus string

const (
	StatusCompleted  ActivityStatus = "completed"
	StatusProcessing ActivityStatus = "processing"
	StatusFailed     ActivityStatus = "failed"
)

func (s ActivityStatus) Valid() bool {
	return s == StatusCompleted || s == StatusProcessing || s == StatusFailed
}

// Activity is an append-only audit entry.
type Activity struct {
	ID          string         `json:"id"`
	AccountID   string         `json:"account_id"`
	Type        ActivityType   `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	Status      ActivityStatus `json:"status"`
}
