package model

import "time"

// Platforms and task types accepted by the API and the command pipeline.
const (
	PlatformTwitter   = "twitter"
	PlatformInstagram = "instagram"
	PlatformFacebook  = "facebook"
)

const (
	TaskTypeLike    = "like"
	TaskTypeShare   = "share"
	TaskTypePost    = "post"
	TaskTypeComment = "comment"
	TaskTypeFollow  = "follow"
)

// Task lifecycle statuses. Tasks are created pending (or scheduled when a
// schedule timestamp is present) and never auto-transition; status updates
// come from outside the command pipeline.
const (
	TaskStatusPending   = "pending"
	TaskStatusScheduled = "scheduled"
	TaskStatusRunning   = "running"
	TaskStatusCompleted = "completed"
	TaskStatusFailed    = "failed"
)

// Task is one planned social-media action for one persona.
type Task struct {
	ID           string                 `gorm:"primaryKey;size:36" json:"id"`
	PersonaID    string                 `gorm:"index;size:36" json:"personaId"`
	Platform     string                 `gorm:"size:16" json:"platform"`
	TaskType     string                 `gorm:"size:16" json:"taskType"`
	Payload      map[string]interface{} `gorm:"serializer:json" json:"payload"`
	Status       string                 `gorm:"index;size:16" json:"status"`
	ScheduledFor *time.Time             `json:"scheduledFor,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// ValidPlatform reports whether s is a known social network.
func ValidPlatform(s string) bool {
	switch s {
	case PlatformTwitter, PlatformInstagram, PlatformFacebook:
		return true
	}
	return false
}

// ValidTaskType reports whether s is a known task type.
func ValidTaskType(s string) bool {
	switch s {
	case TaskTypeLike, TaskTypeShare, TaskTypePost, TaskTypeComment, TaskTypeFollow:
		return true
	}
	return false
}

// ValidTaskStatus reports whether s is a known lifecycle status.
func ValidTaskStatus(s string) bool {
	switch s {
	case TaskStatusPending, TaskStatusScheduled, TaskStatusRunning, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}
