package model

import "time"

// Organization is a tenant account. Personas and tasks hang off it; a
// deactivated organization can no longer log in or call the API.
type Organization struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Name         string     `gorm:"size:80" json:"name"`
	Email        string     `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string     `json:"-"`
	Mission      string     `gorm:"size:280" json:"mission,omitempty"`
	IsActive     bool       `gorm:"default:true" json:"isActive"`
	ResetToken   string     `gorm:"index;size:64" json:"-"`
	ResetExpires *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}
