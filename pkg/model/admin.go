package model

import "time"

// Admin is a super-admin portal account. Admins manage organizations and
// global personas and drive the admin command pipeline.
type Admin struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Email        string     `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string     `json:"-"`
	ResetToken   string     `gorm:"index;size:64" json:"-"`
	ResetExpires *time.Time `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
}
