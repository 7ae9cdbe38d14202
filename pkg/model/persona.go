package model

import "time"

// Persona is a configured identity used to author generated social content.
// An empty OrganizationID marks a global persona, visible to every
// organization and to the admin command pipeline.
type Persona struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	OrganizationID    string          `gorm:"index;size:36" json:"organizationId,omitempty"`
	DisplayName       string          `gorm:"size:60" json:"displayName"`
	PersonalityTraits []string        `gorm:"serializer:json" json:"personalityTraits"`
	Bio               string          `gorm:"size:280" json:"bio,omitempty"`
	IsActive          bool            `gorm:"default:true" json:"isActive"`
	SocialProfiles    []SocialProfile `gorm:"foreignKey:PersonaID" json:"socialProfiles,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Global reports whether the persona is shared across all organizations.
func (p Persona) Global() bool { return p.OrganizationID == "" }

// SocialProfile links a persona to a handle on one network.
type SocialProfile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PersonaID string    `gorm:"index;size:36" json:"personaId"`
	Network   string    `gorm:"size:16" json:"network"` // twitter/instagram/facebook
	Handle    string    `gorm:"size:30" json:"handle"`
	CreatedAt time.Time `json:"createdAt"`
}
