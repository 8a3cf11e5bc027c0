// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a registered marketplace user.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"unique;not null" json:"email"`
	Password  string    `gorm:"not null" json:"-"`
	Nombre    string    `gorm:"not null" json:"nombre"`
	Telefono  string    `json:"telefono,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Posts     []Post    `gorm:"foreignKey:UserID" json:"posts,omitempty"`
}

// ProfileStats holds the aggregate counts shown on a user's profile.
// Counts are zero-filled when the user has no posts or favorites.
type ProfileStats struct {
	PublicacionesActivas int64 `json:"publicaciones_activas"`
	TotalPublicaciones   int64 `json:"total_publicaciones"`
	Favoritos            int64 `json:"favoritos"`
}
