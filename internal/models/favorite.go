package models

import (
	"time"
)

// Favorite represents a user's bookmark of a post.
// The combination of UserID and PostID must be unique; the unique index
// is the correctness backstop for the check-then-insert in the handler.
type Favorite struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_post" json:"user_id"`
	PostID    uint      `gorm:"not null;uniqueIndex:idx_user_post" json:"post_id"`
	CreatedAt time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Post Post `gorm:"foreignKey:PostID" json:"post,omitempty"`
}

// FavoriteSummary is the flattened row returned by the favorites listing:
// the favorite itself plus a post summary and seller info.
type FavoriteSummary struct {
	ID              uint      `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	PostID          uint      `json:"post_id"`
	Titulo          string    `json:"titulo"`
	Precio          float64   `json:"precio"`
	Categoria       string    `json:"categoria"`
	SellerID        uint      `json:"seller_id"`
	SellerNombre    string    `json:"seller_nombre"`
	ImagenPrincipal string    `json:"imagen_principal,omitempty"`
}
