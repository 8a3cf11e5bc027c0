package models

import (
	"time"
)

// Estado values accepted for a post.
const (
	EstadoNuevo = "nuevo"
	EstadoUsado = "usado"
)

// Post represents a for-sale listing owned by a user.
type Post struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	UserID      uint    `gorm:"not null;index" json:"user_id"`
	Titulo      string  `gorm:"not null" json:"titulo"`
	Descripcion string  `gorm:"type:text;not null" json:"descripcion"`
	Precio      float64 `gorm:"not null" json:"precio"`
	Categoria   string  `gorm:"not null;index" json:"categoria"`
	Estado      string  `gorm:"not null" json:"estado"`
	Ubicacion   string  `json:"ubicacion,omitempty"`
	// Activo is the soft-delete flag: inactive posts are hidden from
	// public listings but remain visible to their owner.
	Activo    bool      `gorm:"not null;default:true" json:"activo"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User     User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Imagenes []PostImage `gorm:"foreignKey:PostID" json:"imagenes,omitempty"`

	// ImagenPrincipal is not persisted; filled at query time from the
	// image flagged is_principal.
	ImagenPrincipal string `gorm:"-" json:"imagen_principal,omitempty"`
	// Favorito indicates whether the current requesting user favorited this post (computed)
	Favorito bool `gorm:"->" json:"favorito"`
}

// PostImage is a stored image attached to a post. At most one image per
// post is expected to carry IsPrincipal; this is intentionally not enforced.
type PostImage struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	PostID      uint   `gorm:"not null;index" json:"post_id"`
	ImageURL    string `gorm:"not null" json:"image_url"`
	IsPrincipal bool   `json:"is_principal"`
	Orden       int    `json:"orden"`
}
