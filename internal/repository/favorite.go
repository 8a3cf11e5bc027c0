package repository

import (
	"context"
	"errors"

	"mercadito/internal/cache"
	"mercadito/internal/models"
	"mercadito/internal/observability"

	"gorm.io/gorm"
)

// FavoriteRepository defines the interface for favorite data operations
type FavoriteRepository interface {
	ListByUser(ctx context.Context, userID uint) ([]models.FavoriteSummary, error)
	Add(ctx context.Context, userID, postID uint) (*models.Favorite, error)
	Remove(ctx context.Context, userID, postID uint) error
}

type favoriteRepository struct {
	db *gorm.DB
}

// NewFavoriteRepository creates a new favorite repository
func NewFavoriteRepository(db *gorm.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

func (r *favoriteRepository) ListByUser(ctx context.Context, userID uint) ([]models.FavoriteSummary, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "ListByUser", "favorites")
	defer span.End()
	defer observability.TrackQuery("list", "favorites")()

	var favorites []models.Favorite
	err := r.db.WithContext(ctx).
		Preload("Post.User").
		Preload("Post.Imagenes", "is_principal = ?", true).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&favorites).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	summaries := make([]models.FavoriteSummary, 0, len(favorites))
	for _, fav := range favorites {
		s := models.FavoriteSummary{
			ID:           fav.ID,
			CreatedAt:    fav.CreatedAt,
			PostID:       fav.PostID,
			Titulo:       fav.Post.Titulo,
			Precio:       fav.Post.Precio,
			Categoria:    fav.Post.Categoria,
			SellerID:     fav.Post.UserID,
			SellerNombre: fav.Post.User.Nombre,
		}
		if len(fav.Post.Imagenes) > 0 {
			s.ImagenPrincipal = fav.Post.Imagenes[0].ImageURL
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

// Add inserts the pair after checking the post is live. The unique index on
// (user_id, post_id) backstops a concurrent duplicate insert.
func (r *favoriteRepository) Add(ctx context.Context, userID, postID uint) (*models.Favorite, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "Add", "favorites")
	defer span.End()
	defer observability.TrackQuery("add", "favorites")()

	var post models.Post
	err := r.db.WithContext(ctx).
		Where("id = ? AND activo = ?", postID, true).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}

	var existing int64
	err = r.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&existing).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if existing > 0 {
		return nil, models.NewAlreadyFavoriteError()
	}

	favorite := models.Favorite{UserID: userID, PostID: postID}
	if err := r.db.WithContext(ctx).Create(&favorite).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, models.NewAlreadyFavoriteError()
		}
		return nil, models.NewInternalError(err)
	}

	observability.FavoriteOperations.WithLabelValues("add").Inc()
	cache.InvalidateProfile(ctx, userID)
	return &favorite, nil
}

func (r *favoriteRepository) Remove(ctx context.Context, userID, postID uint) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Favorite{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.NewNotFoundError("Favorite")
	}

	observability.FavoriteOperations.WithLabelValues("remove").Inc()
	cache.InvalidateProfile(ctx, userID)
	return nil
}
