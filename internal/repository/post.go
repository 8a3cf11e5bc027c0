// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"
	"io"

	"mercadito/internal/cache"
	"mercadito/internal/models"
	"mercadito/internal/observability"
	"mercadito/internal/storage"

	"gorm.io/gorm"
)

// PostFilters narrows the public listing query.
type PostFilters struct {
	Categoria string
	PrecioMin *float64
	PrecioMax *float64
	Limit     int
	Offset    int
}

// ImageFile is an uploaded image pending storage.
type ImageFile struct {
	Reader   io.Reader
	Filename string
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context, filters PostFilters, viewerID uint) ([]models.Post, int64, error)
	GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	GetOwned(ctx context.Context, id uint) (*models.Post, error)
	GetByUserID(ctx context.Context, userID uint) ([]models.Post, error)
	CreateWithImages(ctx context.Context, post *models.Post, files []ImageFile, up storage.Uploader) error
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// withViewer adds the computed favorito column for a logged-in viewer.
func (r *postRepository) withViewer(db *gorm.DB, viewerID uint) *gorm.DB {
	if viewerID == 0 {
		return db
	}
	return db.Select(
		"posts.*, EXISTS(SELECT 1 FROM favorites WHERE favorites.post_id = posts.id AND favorites.user_id = ?) AS favorito",
		viewerID,
	)
}

// fillPrincipal copies the flagged image URL onto each post.
func fillPrincipal(posts []models.Post) {
	for i := range posts {
		for _, img := range posts[i].Imagenes {
			if img.IsPrincipal {
				posts[i].ImagenPrincipal = img.ImageURL
				break
			}
		}
	}
}

func (r *postRepository) List(ctx context.Context, filters PostFilters, viewerID uint) ([]models.Post, int64, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "List", "posts")
	defer span.End()
	defer observability.TrackQuery("list", "posts")()

	query := r.db.WithContext(ctx).Model(&models.Post{}).Where("activo = ?", true)
	if filters.Categoria != "" {
		query = query.Where("categoria = ?", filters.Categoria)
	}
	if filters.PrecioMin != nil {
		query = query.Where("precio >= ?", *filters.PrecioMin)
	}
	if filters.PrecioMax != nil {
		query = query.Where("precio <= ?", *filters.PrecioMax)
	}

	// Count with the same filters so the page math lines up.
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	var posts []models.Post
	err := r.withViewer(query, viewerID).
		Preload("User").
		Preload("Imagenes", "is_principal = ?", true).
		Order("created_at DESC").
		Limit(filters.Limit).
		Offset(filters.Offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, models.NewInternalError(err)
	}

	fillPrincipal(posts)
	return posts, total, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	ctx, span := observability.TraceRepositoryMethod(ctx, "GetByID", "posts")
	defer span.End()
	defer observability.TrackQuery("get", "posts")()

	var post models.Post
	err := r.withViewer(r.db.WithContext(ctx).Model(&models.Post{}), viewerID).
		Preload("User").
		Preload("Imagenes", func(db *gorm.DB) *gorm.DB {
			return db.Order("orden ASC")
		}).
		Where("posts.id = ? AND activo = ?", id, true).
		First(&post).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}

	posts := []models.Post{post}
	fillPrincipal(posts)
	return &posts[0], nil
}

// GetOwned fetches a post regardless of activo. Ownership checks use it
// before updates and deletes.
func (r *postRepository) GetOwned(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post")
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

func (r *postRepository) GetByUserID(ctx context.Context, userID uint) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Preload("Imagenes", "is_principal = ?", true).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	fillPrincipal(posts)
	return posts, nil
}

// CreateWithImages persists the post and uploads its images inside one
// transaction, so a failed upload rolls back the whole listing.
func (r *postRepository) CreateWithImages(ctx context.Context, post *models.Post, files []ImageFile, up storage.Uploader) error {
	ctx, span := observability.TraceRepositoryMethod(ctx, "CreateWithImages", "posts")
	defer span.End()
	defer observability.TrackQuery("create", "posts")()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}

		for i, file := range files {
			url, err := up.Upload(ctx, file.Reader, file.Filename)
			if err != nil {
				return err
			}
			img := models.PostImage{
				PostID:      post.ID,
				ImageURL:    url,
				IsPrincipal: i == 0,
				Orden:       i + 1,
			}
			if err := tx.Create(&img).Error; err != nil {
				return err
			}
			post.Imagenes = append(post.Imagenes, img)
		}
		return nil
	})
	if err != nil {
		observability.RecordErrorInContext(ctx, err)
		return models.NewInternalError(err)
	}

	observability.PostsCreatedTotal.WithLabelValues(post.Categoria).Inc()
	cache.InvalidateProfile(ctx, post.UserID)
	return nil
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Save(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID)
	cache.InvalidateProfile(ctx, post.UserID)
	return nil
}

// Delete removes the post together with its images and favorites. The
// original schema relied on ON DELETE CASCADE.
func (r *postRepository) Delete(ctx context.Context, id uint) error {
	var ownerID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.Select("user_id").First(&post, id).Error; err != nil {
			return err
		}
		ownerID = post.UserID

		if err := tx.Where("post_id = ?", id).Delete(&models.PostImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidateProfile(ctx, ownerID)
	return nil
}
