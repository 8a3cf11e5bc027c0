package server

import (
	"fmt"
	"mime/multipart"
	"strconv"

	"mercadito/internal/cache"
	"mercadito/internal/models"
	"mercadito/internal/repository"
	"mercadito/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// CreatePostRequest carries the multipart form fields of POST /api/posts.
type CreatePostRequest struct {
	Titulo      string  `json:"titulo" validate:"required,min=5"`
	Descripcion string  `json:"descripcion" validate:"required,min=20"`
	Precio      float64 `json:"precio" validate:"required,gt=0"`
	Categoria   string  `json:"categoria" validate:"required"`
	Estado      string  `json:"estado" validate:"required,oneof=nuevo usado"`
	Ubicacion   string  `json:"ubicacion"`
}

// UpdatePostRequest uses pointers so omitted fields keep their stored values.
type UpdatePostRequest struct {
	Titulo      *string  `json:"titulo" validate:"omitempty,min=5"`
	Descripcion *string  `json:"descripcion" validate:"omitempty,min=20"`
	Precio      *float64 `json:"precio" validate:"omitempty,gt=0"`
	Activo      *bool    `json:"activo"`
}

// GetPosts handles GET /api/posts
func (s *Server) GetPosts(c *fiber.Ctx) error {
	page := parsePagination(c)
	filters := parsePostFilters(c, page)

	viewerID, _ := s.optionalUserID(c)

	posts, total, err := s.postRepo.List(c.Context(), filters, viewerID)
	if err != nil {
		return fail(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, models.PostList{
		Posts: posts,
		Pagination: models.Pagination{
			CurrentPage:  page.Page,
			TotalPages:   totalPages(total, page.Limit),
			TotalPosts:   total,
			PostsPerPage: page.Limit,
		},
	})
}

// GetPost handles GET /api/posts/:id. Anonymous reads go through the
// cache; logged-in viewers skip it because favorito is per viewer.
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	viewerID, authenticated := s.optionalUserID(c)

	var post *models.Post
	if !authenticated {
		post = &models.Post{}
		err = cache.CacheAside(c.UserContext(), cache.PostKey(id), post, cache.PostTTL, func() error {
			fetched, fetchErr := s.postRepo.GetByID(c.Context(), id, 0)
			if fetchErr != nil {
				return fetchErr
			}
			*post = *fetched
			return nil
		})
	} else {
		post, err = s.postRepo.GetByID(c.Context(), id, viewerID)
	}
	if err != nil {
		return fail(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, post)
}

// CreatePost handles POST /api/posts (multipart)
func (s *Server) CreatePost(c *fiber.Ctx) error {
	req := CreatePostRequest{
		Titulo:      c.FormValue("titulo"),
		Descripcion: c.FormValue("descripcion"),
		Categoria:   c.FormValue("categoria"),
		Estado:      c.FormValue("estado"),
		Ubicacion:   c.FormValue("ubicacion"),
	}
	if raw := c.FormValue("precio"); raw != "" {
		precio, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewFieldValidationError("precio", "precio must be a number"))
		}
		req.Precio = precio
	}

	if appErr := validation.Struct(&req); appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}

	form, err := c.MultipartForm()
	var fileHeaders []*multipart.FileHeader
	if err == nil && form != nil {
		fileHeaders = form.File["imagenes"]
	}

	if len(fileHeaders) > 0 && s.uploader == nil {
		return fail(c, models.NewInternalError(fmt.Errorf("image storage not configured")))
	}

	files := make([]repository.ImageFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		f, openErr := fh.Open()
		if openErr != nil {
			return fail(c, models.NewInternalError(openErr))
		}
		defer f.Close()
		files = append(files, repository.ImageFile{Reader: f, Filename: fh.Filename})
	}

	post := &models.Post{
		UserID:      currentUserID(c),
		Titulo:      req.Titulo,
		Descripcion: req.Descripcion,
		Precio:      req.Precio,
		Categoria:   req.Categoria,
		Estado:      req.Estado,
		Ubicacion:   req.Ubicacion,
		Activo:      true,
	}
	if err := s.postRepo.CreateWithImages(c.Context(), post, files, s.uploader); err != nil {
		return fail(c, err)
	}

	return models.RespondWithMessage(c, fiber.StatusCreated, post, "Post created")
}

// UpdatePost handles PUT /api/posts/:id
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req UpdatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if appErr := validation.Struct(&req); appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}

	post, err := s.postRepo.GetOwned(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if post.UserID != currentUserID(c) {
		return fail(c, models.NewForbiddenError("You do not own this post"))
	}

	// Coalesce-on-null: only fields present in the body change.
	if req.Titulo != nil {
		post.Titulo = *req.Titulo
	}
	if req.Descripcion != nil {
		post.Descripcion = *req.Descripcion
	}
	if req.Precio != nil {
		post.Precio = *req.Precio
	}
	if req.Activo != nil {
		post.Activo = *req.Activo
	}

	if err := s.postRepo.Update(c.Context(), post); err != nil {
		return fail(c, err)
	}

	return models.RespondWithMessage(c, fiber.StatusOK, post, "Post updated")
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postRepo.GetOwned(c.Context(), id)
	if err != nil {
		return fail(c, err)
	}
	if post.UserID != currentUserID(c) {
		return fail(c, models.NewForbiddenError("You do not own this post"))
	}

	if err := s.postRepo.Delete(c.Context(), id); err != nil {
		return fail(c, err)
	}

	return models.RespondWithMessage(c, fiber.StatusOK, nil, "Post deleted")
}

// GetMyPosts handles GET /api/posts/mine. Inactive posts stay visible
// to their owner.
func (s *Server) GetMyPosts(c *fiber.Ctx) error {
	posts, err := s.postRepo.GetByUserID(c.Context(), currentUserID(c))
	if err != nil {
		return fail(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, fiber.Map{
		"posts": posts,
		"total": len(posts),
	})
}
