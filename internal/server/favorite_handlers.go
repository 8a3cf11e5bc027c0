package server

import (
	"mercadito/internal/models"
	"mercadito/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// AddFavoriteRequest is the POST /api/favorites body.
type AddFavoriteRequest struct {
	PostID uint `json:"post_id" validate:"required"`
}

// GetFavorites handles GET /api/favorites
func (s *Server) GetFavorites(c *fiber.Ctx) error {
	favorites, err := s.favoriteRepo.ListByUser(c.Context(), currentUserID(c))
	if err != nil {
		return fail(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, fiber.Map{
		"favorites": favorites,
		"total":     len(favorites),
	})
}

// AddFavorite handles POST /api/favorites
func (s *Server) AddFavorite(c *fiber.Ctx) error {
	var req AddFavoriteRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if appErr := validation.Struct(&req); appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}

	favorite, err := s.favoriteRepo.Add(c.Context(), currentUserID(c), req.PostID)
	if err != nil {
		return fail(c, err)
	}

	return models.RespondWithMessage(c, fiber.StatusCreated, favorite, "Added to favorites")
}

// RemoveFavorite handles DELETE /api/favorites/:post_id
func (s *Server) RemoveFavorite(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}

	if err := s.favoriteRepo.Remove(c.Context(), currentUserID(c), postID); err != nil {
		return fail(c, err)
	}

	return models.RespondWithMessage(c, fiber.StatusOK, nil, "Removed from favorites")
}
