package server

import (
	"mercadito/internal/cache"
	"mercadito/internal/models"
	"mercadito/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// UpdateProfileRequest uses pointers so omitted fields keep their stored values.
type UpdateProfileRequest struct {
	Nombre    *string `json:"nombre" validate:"omitempty,min=2"`
	Telefono  *string `json:"telefono"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// ProfileResponse is the GET /api/users/profile payload.
type ProfileResponse struct {
	models.User
	Estadisticas models.ProfileStats `json:"estadisticas"`
}

// GetProfile handles GET /api/users/profile. The profile is cached per
// user; writes that change the user row or its counters invalidate it.
func (s *Server) GetProfile(c *fiber.Ctx) error {
	userID := currentUserID(c)

	var profile ProfileResponse
	err := cache.CacheAside(c.UserContext(), cache.ProfileKey(userID), &profile, cache.ProfileTTL, func() error {
		user, fetchErr := s.userRepo.GetByID(c.Context(), userID)
		if fetchErr != nil {
			return fetchErr
		}
		stats, fetchErr := s.userRepo.Stats(c.Context(), userID)
		if fetchErr != nil {
			return fetchErr
		}
		profile = ProfileResponse{User: *user, Estadisticas: *stats}
		return nil
	})
	if err != nil {
		return fail(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, profile)
}

// UpdateProfile handles PUT /api/users/profile
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if appErr := validation.Struct(&req); appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}

	user, err := s.userRepo.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return fail(c, err)
	}

	// Coalesce-on-null: only fields present in the body change.
	if req.Nombre != nil {
		user.Nombre = *req.Nombre
	}
	if req.Telefono != nil {
		user.Telefono = *req.Telefono
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}

	if err := s.userRepo.Update(c.Context(), user); err != nil {
		return fail(c, err)
	}

	return models.RespondWithMessage(c, fiber.StatusOK, user, "Profile updated successfully")
}
