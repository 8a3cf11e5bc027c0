package server

import (
	"errors"

	"mercadito/internal/models"
	"mercadito/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper.  Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

const (
	defaultPageLimit   = 12
	maxPaginationLimit = 100
)

// PageParams holds parsed page/limit query parameters.
type PageParams struct {
	Page  int
	Limit int
}

// Offset returns the row offset for the page.
func (p PageParams) Offset() int {
	return (p.Page - 1) * p.Limit
}

// parsePagination extracts page and limit query parameters.
func parsePagination(c *fiber.Ctx) PageParams {
	page := c.QueryInt("page", 1)
	if page <= 0 {
		page = 1
	}

	limit := c.QueryInt("limit", defaultPageLimit)
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	return PageParams{Page: page, Limit: limit}
}

// totalPages computes the page count for a filtered total.
func totalPages(total int64, limit int) int {
	if limit <= 0 {
		return 0
	}
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return pages
}

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+param))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// currentUserID returns the authenticated user ID set by AuthRequired.
func currentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// statusForError maps an application error to its HTTP status.
func statusForError(err error) int {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Code {
	case models.CodeValidationError:
		return fiber.StatusBadRequest
	case models.CodeInvalidCredentials, models.CodeNoToken:
		return fiber.StatusUnauthorized
	case models.CodeInvalidToken, models.CodeForbidden:
		return fiber.StatusForbidden
	case models.CodeNotFound, models.CodeUserNotFound:
		return fiber.StatusNotFound
	case models.CodeEmailExists, models.CodeAlreadyFavorite:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes the envelope for a repository or domain error.
func fail(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, statusForError(err), err)
}

// parsePostFilters reads the optional listing filters from the query string.
func parsePostFilters(c *fiber.Ctx, page PageParams) repository.PostFilters {
	filters := repository.PostFilters{
		Categoria: c.Query("categoria"),
		Limit:     page.Limit,
		Offset:    page.Offset(),
	}
	if v := c.QueryFloat("precio_min", -1); v >= 0 {
		filters.PrecioMin = &v
	}
	if v := c.QueryFloat("precio_max", -1); v >= 0 {
		filters.PrecioMax = &v
	}
	return filters
}
