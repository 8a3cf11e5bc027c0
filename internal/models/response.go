package models

import "github.com/gofiber/fiber/v2"

// Envelope is the response wrapper shared by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError is the wire form of an application error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// RespondWithData writes a success envelope carrying data.
func RespondWithData(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Data:    data,
	})
}

// RespondWithMessage writes a success envelope carrying data and a message.
func RespondWithMessage(c *fiber.Ctx, status int, data interface{}, message string) error {
	return c.Status(status).JSON(Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// Pagination describes the paging block returned by list endpoints.
type Pagination struct {
	CurrentPage  int   `json:"current_page"`
	TotalPages   int   `json:"total_pages"`
	TotalPosts   int64 `json:"total_posts"`
	PostsPerPage int   `json:"posts_per_page"`
}

// PostList is the payload of GET /api/posts.
type PostList struct {
	Posts      []Post     `json:"posts"`
	Pagination Pagination `json:"pagination"`
}
