package server

import (
	"fmt"
	"strconv"
	"time"

	"mercadito/internal/models"
	"mercadito/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "mercadito-api"
	tokenAudience = "mercadito-client"
	tokenTTL      = 24 * time.Hour
	bcryptCost    = 10
)

// RegisterRequest is the POST /api/auth/register body.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Nombre   string `json:"nombre" validate:"required,min=2"`
	Telefono string `json:"telefono"`
}

// LoginRequest is the POST /api/auth/login body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register handles POST /api/auth/register
func (s *Server) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if appErr := validation.Struct(&req); appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}

	// Check if the email is taken before inserting; the unique index
	// still backstops a concurrent duplicate.
	existing, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return fail(c, err)
	}
	if existing != nil {
		return fail(c, models.NewEmailExistsError())
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	user := &models.User{
		Email:    req.Email,
		Password: string(hashedPassword),
		Nombre:   req.Nombre,
		Telefono: req.Telefono,
	}
	if createErr := s.userRepo.Create(c.Context(), user); createErr != nil {
		return fail(c, createErr)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	return models.RespondWithMessage(c, fiber.StatusCreated, fiber.Map{
		"user":  user,
		"token": token,
	}, "User registered successfully")
}

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if appErr := validation.Struct(&req); appErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, appErr)
	}

	// Unknown email and wrong password produce the same response, so the
	// endpoint cannot be used to probe registered emails.
	user, err := s.userRepo.GetByEmail(c.Context(), req.Email)
	if err != nil {
		return fail(c, err)
	}
	if user == nil {
		return fail(c, models.NewInvalidCredentialsError())
	}

	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return fail(c, models.NewInvalidCredentialsError())
	}

	token, err := s.generateToken(user)
	if err != nil {
		return fail(c, models.NewInternalError(err))
	}

	return models.RespondWithData(c, fiber.StatusOK, fiber.Map{
		"user":  user,
		"token": token,
	})
}

// Verify handles GET /api/auth/verify. The user row is re-fetched so a
// deleted account invalidates an otherwise valid token.
func (s *Server) Verify(c *fiber.Ctx) error {
	user, err := s.userRepo.GetByID(c.Context(), currentUserID(c))
	if err != nil {
		return fail(c, err)
	}

	return models.RespondWithData(c, fiber.StatusOK, fiber.Map{
		"user": user,
	})
}

// generateToken creates a JWT for the given user
func (s *Server) generateToken(user *models.User) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":    strconv.FormatUint(uint64(user.ID), 10), // Subject (user ID as string)
		"email":  user.Email,
		"nombre": user.Nombre,
		"iss":    tokenIssuer,
		"aud":    tokenAudience,
		"exp":    now.Add(tokenTTL).Unix(),
		"iat":    now.Unix(),
		"nbf":    now.Unix(),
		"jti":    s.generateJTI(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// generateJTI creates a unique JWT ID to prevent replay attacks
func (s *Server) generateJTI() string {
	return fmt.Sprintf("%d-%s", time.Now().Unix(), uuid.New().String()[:8])
}
