package middleware

import (
	"errors"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
)

const (
	tokenKey  = "session"
	userIDKey = "user_id"
)

// SessionRequired rejects requests without a valid bearer session token and
// stores the authenticated user id for handlers to read with UserID.
func SessionRequired(tokens *services.TokenService) fiber.Handler {
	return jwtware.New(jwtware.Config{
		KeyFunc:    tokens.Keyfunc,
		Claims:     &services.SessionClaims{},
		ContextKey: tokenKey,
		SuccessHandler: func(c *fiber.Ctx) error {
			token, _ := c.Locals(tokenKey).(*jwt.Token)
			id, err := tokens.UserIDFromToken(token)
			if err != nil {
				return deny(c, fiber.StatusForbidden, "Invalid access token.")
			}
			c.Locals(userIDKey, id)
			return c.Next()
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
				return deny(c, fiber.StatusUnauthorized, "Access token missing.")
			}
			return deny(c, fiber.StatusForbidden, "Invalid access token.")
		},
	})
}

// UserID returns the user authenticated by SessionRequired.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(userIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

func deny(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: message})
}
