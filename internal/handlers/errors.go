package handlers

import (
	"errors"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
)

const internalErrorMessage = "Internal server error"

type errorMapping struct {
	target  error
	status  int
	message string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{services.ErrEmailInUse, fiber.StatusConflict, "Email already in use."},
	{services.ErrUsernameTaken, fiber.StatusConflict, "Username already taken."},
	{services.ErrEmailNotFound, fiber.StatusForbidden, "Email not found."},
	{services.ErrIncorrectPassword, fiber.StatusForbidden, "Incorrect password."},
	{services.ErrPasswordNotSet, fiber.StatusForbidden, "Account was created using Google. Try logging in with Google."},
	{services.ErrFederatedConflict, fiber.StatusForbidden, "This email was signed up without Google. Please log in with password to access the account."},
	{services.ErrMissingToken, fiber.StatusUnauthorized, "Access token missing."},
	{services.ErrInvalidToken, fiber.StatusForbidden, "Invalid access token."},
	{services.ErrAuthorNotFound, fiber.StatusForbidden, "Invalid access token."},
	{services.ErrUpstreamTimeout, fiber.StatusGatewayTimeout, "Upstream service timed out, please try again."},
	{services.ErrAllocationExhausted, fiber.StatusServiceUnavailable, "Could not allocate a username, please try again."},
	{services.ErrFederatedAuthFailed, fiber.StatusInternalServerError, "Failed to authenticate you with Google. Try with some other Google account."},
	{services.ErrHashingFailure, fiber.StatusInternalServerError, "Failed to hash password."},
	{services.ErrVerificationFailure, fiber.StatusInternalServerError, "Error occurred while login, please try again."},
	{services.ErrUploadSigning, fiber.StatusInternalServerError, "Failed to generate upload URL."},
}

// respondError writes the error body for err. Validation failures use
// validationStatus since routes disagree on it.
func respondError(c *fiber.Ctx, err error, validationStatus int) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(validationStatus).JSON(dto.ErrorResponse{Error: verr.Message})
	}

	status, message := fiber.StatusInternalServerError, internalErrorMessage
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			status, message = m.status, m.message
			break
		}
	}

	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"status", status,
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}

	return c.Status(status).JSON(dto.ErrorResponse{Error: message})
}

func badRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "Invalid request body"})
}
