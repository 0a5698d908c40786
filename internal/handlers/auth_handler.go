package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
)

type AuthHandler struct {
	authService *services.AuthService
	metrics     *metrics.Collector
}

func NewAuthHandler(authService *services.AuthService, collector *metrics.Collector) *AuthHandler {
	return &AuthHandler{authService: authService, metrics: collector}
}

func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	resp, err := h.authService.Signup(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err, fiber.StatusBadRequest)
	}

	h.metrics.RecordSignup(metrics.MethodPassword)
	return c.JSON(resp)
}

func (h *AuthHandler) Signin(c *fiber.Ctx) error {
	var req dto.SigninRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	resp, err := h.authService.Signin(c.UserContext(), &req)
	h.metrics.RecordSignin(metrics.MethodPassword, err == nil)
	if err != nil {
		return respondError(c, err, fiber.StatusBadRequest)
	}

	return c.JSON(resp)
}

func (h *AuthHandler) GoogleAuth(c *fiber.Ctx) error {
	var req dto.GoogleAuthRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	resp, created, err := h.authService.GoogleAuth(c.UserContext(), &req)
	h.metrics.RecordSignin(metrics.MethodGoogle, err == nil)
	if err != nil {
		return respondError(c, err, fiber.StatusBadRequest)
	}
	if created {
		h.metrics.RecordSignup(metrics.MethodGoogle)
	}

	return c.JSON(resp)
}
