package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
)

type BlogHandler struct {
	blogService *services.BlogService
	metrics     *metrics.Collector
}

func NewBlogHandler(blogService *services.BlogService, collector *metrics.Collector) *BlogHandler {
	return &BlogHandler{blogService: blogService, metrics: collector}
}

// CreateBlog stores a draft or published blog for the session user.
// Field errors answer 403.
func (h *BlogHandler) CreateBlog(c *fiber.Ctx) error {
	authorID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, services.ErrMissingToken, fiber.StatusForbidden)
	}

	var req dto.CreateBlogRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	blog, err := h.blogService.Create(c.UserContext(), authorID, &req)
	if err != nil {
		return respondError(c, err, fiber.StatusForbidden)
	}

	h.metrics.RecordPost(blog.Draft)
	return c.JSON(dto.CreateBlogResponse{ID: blog.BlogID})
}

func (h *BlogHandler) CheckDuplicateTitle(c *fiber.Ctx) error {
	authorID, ok := middleware.UserID(c)
	if !ok {
		return respondError(c, services.ErrMissingToken, fiber.StatusForbidden)
	}

	var req dto.CheckDuplicateTitleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	duplicate, err := h.blogService.CheckDuplicateTitle(c.UserContext(), authorID, req.Title)
	if err != nil {
		return respondError(c, err, fiber.StatusForbidden)
	}

	return c.JSON(dto.CheckDuplicateTitleResponse{Duplicate: duplicate})
}
