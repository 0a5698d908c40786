package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/blogging-backend/internal/services"
)

type UploadHandler struct {
	signer services.UploadSigner
}

func NewUploadHandler(signer services.UploadSigner) *UploadHandler {
	return &UploadHandler{signer: signer}
}

func (h *UploadHandler) GetUploadURL(c *fiber.Ctx) error {
	url, err := h.signer.PresignUpload(c.UserContext())
	if err != nil {
		return respondError(c, err, fiber.StatusBadRequest)
	}
	return c.JSON(dto.UploadURLResponse{UploadURL: url})
}
