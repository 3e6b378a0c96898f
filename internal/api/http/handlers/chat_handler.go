package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ChatHandler exposes the conversational intake.
type ChatHandler struct {
	intake *service.IntakeService
}

func NewChatHandler(intake *service.IntakeService) *ChatHandler {
	return &ChatHandler{intake: intake}
}

// Conversation GET /chat.
func (h *ChatHandler) Conversation(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	conv, err := h.intake.Conversation(principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewConversationResponse(conv)})
}

// Submit POST /chat/messages. The reply arrives asynchronously.
func (h *ChatHandler) Submit(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ChatMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	conv, _, err := h.intake.Submit(principal.User, req.Text)
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.NewConversationResponse(conv)})
}
