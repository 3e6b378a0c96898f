package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// SuggestionsHandler starts suggestion fetches and reports their state.
type SuggestionsHandler struct {
	service *service.SuggestionService
}

func NewSuggestionsHandler(svc *service.SuggestionService) *SuggestionsHandler {
	return &SuggestionsHandler{service: svc}
}

// Request POST /tickets/:id/suggestions. The fetch runs in the background;
// clients poll GET /suggestions.
func (h *SuggestionsHandler) Request(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	state, _, err := h.service.Request(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": dto.NewSuggestionStateResponse(state)})
}

// Current GET /suggestions.
func (h *SuggestionsHandler) Current(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	state, err := h.service.Current(principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSuggestionStateResponse(state)})
}
