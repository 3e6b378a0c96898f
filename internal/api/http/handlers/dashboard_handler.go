package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// DashboardHandler serves the per-role overviews.
type DashboardHandler struct {
	tickets *service.TicketService
	now     func() time.Time
}

func NewDashboardHandler(tickets *service.TicketService) *DashboardHandler {
	return &DashboardHandler{tickets: tickets, now: time.Now}
}

// Admin GET /dashboard/admin.
func (h *DashboardHandler) Admin(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	stats, err := h.tickets.Stats(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.List(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AdminDashboardResponse{
		Stats:   dto.NewStatsResponse(stats),
		Tickets: dto.NewTicketResponses(tickets, h.now()),
	}})
}

// Technician GET /dashboard/technician.
func (h *DashboardHandler) Technician(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	queue, err := h.tickets.TechnicianQueue(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewQueueResponse(queue, h.now())})
}
