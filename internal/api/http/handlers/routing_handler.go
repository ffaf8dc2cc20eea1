package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-dispatch/internal/api/dto"
	"github.com/spec-kit/lead-dispatch/internal/service"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

// RoutingHandler exposes return-routing and queue menu endpoints.
type RoutingHandler struct {
	routing *service.RoutingService
}

// NewRoutingHandler constructs handler.
func NewRoutingHandler(routing *service.RoutingService) *RoutingHandler {
	return &RoutingHandler{routing: routing}
}

// RouteContact POST /contacts/:id/route.
func (h *RoutingHandler) RouteContact(c *fiber.Ctx) error {
	contactID := c.Params("id")
	if contactID == "" {
		return apperrors.NewValidationError("contact id required", nil)
	}
	var req dto.RouteContactRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ChannelID == "" {
		return apperrors.NewValidationError("channel_id required", nil)
	}

	decision, err := h.routing.RouteReturningContact(c.Context(), contactID, req.ChannelID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": routeDecisionResponse(decision)})
}

// MenuReply POST /leads/:id/menu-response.
func (h *RoutingHandler) MenuReply(c *fiber.Ctx) error {
	leadID := c.Params("id")
	if leadID == "" {
		return apperrors.NewValidationError("lead id required", nil)
	}
	var req dto.MenuReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ChannelID == "" || req.Response == "" {
		return apperrors.NewValidationError("channel_id and response required", nil)
	}

	queue, ownerID, err := h.routing.HandleMenuResponse(c.Context(), leadID, req.ChannelID, req.Response)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.MenuReplyResponse{
		QueueID:        queue.ID,
		QueueName:      queue.Name,
		WelcomeMessage: queue.WelcomeMessage,
		OwnerID:        ownerID,
	}})
}

// ChannelMenu GET /channels/:id/menu.
func (h *RoutingHandler) ChannelMenu(c *fiber.Ctx) error {
	channelID := c.Params("id")
	if channelID == "" {
		return apperrors.NewValidationError("channel id required", nil)
	}
	menu, err := h.routing.MenuForChannel(c.Context(), channelID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": menuResponse(menu)})
}

func routeDecisionResponse(decision *service.RouteDecision) dto.RouteDecisionResponse {
	resp := dto.RouteDecisionResponse{
		State:   string(decision.State),
		Kind:    string(decision.Kind),
		OwnerID: decision.OwnerID,
		LeadID:  decision.LeadID,
	}
	if decision.Menu != nil {
		menu := menuResponse(decision.Menu)
		resp.Menu = &menu
	}
	return resp
}

func menuResponse(menu *service.MenuPrompt) dto.MenuResponse {
	options := make([]dto.MenuOptionResponse, 0, len(menu.Options))
	for _, opt := range menu.Options {
		options = append(options, dto.MenuOptionResponse{
			Option:     opt.Option,
			QueueID:    opt.QueueID,
			Label:      opt.Label,
			PipelineID: opt.PipelineID,
		})
	}
	return dto.MenuResponse{Text: menu.Text, Options: options}
}
