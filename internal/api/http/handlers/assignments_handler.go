package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/lead-dispatch/internal/api/dto"
	"github.com/spec-kit/lead-dispatch/internal/auth"
	"github.com/spec-kit/lead-dispatch/internal/domain"
	"github.com/spec-kit/lead-dispatch/internal/service"
	apperrors "github.com/spec-kit/lead-dispatch/pkg/util"
)

// AssignmentsHandler exposes lead assignment and distribution endpoints.
type AssignmentsHandler struct {
	assignment   *service.AssignmentService
	ownership    *service.OwnershipService
	distribution *service.DistributionService
}

// NewAssignmentsHandler constructs handler.
func NewAssignmentsHandler(assignment *service.AssignmentService, ownership *service.OwnershipService, distribution *service.DistributionService) *AssignmentsHandler {
	return &AssignmentsHandler{assignment: assignment, ownership: ownership, distribution: distribution}
}

// AssignLead POST /leads/:id/assign.
func (h *AssignmentsHandler) AssignLead(c *fiber.Ctx) error {
	leadID := c.Params("id")
	if leadID == "" {
		return apperrors.NewValidationError("lead id required", nil)
	}
	var req dto.AssignLeadRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}

	ownerID, source, err := h.assignment.AssignLead(c.Context(), leadID, req.QueueID, domain.SourceAutoDistribute)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AssignmentResponse{
		LeadID:  leadID,
		OwnerID: ownerID,
		QueueID: req.QueueID,
		Source:  string(source),
	}})
}

// GetQueueOwner GET /leads/:id/queues/:queueID/owner.
func (h *AssignmentsHandler) GetQueueOwner(c *fiber.Ctx) error {
	leadID := c.Params("id")
	queueID := c.Params("queueID")
	if leadID == "" || queueID == "" {
		return apperrors.NewValidationError("lead id and queue id required", nil)
	}

	owner, err := h.ownership.GetQueueOwner(c.Context(), leadID, queueID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if owner == nil {
		return apperrors.NewNotFound("queue owner", map[string]any{
			"lead_id":  leadID,
			"queue_id": queueID,
		})
	}
	return c.JSON(fiber.Map{"data": dto.QueueOwnerResponse{
		LeadID:     owner.LeadID,
		QueueID:    owner.QueueID,
		UserID:     owner.UserID,
		AssignedAt: owner.AssignedAt,
	}})
}

// LeadHistory GET /leads/:id/assignments.
func (h *AssignmentsHandler) LeadHistory(c *fiber.Ctx) error {
	leadID := c.Params("id")
	if leadID == "" {
		return apperrors.NewValidationError("lead id required", nil)
	}
	records, err := h.assignment.History(c.Context(), leadID, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	items := make([]dto.AssignmentHistoryEntry, 0, len(records))
	for _, r := range records {
		items = append(items, dto.AssignmentHistoryEntry{
			ID:         r.ID,
			QueueID:    r.QueueID,
			OldOwnerID: r.OldOwnerID,
			NewOwnerID: r.NewOwnerID,
			Source:     string(r.Source),
			CreatedAt:  r.CreatedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// QueueWorkload GET /queues/:id/workload.
func (h *AssignmentsHandler) QueueWorkload(c *fiber.Ctx) error {
	queueID := c.Params("id")
	if queueID == "" {
		return apperrors.NewValidationError("queue id required", nil)
	}
	loads, err := h.assignment.QueueWorkload(c.Context(), queueID)
	if err != nil {
		return err
	}
	items := make([]dto.QueueMemberWorkload, 0, len(loads))
	for _, l := range loads {
		items = append(items, dto.QueueMemberWorkload{
			UserID:     l.Member.UserID,
			UserName:   l.UserName,
			IsActive:   l.Member.IsActive,
			Priority:   l.Member.Priority,
			OwnedLeads: l.OwnedLeads,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// DistributionStats GET /distribution/stats.
func (h *AssignmentsHandler) DistributionStats(c *fiber.Ctx) error {
	tenantID := callerTenant(c, c.Query("tenant_id"))
	channelID := c.Query("channel_id")
	if tenantID == "" || channelID == "" {
		return apperrors.NewValidationError("tenant_id and channel_id required", nil)
	}
	scope := domain.LedgerScope{
		TenantID:  tenantID,
		ChannelID: channelID,
		QueueID:   c.Query("queue_id"),
	}

	entries, names, err := h.distribution.Stats(c.Context(), scope)
	if err != nil {
		return err
	}
	items := make([]dto.DistributionStatEntry, 0, len(entries))
	for _, e := range entries {
		items = append(items, dto.DistributionStatEntry{
			UserID:         e.UserID,
			UserName:       names[e.UserID],
			QueueID:        e.QueueID,
			LastAssignedAt: e.LastAssignedAt,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ResetDistribution POST /distribution/reset. Admin only; wipes the
// rotation history for a scope so it restarts from a clean order.
func (h *AssignmentsHandler) ResetDistribution(c *fiber.Ctx) error {
	var req dto.ResetDistributionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tenantID := callerTenant(c, req.TenantID)
	if tenantID == "" || req.ChannelID == "" {
		return apperrors.NewValidationError("tenant_id and channel_id required", nil)
	}
	scope := domain.LedgerScope{
		TenantID:  tenantID,
		ChannelID: req.ChannelID,
		QueueID:   req.QueueID,
	}

	resetBy := "ops"
	if principal, ok := auth.PrincipalFromContext(c); ok {
		resetBy = principal.SubjectID
	}
	deleted, err := h.distribution.Reset(c.Context(), scope, resetBy)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.ResetDistributionResponse{RowsDeleted: deleted}})
}

// callerTenant prefers the token's tenant claim; ops-key callers carry no
// tenant and must pass one explicitly.
func callerTenant(c *fiber.Ctx, explicit string) string {
	if principal, ok := auth.PrincipalFromContext(c); ok && principal.TenantID != "" {
		return principal.TenantID
	}
	return explicit
}
