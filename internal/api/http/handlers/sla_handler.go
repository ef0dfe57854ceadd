package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/itsm-service/internal/api/dto"
	"github.com/spec-kit/itsm-service/internal/service"
	apperrors "github.com/spec-kit/itsm-service/pkg/util/errorutil"
)

// SLAHandler manages SLA policy administration endpoints.
type SLAHandler struct {
	service *service.SLAService
}

// NewSLAHandler constructs handler.
func NewSLAHandler(slaService *service.SLAService) *SLAHandler {
	return &SLAHandler{service: slaService}
}

// CreatePolicy POST /sla/policies.
func (h *SLAHandler) CreatePolicy(c *fiber.Ctx) error {
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.service.CreatePolicy(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.FromPolicy(policy)})
}

// UpdatePolicy PUT /sla/policies/:id.
func (h *SLAHandler) UpdatePolicy(c *fiber.Ctx) error {
	var req dto.PolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	policy, err := h.service.UpdatePolicy(c.UserContext(), c.Params("id"), req.ToInput())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromPolicy(policy)})
}

// GetPolicy GET /sla/policies/:id.
func (h *SLAHandler) GetPolicy(c *fiber.Ctx) error {
	policy, err := h.service.GetPolicy(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromPolicy(policy)})
}

// ListPolicies GET /sla/policies.
func (h *SLAHandler) ListPolicies(c *fiber.Ctx) error {
	policies, err := h.service.ListPolicies(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.PolicyResponse, 0, len(policies))
	for i := range policies {
		items = append(items, dto.FromPolicy(&policies[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}
