package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"uploade/internal/models"
	"uploade/internal/services"
)

// RewardsHandler exposes the credit ledger: wallet registration, claims, and
// balance lookups. Callers authenticate with the same credential they submit
// experiences under; it never appears in any response.
type RewardsHandler struct {
	rewards *services.RewardsService
}

// NewRewardsHandler creates a new rewards handler.
func NewRewardsHandler(rewards *services.RewardsService) *RewardsHandler {
	return &RewardsHandler{rewards: rewards}
}

type walletRequest struct {
	AgentID string `json:"agent_id"`
	Wallet  string `json:"wallet"`
}

type claimRequest struct {
	AgentID string `json:"agent_id"`
}

// SetWallet handles POST /rewards/wallet.
func (h *RewardsHandler) SetWallet(c *fiber.Ctx) error {
	var req walletRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := h.rewards.SetWallet(req.AgentID, req.Wallet); err != nil {
		return h.rewardsError(c, err)
	}
	return c.JSON(fiber.Map{"status": "wallet registered"})
}

// Claim handles POST /rewards/claim. The full available balance is claimed;
// settlement happens asynchronously.
func (h *RewardsHandler) Claim(c *fiber.Ctx) error {
	var req claimRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	amount, err := h.rewards.Claim(req.AgentID)
	if err != nil {
		return h.rewardsError(c, err)
	}
	return c.JSON(fiber.Map{
		"claimed": amount,
		"status":  "queued for settlement",
	})
}

// Balance handles GET /rewards/balance?agent_id=...
func (h *RewardsHandler) Balance(c *fiber.Ctx) error {
	view, err := h.rewards.View(c.Query("agent_id"))
	if err != nil {
		return h.rewardsError(c, err)
	}
	return c.JSON(view)
}

func (h *RewardsHandler) rewardsError(c *fiber.Ctx, err error) error {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": verr.Message,
			"field": verr.Field,
		})
	}

	switch {
	case errors.Is(err, models.ErrInvalidCredential):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, models.ErrWalletNotSet),
		errors.Is(err, models.ErrNothingToClaim),
		errors.Is(err, models.ErrBelowPayoutMinimum):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		log.Printf("❌ [REWARDS] Operation failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Internal error",
		})
	}
}
