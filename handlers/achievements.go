// handlers/achievements.go - listing, prepare and confirm endpoints
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"learnledger/ledger"
	"learnledger/middleware"
	"learnledger/services"
)

var (
	listingService *services.ListingService
	mintService    *services.MintService
)

// InitAchievementHandlers wires the handler package to its services.
func InitAchievementHandlers(listing *services.ListingService, mint *services.MintService) {
	listingService = listing
	mintService = mint
}

// GetAchievements returns the catalog annotated with eligibility, mirror
// and ledger state for the authenticated user.
// GET /api/achievements?wallet=...
func GetAchievements(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	wallet := c.Query("wallet")
	if wallet == "" {
		wallet = middleware.GetWallet(c)
	}

	entries, err := listingService.ListMintable(c.Context(), userID, wallet)
	if err != nil {
		return ledgerFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"achievements": entries,
	})
}

type prepareRequest struct {
	Wallet string `json:"wallet"`
}

// PrepareMint builds the partially-signed credential mint transaction.
// POST /api/achievements/:id/prepare
func PrepareMint(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req prepareRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if req.Wallet == "" {
		req.Wallet = middleware.GetWallet(c)
	}
	if req.Wallet == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Wallet is required"})
	}

	result, err := mintService.Prepare(c.Context(), userID, c.Params("id"), req.Wallet)
	if err != nil {
		return ledgerFailure(c, err)
	}

	return renderPrepare(c, result)
}

// renderPrepare maps typed outcomes onto responses. Business rejections
// are 200 with a code so the client can tell "already yours" from
// "not yet" from "sold out".
func renderPrepare(c *fiber.Ctx, result *services.PrepareResult) error {
	switch result.Outcome {
	case services.OutcomePrepared:
		return c.JSON(fiber.Map{
			"success":     true,
			"transaction": result.Transaction,
			"asset":       result.Asset,
		})
	case services.OutcomeNotDeployed:
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"code":    result.Outcome,
			"error":   result.Reason,
		})
	default:
		return c.JSON(fiber.Map{
			"success": false,
			"code":    result.Outcome,
			"error":   result.Reason,
		})
	}
}

type confirmRequest struct {
	Signature    string `json:"signature"`
	AssetAddress string `json:"asset_address"`
	Error        string `json:"error"`
}

// ConfirmMint records a broadcast result: either the confirmed signature
// plus asset address, or the broadcast error to classify.
// POST /api/achievements/:id/confirm
func ConfirmMint(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	achievementID := c.Params("id")

	if req.Error != "" {
		result := mintService.ReportFailure(userID, achievementID, req.Error)
		return c.JSON(fiber.Map{
			"success": result.Outcome == services.OutcomeAlreadyMinted,
			"code":    result.Outcome,
			"error":   result.Reason,
		})
	}

	if req.Signature == "" || req.AssetAddress == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Signature and asset address are required"})
	}

	result, err := mintService.Confirm(c.Context(), userID, achievementID, req.Signature, req.AssetAddress)
	if err != nil {
		return ledgerFailure(c, err)
	}
	if result.Outcome == services.OutcomeNotDeployed {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"code":    result.Outcome,
			"error":   result.Reason,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"code":    result.Outcome,
	})
}

// ledgerFailure distinguishes transient ledger unavailability (503) from
// decode/derivation faults (500).
func ledgerFailure(c *fiber.Ctx, err error) error {
	if errors.Is(err, ledger.ErrLedgerUnavailable) {
		return c.Status(503).JSON(fiber.Map{"error": "Ledger temporarily unavailable"})
	}
	if errors.Is(err, ledger.ErrMalformedAccount) || errors.Is(err, ledger.ErrMintNotResolved) {
		return c.Status(500).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(500).JSON(fiber.Map{"error": "Internal server error"})
}
