// handlers/leaderboard.go - XP leaderboard endpoints
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"learnledger/services"
)

var leaderboardService *services.LeaderboardService

// InitLeaderboardHandlers wires the handler package to its service.
func InitLeaderboardHandlers(leaderboard *services.LeaderboardService) {
	leaderboardService = leaderboard
}

// GetLeaderboard returns ranked XP holders for a timeframe.
// GET /api/leaderboard?timeframe=weekly|monthly|alltime
func GetLeaderboard(c *fiber.Ctx) error {
	tf := services.ParseTimeframe(c.Query("timeframe"))

	entries, err := leaderboardService.Leaderboard(c.Context(), tf)
	if err != nil {
		return ledgerFailure(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"timeframe":   tf,
		"leaderboard": entries,
	})
}

// GetWalletRank returns a single wallet's leaderboard entry.
// GET /api/leaderboard/rank/:wallet?timeframe=...
func GetWalletRank(c *fiber.Ctx) error {
	wallet := c.Params("wallet")
	if wallet == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Wallet is required"})
	}
	tf := services.ParseTimeframe(c.Query("timeframe"))

	entry, found, err := leaderboardService.Rank(c.Context(), tf, wallet)
	if err != nil {
		return ledgerFailure(c, err)
	}
	if !found {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error":   "Wallet not on leaderboard",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"timeframe": tf,
		"entry":     entry,
	})
}
