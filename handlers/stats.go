// handlers/stats.go - aggregated profile stats endpoint
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"learnledger/middleware"
	"learnledger/services"
)

var statsStore services.MirrorStore

// InitStatsHandlers wires the handler package to the mirror store.
func InitStatsHandlers(store services.MirrorStore) {
	statsStore = store
}

// GetStats returns the authenticated user's progress counters, level
// curve position and earned credentials.
// GET /api/stats
func GetStats(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{"error": err.Error()})
	}

	user, err := statsStore.GetUser(userID)
	if err != nil {
		return c.Status(404).JSON(fiber.Map{"error": "User not found"})
	}

	awards, err := statsStore.ListAwards(userID)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load achievements"})
	}

	level := services.LevelForXP(user.TotalXP)
	nextLevelXP := level * level * 100

	return c.JSON(fiber.Map{
		"success": true,
		"stats": fiber.Map{
			"total_xp":             user.TotalXP,
			"level":                level,
			"next_level_xp":        nextLevelXP,
			"lessons_completed":    user.LessonsCompleted,
			"courses_completed":    user.CoursesCompleted,
			"challenges_completed": user.ChallengesCompleted,
			"current_streak":       user.CurrentStreak,
			"longest_streak":       user.LongestStreak,
			"signup_rank":          user.SignupRank,
			"achievements_earned":  len(awards),
		},
		"achievements": awards,
	})
}
