// models/user.go
package models

import (
	"time"
)

// User is the mirrored learner record. The progress counters are the
// off-ledger aggregates the eligibility evaluator consumes; they are a
// fast, sometimes-stale view, never ledger truth.
type User struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Username    string  `gorm:"uniqueIndex;not null" json:"username"`
	Email       *string `gorm:"uniqueIndex" json:"email,omitempty"`
	DisplayName string  `json:"display_name"`
	Wallet      *string `gorm:"uniqueIndex" json:"wallet,omitempty"`

	// Progression
	Level   int `gorm:"default:1" json:"level"`
	TotalXP int `gorm:"default:0" json:"total_xp"`

	// Learning counters
	LessonsCompleted    int `gorm:"default:0" json:"lessons_completed"`
	CoursesCompleted    int `gorm:"default:0" json:"courses_completed"`
	ChallengesCompleted int `gorm:"default:0" json:"challenges_completed"`

	// Streaks
	CurrentStreak int        `gorm:"default:0" json:"current_streak"`
	LongestStreak int        `gorm:"default:0" json:"longest_streak"`
	LastActiveAt  *time.Time `json:"last_active_at,omitempty"`

	// Ordinal position among all signups, for early-adopter achievements.
	SignupRank int `gorm:"default:0;index" json:"signup_rank"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	Achievements []UserAchievement `gorm:"foreignKey:UserID" json:"achievements,omitempty"`
}
