// services/eligibility.go - pure achievement eligibility evaluation
package services

import (
	"fmt"

	"learnledger/models"
)

// ProgressStats are the already-aggregated counters the evaluator reads.
// Assembled from the mirror, never from the ledger.
type ProgressStats struct {
	LessonsCompleted    int `json:"lessons_completed"`
	CoursesCompleted    int `json:"courses_completed"`
	ChallengesCompleted int `json:"challenges_completed"`
	TotalXP             int `json:"total_xp"`
	Level               int `json:"level"`
	CurrentStreak       int `json:"current_streak"`
	LongestStreak       int `json:"longest_streak"`
	SignupRank          int `json:"signup_rank"`
}

// StatsFromUser projects a mirrored user row onto the evaluator input.
func StatsFromUser(user *models.User) ProgressStats {
	return ProgressStats{
		LessonsCompleted:    user.LessonsCompleted,
		CoursesCompleted:    user.CoursesCompleted,
		ChallengesCompleted: user.ChallengesCompleted,
		TotalXP:             user.TotalXP,
		Level:               user.Level,
		CurrentStreak:       user.CurrentStreak,
		LongestStreak:       user.LongestStreak,
		SignupRank:          user.SignupRank,
	}
}

// Eligibility is the evaluator verdict. Reason is set only when not
// eligible, phrased for direct display.
type Eligibility struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// Evaluate decides whether stats satisfy the definition's requirement.
// Pure: no I/O, no side effects, identical output for identical input.
// It runs both for progress display and server-side immediately before a
// mint is prepared; a client-supplied eligibility claim is never trusted.
func Evaluate(stats ProgressStats, def AchievementDef) Eligibility {
	req := def.Requirement

	if req.Kind == ReqSignupRank {
		if stats.SignupRank > 0 && stats.SignupRank <= req.Threshold {
			return Eligibility{Eligible: true}
		}
		return Eligibility{
			Eligible: false,
			Reason:   fmt.Sprintf("reserved for the first %d learners", req.Threshold),
		}
	}

	current, label := counterFor(stats, req.Kind)
	if current >= req.Threshold {
		return Eligibility{Eligible: true}
	}
	return Eligibility{
		Eligible: false,
		Reason:   fmt.Sprintf("requires %s >= %d, currently %d", label, req.Threshold, current),
	}
}

func counterFor(stats ProgressStats, kind RequirementKind) (int, string) {
	switch kind {
	case ReqLessonsCompleted:
		return stats.LessonsCompleted, "lessons completed"
	case ReqCoursesCompleted:
		return stats.CoursesCompleted, "courses completed"
	case ReqChallengesCompleted:
		return stats.ChallengesCompleted, "challenges completed"
	case ReqTotalXP:
		return stats.TotalXP, "total XP"
	case ReqLevel:
		return stats.Level, "level"
	case ReqCurrentStreak:
		return stats.CurrentStreak, "current streak"
	case ReqLongestStreak:
		return stats.LongestStreak, "longest streak"
	default:
		// Unknown requirement kinds never qualify.
		return -1, string(kind)
	}
}

// LevelForXP maps accumulated XP onto the platform level curve.
func LevelForXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	level := 1
	for (level*level)*100 <= xp {
		level++
	}
	return level
}
