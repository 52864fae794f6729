// services/catalog.go - achievement definitions
package services

// RequirementKind selects which mirrored progress counter a requirement
// is checked against.
type RequirementKind string

const (
	ReqLessonsCompleted    RequirementKind = "lessons_completed"
	ReqCoursesCompleted    RequirementKind = "courses_completed"
	ReqChallengesCompleted RequirementKind = "challenges_completed"
	ReqTotalXP             RequirementKind = "total_xp"
	ReqLevel               RequirementKind = "level"
	ReqCurrentStreak       RequirementKind = "current_streak"
	ReqLongestStreak       RequirementKind = "longest_streak"
	ReqSignupRank          RequirementKind = "signup_rank"
)

// Requirement is one threshold over a progress counter. For
// ReqSignupRank the threshold is an upper bound (first N signups);
// everywhere else it is a lower bound.
type Requirement struct {
	Kind      RequirementKind `json:"kind"`
	Threshold int             `json:"threshold"`
}

// AchievementDef is an immutable catalog entry. Definitions live in code
// and are never mutated at runtime; the deployable on-ledger counterpart
// is the achievement-type account.
type AchievementDef struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	XPReward    int         `json:"xp_reward"`
	Requirement Requirement `json:"requirement"`
	Icon        string      `json:"icon"`
}

// Catalog returns every defined achievement in display order.
func Catalog() []AchievementDef {
	return achievementCatalog
}

// LookupAchievement finds a definition by id.
func LookupAchievement(id string) (AchievementDef, bool) {
	for _, def := range achievementCatalog {
		if def.ID == id {
			return def, true
		}
	}
	return AchievementDef{}, false
}

var achievementCatalog = []AchievementDef{
	{
		ID:          "first-steps",
		Name:        "First Steps",
		Description: "Complete your first lesson",
		XPReward:    50,
		Requirement: Requirement{Kind: ReqLessonsCompleted, Threshold: 1},
		Icon:        "footsteps",
	},
	{
		ID:          "lesson-ten",
		Name:        "Dedicated Learner",
		Description: "Complete 10 lessons",
		XPReward:    150,
		Requirement: Requirement{Kind: ReqLessonsCompleted, Threshold: 10},
		Icon:        "book",
	},
	{
		ID:          "course-complete",
		Name:        "Course Graduate",
		Description: "Finish your first course",
		XPReward:    250,
		Requirement: Requirement{Kind: ReqCoursesCompleted, Threshold: 1},
		Icon:        "graduation-cap",
	},
	{
		ID:          "challenge-champion",
		Name:        "Challenge Champion",
		Description: "Complete 5 coding challenges",
		XPReward:    300,
		Requirement: Requirement{Kind: ReqChallengesCompleted, Threshold: 5},
		Icon:        "trophy",
	},
	{
		ID:          "xp-thousand",
		Name:        "XP Collector",
		Description: "Earn 1,000 XP",
		XPReward:    100,
		Requirement: Requirement{Kind: ReqTotalXP, Threshold: 1000},
		Icon:        "gem",
	},
	{
		ID:          "level-five",
		Name:        "Rising Star",
		Description: "Reach level 5",
		XPReward:    200,
		Requirement: Requirement{Kind: ReqLevel, Threshold: 5},
		Icon:        "star",
	},
	{
		ID:          "week-streak",
		Name:        "Consistency",
		Description: "Keep a 7 day learning streak",
		XPReward:    175,
		Requirement: Requirement{Kind: ReqCurrentStreak, Threshold: 7},
		Icon:        "flame",
	},
	{
		ID:          "month-streak",
		Name:        "Unstoppable",
		Description: "Reach a 30 day streak at any point",
		XPReward:    500,
		Requirement: Requirement{Kind: ReqLongestStreak, Threshold: 30},
		Icon:        "calendar",
	},
	{
		ID:          "early-adopter",
		Name:        "Early Adopter",
		Description: "Be among the first 100 learners",
		XPReward:    400,
		Requirement: Requirement{Kind: ReqSignupRank, Threshold: 100},
		Icon:        "rocket",
	},
}
