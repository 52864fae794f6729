// services/mirror.go - off-ledger mirror store access
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"learnledger/models"
)

// MirrorStore is the narrow persistence surface the mint workflow and
// the reconciliation layer use. Kept small so tests can fake it.
type MirrorStore interface {
	GetUser(userID uint) (*models.User, error)
	GetAward(userID uint, achievementID string) (*models.UserAchievement, error)
	UpsertAward(record *models.UserAchievement) error
	ListAwards(userID uint) ([]models.UserAchievement, error)
	ApplyReward(userID uint, xpReward int, earnedAt time.Time) error
}

// GormMirrorStore backs MirrorStore with the PostgreSQL mirror.
type GormMirrorStore struct {
	db *gorm.DB
}

func NewGormMirrorStore(db *gorm.DB) *GormMirrorStore {
	return &GormMirrorStore{db: db}
}

func (s *GormMirrorStore) GetUser(userID uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &user, nil
}

// GetAward returns the mirror row for a pair, or nil when absent.
func (s *GormMirrorStore) GetAward(userID uint, achievementID string) (*models.UserAchievement, error) {
	var record models.UserAchievement
	err := s.db.Where("user_id = ? AND achievement_id = ?", userID, achievementID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load award (%d, %s): %w", userID, achievementID, err)
	}
	return &record, nil
}

// UpsertAward writes the mirror row keyed by (user, achievement),
// creating or updating in place. Never deletes.
func (s *GormMirrorStore) UpsertAward(record *models.UserAchievement) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.UserAchievement
		err := tx.Where("user_id = ? AND achievement_id = ?", record.UserID, record.AchievementID).
			First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(record).Error
		}
		if err != nil {
			return err
		}

		existing.Signature = record.Signature
		if record.AssetAddress != nil {
			existing.AssetAddress = record.AssetAddress
		}
		if existing.EarnedAt.IsZero() {
			existing.EarnedAt = record.EarnedAt
		}
		return tx.Save(&existing).Error
	})
}

func (s *GormMirrorStore) ListAwards(userID uint) ([]models.UserAchievement, error) {
	var records []models.UserAchievement
	if err := s.db.Where("user_id = ?", userID).Order("earned_at DESC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list awards for %d: %w", userID, err)
	}
	return records, nil
}

// ApplyReward credits the XP reward to the mirrored user and keeps streak
// bookkeeping: a confirmed award on a new day extends the streak.
func (s *GormMirrorStore) ApplyReward(userID uint, xpReward int, earnedAt time.Time) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}

		user.TotalXP += xpReward
		user.Level = LevelForXP(user.TotalXP)

		if user.LastActiveAt == nil || !sameDay(*user.LastActiveAt, earnedAt) {
			user.CurrentStreak++
			if user.CurrentStreak > user.LongestStreak {
				user.LongestStreak = user.CurrentStreak
			}
		}
		at := earnedAt
		user.LastActiveAt = &at

		return tx.Save(&user).Error
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// ProfilesByWallet implements WalletDirectory for leaderboard enrichment.
func (s *GormMirrorStore) ProfilesByWallet(wallets []string) map[string]WalletProfile {
	if len(wallets) == 0 {
		return nil
	}
	var users []models.User
	if err := s.db.Where("wallet IN ?", wallets).Find(&users).Error; err != nil {
		return nil
	}
	profiles := make(map[string]WalletProfile, len(users))
	for _, user := range users {
		if user.Wallet == nil {
			continue
		}
		profiles[*user.Wallet] = WalletProfile{
			DisplayName: user.DisplayName,
			Level:       user.Level,
			Streak:      user.CurrentStreak,
		}
	}
	return profiles
}
