// services/sync.go - self-healing mirror reconciliation
package services

import (
	"time"

	"learnledger/models"
	"learnledger/utils"
)

// SyncService writes mirror rows when ledger truth is discovered to
// differ: a receipt exists on-chain with no mirror record, or the mirror
// record lacks a plausible asset address. It never deletes
// ledger-confirmed rows.
type SyncService struct {
	Store  MirrorStore
	Logger utils.Logger
	Now    func() time.Time
}

func NewSyncService(store MirrorStore) *SyncService {
	return &SyncService{
		Store:  store,
		Logger: utils.NewLogger("mirror-sync"),
		Now:    time.Now,
	}
}

func (s *SyncService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SyncIfMissing upserts the mirror row for a pair known to have an
// on-ledger receipt. assetAddress may be empty when only receipt
// existence is known; an implausible stored address is upgraded once a
// real one is learned.
func (s *SyncService) SyncIfMissing(userID uint, achievementID, assetAddress string) error {
	existing, err := s.Store.GetAward(userID, achievementID)
	if err != nil {
		return err
	}

	if existing != nil && existing.HasPlausibleAsset() {
		return nil
	}

	record := models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		EarnedAt:      s.now(),
	}
	if existing != nil {
		record = *existing
	}
	if assetAddress != "" {
		record.AssetAddress = &assetAddress
	}

	if s.Logger != nil {
		s.Logger.Printf("healing mirror for user=%d achievement=%s", userID, achievementID)
	}
	return s.Store.UpsertAward(&record)
}
