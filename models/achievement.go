// models/achievement.go
package models

import "time"

// AssetAddressSynced is the legacy sentinel some mirror rows carry in
// place of a real asset address. It is not proof of an on-ledger asset;
// only a receipt lookup or a plausible base58 address length is.
const AssetAddressSynced = "synced"

// UserAchievement mirrors one credential award. One row per
// (user, achievement) pair; the on-ledger receipt account stays the
// source of truth and this row is upserted to follow it.
type UserAchievement struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	UserID        uint   `gorm:"not null;index;uniqueIndex:idx_user_achievement" json:"user_id"`
	AchievementID string `gorm:"not null;size:64;index;uniqueIndex:idx_user_achievement" json:"achievement_id"`

	EarnedAt time.Time `json:"earned_at"`

	// AssetAddress is populated only once a mint is confirmed. Nil or
	// the "synced" sentinel means the award may exist on ledger without
	// a known asset account.
	AssetAddress *string `gorm:"size:64" json:"asset_address,omitempty"`

	// Signature of the confirmed broadcast, when known.
	Signature string `gorm:"size:128" json:"signature,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// HasPlausibleAsset reports whether the mirrored asset address looks like
// a real base58 account address rather than an absent or sentinel value.
func (ua *UserAchievement) HasPlausibleAsset() bool {
	if ua.AssetAddress == nil {
		return false
	}
	addr := *ua.AssetAddress
	if addr == "" || addr == AssetAddressSynced {
		return false
	}
	return len(addr) >= 32 && len(addr) <= 44
}
