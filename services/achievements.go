// services/achievements.go - mintable-achievement listing
package services

import (
	"context"

	"learnledger/ledger"
	"learnledger/utils"
)

// MintableAchievement is one catalog entry annotated with everything the
// client needs to render a mint button or a progress hint.
type MintableAchievement struct {
	AchievementDef
	Eligible        bool   `json:"eligible"`
	Reason          string `json:"reason,omitempty"`
	AlreadyMirrored bool   `json:"already_mirrored"`
	ReceiptExists   bool   `json:"receipt_exists"`
	Deployed        bool   `json:"deployed"`
	LedgerChecked   bool   `json:"ledger_checked"`
	Mintable        bool   `json:"mintable"`
}

// ListingService assembles the mintable-achievement view for one user,
// batching ledger reads to bound round trips.
type ListingService struct {
	Reader ledger.Reader
	Store  MirrorStore
	Sync   *SyncService
	Logger utils.Logger
}

func NewListingService(reader ledger.Reader, store MirrorStore, sync *SyncService) *ListingService {
	return &ListingService{
		Reader: reader,
		Store:  store,
		Sync:   sync,
		Logger: utils.NewLogger("achievements"),
	}
}

func (s *ListingService) logger() utils.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return utils.NewDiscardLogger()
}

// ListMintable returns every achievement with its eligibility, mirror
// and ledger status. Mintable means (eligible or already mirrored) AND
// no existing receipt AND deployed on ledger.
//
// Degrade policy: a failed achievement-type batch assumes "deployed"
// (favor showing a mint option over hiding it); a failed receipt batch
// leaves receipt state unknown and surfaces LedgerChecked=false so
// clients can soften the UI. Eligibility itself never degrades; it is
// computed locally from the mirror.
func (s *ListingService) ListMintable(ctx context.Context, userID uint, wallet string) ([]MintableAchievement, error) {
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	stats := StatsFromUser(user)

	awards, err := s.Store.ListAwards(userID)
	if err != nil {
		return nil, err
	}
	mirrored := make(map[string]bool, len(awards))
	for _, award := range awards {
		mirrored[award.AchievementID] = true
	}

	defs := Catalog()
	ids := make([]string, len(defs))
	for i, def := range defs {
		ids[i] = def.ID
	}

	deployed := make([]bool, len(defs))
	soldOut := make([]bool, len(defs))
	types, err := s.Reader.BatchGetAchievementTypes(ctx, ids)
	if err != nil {
		// Mint-listing path degrades to "assume deployed".
		degradedReadsTotal.WithLabelValues("listing_types").Inc()
		s.logger().Printf("achievement-type batch degraded, assuming deployed: %v", err)
		for i := range deployed {
			deployed[i] = true
		}
	} else {
		for i, account := range types {
			if account == nil {
				continue
			}
			deployed[i] = true
			soldOut[i] = account.SupplyExhausted()
		}
	}

	receipts := make([]bool, len(defs))
	ledgerChecked := false
	if wallet != "" {
		recipient, addrErr := ledger.ParseAddress(wallet)
		if addrErr == nil {
			batch, batchErr := s.Reader.BatchGetReceipts(ctx, ids, recipient)
			if batchErr != nil {
				degradedReadsTotal.WithLabelValues("listing_receipts").Inc()
				s.logger().Printf("receipt batch degraded, receipt state unknown: %v", batchErr)
			} else {
				receipts = batch
				ledgerChecked = true
			}
		}
	}

	out := make([]MintableAchievement, 0, len(defs))
	for i, def := range defs {
		verdict := Evaluate(stats, def)
		entry := MintableAchievement{
			AchievementDef:  def,
			Eligible:        verdict.Eligible,
			Reason:          verdict.Reason,
			AlreadyMirrored: mirrored[def.ID],
			ReceiptExists:   receipts[i],
			Deployed:        deployed[i],
			LedgerChecked:   ledgerChecked,
		}
		entry.Mintable = (entry.Eligible || entry.AlreadyMirrored) &&
			!entry.ReceiptExists && entry.Deployed && !soldOut[i]
		out = append(out, entry)

		// Receipt on ledger but nothing mirrored: heal opportunistically.
		if ledgerChecked && receipts[i] && !mirrored[def.ID] {
			if healErr := s.Sync.SyncIfMissing(userID, def.ID, ""); healErr != nil {
				s.logger().Printf("mirror heal failed for user=%d achievement=%s: %v", userID, def.ID, healErr)
			}
		}
	}
	return out, nil
}
