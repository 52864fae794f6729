// services/mint.go - two-phase credential mint orchestration
package services

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"strings"
	"time"

	"learnledger/ledger"
	"learnledger/models"
	"learnledger/utils"
)

// MintOutcome is the terminal classification of a prepare or confirm
// step. Business rejections are outcomes, not errors, so callers can
// render a specific message for each.
type MintOutcome string

const (
	OutcomePrepared      MintOutcome = "prepared"
	OutcomeConfirmed     MintOutcome = "confirmed"
	OutcomeNotEligible   MintOutcome = "not_eligible"
	OutcomeAlreadyMinted MintOutcome = "already_minted"
	OutcomeSoldOut       MintOutcome = "sold_out"
	OutcomeNotDeployed   MintOutcome = "not_deployed"
)

// PrepareResult carries a prepared, partially-signed transaction or the
// typed rejection.
type PrepareResult struct {
	Outcome     MintOutcome `json:"outcome"`
	Reason      string      `json:"reason,omitempty"`
	Transaction string      `json:"transaction,omitempty"` // base64, awaiting recipient signature
	Asset       string      `json:"asset,omitempty"`
	Achievement string      `json:"achievement_id"`
}

// MintService drives the credential mint workflow:
// Requested -> EligibilityChecked -> ReceiptChecked -> SupplyChecked ->
// PreparedUnsigned -> AwaitingSignature -> Confirmed | Rejected.
// It holds no lock: when two concurrent prepares race past the receipt
// check, the ledger's atomic account creation lets at most one broadcast
// create the receipt, and the loser is mapped back to AlreadyMinted.
type MintService struct {
	Reader   ledger.Reader
	Resolver MintResolver
	Store    MirrorStore
	Sync     *SyncService
	Program  ledger.Address
	XPMint   ledger.Address
	Backend  ledger.Keypair
	Logger   utils.Logger

	// NewAssetKeypair is injectable so tests get deterministic assets.
	NewAssetKeypair func() (ledger.Keypair, error)
	Now             func() time.Time
}

// NewMintService wires the orchestrator with default keygen and clock.
func NewMintService(reader ledger.Reader, resolver MintResolver, store MirrorStore, sync *SyncService, program, xpMint ledger.Address, backend ledger.Keypair) *MintService {
	return &MintService{
		Reader:          reader,
		Resolver:        resolver,
		Store:           store,
		Sync:            sync,
		Program:         program,
		XPMint:          xpMint,
		Backend:         backend,
		Logger:          utils.NewLogger("credential-mint"),
		NewAssetKeypair: ledger.NewKeypair,
		Now:             time.Now,
	}
}

func (s *MintService) logger() utils.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return utils.NewDiscardLogger()
}

func (s *MintService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Prepare runs the checked path of the state machine and, on success,
// assembles the award transaction pre-signed by the backend key and the
// fresh asset key, leaving the recipient's fee-payer slot for the caller
// to countersign. Timed-out prepares leave no on-ledger trace.
func (s *MintService) Prepare(ctx context.Context, userID uint, achievementID, wallet string) (*PrepareResult, error) {
	def, known := LookupAchievement(achievementID)
	if !known {
		return s.reject(achievementID, OutcomeNotDeployed, "unknown achievement"), nil
	}

	recipient, err := ledger.ParseAddress(wallet)
	if err != nil {
		return nil, fmt.Errorf("recipient wallet: %w", err)
	}

	// Requested -> EligibilityChecked. Always re-evaluated server-side;
	// a client-supplied claim is never trusted.
	user, err := s.Store.GetUser(userID)
	if err != nil {
		return nil, err
	}
	verdict := Evaluate(StatsFromUser(user), def)
	if !verdict.Eligible {
		return s.reject(achievementID, OutcomeNotEligible, verdict.Reason), nil
	}

	// EligibilityChecked -> ReceiptChecked. An RPC failure here must
	// surface, never read as "no receipt".
	exists, err := s.Reader.GetReceipt(ctx, achievementID, recipient)
	if err != nil {
		return nil, err
	}
	if exists {
		// Idempotent short-circuit; opportunistically heal the mirror.
		if healErr := s.Sync.SyncIfMissing(userID, achievementID, ""); healErr != nil {
			s.logger().Printf("mirror heal failed for user=%d achievement=%s: %v", userID, achievementID, healErr)
		}
		return s.reject(achievementID, OutcomeAlreadyMinted, "credential already awarded"), nil
	}

	// ReceiptChecked -> SupplyChecked.
	typeAccount, deployed, err := s.Reader.GetAchievementType(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	if !deployed {
		return s.reject(achievementID, OutcomeNotDeployed, "achievement not deployed on ledger"), nil
	}
	if typeAccount.SupplyExhausted() {
		return s.reject(achievementID, OutcomeSoldOut, "maximum supply reached"), nil
	}

	// SupplyChecked -> PreparedUnsigned.
	cfg, err := s.Resolver.Resolve(ctx, s.XPMint)
	if err != nil {
		return nil, err
	}

	asset, err := s.NewAssetKeypair()
	if err != nil {
		return nil, err
	}

	accounts, err := ledger.DeriveAwardAccounts(s.Program, achievementID, s.Backend.Public, recipient, asset.Public, s.XPMint, cfg.Variant)
	if err != nil {
		return nil, err
	}

	createATA, err := ledger.NewCreateAssociatedAccountIdempotent(recipient, recipient, s.XPMint, cfg.Variant.Program())
	if err != nil {
		return nil, err
	}
	award := ledger.NewAwardInstruction(s.Program, achievementID, accounts)

	blockhash, err := s.Reader.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	signingKeys := map[ledger.Address]ed25519.PrivateKey{
		s.Backend.Public: s.Backend.Private,
		asset.Public:     asset.Private,
	}
	tx, err := ledger.BuildPartiallySignedTransaction(
		recipient,
		blockhash,
		[]ledger.Instruction{createATA, award},
		signingKeys,
	)
	if err != nil {
		return nil, fmt.Errorf("assemble transaction: %w", err)
	}

	mintOutcomesTotal.WithLabelValues(string(OutcomePrepared)).Inc()
	return &PrepareResult{
		Outcome:     OutcomePrepared,
		Transaction: tx,
		Asset:       asset.Public.String(),
		Achievement: achievementID,
	}, nil
}

func (s *MintService) reject(achievementID string, outcome MintOutcome, reason string) *PrepareResult {
	mintOutcomesTotal.WithLabelValues(string(outcome)).Inc()
	return &PrepareResult{
		Outcome:     outcome,
		Reason:      reason,
		Achievement: achievementID,
	}
}

// ConfirmResult reports the terminal state after a broadcast report.
type ConfirmResult struct {
	Outcome MintOutcome `json:"outcome"`
	Reason  string      `json:"reason,omitempty"`
}

// Confirm persists the mirror record after the caller has broadcast the
// signed transaction. A confirmation with no prior prepare flow for the
// pair is still accepted: the mirror is eventually consistent, not
// authoritative. Validation is best effort.
func (s *MintService) Confirm(ctx context.Context, userID uint, achievementID, signature, assetAddress string) (*ConfirmResult, error) {
	def, known := LookupAchievement(achievementID)
	if !known {
		return &ConfirmResult{Outcome: OutcomeNotDeployed, Reason: "unknown achievement"}, nil
	}

	if _, err := ledger.ParseAddress(assetAddress); err != nil {
		return nil, fmt.Errorf("asset address: %w", err)
	}

	// Best-effort receipt validation. A transient RPC failure must not
	// block recording what the caller witnessed on-chain.
	if recipient := s.recipientOf(userID); !recipient.IsZero() {
		if exists, err := s.Reader.GetReceipt(ctx, achievementID, recipient); err != nil {
			degradedReadsTotal.WithLabelValues("confirm_receipt").Inc()
			s.logger().Printf("confirm: receipt validation degraded for user=%d achievement=%s: %v", userID, achievementID, err)
		} else if !exists {
			s.logger().Printf("confirm: no receipt visible yet for user=%d achievement=%s (commitment lag?)", userID, achievementID)
		}
	}

	// A confirm retry after a timeout must not credit the reward again
	// or overwrite the recorded asset. The first confirm with a plausible
	// asset settles the pair.
	existing, err := s.Store.GetAward(userID, achievementID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.HasPlausibleAsset() {
		s.logger().Printf("confirm replay for user=%d achievement=%s, keeping recorded asset", userID, achievementID)
		return &ConfirmResult{Outcome: OutcomeConfirmed}, nil
	}

	now := s.now()
	asset := assetAddress
	record := &models.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		EarnedAt:      now,
		AssetAddress:  &asset,
		Signature:     signature,
	}
	if err := s.Store.UpsertAward(record); err != nil {
		return nil, err
	}
	if err := s.Store.ApplyReward(userID, def.XPReward, now); err != nil {
		return nil, err
	}

	mintOutcomesTotal.WithLabelValues(string(OutcomeConfirmed)).Inc()
	return &ConfirmResult{Outcome: OutcomeConfirmed}, nil
}

// ReportFailure classifies a broadcast failure reported by the caller.
// A duplicate-account-creation error is the expected loser of a benign
// race between two prepares for the same pair, so it terminates as
// AlreadyMinted rather than a retryable failure.
func (s *MintService) ReportFailure(userID uint, achievementID, message string) *ConfirmResult {
	if IsDuplicateCreationError(message) {
		mintOutcomesTotal.WithLabelValues(string(OutcomeAlreadyMinted)).Inc()
		if err := s.Sync.SyncIfMissing(userID, achievementID, ""); err != nil {
			s.logger().Printf("mirror heal after lost race failed for user=%d achievement=%s: %v", userID, achievementID, err)
		}
		return &ConfirmResult{Outcome: OutcomeAlreadyMinted, Reason: "credential already awarded"}
	}
	s.logger().Printf("broadcast failure for user=%d achievement=%s: %s", userID, achievementID, message)
	return &ConfirmResult{Outcome: "broadcast_failed", Reason: message}
}

// IsDuplicateCreationError matches the "account already exists" class of
// broadcast errors the runtime emits when the receipt was created first
// by a concurrent transaction.
func IsDuplicateCreationError(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "already in use") ||
		strings.Contains(lower, "already exists") ||
		strings.Contains(lower, "already been processed")
}

// recipientOf resolves the mirrored wallet for a user, zero when unset.
func (s *MintService) recipientOf(userID uint) ledger.Address {
	user, err := s.Store.GetUser(userID)
	if err != nil || user.Wallet == nil {
		return ledger.Address{}
	}
	addr, err := ledger.ParseAddress(*user.Wallet)
	if err != nil {
		return ledger.Address{}
	}
	return addr
}
