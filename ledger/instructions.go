// ledger/instructions.go - achievement program instruction builders
package ledger

import "encoding/binary"

// ataCreateIdempotent is the associated-token-program instruction tag
// that succeeds whether or not the account already exists.
const ataCreateIdempotent = byte(1)

// NewCreateAssociatedAccountIdempotent builds the instruction creating
// the owner's associated token account for a mint, as a no-op when it
// already exists.
func NewCreateAssociatedAccountIdempotent(payer, owner, mint, tokenProgram Address) (Instruction, error) {
	ata, err := DeriveAssociatedTokenAddress(owner, mint, tokenProgram)
	if err != nil {
		return Instruction{}, err
	}
	return Instruction{
		Program: AssociatedTokenProgram,
		Accounts: []AccountMeta{
			{Address: payer, IsSigner: true, IsWritable: true},
			{Address: ata, IsWritable: true},
			{Address: owner},
			{Address: mint},
			{Address: SystemProgram},
			{Address: tokenProgram},
		},
		Data: []byte{ataCreateIdempotent},
	}, nil
}

// AwardAccounts carries every deterministic address the award
// instruction references, in its fixed order.
type AwardAccounts struct {
	Config          Address
	AchievementType Address
	Receipt         Address
	MinterRole      Address
	Minter          Address
	Recipient       Address
	Asset           Address
	RecipientToken  Address
	XPMint          Address
	TokenProgram    Address
}

// DeriveAwardAccounts resolves all deterministic addresses for one award.
func DeriveAwardAccounts(program Address, achievementID string, minter, recipient, asset, xpMint Address, variant ProgramVariant) (AwardAccounts, error) {
	var out AwardAccounts
	var err error

	if out.Config, err = DeriveConfigAddress(program); err != nil {
		return out, err
	}
	if out.AchievementType, err = DeriveAchievementTypeAddress(program, achievementID); err != nil {
		return out, err
	}
	if out.Receipt, err = DeriveReceiptAddress(program, achievementID, recipient); err != nil {
		return out, err
	}
	if out.MinterRole, err = DeriveMinterRoleAddress(program, minter); err != nil {
		return out, err
	}
	out.TokenProgram = variant.Program()
	if out.RecipientToken, err = DeriveAssociatedTokenAddress(recipient, xpMint, out.TokenProgram); err != nil {
		return out, err
	}
	out.Minter = minter
	out.Recipient = recipient
	out.Asset = asset
	out.XPMint = xpMint
	return out, nil
}

// NewAwardInstruction builds the award instruction: fixed discriminator
// bytes, a length-prefixed achievement id argument and the fixed account
// ordering the program checks.
func NewAwardInstruction(program Address, achievementID string, accounts AwardAccounts) Instruction {
	disc := AnchorDiscriminator("global", "award_achievement")

	idBytes := []byte(achievementID)
	data := make([]byte, 8+4+len(idBytes))
	copy(data[0:8], disc[:])
	binary.LittleEndian.PutUint32(data[8:12], uint32(len(idBytes)))
	copy(data[12:], idBytes)

	return Instruction{
		Program: program,
		Accounts: []AccountMeta{
			{Address: accounts.Config},
			{Address: accounts.AchievementType, IsWritable: true},
			{Address: accounts.Receipt, IsWritable: true},
			{Address: accounts.MinterRole},
			{Address: accounts.Minter, IsSigner: true},
			{Address: accounts.Recipient, IsSigner: true, IsWritable: true},
			{Address: accounts.Asset, IsSigner: true, IsWritable: true},
			{Address: accounts.RecipientToken, IsWritable: true},
			{Address: accounts.XPMint, IsWritable: true},
			{Address: accounts.TokenProgram},
			{Address: SystemProgram},
		},
		Data: data,
	}
}
