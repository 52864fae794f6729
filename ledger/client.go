// ledger/client.go - raw JSON-RPC ledger access, no SDK
package ledger

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"learnledger/utils"
)

const (
	defaultHTTPTimeout  = 15 * time.Second
	maxAccountBatchLen  = 100
	rpcErrorBodyLimit   = 2048
	programScanEncoding = "base64"
)

// ErrLedgerUnavailable wraps any transient RPC failure. Callers must never
// interpret it as "account does not exist"; degrade policies are decided
// per call site, not here.
var ErrLedgerUnavailable = errors.New("ledger: rpc unavailable")

// Reader defines the ledger operations the service layer consumes.
type Reader interface {
	GetAccount(ctx context.Context, address Address) (*AccountInfo, error)
	GetMultipleAccounts(ctx context.Context, addresses []Address) ([]*AccountInfo, error)
	GetReceipt(ctx context.Context, achievementID string, recipient Address) (bool, error)
	GetAchievementType(ctx context.Context, achievementID string) (*AchievementTypeAccount, bool, error)
	BatchGetReceipts(ctx context.Context, achievementIDs []string, recipient Address) ([]bool, error)
	BatchGetAchievementTypes(ctx context.Context, achievementIDs []string) ([]*AchievementTypeAccount, error)
	ScanHoldersOfMint(ctx context.Context, mint, tokenProgram Address) ([]*TokenAccountRecord, error)
	GetLatestBlockhash(ctx context.Context) ([32]byte, error)
}

// AccountInfo is the decoded getAccountInfo payload for one account.
type AccountInfo struct {
	Owner    Address
	Data     []byte
	Lamports uint64
}

// Client talks to a Solana-compatible JSON-RPC endpoint.
type Client struct {
	Endpoint   string
	Program    Address // achievement program id
	HTTPClient *http.Client
	Logger     utils.Logger
}

// NewClient builds a Client with the default timeout and a tagged logger.
func NewClient(endpoint string, program Address) *Client {
	return &Client{
		Endpoint:   endpoint,
		Program:    program,
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		Logger:     utils.NewLogger("ledger-rpc"),
	}
}

func (c *Client) logger() utils.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return utils.NewDiscardLogger()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: defaultHTTPTimeout}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newRPCRequest(method string, params ...any) rpcRequest {
	return rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	}
}

// call performs one JSON-RPC round trip and decodes the response envelope
// into out. Transport, HTTP and RPC-level failures all surface as
// ErrLedgerUnavailable.
func (c *Client) call(ctx context.Context, method string, params []any, out any) error {
	err := c.doCall(ctx, method, params, out)
	observeRPC(method, err)
	if err != nil {
		c.logger().Printf("%s failed: %v", method, err)
		return fmt.Errorf("%w: %s: %v", ErrLedgerUnavailable, method, err)
	}
	return nil
}

func (c *Client) doCall(ctx context.Context, method string, params []any, out any) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(newRPCRequest(method, params...)); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, &buf)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("rpc request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, rpcErrorBodyLimit))
		return fmt.Errorf("rpc status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type rpcAccountValue struct {
	Data     []json.RawMessage `json:"data"`
	Owner    string            `json:"owner"`
	Lamports uint64            `json:"lamports"`
}

func (v *rpcAccountValue) accountInfo() (*AccountInfo, error) {
	if v == nil {
		return nil, nil
	}
	info := &AccountInfo{Lamports: v.Lamports}

	owner, err := ParseAddress(v.Owner)
	if err != nil {
		return nil, fmt.Errorf("account owner: %w", err)
	}
	info.Owner = owner

	if len(v.Data) > 0 {
		var encoded string
		if err := json.Unmarshal(v.Data[0], &encoded); err != nil {
			return nil, fmt.Errorf("account data: %w", err)
		}
		raw, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("account data base64: %w", err)
		}
		info.Data = raw
	}
	return info, nil
}

type rpcGetAccountInfoResponse struct {
	Result *struct {
		Value *rpcAccountValue `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// GetAccount fetches a single account. A nil result with nil error means
// the account does not exist at that address.
func (c *Client) GetAccount(ctx context.Context, address Address) (*AccountInfo, error) {
	params := []any{
		address.String(),
		map[string]any{"encoding": programScanEncoding, "commitment": "confirmed"},
	}

	var resp rpcGetAccountInfoResponse
	if err := c.call(ctx, "getAccountInfo", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: rpc error (%d): %s", ErrLedgerUnavailable, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil || resp.Result.Value == nil {
		return nil, nil
	}
	info, err := resp.Result.Value.accountInfo()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAccount, err)
	}
	return info, nil
}

type rpcGetMultipleAccountsResponse struct {
	Result *struct {
		Value []*rpcAccountValue `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// GetMultipleAccounts fetches accounts in batches of at most 100 per
// round trip, preserving input order. Missing accounts come back nil.
func (c *Client) GetMultipleAccounts(ctx context.Context, addresses []Address) ([]*AccountInfo, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	results := make([]*AccountInfo, 0, len(addresses))
	for start := 0; start < len(addresses); start += maxAccountBatchLen {
		end := min(start+maxAccountBatchLen, len(addresses))
		batch, err := c.getAccountsBatch(ctx, addresses[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

func (c *Client) getAccountsBatch(ctx context.Context, addresses []Address) ([]*AccountInfo, error) {
	encoded := make([]string, len(addresses))
	for i, addr := range addresses {
		encoded[i] = addr.String()
	}
	params := []any{
		encoded,
		map[string]any{"encoding": programScanEncoding, "commitment": "confirmed"},
	}

	var resp rpcGetMultipleAccountsResponse
	if err := c.call(ctx, "getMultipleAccounts", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: rpc error (%d): %s", ErrLedgerUnavailable, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil {
		return nil, fmt.Errorf("%w: getMultipleAccounts missing result", ErrLedgerUnavailable)
	}

	// A short value array would read as "account absent" for the missing
	// tail, which receipt lookups must never guess at.
	if len(resp.Result.Value) != len(addresses) {
		return nil, fmt.Errorf("%w: getMultipleAccounts returned %d values for %d addresses",
			ErrLedgerUnavailable, len(resp.Result.Value), len(addresses))
	}

	infos := make([]*AccountInfo, len(addresses))
	for i, value := range resp.Result.Value {
		if value == nil {
			continue
		}
		info, err := value.accountInfo()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedAccount, err)
		}
		infos[i] = info
	}
	return infos, nil
}

// GetReceipt reports whether the proof-of-award account exists for the
// (achievement, recipient) pair. Existence alone is the idempotency
// signal; the account body is never inspected.
func (c *Client) GetReceipt(ctx context.Context, achievementID string, recipient Address) (bool, error) {
	receipt, err := DeriveReceiptAddress(c.Program, achievementID, recipient)
	if err != nil {
		return false, err
	}
	info, err := c.GetAccount(ctx, receipt)
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// GetAchievementType fetches and decodes the on-ledger catalog account.
// The second return is false when the achievement is not deployed.
func (c *Client) GetAchievementType(ctx context.Context, achievementID string) (*AchievementTypeAccount, bool, error) {
	addr, err := DeriveAchievementTypeAddress(c.Program, achievementID)
	if err != nil {
		return nil, false, err
	}
	info, err := c.GetAccount(ctx, addr)
	if err != nil {
		return nil, false, err
	}
	if info == nil {
		return nil, false, nil
	}
	account, err := DecodeAchievementTypeAccount(info.Data)
	if err != nil {
		return nil, false, err
	}
	return account, true, nil
}

// BatchGetReceipts resolves receipt existence for many achievements with
// a bounded number of round trips.
func (c *Client) BatchGetReceipts(ctx context.Context, achievementIDs []string, recipient Address) ([]bool, error) {
	if len(achievementIDs) == 0 {
		return nil, nil
	}
	addresses := make([]Address, len(achievementIDs))
	for i, id := range achievementIDs {
		addr, err := DeriveReceiptAddress(c.Program, id, recipient)
		if err != nil {
			return nil, err
		}
		addresses[i] = addr
	}

	infos, err := c.GetMultipleAccounts(ctx, addresses)
	if err != nil {
		return nil, err
	}
	exists := make([]bool, len(achievementIDs))
	for i, info := range infos {
		exists[i] = info != nil
	}
	return exists, nil
}

// BatchGetAchievementTypes fetches many catalog accounts; entries for
// undeployed achievements are nil.
func (c *Client) BatchGetAchievementTypes(ctx context.Context, achievementIDs []string) ([]*AchievementTypeAccount, error) {
	if len(achievementIDs) == 0 {
		return nil, nil
	}
	addresses := make([]Address, len(achievementIDs))
	for i, id := range achievementIDs {
		addr, err := DeriveAchievementTypeAddress(c.Program, id)
		if err != nil {
			return nil, err
		}
		addresses[i] = addr
	}

	infos, err := c.GetMultipleAccounts(ctx, addresses)
	if err != nil {
		return nil, err
	}
	accounts := make([]*AchievementTypeAccount, len(achievementIDs))
	for i, info := range infos {
		if info == nil {
			continue
		}
		account, err := DecodeAchievementTypeAccount(info.Data)
		if err != nil {
			return nil, err
		}
		accounts[i] = account
	}
	return accounts, nil
}

type rpcProgramAccountsResponse struct {
	Result []struct {
		Pubkey  string           `json:"pubkey"`
		Account *rpcAccountValue `json:"account"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// ScanHoldersOfMint runs the full program-account scan for every holder
// account of the mint, filtered server-side by an offset-0 memcmp on the
// mint address. Expensive; only the cached leaderboard aggregator should
// invoke it.
func (c *Client) ScanHoldersOfMint(ctx context.Context, mint, tokenProgram Address) ([]*TokenAccountRecord, error) {
	params := []any{
		tokenProgram.String(),
		map[string]any{
			"encoding":   programScanEncoding,
			"commitment": "confirmed",
			"filters": []any{
				map[string]any{
					"memcmp": map[string]any{
						"offset": tokenAccountMintOffset,
						"bytes":  mint.String(),
					},
				},
			},
		},
	}

	var resp rpcProgramAccountsResponse
	if err := c.call(ctx, "getProgramAccounts", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: rpc error (%d): %s", ErrLedgerUnavailable, resp.Error.Code, resp.Error.Message)
	}

	records := make([]*TokenAccountRecord, 0, len(resp.Result))
	for _, entry := range resp.Result {
		if entry.Account == nil {
			continue
		}
		pubkey, err := ParseAddress(entry.Pubkey)
		if err != nil {
			c.logger().Printf("scan: skipping account with bad pubkey %q: %v", entry.Pubkey, err)
			continue
		}
		info, err := entry.Account.accountInfo()
		if err != nil {
			c.logger().Printf("scan: skipping undecodable account %s: %v", entry.Pubkey, err)
			continue
		}
		record, err := DecodeTokenAccount(pubkey, info.Data)
		if err != nil {
			c.logger().Printf("scan: skipping malformed token account %s: %v", entry.Pubkey, err)
			continue
		}
		records = append(records, record)
	}
	rpcScanAccountsTotal.Add(float64(len(records)))
	return records, nil
}

type rpcGetLatestBlockhashResponse struct {
	Result *struct {
		Value struct {
			Blockhash string `json:"blockhash"`
		} `json:"value"`
	} `json:"result"`
	Error *rpcError `json:"error"`
}

// GetLatestBlockhash fetches the recent blockhash required by transaction
// assembly.
func (c *Client) GetLatestBlockhash(ctx context.Context) ([32]byte, error) {
	var zero [32]byte
	params := []any{map[string]any{"commitment": "confirmed"}}

	var resp rpcGetLatestBlockhashResponse
	if err := c.call(ctx, "getLatestBlockhash", params, &resp); err != nil {
		return zero, err
	}
	if resp.Error != nil {
		return zero, fmt.Errorf("%w: rpc error (%d): %s", ErrLedgerUnavailable, resp.Error.Code, resp.Error.Message)
	}
	if resp.Result == nil {
		return zero, fmt.Errorf("%w: getLatestBlockhash missing result", ErrLedgerUnavailable)
	}
	hash, err := ParseAddress(resp.Result.Value.Blockhash)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrLedgerUnavailable, err)
	}
	return hash, nil
}
