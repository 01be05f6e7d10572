package testutil

import (
	"bytes"
	"crypto/ed25519"
	"sync"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/stake-disburser/pkg/solana"
)

func GenerateSolanaKeypair(t *testing.T) ed25519.PrivateKey {
	_, p, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return p
}

func GenerateSolanaKeys(t *testing.T, n int) []ed25519.PublicKey {
	keys := make([]ed25519.PublicKey, n)
	for i := 0; i < n; i++ {
		p, _, err := ed25519.GenerateKey(nil)
		require.NoError(t, err)
		keys[i] = p
	}
	return keys
}

// SubmitHandler is invoked for every signed transaction the SolanaClient
// accepts. Returning an error fails the submission outright. Returning a
// transaction error lands the transaction as failed.
type SubmitHandler func(client *SolanaClient, txn solana.Transaction) (*solana.TransactionError, error)

// SolanaClient is an in memory solana.Client. Program account scans apply
// filters and data slices the way an RPC node does, and return accounts in
// insertion order.
type SolanaClient struct {
	mu sync.Mutex

	keys      []string
	accounts  map[string]solana.AccountInfo
	statuses  map[solana.Signature]*solana.SignatureStatus
	submitted []solana.Transaction
	errors    map[string]error
	calls     map[string]int
	blockhash byte

	onSubmit SubmitHandler
}

func NewSolanaClient() *SolanaClient {
	return &SolanaClient{
		accounts: make(map[string]solana.AccountInfo),
		statuses: make(map[solana.Signature]*solana.SignatureStatus),
		errors:   make(map[string]error),
		calls:    make(map[string]int),
	}
}

// SetAccount creates or replaces the account at key.
func (c *SolanaClient) SetAccount(key ed25519.PublicKey, info solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setAccount(key, info)
}

func (c *SolanaClient) setAccount(key ed25519.PublicKey, info solana.AccountInfo) {
	encoded := base58.Encode(key)
	if _, ok := c.accounts[encoded]; !ok {
		c.keys = append(c.keys, encoded)
	}
	c.accounts[encoded] = info
}

// Account returns the account at key, if any.
func (c *SolanaClient) Account(key ed25519.PublicKey) (solana.AccountInfo, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.accounts[base58.Encode(key)]
	return info, ok
}

// OnSubmit installs the handler applied to submitted transactions.
func (c *SolanaClient) OnSubmit(handler SubmitHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSubmit = handler
}

// InduceError makes every subsequent call to method fail with err.
func (c *SolanaClient) InduceError(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors[method] = err
}

// Calls returns how many times method was invoked.
func (c *SolanaClient) Calls(method string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[method]
}

// Submitted returns every transaction accepted so far, in order.
func (c *SolanaClient) Submitted() []solana.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]solana.Transaction(nil), c.submitted...)
}

func (c *SolanaClient) enter(method string) error {
	c.calls[method]++
	return c.errors[method]
}

func (c *SolanaClient) GetAccountInfo(key ed25519.PublicKey, _ solana.Commitment) (solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetAccountInfo"); err != nil {
		return solana.AccountInfo{}, err
	}

	info, ok := c.accounts[base58.Encode(key)]
	if !ok {
		return solana.AccountInfo{}, solana.ErrNoAccountInfo
	}
	return info, nil
}

func (c *SolanaClient) GetBalance(key ed25519.PublicKey) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetBalance"); err != nil {
		return 0, err
	}

	info, ok := c.accounts[base58.Encode(key)]
	if !ok {
		return 0, solana.ErrNoBalance
	}
	return info.Lamports, nil
}

func (c *SolanaClient) GetLatestBlockhash() (solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetLatestBlockhash"); err != nil {
		return solana.Blockhash{}, err
	}

	c.blockhash++
	return solana.Blockhash{c.blockhash}, nil
}

func (c *SolanaClient) GetProgramAccounts(program ed25519.PublicKey, config solana.ProgramAccountsConfig) ([]solana.KeyedAccount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetProgramAccounts"); err != nil {
		return nil, err
	}

	var res []solana.KeyedAccount
	for _, encoded := range c.keys {
		info := c.accounts[encoded]
		if !bytes.Equal(info.Owner, program) {
			continue
		}

		matches := true
		for _, f := range config.Filters {
			if !f.Matches(info.Data) {
				matches = false
				break
			}
		}
		if !matches {
			continue
		}

		data := info.Data
		if config.DataSlice != nil {
			data = config.DataSlice.Apply(data)
		}

		key, _ := base58.Decode(encoded)
		res = append(res, solana.KeyedAccount{
			PublicKey: key,
			Account: solana.AccountInfo{
				Data:       append([]byte(nil), data...),
				Owner:      info.Owner,
				Lamports:   info.Lamports,
				Executable: info.Executable,
			},
		})
	}

	return res, nil
}

func (c *SolanaClient) SubmitTransaction(txn solana.Transaction, _ solana.Commitment) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("SubmitTransaction"); err != nil {
		return solana.Signature{}, err
	}

	if len(txn.Signatures) == 0 || !txn.IsSigned() {
		return solana.Signature{}, errors.New("transaction is not signed")
	}
	if len(txn.Marshal()) > solana.MaxTransactionSize {
		return txn.Signature(), solana.ErrTransactionTooLarge
	}

	message := txn.Message.Marshal()
	for i, sig := range txn.Signatures {
		if !ed25519.Verify(txn.Message.Accounts[i], message, sig[:]) {
			return txn.Signature(), solana.NewTransactionError(solana.TransactionErrorSignatureFailure)
		}
	}

	var txErr *solana.TransactionError
	if c.onSubmit != nil {
		var err error
		if txErr, err = c.onSubmit(c, txn); err != nil {
			return txn.Signature(), err
		}
	}

	c.submitted = append(c.submitted, txn)
	c.statuses[txn.Signature()] = &solana.SignatureStatus{
		Slot:               uint64(len(c.submitted)),
		ErrorResult:        txErr,
		ConfirmationStatus: "finalized",
	}

	return txn.Signature(), nil
}

func (c *SolanaClient) GetSignatureStatus(sig solana.Signature, _ solana.Commitment) (*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetSignatureStatus"); err != nil {
		return nil, err
	}

	status, ok := c.statuses[sig]
	if !ok {
		return nil, solana.ErrSignatureNotFound
	}
	return status, nil
}

func (c *SolanaClient) GetSignatureStatuses(sigs []solana.Signature) ([]*solana.SignatureStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enter("GetSignatureStatuses"); err != nil {
		return nil, err
	}

	res := make([]*solana.SignatureStatus, len(sigs))
	for i, sig := range sigs {
		res[i] = c.statuses[sig]
	}
	return res, nil
}

// ApplyAccount is a convenience for SubmitHandlers that need to mutate state
// while the client lock is held.
func (c *SolanaClient) ApplyAccount(key ed25519.PublicKey, info solana.AccountInfo) {
	c.setAccount(key, info)
}

// LookupAccount is the lock free counterpart of Account for SubmitHandlers.
func (c *SolanaClient) LookupAccount(key ed25519.PublicKey) (solana.AccountInfo, bool) {
	info, ok := c.accounts[base58.Encode(key)]
	return info, ok
}
