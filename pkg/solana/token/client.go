package token

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/stake-disburser/pkg/solana"
)

var (
	// ErrAccountNotFound indicates there is no account at the address.
	ErrAccountNotFound = errors.New("account not found")
	// ErrInvalidTokenAccount indicates the account exists but is not an
	// initialized token account of the client's mint.
	ErrInvalidTokenAccount = errors.New("invalid token account")
)

// Client reads token accounts of a single mint.
type Client struct {
	sc   solana.Client
	mint ed25519.PublicKey
}

func NewClient(sc solana.Client, mint ed25519.PublicKey) *Client {
	return &Client{
		sc:   sc,
		mint: mint,
	}
}

func (c *Client) Mint() ed25519.PublicKey {
	return c.mint
}

// GetAccount loads and validates the token account at address.
func (c *Client) GetAccount(address ed25519.PublicKey, commitment solana.Commitment) (*Account, error) {
	info, err := c.sc.GetAccountInfo(address, commitment)
	if errors.Is(err, solana.ErrNoAccountInfo) {
		return nil, ErrAccountNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "failed to get account info")
	}

	return c.decode(info)
}

// GetBalance returns the token balance held at address.
func (c *Client) GetBalance(address ed25519.PublicKey, commitment solana.Commitment) (uint64, error) {
	account, err := c.GetAccount(address, commitment)
	if err != nil {
		return 0, err
	}
	return account.Amount, nil
}

func (c *Client) decode(info solana.AccountInfo) (*Account, error) {
	if !bytes.Equal(info.Owner, ProgramKey) {
		return nil, ErrInvalidTokenAccount
	}

	var account Account
	if err := account.Unmarshal(info.Data); err != nil {
		return nil, errors.Wrap(ErrInvalidTokenAccount, err.Error())
	}

	if account.State == AccountStateUninitialized || !bytes.Equal(c.mint, account.Mint) {
		return nil, ErrInvalidTokenAccount
	}

	return &account, nil
}
