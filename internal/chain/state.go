package chain

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// State is the lifecycle of the contract handle.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateReady         State = "ready"
	StateError         State = "error"
)

var (
	ErrNotReady      = errors.New("contract is not ready")
	ErrNoProvider    = errors.New("wallet provider not detected")
	ErrNoChainID     = errors.New("Chain ID not available")
	ErrNoSigner      = errors.New("no signing account configured")
	ErrChainMismatch = errors.New("connected chain does not match deployment")
)

// Status is what the wallet connector reports about itself.
type Status struct {
	Connected bool           `json:"connected"`
	Account   common.Address `json:"account"`
	ChainID   *big.Int       `json:"chain_id,omitempty"`
}
