package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"fortune-wheel-backend/internal/wheel"
)

type Config struct {
	RPCURL     string
	PrivateKey string
	// ChainID is the chain the deployment lives on; zero accepts whatever
	// the node reports.
	ChainID      int64
	WheelAddress common.Address
	TokenAddress common.Address
}

// Connector is the wallet/chain connector: one RPC connection, one signing
// account, and the wheel and token contracts bound to it.
type Connector struct {
	log *slog.Logger

	rpc       *ethclient.Client
	key       *ecdsa.PrivateKey
	account   common.Address
	wheelAddr common.Address
	tokenAddr common.Address
	expected  *big.Int
	wheelABI  abi.ABI
	tokenABI  abi.ABI

	mu       sync.RWMutex
	chainID  *big.Int
	wheel    *bind.BoundContract
	token    *bind.BoundContract
	state    State
	stateErr string
}

// Dial builds a connector. An empty RPC URL yields a connector with no
// provider; Init then moves it into the error state.
func Dial(ctx context.Context, cfg Config, log *slog.Logger) (*Connector, error) {
	if log == nil {
		log = slog.Default()
	}

	wheelABI, err := abi.JSON(strings.NewReader(wheelABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse wheel abi: %w", err)
	}
	tokenABI, err := abi.JSON(strings.NewReader(tokenABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token abi: %w", err)
	}

	c := &Connector{
		log:       log.With("component", "chain"),
		wheelAddr: cfg.WheelAddress,
		tokenAddr: cfg.TokenAddress,
		wheelABI:  wheelABI,
		tokenABI:  tokenABI,
		state:     StateUninitialized,
	}
	if cfg.ChainID != 0 {
		c.expected = big.NewInt(cfg.ChainID)
	}

	if cfg.PrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid private key: %w", err)
		}
		c.key = key
		c.account = crypto.PubkeyToAddress(key.PublicKey)
	}

	if cfg.RPCURL != "" {
		rpc, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			c.log.Error("rpc dial failed", "url", cfg.RPCURL, "error", err)
		} else {
			c.rpc = rpc
		}
	}

	return c, nil
}

// Init moves the contract handle out of the uninitialized state. It is safe
// to call again after a failure.
func (c *Connector) Init(ctx context.Context) error {
	if c.rpc == nil {
		c.fail(ErrNoProvider.Error())
		return ErrNoProvider
	}

	id, err := c.rpc.ChainID(ctx)
	if err != nil || id == nil || id.Sign() == 0 {
		c.fail(ErrNoChainID.Error())
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNoChainID, err)
		}
		return ErrNoChainID
	}

	if c.expected != nil && c.expected.Cmp(id) != 0 {
		err := fmt.Errorf("%w: node reports %s, deployment expects %s", ErrChainMismatch, id, c.expected)
		c.fail(fmt.Sprintf("Contract initialization failed: %v", err))
		return err
	}

	c.mu.Lock()
	c.chainID = id
	c.wheel = bind.NewBoundContract(c.wheelAddr, c.wheelABI, c.rpc, c.rpc, c.rpc)
	c.token = bind.NewBoundContract(c.tokenAddr, c.tokenABI, c.rpc, c.rpc, c.rpc)
	c.state = StateReady
	c.stateErr = ""
	c.mu.Unlock()

	c.log.Info("contract initialized", "chain_id", id, "wheel", c.wheelAddr.Hex(), "token", c.tokenAddr.Hex())
	return nil
}

func (c *Connector) fail(msg string) {
	c.mu.Lock()
	c.state = StateError
	c.stateErr = msg
	c.mu.Unlock()
	c.log.Error("contract initialization failed", "reason", msg)
}

// State returns the lifecycle state and, in the error state, its message.
func (c *Connector) State() (State, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state, c.stateErr
}

func (c *Connector) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		Connected: c.rpc != nil && c.key != nil,
		Account:   c.account,
		ChainID:   c.chainID,
	}
}

func (c *Connector) Account() common.Address      { return c.account }
func (c *Connector) WheelAddress() common.Address { return c.wheelAddr }

func (c *Connector) Close() {
	if c.rpc != nil {
		c.rpc.Close()
	}
}

func (c *Connector) BlockNumber(ctx context.Context) (uint64, error) {
	if c.rpc == nil {
		return 0, ErrNoProvider
	}
	n, err := c.rpc.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get block number: %w", err)
	}
	return n, nil
}

func (c *Connector) contracts() (*bind.BoundContract, *bind.BoundContract, *big.Int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state != StateReady {
		return nil, nil, nil, ErrNotReady
	}
	return c.wheel, c.token, c.chainID, nil
}

func (c *Connector) callWheel(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	w, _, _, err := c.contracts()
	if err != nil {
		return nil, err
	}

	var out []interface{}
	opts := &bind.CallOpts{Context: ctx, From: c.account}
	if err := w.Call(opts, &out, method, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return out, nil
}

func bigAt(out []interface{}, i int) (*big.Int, error) {
	if i >= len(out) {
		return nil, fmt.Errorf("%w: expected at least %d values, got %d", wheel.ErrInvalidResult, i+1, len(out))
	}
	v, ok := out[i].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: value %d has type %T", wheel.ErrInvalidResult, i, out[i])
	}
	return v, nil
}

func (c *Connector) readBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	out, err := c.callWheel(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return bigAt(out, 0)
}

func (c *Connector) readUint64(ctx context.Context, method string) (uint64, error) {
	v, err := c.readBig(ctx, method)
	if err != nil {
		return 0, err
	}
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s: value %s overflows uint64", method, v)
	}
	return v.Uint64(), nil
}

func (c *Connector) CurrentRound(ctx context.Context) (*big.Int, error) {
	return c.readBig(ctx, "currentRound")
}

func (c *Connector) LastBetBlock(ctx context.Context) (uint64, error) {
	return c.readUint64(ctx, "lastBetBlock")
}

func (c *Connector) MinWaitBlock(ctx context.Context) (uint64, error) {
	return c.readUint64(ctx, "MIN_WAIT_BLOCK")
}

func (c *Connector) CheckUserAllowance(ctx context.Context, user common.Address) (*big.Int, error) {
	return c.readBig(ctx, "checkUserAllowance", user)
}

func (c *Connector) GetResult(ctx context.Context, roundID *big.Int) (wheel.ContractResult, error) {
	out, err := c.callWheel(ctx, "getResult", roundID)
	if err != nil {
		return wheel.ContractResult{}, err
	}
	if len(out) != 3 {
		return wheel.ContractResult{}, fmt.Errorf("%w: expected 3 values, got %d", wheel.ErrInvalidResult, len(out))
	}

	multiplier, err := bigAt(out, 0)
	if err != nil {
		return wheel.ContractResult{}, err
	}
	segment, err := bigAt(out, 1)
	if err != nil {
		return wheel.ContractResult{}, err
	}
	isWin, ok := out[2].(bool)
	if !ok {
		return wheel.ContractResult{}, fmt.Errorf("%w: win flag has type %T", wheel.ErrInvalidResult, out[2])
	}

	return wheel.ContractResult{Multiplier: multiplier, SegmentIndex: segment, IsWin: isWin}, nil
}

func (c *Connector) transactor(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	if c.key == nil {
		return nil, ErrNoSigner
	}
	opts, err := bind.NewKeyedTransactorWithChainID(c.key, chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	return opts, nil
}

// Approve lets spender withdraw up to amount of the betting token.
func (c *Connector) Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error) {
	_, token, chainID, err := c.contracts()
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := c.transactor(ctx, chainID)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := token.Transact(opts, "approve", spender, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("approve: %w", err)
	}
	c.log.Info("approve sent", "tx", tx.Hash().Hex(), "spender", spender.Hex(), "amount", amount)
	return tx.Hash(), nil
}

func (c *Connector) PlaceBet(ctx context.Context, risk uint8, segments uint8, amount *big.Int) (common.Hash, error) {
	w, _, chainID, err := c.contracts()
	if err != nil {
		return common.Hash{}, err
	}
	opts, err := c.transactor(ctx, chainID)
	if err != nil {
		return common.Hash{}, err
	}

	tx, err := w.Transact(opts, "placeBet", risk, segments, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("placeBet: %w", err)
	}
	c.log.Info("bet sent", "tx", tx.Hash().Hex(), "risk", risk, "segments", segments, "amount", amount)
	return tx.Hash(), nil
}
