package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/chain"
	"fortune-wheel-backend/internal/config"
	"fortune-wheel-backend/internal/models"
	"fortune-wheel-backend/internal/wheel"
)

// WheelChain is the slice of the wallet connector the engine relies on.
type WheelChain interface {
	Init(ctx context.Context) error
	State() (chain.State, string)
	Status() chain.Status
	WheelAddress() common.Address

	BlockNumber(ctx context.Context) (uint64, error)
	CurrentRound(ctx context.Context) (*big.Int, error)
	LastBetBlock(ctx context.Context) (uint64, error)
	MinWaitBlock(ctx context.Context) (uint64, error)
	GetResult(ctx context.Context, roundID *big.Int) (wheel.ContractResult, error)
	CheckUserAllowance(ctx context.Context, user common.Address) (*big.Int, error)

	Approve(ctx context.Context, spender common.Address, amount *big.Int) (common.Hash, error)
	PlaceBet(ctx context.Context, risk uint8, segments uint8, amount *big.Int) (common.Hash, error)
}

type GameStore interface {
	SaveGame(ctx context.Context, game *models.GameResult) error
	GetGameHistory(ctx context.Context, account string, limit int64) ([]*models.GameResult, error)
}

const (
	stageApprove = "approve"
	stageBet     = "bet"

	resultFetchFailed = "Failed to fetch contract result. Please try again later."
	cooldownPoll      = 500 * time.Millisecond
)

var (
	ErrInvalidBet     = errors.New("invalid bet")
	ErrBetRefused     = errors.New("bet refused")
	ErrSpinInProgress = errors.New("spin in progress")
	ErrAutoBetRunning = errors.New("auto bet already running")
	ErrEngineClosed   = errors.New("engine closed")
)

// BetError is a failed bet attempt. Message is what the player sees.
type BetError struct {
	Message string
	Stage   string
	Err     error
}

func (e *BetError) Error() string { return e.Message }
func (e *BetError) Unwrap() error { return e.Err }

// WheelEngine drives the bet flow against the wheel contract for the
// connector's account and keeps the state the betting panel renders.
type WheelEngine struct {
	chain  WheelChain
	store  GameStore
	timing config.Timing
	log    *slog.Logger
	sleep  func(context.Context, time.Duration) error

	mu           sync.Mutex
	broadcaster  Broadcaster
	currentRound *big.Int
	lastBetBlock *uint64
	minWaitBlock *uint64
	currentBlock *uint64
	cooldown     int
	cooling      bool
	spinning     bool
	submitting   bool
	lastResult   *models.GameResult
	lastError    string
	auto         *models.AutoBetStatus
	stopAuto     context.CancelFunc
	closed       bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type pendingBet struct {
	req     models.BetRequest
	units   *big.Int
	round   *big.Int
	account string
	txHash  string
}

func NewWheelEngine(c WheelChain, store GameStore, timing config.Timing, log *slog.Logger) *WheelEngine {
	if log == nil {
		log = slog.Default()
	}
	def := config.DefaultTiming()
	if timing.CooldownTick <= 0 {
		timing.CooldownTick = def.CooldownTick
	}
	if timing.BlockPollInterval <= 0 {
		timing.BlockPollInterval = def.BlockPollInterval
	}
	if timing.MaxRetries < 0 {
		timing.MaxRetries = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &WheelEngine{
		chain:       c,
		store:       store,
		timing:      timing,
		log:         log.With("component", "wheel"),
		sleep:       sleepCtx,
		broadcaster: nopBroadcaster{},
		ctx:         ctx,
		cancel:      cancel,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *WheelEngine) SetBroadcaster(b Broadcaster) {
	if b == nil {
		b = nopBroadcaster{}
	}
	e.mu.Lock()
	e.broadcaster = b
	e.mu.Unlock()
}

func (e *WheelEngine) getBroadcaster() Broadcaster {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.broadcaster
}

// Start initialises the contract handle, reads the current round and starts
// the block-data poller. Initialisation failures leave the engine running
// with betting disabled.
func (e *WheelEngine) Start(ctx context.Context) {
	if err := e.chain.Init(ctx); err != nil {
		e.log.Error("contract initialization failed", "error", err)
	}
	e.refreshRound(ctx)
	e.spawn(e.runBlockPoller)
}

// Close stops every poller and pending result fetch.
func (e *WheelEngine) Close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	e.wg.Wait()
}

func (e *WheelEngine) spawn(fn func()) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
	return true
}

func (e *WheelEngine) Account() string {
	return e.chain.Status().Account.Hex()
}

func (e *WheelEngine) contractReady() bool {
	state, _ := e.chain.State()
	return state == chain.StateReady
}

func (e *WheelEngine) runBlockPoller() {
	e.pollBlockData(e.ctx)

	ticker := time.NewTicker(e.timing.BlockPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.pollBlockData(e.ctx)
		}
	}
}

// pollBlockData refreshes the block gate inputs. A failed read keeps the
// values already known; the next tick tries again. While the contract is not
// ready every tick retries its initialization first.
func (e *WheelEngine) pollBlockData(ctx context.Context) {
	if !e.contractReady() {
		if err := e.chain.Init(ctx); err != nil {
			e.log.Debug("contract still not ready", "error", err)
			return
		}
		e.log.Info("contract initialized after retry")
		e.refreshRound(ctx)
	}

	last, err := e.chain.LastBetBlock(ctx)
	if err != nil {
		e.log.Warn("failed to fetch last bet block", "error", err)
		return
	}
	e.mu.Lock()
	e.lastBetBlock = &last
	e.mu.Unlock()

	minWait, err := e.chain.MinWaitBlock(ctx)
	if err != nil {
		e.log.Warn("failed to fetch min wait block", "error", err)
		return
	}
	e.mu.Lock()
	e.minWaitBlock = &minWait
	e.mu.Unlock()

	block, err := e.chain.BlockNumber(ctx)
	if err != nil {
		e.log.Warn("failed to fetch block number", "error", err)
		return
	}
	e.mu.Lock()
	e.currentBlock = &block
	e.mu.Unlock()

	e.publishState()
}

func (e *WheelEngine) refreshRound(ctx context.Context) {
	if !e.contractReady() {
		return
	}
	round, err := e.chain.CurrentRound(ctx)
	if err != nil {
		e.log.Warn("failed to refresh current round", "error", err)
		return
	}
	e.mu.Lock()
	e.currentRound = round
	e.mu.Unlock()
}

func (e *WheelEngine) gateLocked(amount decimal.Decimal, status chain.Status, state chain.State, stateErr string) wheel.Gate {
	return wheel.Gate{
		Connected:     status.Connected,
		ContractReady: state == chain.StateReady,
		ContractError: stateErr,
		BetAmount:     amount,
		Spinning:      e.spinning || e.submitting,
		Cooldown:      e.cooldown,
		LastBetBlock:  e.lastBetBlock,
		MinWaitBlock:  e.minWaitBlock,
		CurrentBlock:  e.currentBlock,
	}
}

// State snapshots the round state, evaluating the gate for amount.
func (e *WheelEngine) State(amount decimal.Decimal) *models.RoundState {
	status := e.chain.Status()
	state, stateErr := e.chain.State()

	e.mu.Lock()
	defer e.mu.Unlock()

	gate := e.gateLocked(amount, status, state, stateErr)
	rs := &models.RoundState{
		Connected:        status.Connected,
		Account:          status.Account.Hex(),
		ContractState:    string(state),
		ContractError:    stateErr,
		LastBetBlock:     e.lastBetBlock,
		MinWaitBlock:     e.minWaitBlock,
		CurrentBlock:     e.currentBlock,
		Cooldown:         e.cooldown,
		Spinning:         e.spinning,
		CanBet:           gate.CanBet(),
		CanBetBlock:      gate.CanBetBlock(),
		BlockWaitMessage: gate.WaitMessage(),
		Reasons:          gate.Reasons(),
		LastError:        e.lastError,
		UpdatedAt:        time.Now(),
	}
	if status.ChainID != nil {
		rs.ChainID = status.ChainID.String()
	}
	if e.currentRound != nil {
		rs.CurrentRound = e.currentRound.String()
	}
	if e.auto != nil {
		auto := *e.auto
		rs.AutoBet = &auto
	}
	return rs
}

func (e *WheelEngine) publishState() {
	e.getBroadcaster().BroadcastState(e.State(decimal.NewFromInt(1)))
}

func (e *WheelEngine) reportError(msg string) {
	e.mu.Lock()
	e.lastError = msg
	e.mu.Unlock()

	e.log.Warn("bet attempt failed", "message", msg)
	e.getBroadcaster().BroadcastError(msg)
	e.publishState()
}

// beginBet checks the gate and reserves the engine for one submission.
// Auto bets skip the block-wait check: they wait out the cooldown
// themselves and the contract enforces the block wait.
func (e *WheelEngine) beginBet(req *models.BetRequest, auto bool) (*pendingBet, error) {
	status := e.chain.Status()
	state, stateErr := e.chain.State()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if !auto && e.auto != nil && e.auto.Running {
		return nil, ErrAutoBetRunning
	}

	gate := e.gateLocked(req.Amount, status, state, stateErr)
	if auto {
		gate.LastBetBlock, gate.MinWaitBlock, gate.CurrentBlock = nil, nil, nil
	}
	if reasons := gate.Reasons(); len(reasons) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrBetRefused, strings.Join(reasons, "; "))
	}

	round := new(big.Int)
	if e.currentRound != nil {
		round.Set(e.currentRound)
	}

	e.submitting = true
	return &pendingBet{
		req:     *req,
		units:   wheel.ToBaseUnits(req.Amount),
		round:   round,
		account: status.Account.Hex(),
	}, nil
}

// approveTokens makes sure the wheel contract may pull amount from the
// account, sending an approval only when the allowance falls short.
func (e *WheelEngine) approveTokens(ctx context.Context, amount *big.Int) (string, error) {
	account := e.chain.Status().Account

	allowance, err := e.chain.CheckUserAllowance(ctx, account)
	if err != nil {
		return "", fmt.Errorf("failed to check allowance: %w", err)
	}
	if allowance != nil && allowance.Cmp(amount) >= 0 {
		e.log.Debug("sufficient allowance, no need to approve", "allowance", allowance, "amount", amount)
		return "", nil
	}

	e.log.Info("insufficient allowance, sending approval", "allowance", allowance, "amount", amount)
	hash, err := e.chain.Approve(ctx, e.chain.WheelAddress(), amount)
	if err != nil {
		return "", fmt.Errorf("token approval failed: %w", err)
	}
	return hash.Hex(), nil
}

// submit sends the approval (if needed) and the bet. Neither transaction is
// retried.
func (e *WheelEngine) submit(ctx context.Context, p *pendingBet) (*models.BetReceipt, *BetError) {
	approvalTx, err := e.approveTokens(ctx, p.units)
	if err != nil {
		e.endSubmit(false)
		return nil, &BetError{Message: "Bet failed: " + err.Error(), Stage: stageApprove, Err: err}
	}

	hash, err := e.chain.PlaceBet(ctx, p.req.Risk.Code(), uint8(p.req.Segments), p.units)
	if err != nil {
		e.endSubmit(false)
		return nil, &BetError{Message: "Transaction failed: " + err.Error(), Stage: stageBet, Err: err}
	}
	p.txHash = hash.Hex()

	e.endSubmit(true)
	e.startCooldown(e.timing.CooldownSeconds)

	receipt := &models.BetReceipt{
		TxHash:      p.txHash,
		ApprovalTx:  approvalTx,
		RoundID:     p.round.String(),
		Amount:      p.req.Amount,
		AmountUnits: p.units.String(),
		Risk:        p.req.Risk,
		Segments:    p.req.Segments,
	}
	e.log.Info("bet placed", "tx", receipt.TxHash, "round", receipt.RoundID, "amount", receipt.Amount)
	e.getBroadcaster().BroadcastSpinStarted(receipt)
	return receipt, nil
}

func (e *WheelEngine) endSubmit(spinning bool) {
	e.mu.Lock()
	e.submitting = false
	e.spinning = spinning
	if spinning {
		e.lastError = ""
	}
	e.mu.Unlock()
}

func (e *WheelEngine) endSpin() {
	e.mu.Lock()
	e.spinning = false
	e.mu.Unlock()
}

func (e *WheelEngine) startCooldown(seconds int) {
	if seconds <= 0 {
		return
	}

	e.mu.Lock()
	e.cooldown = seconds
	if e.cooling {
		e.mu.Unlock()
		return
	}
	e.cooling = true
	e.mu.Unlock()

	if !e.spawn(e.runCooldown) {
		e.mu.Lock()
		e.cooling = false
		e.mu.Unlock()
	}
}

func (e *WheelEngine) runCooldown() {
	ticker := time.NewTicker(e.timing.CooldownTick)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			e.mu.Lock()
			e.cooling = false
			e.mu.Unlock()
			return
		case <-ticker.C:
			e.mu.Lock()
			if e.cooldown > 0 {
				e.cooldown--
			}
			done := e.cooldown == 0
			if done {
				e.cooling = false
			}
			e.mu.Unlock()

			e.publishState()
			if done {
				return
			}
		}
	}
}

func (e *WheelEngine) waitCooldown(ctx context.Context) error {
	for {
		e.mu.Lock()
		cd := e.cooldown
		e.mu.Unlock()
		if cd == 0 {
			return nil
		}
		if err := sleepCtx(ctx, cooldownPoll); err != nil {
			return err
		}
	}
}

// PlaceBet runs one manual bet. It returns once the bet transaction has
// been accepted; the result is resolved in the background.
func (e *WheelEngine) PlaceBet(ctx context.Context, req *models.BetRequest) (*models.BetReceipt, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}

	p, err := e.beginBet(req, false)
	if err != nil {
		return nil, err
	}

	receipt, berr := e.submit(ctx, p)
	if berr != nil {
		e.reportError(berr.Message)
		return nil, berr
	}

	e.spawn(func() {
		if _, err := e.resolve(e.ctx, p); err != nil && e.ctx.Err() == nil {
			e.reportError(resultFetchFailed)
		}
	})

	return receipt, nil
}

// resolve waits for the round to settle, fetches its result and stores it.
// The current round is re-read afterwards whatever the outcome.
func (e *WheelEngine) resolve(ctx context.Context, p *pendingBet) (*models.GameResult, error) {
	defer e.refreshRound(ctx)

	if err := e.sleep(ctx, e.timing.ResultDelay); err != nil {
		e.endSpin()
		return nil, err
	}

	outcome, err := e.fetchResultWithRetry(ctx, p.round, p.req.Segments)
	if err != nil {
		e.endSpin()
		e.log.Error("contract result unavailable", "round", p.round, "error", err)
		return nil, err
	}

	angle, err := wheel.TargetAngle(outcome.SegmentIndex, p.req.Segments)
	if err != nil {
		e.endSpin()
		return nil, err
	}

	result := newGameResult(p, outcome, angle)
	e.log.Info("wheel set to contract result",
		"round", result.RoundID,
		"segment", result.SegmentIndex,
		"multiplier", result.Multiplier,
		"target_angle", angle)

	if err := e.sleep(ctx, e.timing.AnimationDuration); err != nil {
		e.endSpin()
		return nil, err
	}

	e.mu.Lock()
	e.spinning = false
	e.lastResult = result
	e.mu.Unlock()

	if e.store != nil {
		if err := e.store.SaveGame(ctx, result); err != nil {
			e.log.Error("failed to save game", "id", result.ID, "error", err)
		}
	}

	e.getBroadcaster().BroadcastResult(result)
	e.publishState()
	return result, nil
}

// fetchResultWithRetry makes one attempt plus up to MaxRetries retries,
// pausing RetryPause between them.
func (e *WheelEngine) fetchResultWithRetry(ctx context.Context, round *big.Int, segments int) (wheel.Outcome, error) {
	var lastErr error
	for attempt := 0; attempt <= e.timing.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := e.sleep(ctx, e.timing.RetryPause); err != nil {
				return wheel.Outcome{}, err
			}
		}

		outcome, err := e.fetchResult(ctx, round, segments)
		if err == nil {
			return outcome, nil
		}
		lastErr = err
		e.log.Warn("contract result not available", "round", round, "attempt", attempt+1, "error", err)
	}

	return wheel.Outcome{}, fmt.Errorf("round %s: no result after %d retries: %w", round, e.timing.MaxRetries, lastErr)
}

func (e *WheelEngine) fetchResult(ctx context.Context, round *big.Int, segments int) (wheel.Outcome, error) {
	if !e.contractReady() {
		return wheel.Outcome{}, chain.ErrNotReady
	}

	raw, err := e.chain.GetResult(ctx, round)
	if err != nil {
		return wheel.Outcome{}, err
	}

	outcome, err := wheel.Decode(raw)
	if err != nil {
		return wheel.Outcome{}, err
	}
	if outcome.SegmentIndex >= segments {
		return wheel.Outcome{}, fmt.Errorf("%w: segment %d outside a %d-segment wheel",
			wheel.ErrInvalidResult, outcome.SegmentIndex, segments)
	}
	return outcome, nil
}

func newGameResult(p *pendingBet, o wheel.Outcome, angle float64) *models.GameResult {
	payout := wheel.Payout(o.Multiplier, p.req.Amount, o.IsWin)

	return &models.GameResult{
		ID:               models.GenerateGameID(),
		Account:          p.account,
		RoundID:          p.round.String(),
		TxHash:           p.txHash,
		Risk:             p.req.Risk,
		Segments:         p.req.Segments,
		SegmentIndex:     o.SegmentIndex,
		TargetAngle:      angle,
		Multiplier:       o.Multiplier,
		MultiplierScaled: wheel.ScaledMultiplier(o.Multiplier).String(),
		IsWin:            o.IsWin,
		BetAmount:        p.req.Amount,
		BetAmountUnits:   p.units.String(),
		Payout:           wheel.FromBaseUnits(payout),
		PayoutUnits:      payout.String(),
		Color:            wheel.ResultColor(o.IsWin),
		CreatedAt:        time.Now(),
	}
}

// AutoBet starts a background run of sequential bets. Each bet waits for
// the cooldown and for its own result before the next one is sent.
func (e *WheelEngine) AutoBet(req *models.AutoBetRequest) error {
	if err := req.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBet, err)
	}

	e.mu.Lock()
	if e.spinning || e.submitting {
		e.mu.Unlock()
		return ErrSpinInProgress
	}
	if e.auto != nil && e.auto.Running {
		e.mu.Unlock()
		return ErrAutoBetRunning
	}
	ctx, cancel := context.WithCancel(e.ctx)
	e.stopAuto = cancel
	e.auto = &models.AutoBetStatus{Running: true, Total: req.NumberOfBets}
	e.mu.Unlock()

	run := *req
	if !e.spawn(func() {
		defer cancel()
		e.runAutoBet(ctx, &run)
	}) {
		cancel()
		e.finishAuto("")
		return ErrEngineClosed
	}
	return nil
}

func (e *WheelEngine) runAutoBet(ctx context.Context, req *models.AutoBetRequest) {
	bet := req.Bet()

	for i := 0; i < req.NumberOfBets; i++ {
		if err := e.waitCooldown(ctx); err != nil {
			e.finishAuto("stopped")
			return
		}

		p, err := e.beginBet(bet, true)
		if err != nil {
			e.failAuto(fmt.Sprintf("Auto bet failed: %v", err))
			return
		}

		if _, berr := e.submit(ctx, p); berr != nil {
			msg := "Auto bet failed: " + berr.Err.Error()
			if berr.Stage == stageBet {
				msg = fmt.Sprintf("Auto bet failed at bet #%d: %v", i+1, berr.Err)
			}
			e.failAuto(msg)
			return
		}

		if _, err := e.resolve(ctx, p); err != nil {
			if ctx.Err() != nil {
				e.finishAuto("stopped")
				return
			}
			e.failAuto(fmt.Sprintf("Auto bet #%d: Failed to fetch contract result. Stopping auto-bet.", i+1))
			return
		}

		e.mu.Lock()
		e.auto.Completed++
		e.mu.Unlock()
	}

	e.finishAuto("")
}

func (e *WheelEngine) finishAuto(reason string) {
	e.mu.Lock()
	if e.auto != nil {
		e.auto.Running = false
		e.auto.StoppedBy = reason
	}
	e.stopAuto = nil
	e.mu.Unlock()
	e.publishState()
}

func (e *WheelEngine) failAuto(msg string) {
	e.finishAuto("error")
	e.reportError(msg)
}

// StopAutoBet cancels a running auto bet. A spin already sent still
// resolves on chain; only the local wait is abandoned.
func (e *WheelEngine) StopAutoBet() bool {
	e.mu.Lock()
	stop := e.stopAuto
	e.mu.Unlock()

	if stop == nil {
		return false
	}
	stop()
	return true
}

func (e *WheelEngine) LastResult() *models.GameResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// DismissResult clears the last result once the player has seen it.
func (e *WheelEngine) DismissResult() {
	e.mu.Lock()
	e.lastResult = nil
	e.mu.Unlock()
}

func (e *WheelEngine) History(ctx context.Context, limit int64) ([]*models.GameResult, error) {
	if e.store == nil {
		return []*models.GameResult{}, nil
	}
	return e.store.GetGameHistory(ctx, e.Account(), limit)
}

func (e *WheelEngine) Stats(ctx context.Context) (*models.GameStats, error) {
	games, err := e.History(ctx, MaxHistory)
	if err != nil {
		return nil, err
	}
	return models.Aggregate(games), nil
}
