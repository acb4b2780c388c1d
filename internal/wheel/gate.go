package wheel

import "github.com/shopspring/decimal"

const BlockWaitMessage = "Please wait for the next block to be mined before placing another bet."

// Gate is the snapshot of everything that decides whether a bet may be sent.
// Block fields are nil until they have been read from the chain at least once.
type Gate struct {
	Connected     bool
	ContractReady bool
	ContractError string
	BetAmount     decimal.Decimal
	Spinning      bool
	Cooldown      int

	LastBetBlock *uint64
	MinWaitBlock *uint64
	CurrentBlock *uint64
}

// CanBetBlock reports whether enough blocks have passed since the last bet.
// Unknown block data never blocks betting; the contract enforces the wait.
func (g Gate) CanBetBlock() bool {
	if g.LastBetBlock == nil || g.MinWaitBlock == nil || g.CurrentBlock == nil {
		return true
	}
	cur, last := *g.CurrentBlock, *g.LastBetBlock
	return cur > last && cur-last > *g.MinWaitBlock
}

func (g Gate) CanBet() bool {
	return len(g.Reasons()) == 0
}

// Reasons lists every failing condition, in a stable order.
func (g Gate) Reasons() []string {
	var reasons []string
	if !g.Connected {
		reasons = append(reasons, "wallet not connected")
	}
	if !g.ContractReady {
		reasons = append(reasons, "contract not ready")
	}
	if g.ContractError != "" {
		reasons = append(reasons, g.ContractError)
	}
	if !g.BetAmount.IsPositive() {
		reasons = append(reasons, "bet amount must be positive")
	}
	if g.Spinning {
		reasons = append(reasons, "spin in progress")
	}
	if g.Cooldown > 0 {
		reasons = append(reasons, "cooldown active")
	}
	if !g.CanBetBlock() {
		reasons = append(reasons, BlockWaitMessage)
	}
	return reasons
}

func (g Gate) WaitMessage() string {
	if g.CanBetBlock() {
		return ""
	}
	return BlockWaitMessage
}
