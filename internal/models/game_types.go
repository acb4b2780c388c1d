package models

import (
	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/wheel"
)

const (
	MinSegments = 1
	// MaxSegments is bounded by the contract's uint8 segment argument.
	MaxSegments = 255

	MaxAutoBets = 100
)

type BetRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Risk     wheel.Risk      `json:"risk"`
	Segments int             `json:"segments"`
}

type AutoBetRequest struct {
	NumberOfBets int             `json:"number_of_bets" binding:"required,min=1,max=100"`
	Amount       decimal.Decimal `json:"amount"`
	Risk         wheel.Risk      `json:"risk"`
	Segments     int             `json:"segments"`
}

func (r *AutoBetRequest) Bet() *BetRequest {
	return &BetRequest{Amount: r.Amount, Risk: r.Risk, Segments: r.Segments}
}

// BetReceipt is returned as soon as the bet transaction is accepted; the
// result follows asynchronously.
type BetReceipt struct {
	TxHash      string          `json:"tx_hash"`
	ApprovalTx  string          `json:"approval_tx,omitempty"`
	RoundID     string          `json:"round_id"`
	Amount      decimal.Decimal `json:"amount"`
	AmountUnits string          `json:"amount_units"`
	Risk        wheel.Risk      `json:"risk"`
	Segments    int             `json:"segments"`
}

type PositionResponse struct {
	SegmentIndex int     `json:"segment_index"`
	Segments     int     `json:"segments"`
	SegmentAngle float64 `json:"segment_angle"`
	TargetAngle  float64 `json:"target_angle"`
}
