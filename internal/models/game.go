package models

import (
	"time"

	"github.com/shopspring/decimal"

	"fortune-wheel-backend/internal/wheel"
)

// GameResult is one resolved spin, as shown to the player and kept in history.
// Integer amounts are base units (18 decimals) rendered as strings.
type GameResult struct {
	ID      string `json:"id" redis:"id"`
	Account string `json:"account" redis:"account"`
	RoundID string `json:"round_id" redis:"round_id"`
	TxHash  string `json:"tx_hash" redis:"tx_hash"`

	Risk         wheel.Risk `json:"risk" redis:"risk"`
	Segments     int        `json:"segments" redis:"segments"`
	SegmentIndex int        `json:"segment_index" redis:"segment_index"`
	TargetAngle  float64    `json:"target_angle" redis:"target_angle"`

	Multiplier       decimal.Decimal `json:"multiplier" redis:"multiplier"`
	MultiplierScaled string          `json:"multiplier_scaled" redis:"multiplier_scaled"`
	IsWin            bool            `json:"is_win" redis:"is_win"`
	BetAmount        decimal.Decimal `json:"bet_amount" redis:"bet_amount"`
	BetAmountUnits   string          `json:"bet_amount_units" redis:"bet_amount_units"`
	Payout           decimal.Decimal `json:"payout" redis:"payout"`
	PayoutUnits      string          `json:"payout_units" redis:"payout_units"`
	Color            string          `json:"color" redis:"color"`

	CreatedAt time.Time `json:"created_at" redis:"created_at"`
}
