package wheel

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	ColorWin  = "#00E403"
	ColorLoss = "#333947"
)

var ErrInvalidResult = errors.New("invalid contract result")

// ContractResult is the raw getResult tuple.
type ContractResult struct {
	Multiplier   *big.Int
	SegmentIndex *big.Int
	IsWin        bool
}

type Outcome struct {
	Multiplier   decimal.Decimal
	SegmentIndex int
	IsWin        bool
}

func Decode(r ContractResult) (Outcome, error) {
	if r.Multiplier == nil || r.SegmentIndex == nil {
		return Outcome{}, fmt.Errorf("%w: missing fields", ErrInvalidResult)
	}
	if r.Multiplier.Sign() < 0 || !r.SegmentIndex.IsInt64() || r.SegmentIndex.Sign() < 0 {
		return Outcome{}, fmt.Errorf("%w: multiplier=%s segment=%s", ErrInvalidResult, r.Multiplier, r.SegmentIndex)
	}
	return Outcome{
		Multiplier:   MultiplierFromScaled(r.Multiplier),
		SegmentIndex: int(r.SegmentIndex.Int64()),
		IsWin:        r.IsWin,
	}, nil
}

func ResultColor(isWin bool) string {
	if isWin {
		return ColorWin
	}
	return ColorLoss
}
