package models

import "github.com/shopspring/decimal"

type GameStats struct {
	TotalGames     int             `json:"total_games"`
	Wins           int             `json:"wins"`
	Losses         int             `json:"losses"`
	TotalWagered   decimal.Decimal `json:"total_wagered"`
	TotalWon       decimal.Decimal `json:"total_won"`
	NetProfit      decimal.Decimal `json:"net_profit"`
	BestMultiplier decimal.Decimal `json:"best_multiplier"`
}

// Aggregate folds a game history into totals.
func Aggregate(games []*GameResult) *GameStats {
	stats := &GameStats{
		TotalWagered:   decimal.Zero,
		TotalWon:       decimal.Zero,
		BestMultiplier: decimal.Zero,
	}

	for _, g := range games {
		stats.TotalGames++
		stats.TotalWagered = stats.TotalWagered.Add(g.BetAmount)
		if g.IsWin {
			stats.Wins++
			stats.TotalWon = stats.TotalWon.Add(g.Payout)
		} else {
			stats.Losses++
		}
		if g.Multiplier.GreaterThan(stats.BestMultiplier) {
			stats.BestMultiplier = g.Multiplier
		}
	}

	stats.NetProfit = stats.TotalWon.Sub(stats.TotalWagered)
	return stats
}
