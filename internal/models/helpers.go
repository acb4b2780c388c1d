package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"fortune-wheel-backend/internal/wheel"
)

func GenerateGameID() string {
	return fmt.Sprintf("wheel_%s_%s",
		time.Now().Format("20060102"),
		uuid.NewString())
}

func GenerateSessionID() string {
	return uuid.NewString()
}

// Validate normalises the risk tier and checks the bet parameters.
func (br *BetRequest) Validate() error {
	if !br.Amount.IsPositive() {
		return fmt.Errorf("bet amount must be positive")
	}

	risk, err := wheel.ParseRisk(string(br.Risk))
	if err != nil {
		return err
	}
	br.Risk = risk

	if br.Segments < MinSegments || br.Segments > MaxSegments {
		return fmt.Errorf("segment count must be between %d and %d", MinSegments, MaxSegments)
	}

	return nil
}

func (ar *AutoBetRequest) Validate() error {
	if ar.NumberOfBets < 1 || ar.NumberOfBets > MaxAutoBets {
		return fmt.Errorf("number of bets must be between 1 and %d", MaxAutoBets)
	}
	bet := ar.Bet()
	if err := bet.Validate(); err != nil {
		return err
	}
	ar.Risk = bet.Risk
	return nil
}
