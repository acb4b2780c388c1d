package services

import "fortune-wheel-backend/internal/models"

// Broadcaster pushes engine events to connected clients.
type Broadcaster interface {
	BroadcastState(state *models.RoundState)
	BroadcastSpinStarted(receipt *models.BetReceipt)
	BroadcastResult(result *models.GameResult)
	BroadcastError(message string)
}

type nopBroadcaster struct{}

func (nopBroadcaster) BroadcastState(*models.RoundState)       {}
func (nopBroadcaster) BroadcastSpinStarted(*models.BetReceipt) {}
func (nopBroadcaster) BroadcastResult(*models.GameResult)      {}
func (nopBroadcaster) BroadcastError(string)                   {}
