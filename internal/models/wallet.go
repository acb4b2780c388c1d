package models

import "time"

// RoundState is the betting panel's view of the chain and of the local flow.
type RoundState struct {
	Connected     bool   `json:"connected"`
	Account       string `json:"account,omitempty"`
	ChainID       string `json:"chain_id,omitempty"`
	ContractState string `json:"contract_state"`
	ContractError string `json:"contract_error,omitempty"`

	CurrentRound string  `json:"current_round,omitempty"`
	LastBetBlock *uint64 `json:"last_bet_block"`
	MinWaitBlock *uint64 `json:"min_wait_block"`
	CurrentBlock *uint64 `json:"current_block"`

	Cooldown         int      `json:"cooldown"`
	Spinning         bool     `json:"spinning"`
	CanBet           bool     `json:"can_bet"`
	CanBetBlock      bool     `json:"can_bet_block"`
	BlockWaitMessage string   `json:"block_wait_message,omitempty"`
	Reasons          []string `json:"reasons,omitempty"`
	LastError        string   `json:"last_error,omitempty"`

	AutoBet *AutoBetStatus `json:"auto_bet,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

type AutoBetStatus struct {
	Running   bool   `json:"running"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
	StoppedBy string `json:"stopped_by,omitempty"`
}
