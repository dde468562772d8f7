package models

import "time"

// RewardsDocument is the persisted ledger state. All maps are keyed by
// credential digest, never by the raw credential.
type RewardsDocument struct {
	Wallets map[string]string   `json:"wallets"`
	Claims  map[string]float64  `json:"claims"`
	Pending []PendingSettlement `json:"pending"`
}

// NewRewardsDocument returns an empty, fully initialized ledger document.
func NewRewardsDocument() *RewardsDocument {
	return &RewardsDocument{
		Wallets: make(map[string]string),
		Claims:  make(map[string]float64),
		Pending: []PendingSettlement{},
	}
}

// PendingSettlement is a claim waiting for the external settlement
// collaborator. It stays queued until a transfer attempt succeeds.
type PendingSettlement struct {
	ID       string    `json:"id"`
	Identity string    `json:"identity"` // credential digest
	Wallet   string    `json:"wallet"`
	Amount   float64   `json:"amount"`
	QueuedAt time.Time `json:"queued_at"`
}

// RewardsView is the balance summary returned to an agent.
type RewardsView struct {
	AgentNumber   int     `json:"agent_num"`
	Contributions int     `json:"contributions"`
	Earned        float64 `json:"earned"`
	Claimed       float64 `json:"claimed"`
	Available     float64 `json:"available"`
	Wallet        string  `json:"wallet,omitempty"`
}
