package services

import (
	"log"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"uploade/internal/models"
	"uploade/internal/storage"
)

var walletPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// RewardsService is the per-identity credit ledger. Earned credit is always
// derived live from the index's accepted-entry counts, so the ledger cannot
// drift from actual contributions; only wallets, claims, and the pending
// settlement queue are stored.
type RewardsService struct {
	mu         sync.Mutex
	doc        *models.RewardsDocument
	store      *storage.Store
	identities *IdentityService
	index      *IndexService

	perEntry    float64
	minContribs int
}

// NewRewardsService wraps a loaded (or fresh) ledger document.
func NewRewardsService(doc *models.RewardsDocument, store *storage.Store, identities *IdentityService, index *IndexService, perEntry float64, minContribs int) *RewardsService {
	if doc == nil {
		doc = models.NewRewardsDocument()
	}
	return &RewardsService{
		doc:         doc,
		store:       store,
		identities:  identities,
		index:       index,
		perEntry:    perEntry,
		minContribs: minContribs,
	}
}

// Earned returns the derived credit for an agent number.
func (s *RewardsService) Earned(agentNumber int) float64 {
	return s.perEntry * float64(s.index.CountByAgent(agentNumber))
}

// SetWallet registers the payout address for a known identity.
func (s *RewardsService) SetWallet(credential, address string) error {
	digest, _, ok := s.identities.Lookup(credential)
	if !ok {
		return models.ErrInvalidCredential
	}
	if !walletPattern.MatchString(address) {
		return &models.ValidationError{Field: "wallet", Message: "must be a 0x-prefixed 40-hex-digit address"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Wallets[digest] = address
	return s.store.SaveRewards(s.doc)
}

// Claim moves the full available balance to claimed and queues a settlement.
// The claim is recorded before the transfer happens; a failed transfer stays
// in the pending queue and is retried by the settlement drain, it does not
// roll the claim back.
func (s *RewardsService) Claim(credential string) (float64, error) {
	digest, num, ok := s.identities.Lookup(credential)
	if !ok {
		return 0, models.ErrInvalidCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, hasWallet := s.doc.Wallets[digest]
	if !hasWallet {
		return 0, models.ErrWalletNotSet
	}

	contribs := s.index.CountByAgent(num)
	if contribs < s.minContribs {
		return 0, models.ErrBelowPayoutMinimum
	}

	earned := s.perEntry * float64(contribs)
	available := earned - s.doc.Claims[digest]
	if available <= 0 {
		return 0, models.ErrNothingToClaim
	}

	s.doc.Claims[digest] = earned
	s.doc.Pending = append(s.doc.Pending, models.PendingSettlement{
		ID:       uuid.New().String(),
		Identity: digest,
		Wallet:   wallet,
		Amount:   available,
		QueuedAt: time.Now().UTC(),
	})
	if err := s.store.SaveRewards(s.doc); err != nil {
		return 0, err
	}

	log.Printf("💰 [REWARDS] Claim recorded: agent #%d, %.2f queued for settlement", num, available)
	return available, nil
}

// View returns the balance summary for a known identity.
func (s *RewardsService) View(credential string) (*models.RewardsView, error) {
	digest, num, ok := s.identities.Lookup(credential)
	if !ok {
		return nil, models.ErrInvalidCredential
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	contribs := s.index.CountByAgent(num)
	earned := s.perEntry * float64(contribs)
	claimed := s.doc.Claims[digest]
	return &models.RewardsView{
		AgentNumber:   num,
		Contributions: contribs,
		Earned:        earned,
		Claimed:       claimed,
		Available:     earned - claimed,
		Wallet:        s.doc.Wallets[digest],
	}, nil
}

// PendingSnapshot copies the settlement queue for the drain job.
func (s *RewardsService) PendingSnapshot() []models.PendingSettlement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.PendingSettlement, len(s.doc.Pending))
	copy(out, s.doc.Pending)
	return out
}

// PendingCount returns the current settlement queue length.
func (s *RewardsService) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Pending)
}

// CompleteSettlement removes a settled entry from the queue. Failed attempts
// leave the entry queued for the next drain.
func (s *RewardsService) CompleteSettlement(id string, success bool) error {
	if !success {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.doc.Pending {
		if p.ID == id {
			s.doc.Pending = append(s.doc.Pending[:i], s.doc.Pending[i+1:]...)
			return s.store.SaveRewards(s.doc)
		}
	}
	return nil
}
