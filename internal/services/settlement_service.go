package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"uploade/internal/database"
)

// Settler is the external transfer collaborator. It is handed a destination
// address and an amount and reports only success or failure; transaction
// mechanics live entirely on the other side.
type Settler interface {
	Transfer(ctx context.Context, address string, amount float64) error
}

// HTTPSettler posts transfer requests to a payout endpoint.
type HTTPSettler struct {
	url        string
	httpClient *http.Client
}

// NewHTTPSettler targets the given payout URL.
func NewHTTPSettler(url string, timeout time.Duration) *HTTPSettler {
	return &HTTPSettler{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Transfer posts {address, amount} and treats any non-2xx answer as failure.
func (h *HTTPSettler) Transfer(ctx context.Context, address string, amount float64) error {
	body, err := json.Marshal(map[string]interface{}{
		"address": address,
		"amount":  amount,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("transfer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("transfer rejected with status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// SettlementService drains the pending claim queue against the external
// settler. It runs off the request path: claims only enqueue, and a slow or
// failing settler never blocks a claim from returning.
type SettlementService struct {
	rewards *RewardsService
	settler Settler
	audit   *database.AuditLog
}

// NewSettlementService wires the drain to a settler. A nil settler disables
// draining; claims then stay queued until an operator configures one.
func NewSettlementService(rewards *RewardsService, settler Settler, audit *database.AuditLog) *SettlementService {
	return &SettlementService{rewards: rewards, settler: settler, audit: audit}
}

// Drain attempts every queued settlement once. Failures stay queued for the
// next run; each attempt gets an audit receipt either way.
func (s *SettlementService) Drain(ctx context.Context) {
	pending := s.rewards.PendingSnapshot()
	if len(pending) == 0 {
		return
	}
	if s.settler == nil {
		log.Printf("⚠️ [SETTLEMENT] %d settlements queued but no settler configured", len(pending))
		return
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			return
		}

		err := s.settler.Transfer(ctx, p.Wallet, p.Amount)
		success := err == nil
		errMsg := ""
		if err != nil {
			errMsg = err.Error()
			log.Printf("⚠️ [SETTLEMENT] Transfer %s failed: %v", p.ID, err)
			metricSettlements.WithLabelValues("failure").Inc()
		} else {
			log.Printf("✅ [SETTLEMENT] Transferred %.2f to %s (settlement %s)", p.Amount, p.Wallet, p.ID)
			metricSettlements.WithLabelValues("success").Inc()
		}

		if auditErr := s.audit.RecordSettlement(p.ID, p.Identity, p.Wallet, p.Amount, success, errMsg); auditErr != nil {
			log.Printf("⚠️ [SETTLEMENT] Audit write failed: %v", auditErr)
		}
		if completeErr := s.rewards.CompleteSettlement(p.ID, success); completeErr != nil {
			log.Printf("⚠️ [SETTLEMENT] Failed to dequeue %s: %v", p.ID, completeErr)
		}
	}
}
