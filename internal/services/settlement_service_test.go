package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeSettler struct {
	calls []float64
	err   error
}

func (f *fakeSettler) Transfer(ctx context.Context, address string, amount float64) error {
	f.calls = append(f.calls, amount)
	return f.err
}

func TestDrainSettlesAndDequeues(t *testing.T) {
	rewards, cred := newRewardsFixture(t, 5)
	rewards.SetWallet(cred, testWallet)
	if _, err := rewards.Claim(cred); err != nil {
		t.Fatal(err)
	}

	settler := &fakeSettler{}
	svc := NewSettlementService(rewards, settler, nil)
	svc.Drain(context.Background())

	if len(settler.calls) != 1 || settler.calls[0] != 10 {
		t.Fatalf("transfer calls = %v, want one call of 10", settler.calls)
	}
	if rewards.PendingCount() != 0 {
		t.Error("settled claim should be dequeued")
	}
}

func TestDrainKeepsFailedTransfersQueued(t *testing.T) {
	rewards, cred := newRewardsFixture(t, 5)
	rewards.SetWallet(cred, testWallet)
	rewards.Claim(cred)

	settler := &fakeSettler{err: errors.New("payout endpoint down")}
	svc := NewSettlementService(rewards, settler, nil)
	svc.Drain(context.Background())

	if rewards.PendingCount() != 1 {
		t.Fatal("failed transfer must stay queued")
	}

	// Next drain with a recovered settler clears it.
	settler.err = nil
	svc.Drain(context.Background())
	if rewards.PendingCount() != 0 {
		t.Error("recovered settler should clear the queue")
	}
}

func TestDrainWithoutSettlerLeavesQueueIntact(t *testing.T) {
	rewards, cred := newRewardsFixture(t, 5)
	rewards.SetWallet(cred, testWallet)
	rewards.Claim(cred)

	NewSettlementService(rewards, nil, nil).Drain(context.Background())
	if rewards.PendingCount() != 1 {
		t.Error("queue should be untouched when no settler is configured")
	}
}

func TestHTTPSettlerPostsAddressAndAmount(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	settler := NewHTTPSettler(srv.URL, 0)
	if err := settler.Transfer(context.Background(), testWallet, 12.5); err != nil {
		t.Fatal(err)
	}
	if got["address"] != testWallet || got["amount"] != 12.5 {
		t.Errorf("posted body = %v", got)
	}
}

func TestHTTPSettlerTreatsNon2xxAsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "insufficient funds", http.StatusBadRequest)
	}))
	defer srv.Close()

	settler := NewHTTPSettler(srv.URL, 0)
	if err := settler.Transfer(context.Background(), testWallet, 1); err == nil {
		t.Fatal("expected failure for 400 response")
	}
}
