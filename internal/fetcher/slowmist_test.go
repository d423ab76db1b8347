package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSlowMistFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"project":     "Euler Finance",
					"date":        "2023-03-13",
					"attack_type": "Flash Loan",
					"loss":        "$197M",
					"description": "Donation attack against eToken",
					"url":         "https://example.com/euler",
					"blockchain":  "Ethereum",
				},
				{
					"project": "Tiny Rug",
					"date":    "2023-04-01",
					"loss":    "garbage",
				},
			},
		})
	}))
	defer srv.Close()

	adapter := NewSlowMist(SlowMistOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())

	attacks, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(attacks) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(attacks))
	}

	first := attacks[0]
	if first.ProtocolName != "Euler Finance" {
		t.Errorf("unexpected protocol %q", first.ProtocolName)
	}
	if first.AttackType != "Flash Loan" {
		t.Errorf("unexpected attack type %q", first.AttackType)
	}
	if first.LossAmountUSD.String() != "197000000" {
		t.Errorf("loss with M suffix should expand, got %s", first.LossAmountUSD.String())
	}
	if got := first.AttackDate.Format("2006-01-02"); got != "2023-03-13" {
		t.Errorf("unexpected date %s", got)
	}
	if first.DataSource != "slowmist" {
		t.Errorf("unexpected data source %q", first.DataSource)
	}

	// Unparsable loss defaults to zero; the cleaner filters it out later.
	if !attacks[1].LossAmountUSD.IsZero() {
		t.Errorf("unparsable loss should be zero, got %s", attacks[1].LossAmountUSD.String())
	}
}

func TestSlowMistFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	adapter := NewSlowMist(SlowMistOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatal("HTTP 500 should return an error")
	}
}
