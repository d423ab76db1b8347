package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDeFiYieldFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{
					"project":     "Wormhole",
					"date":        "2022-02-02",
					"type":        "Exploit",
					"amount":      326000000,
					"description": "Signature verification bypass",
					"url":         "https://example.com/wormhole",
					"blockchain":  "Solana",
				},
				{
					"project": "",
					"date":    "2021-05-01",
					"amount":  "12.5M",
				},
			},
		})
	}))
	defer srv.Close()

	adapter := NewDeFiYield(DeFiYieldOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())

	attacks, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}
	if len(attacks) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(attacks))
	}

	first := attacks[0]
	if first.ProtocolName != "Wormhole" {
		t.Errorf("unexpected protocol %q", first.ProtocolName)
	}
	if first.LossAmountUSD.String() != "326000000" {
		t.Errorf("unexpected loss %s", first.LossAmountUSD.String())
	}
	if first.Blockchain == nil || *first.Blockchain != "Solana" {
		t.Errorf("unexpected blockchain %v", first.Blockchain)
	}
	if first.DataSource != "defiyield" {
		t.Errorf("unexpected data source %q", first.DataSource)
	}

	second := attacks[1]
	if second.ProtocolName != "Unknown" {
		t.Errorf("missing project should default to Unknown, got %q", second.ProtocolName)
	}
	if second.AttackType != "exploit" {
		t.Errorf("missing type should default to exploit, got %q", second.AttackType)
	}
	if second.LossAmountUSD.String() != "12500000" {
		t.Errorf("string amount should parse with suffix, got %s", second.LossAmountUSD.String())
	}
}

func TestDeFiYieldFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	adapter := NewDeFiYield(DeFiYieldOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatal("HTTP 502 should return an error")
	}
}

func TestDeFiYieldFetchBadPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	adapter := NewDeFiYield(DeFiYieldOptions{URL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatal("malformed payload should return an error")
	}
}
