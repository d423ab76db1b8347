package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attacks.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp csv: %v", err)
	}
	return path
}

func TestCSVFileFetch(t *testing.T) {
	path := writeTempCSV(t, `protocol,date,attack_type,loss_amount_usd,chain,source_links
Mango Markets,2022-10-11,Price Manipulation,114000000,Solana,"https://example.com/mango,https://example.com/mango2"
BadDate,not-a-date,exploit,1000,,
BadAmount,2022-01-01,exploit,lots,,
Harmony Bridge,2022-06-23,,100000000,Harmony,
`)

	adapter := NewCSVFile(path, noopLogger())
	if adapter.Name() != "csv_import" {
		t.Fatalf("unexpected adapter name %q", adapter.Name())
	}

	attacks, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}

	// Rows with a bad date or amount are skipped, not defaulted.
	if len(attacks) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(attacks))
	}

	first := attacks[0]
	if first.ProtocolName != "Mango Markets" {
		t.Errorf("unexpected protocol %q", first.ProtocolName)
	}
	if first.LossAmountUSD.String() != "114000000" {
		t.Errorf("unexpected loss %s", first.LossAmountUSD.String())
	}
	if first.SourceURL == nil || *first.SourceURL != "https://example.com/mango" {
		t.Errorf("source_links should keep the first link, got %v", first.SourceURL)
	}
	if first.Blockchain == nil || *first.Blockchain != "Solana" {
		t.Errorf("unexpected blockchain %v", first.Blockchain)
	}
	if first.DataSource != "csv_import" {
		t.Errorf("unexpected data source %q", first.DataSource)
	}

	second := attacks[1]
	if second.AttackType != "exploit" {
		t.Errorf("missing attack_type should default to exploit, got %q", second.AttackType)
	}
	if second.SourceURL != nil {
		t.Errorf("empty source_links should stay nil, got %v", second.SourceURL)
	}
}

func TestCSVFileMissingColumn(t *testing.T) {
	path := writeTempCSV(t, "protocol,attack_type\nSomething,exploit\n")

	adapter := NewCSVFile(path, noopLogger())
	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatal("missing required column should return an error")
	}
}

func TestCSVFileMissingFile(t *testing.T) {
	adapter := NewCSVFile(filepath.Join(t.TempDir(), "missing.csv"), noopLogger())
	if _, err := adapter.Fetch(context.Background()); err == nil {
		t.Fatal("missing file should return an error")
	}
}
