package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type stubAdapter struct {
	name    string
	records []Candidate
	err     error
}

func (s stubAdapter) Name() string { return s.name }

func (s stubAdapter) Fetch(ctx context.Context) ([]Candidate, error) {
	return s.records, s.err
}

func candidate(name string, loss int64) Candidate {
	return Candidate{
		ProtocolName:  name,
		AttackDate:    time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		AttackType:    "exploit",
		LossAmountUSD: decimal.NewFromInt(loss),
		DataSource:    "test",
	}
}

func TestFetchAllCombinesInRegistrationOrder(t *testing.T) {
	adapters := []Adapter{
		stubAdapter{name: "first", records: []Candidate{candidate("A", 1), candidate("B", 2)}},
		stubAdapter{name: "second", records: []Candidate{candidate("C", 3)}},
	}

	combined, errs := FetchAll(context.Background(), adapters, noopLogger())
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
	if len(combined) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(combined))
	}
	for i, want := range []string{"A", "B", "C"} {
		if combined[i].ProtocolName != want {
			t.Errorf("position %d: got %q, want %q", i, combined[i].ProtocolName, want)
		}
	}
}

func TestFetchAllSoftFailsPerSource(t *testing.T) {
	boom := errors.New("connection refused")
	adapters := []Adapter{
		stubAdapter{name: "healthy", records: []Candidate{candidate("A", 1)}},
		stubAdapter{name: "broken", err: boom},
		stubAdapter{name: "also_healthy", records: []Candidate{candidate("B", 2)}},
	}

	combined, errs := FetchAll(context.Background(), adapters, noopLogger())
	if len(combined) != 2 {
		t.Fatalf("expected 2 candidates from healthy sources, got %d", len(combined))
	}
	if len(errs) != 1 {
		t.Fatalf("expected 1 source error, got %d", len(errs))
	}
	if errs[0].Source != "broken" {
		t.Errorf("unexpected failing source %q", errs[0].Source)
	}
	if !errors.Is(errs[0], boom) {
		t.Errorf("source error should unwrap to the adapter error")
	}
}

func TestFetchAllAllSourcesFail(t *testing.T) {
	adapters := []Adapter{
		stubAdapter{name: "a", err: errors.New("down")},
		stubAdapter{name: "b", err: errors.New("also down")},
	}

	combined, errs := FetchAll(context.Background(), adapters, noopLogger())
	if len(combined) != 0 {
		t.Fatalf("expected no candidates, got %d", len(combined))
	}
	if len(errs) != 2 {
		t.Fatalf("expected 2 source errors, got %d", len(errs))
	}
}
