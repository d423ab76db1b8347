package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DeFiYieldOptions parameterise the DeFiYield Rekt Database adapter.
type DeFiYieldOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// DeFiYield pulls the DeFiYield Rekt Database JSON API.
type DeFiYield struct {
	opts   DeFiYieldOptions
	logger zerolog.Logger
	client *http.Client
	url    string
	now    func() time.Time
}

// NewDeFiYield constructs a DeFiYield adapter.
func NewDeFiYield(opts DeFiYieldOptions, logger zerolog.Logger) *DeFiYield {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	url := strings.TrimSpace(opts.URL)
	if url == "" {
		url = "https://api.defiyield.app/api/v1/rekt"
	}

	return &DeFiYield{
		opts:   opts,
		logger: logger.With().Str("component", "defiyield_adapter").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    url,
		now:    time.Now,
	}
}

// Name identifies the adapter for provenance tagging.
func (d *DeFiYield) Name() string { return "defiyield" }

type defiyieldItem struct {
	Project     string          `json:"project"`
	Date        string          `json:"date"`
	Type        string          `json:"type"`
	Amount      json.RawMessage `json:"amount"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Blockchain  string          `json:"blockchain"`
}

type defiyieldResponse struct {
	Data []defiyieldItem `json:"data"`
}

// Fetch retrieves the rekt database listing. Items that fail to parse are
// skipped individually.
func (d *DeFiYield) Fetch(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(d.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("defiyield api returned status %d", resp.StatusCode)
	}

	var listing defiyieldResponse
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, fmt.Errorf("decode defiyield payload: %w", err)
	}

	attacks := make([]Candidate, 0, len(listing.Data))
	for _, item := range listing.Data {
		project := strings.TrimSpace(item.Project)
		if project == "" {
			project = "Unknown"
		}

		attackType := item.Type
		if strings.TrimSpace(attackType) == "" {
			attackType = "exploit"
		}

		attacks = append(attacks, Candidate{
			ProtocolName:  project,
			AttackDate:    ParseDate(item.Date, "2006-01-02", d.now()),
			AttackType:    attackType,
			LossAmountUSD: parseAmountField(item.Amount),
			Description:   item.Description,
			SourceURL:     optional(item.URL),
			Blockchain:    optional(item.Blockchain),
			DataSource:    d.Name(),
		})
	}

	return attacks, nil
}

// parseAmountField tolerates both numeric and string amounts; schema drift
// on this field has been observed in the wild.
func parseAmountField(raw json.RawMessage) decimal.Decimal {
	if len(raw) == 0 {
		return decimal.Zero
	}

	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return decimal.NewFromFloat(asNumber)
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return ParseMoney(asString)
	}

	return decimal.Zero
}

var _ Adapter = (*DeFiYield)(nil)
