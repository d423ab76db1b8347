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
)

// SlowMistOptions parameterise the SlowMist Hacked adapter.
type SlowMistOptions struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// SlowMist pulls the SlowMist Hacked public API.
type SlowMist struct {
	opts   SlowMistOptions
	logger zerolog.Logger
	client *http.Client
	url    string
	now    func() time.Time
}

// NewSlowMist constructs a SlowMist adapter.
func NewSlowMist(opts SlowMistOptions, logger zerolog.Logger) *SlowMist {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	url := strings.TrimSpace(opts.URL)
	if url == "" {
		url = "https://hacked.slowmist.io/api/hacked/list"
	}

	return &SlowMist{
		opts:   opts,
		logger: logger.With().Str("component", "slowmist_adapter").Logger(),
		client: &http.Client{Timeout: timeout},
		url:    url,
		now:    time.Now,
	}
}

// Name identifies the adapter for provenance tagging.
func (s *SlowMist) Name() string { return "slowmist" }

type slowmistItem struct {
	Project     string          `json:"project"`
	Date        string          `json:"date"`
	AttackType  string          `json:"attack_type"`
	Loss        json.RawMessage `json:"loss"`
	Description string          `json:"description"`
	URL         string          `json:"url"`
	Blockchain  string          `json:"blockchain"`
}

type slowmistResponse struct {
	Data []slowmistItem `json:"data"`
}

// Fetch retrieves the hacked listing. Loss values arrive as strings with
// currency symbols and K/M magnitude suffixes; unparsable values become
// zero and are filtered downstream.
func (s *SlowMist) Fetch(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(s.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("slowmist api returned status %d", resp.StatusCode)
	}

	var listing slowmistResponse
	if err := json.Unmarshal(payload, &listing); err != nil {
		return nil, fmt.Errorf("decode slowmist payload: %w", err)
	}

	attacks := make([]Candidate, 0, len(listing.Data))
	for _, item := range listing.Data {
		project := strings.TrimSpace(item.Project)
		if project == "" {
			project = "Unknown"
		}

		attackType := item.AttackType
		if strings.TrimSpace(attackType) == "" {
			attackType = "exploit"
		}

		attacks = append(attacks, Candidate{
			ProtocolName:  project,
			AttackDate:    ParseDate(item.Date, "2006-01-02", s.now()),
			AttackType:    attackType,
			LossAmountUSD: parseAmountField(item.Loss),
			Description:   item.Description,
			SourceURL:     optional(item.URL),
			Blockchain:    optional(item.Blockchain),
			DataSource:    s.Name(),
		})
	}

	return attacks, nil
}

var _ Adapter = (*SlowMist)(nil)
