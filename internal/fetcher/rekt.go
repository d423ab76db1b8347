package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

const (
	rektLeaderboardPath = "/leaderboard/"
	rektDateLayout      = "02 Jan 2006"
)

// RektOptions parameterise the rekt.news leaderboard scraper.
type RektOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// Rekt scrapes the rekt.news leaderboard table.
type Rekt struct {
	opts    RektOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// NewRekt constructs a rekt.news adapter.
func NewRekt(opts RektOptions, logger zerolog.Logger) *Rekt {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://rekt.news"
	}

	return &Rekt{
		opts:    opts,
		logger:  logger.With().Str("component", "rekt_adapter").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		now:     time.Now,
	}
}

// Name identifies the adapter for provenance tagging.
func (r *Rekt) Name() string { return "rekt" }

// Fetch downloads the leaderboard and maps each table row into a candidate.
// Malformed rows are skipped, never fatal.
func (r *Rekt) Fetch(ctx context.Context) ([]Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+rektLeaderboardPath, nil)
	if err != nil {
		return nil, err
	}
	if ua := strings.TrimSpace(r.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rekt.news returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse leaderboard html: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("leaderboard table not found")
	}

	attacks := make([]Candidate, 0)
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			// header row
			return
		}
		cols := row.Find("td")
		if cols.Length() < 4 {
			return
		}

		protocol := strings.TrimSpace(cols.Eq(1).Text())
		dateStr := strings.TrimSpace(cols.Eq(2).Text())
		amountStr := strings.TrimSpace(cols.Eq(3).Text())
		if protocol == "" {
			r.logger.Debug().Int("row", i).Msg("skipping leaderboard row without protocol")
			return
		}

		var sourceURL *string
		if href, ok := cols.Eq(1).Find("a").First().Attr("href"); ok && href != "" {
			link := r.baseURL + href
			sourceURL = &link
		}

		attacks = append(attacks, Candidate{
			ProtocolName:  protocol,
			AttackDate:    ParseDate(dateStr, rektDateLayout, r.now()),
			AttackType:    "exploit",
			LossAmountUSD: ParseMoney(amountStr),
			Description:   fmt.Sprintf("Attack on %s", protocol),
			SourceURL:     sourceURL,
			DataSource:    r.Name(),
		})
	})

	return attacks, nil
}

var _ Adapter = (*Rekt)(nil)
