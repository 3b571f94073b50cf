// Package repo pulls CGM data from remote sources. The only implemented
// source is Nightscout, the self-hosted CGM relay most consumer devices
// can upload to.
package repo

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/glycostack/glyco-engine/internal/utils"
)

// NightscoutConfig configures the remote entries source.
type NightscoutConfig struct {
	BaseURL   string
	APISecret string
	APIToken  string
	Timeout   time.Duration
	CacheTTL  time.Duration
}

// nsEntry is the subset of a Nightscout entries document the engine needs.
type nsEntry struct {
	SGV  float64 `json:"sgv"`
	Date int64   `json:"date"`
	Type string  `json:"type"`
}

// NightscoutClient fetches recent sensor entries and renders them as a
// payload the normalizer already understands. Responses are cached for a
// short TTL so trend endpoints hitting the same site do not hammer it.
type NightscoutClient struct {
	baseURL    string
	secretHash string
	token      string
	httpClient *http.Client
	cacheTTL   time.Duration
	logger     *slog.Logger

	mu        sync.Mutex
	cached    string
	cachedN   int
	fetchedAt time.Time
}

// NewNightscoutClient validates the base URL and prepares the client. The
// API secret is never sent raw; Nightscout expects its SHA-1 hex digest in
// the api-secret header.
func NewNightscoutClient(cfg NightscoutConfig, logger *slog.Logger) (*NightscoutClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("nightscout base URL is required")
	}
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid nightscout base URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &NightscoutClient{
		baseURL:    parsed.String(),
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cacheTTL:   cfg.CacheTTL,
		logger:     logger,
	}
	if cfg.APISecret != "" {
		sum := sha1.Sum([]byte(cfg.APISecret))
		c.secretHash = hex.EncodeToString(sum[:])
	}
	return c, nil
}

// FetchEntries returns up to count recent sensor readings as a JSON
// payload in the normalizer's wire shape, newest data included. A cached
// payload inside the TTL is served without a network round trip.
func (c *NightscoutClient) FetchEntries(ctx context.Context, count int) (string, error) {
	if count <= 0 {
		count = 288
	}

	c.mu.Lock()
	if c.cached != "" && c.cachedN == count && time.Since(c.fetchedAt) < c.cacheTTL {
		payload := c.cached
		c.mu.Unlock()
		return payload, nil
	}
	c.mu.Unlock()

	endpoint := fmt.Sprintf("%s/api/v1/entries.json?count=%d", c.baseURL, count)
	if c.token != "" {
		endpoint += "&token=" + url.QueryEscape(c.token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build nightscout request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.secretHash != "" {
		req.Header.Set("api-secret", c.secretHash)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", utils.NewAppError("nightscout.fetch", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", utils.NewAppError("nightscout.fetch", fmt.Sprintf("status %d: %s", resp.StatusCode, body), nil)
	}

	var entries []nsEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return "", utils.NewAppError("nightscout.fetch", "decode entries", err)
	}

	payload, kept := renderPayload(entries)
	if kept == 0 {
		return "", utils.NewAppError("nightscout.fetch", "no sensor entries in response", nil)
	}
	c.logger.Debug("nightscout entries fetched",
		slog.Int("requested", count),
		slog.Int("kept", kept))

	c.mu.Lock()
	c.cached, c.cachedN, c.fetchedAt = payload, count, time.Now()
	c.mu.Unlock()
	return payload, nil
}

// renderPayload re-encodes sensor entries as the JSON record array the
// ingest layer parses. SGV values are mg/dL, dates are epoch milliseconds;
// both pass through unchanged.
func renderPayload(entries []nsEntry) (string, int) {
	type record struct {
		Timestamp int64   `json:"timestamp"`
		Glucose   float64 `json:"glucose"`
	}
	records := make([]record, 0, len(entries))
	for _, e := range entries {
		if e.Type != "" && e.Type != "sgv" {
			continue
		}
		if e.SGV <= 0 || e.Date <= 0 {
			continue
		}
		records = append(records, record{Timestamp: e.Date, Glucose: e.SGV})
	}
	if len(records) == 0 {
		return "", 0
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return "", 0
	}
	return string(payload), len(records)
}
