// Package marketdata resolves current valuations for asset identifiers and
// fronts the external provider with a TTL-bounded cache.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
)

// Default provider configuration.
const (
	DefaultEndpoint  = "https://api.dexscreener.com/latest/dex/tokens/"
	DefaultTimeout   = 10 * time.Second
	DefaultBatchSize = 30
)

// Provider resolves normalized identifiers to market quotes. Implementations
// are tolerant of partial results: identifiers with no tradable pair are
// simply absent from the returned map.
type Provider interface {
	Lookup(ctx context.Context, ids []string) (map[string]domain.MarketQuote, error)
}

// HTTPProvider implements Provider against a DexScreener-compatible API.
type HTTPProvider struct {
	endpoint  string
	client    *http.Client
	batchSize int
}

// ProviderOption configures HTTPProvider.
type ProviderOption func(*HTTPProvider)

// WithEndpoint overrides the API base URL.
func WithEndpoint(url string) ProviderOption {
	return func(p *HTTPProvider) {
		p.endpoint = url
	}
}

// WithTimeout sets the per-call HTTP timeout.
func WithTimeout(d time.Duration) ProviderOption {
	return func(p *HTTPProvider) {
		p.client.Timeout = d
	}
}

// WithBatchSize sets the identifiers-per-request chunk size.
func WithBatchSize(n int) ProviderOption {
	return func(p *HTTPProvider) {
		p.batchSize = n
	}
}

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(client *http.Client) ProviderOption {
	return func(p *HTTPProvider) {
		p.client = client
	}
}

// NewHTTPProvider creates a provider with default settings.
func NewHTTPProvider(opts ...ProviderOption) *HTTPProvider {
	p := &HTTPProvider{
		endpoint:  DefaultEndpoint,
		client:    &http.Client{Timeout: DefaultTimeout},
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// pairsResponse mirrors the provider's token-pairs payload.
type pairsResponse struct {
	Pairs []struct {
		BaseToken struct {
			Address string `json:"address"`
			Symbol  string `json:"symbol"`
		} `json:"baseToken"`
		FDV    float64 `json:"fdv"`
		Volume struct {
			H24 float64 `json:"h24"`
		} `json:"volume"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
	} `json:"pairs"`
}

// Lookup resolves quotes for the given identifiers, chunked to respect the
// provider's batch limit. When several pairs resolve to one identifier the
// pair with the highest (liquidity, volume, valuation) tuple wins. Returns
// an error only when every chunk failed; partial results are returned as-is.
func (p *HTTPProvider) Lookup(ctx context.Context, ids []string) (map[string]domain.MarketQuote, error) {
	results := make(map[string]domain.MarketQuote)
	if len(ids) == 0 {
		return results, nil
	}

	var chunks, failed int
	var lastErr error
	for start := 0; start < len(ids); start += p.batchSize {
		end := start + p.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunks++

		if err := p.lookupChunk(ctx, ids[start:end], results); err != nil {
			failed++
			lastErr = err
		}
	}

	if failed == chunks {
		return results, fmt.Errorf("market lookup failed for all %d chunks: %w", chunks, lastErr)
	}
	return results, nil
}

func (p *HTTPProvider) lookupChunk(ctx context.Context, ids []string, results map[string]domain.MarketQuote) error {
	url := p.endpoint + strings.Join(ids, ",")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch token pairs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("fetch token pairs: status %d", resp.StatusCode)
	}

	var payload pairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode token pairs: %w", err)
	}

	for _, pair := range payload.Pairs {
		if pair.BaseToken.Address == "" || pair.FDV <= 0 {
			continue
		}
		addr := strings.ToLower(pair.BaseToken.Address)
		quote := domain.MarketQuote{
			Valuation: pair.FDV,
			Symbol:    strings.ToUpper(pair.BaseToken.Symbol),
			Volume24h: pair.Volume.H24,
			Liquidity: pair.Liquidity.USD,
		}
		if existing, ok := results[addr]; !ok || betterPair(quote, existing) {
			results[addr] = quote
		}
	}
	return nil
}

// betterPair orders pairs by (liquidity, volume, valuation), lexicographic.
func betterPair(a, b domain.MarketQuote) bool {
	if a.Liquidity != b.Liquidity {
		return a.Liquidity > b.Liquidity
	}
	if a.Volume24h != b.Volume24h {
		return a.Volume24h > b.Volume24h
	}
	return a.Valuation > b.Valuation
}

var _ Provider = (*HTTPProvider)(nil)
