package marketdata

import (
	"context"
	"sync"

	"github.com/DeanCryptoo/YabaiBot/internal/domain"
)

// StubProvider is a scripted Provider for tests and dry runs.
type StubProvider struct {
	mu      sync.Mutex
	quotes  map[string]domain.MarketQuote
	err     error
	lookups [][]string
}

// NewStubProvider creates a stub serving the given quotes.
func NewStubProvider(quotes map[string]domain.MarketQuote) *StubProvider {
	if quotes == nil {
		quotes = make(map[string]domain.MarketQuote)
	}
	return &StubProvider{quotes: quotes}
}

// SetQuote sets or replaces the quote for an identifier.
func (s *StubProvider) SetQuote(id string, q domain.MarketQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[id] = q
}

// RemoveQuote makes an identifier resolve to nothing.
func (s *StubProvider) RemoveQuote(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.quotes, id)
}

// Fail makes every subsequent Lookup return err (nil restores normal behavior).
func (s *StubProvider) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Lookups returns every id slice the stub was asked to resolve.
func (s *StubProvider) Lookups() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.lookups))
	copy(out, s.lookups)
	return out
}

// Lookup implements Provider.
func (s *StubProvider) Lookup(_ context.Context, ids []string) (map[string]domain.MarketQuote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded := make([]string, len(ids))
	copy(recorded, ids)
	s.lookups = append(s.lookups, recorded)

	if s.err != nil {
		return map[string]domain.MarketQuote{}, s.err
	}

	results := make(map[string]domain.MarketQuote)
	for _, id := range ids {
		if q, ok := s.quotes[id]; ok {
			results[id] = q
		}
	}
	return results, nil
}

var _ Provider = (*StubProvider)(nil)
