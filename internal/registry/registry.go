package registry

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknown is returned for lookups outside the configured universe.
var ErrUnknown = errors.New("registry: not in universe")

// Entry maps one tradable currency to the country code that proxies it in
// the news feed.
type Entry struct {
	Ticker  string // 3-letter currency code
	Country string // 3-letter ISO country code
}

// Registry is the fixed currency universe. Read-only after construction.
type Registry struct {
	entries  []Entry
	byTicker map[string]string
	byCtry   map[string]string
}

// defaultEntries is the configured trading universe: each currency paired
// with the news-source country that stands in for it.
var defaultEntries = []Entry{
	{"EUR", "EUR"}, // Eurozone (feed uses EUR as the zone code)
	{"GBP", "GBR"},
	{"JPY", "JPN"},
	{"CHF", "CHE"},
	{"AUD", "AUS"},
	{"NZD", "NZL"},
	{"CAD", "CAN"},
	{"NOK", "NOR"},
	{"SEK", "SWE"},
	{"TRY", "TUR"},
	{"ZAR", "ZAF"},
	{"BRL", "BRA"},
	{"INR", "IND"},
	{"MXN", "MEX"},
	{"PHP", "PHL"},
	{"THB", "THA"},
	{"PLN", "POL"},
	{"HUF", "HUN"},
	{"CLP", "CHL"},
	{"COP", "COL"},
	{"PEN", "PER"},
}

// New builds a registry from explicit entries, enforcing the bijection.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{
		entries:  make([]Entry, 0, len(entries)),
		byTicker: make(map[string]string, len(entries)),
		byCtry:   make(map[string]string, len(entries)),
	}
	for _, e := range entries {
		t := strings.ToUpper(strings.TrimSpace(e.Ticker))
		c := strings.ToUpper(strings.TrimSpace(e.Country))
		if len(t) != 3 || len(c) != 3 {
			return nil, fmt.Errorf("registry: bad entry %q/%q", e.Ticker, e.Country)
		}
		if _, dup := r.byTicker[t]; dup {
			return nil, fmt.Errorf("registry: duplicate ticker %s", t)
		}
		if _, dup := r.byCtry[c]; dup {
			return nil, fmt.Errorf("registry: duplicate country %s", c)
		}
		r.entries = append(r.entries, Entry{Ticker: t, Country: c})
		r.byTicker[t] = c
		r.byCtry[c] = t
	}
	if len(r.entries) == 0 {
		return nil, errors.New("registry: empty universe")
	}
	return r, nil
}

// Default returns the built-in universe.
func Default() *Registry {
	r, err := New(defaultEntries)
	if err != nil {
		panic(err) // static table, cannot fail
	}
	return r
}

// Universe returns the ordered currency tickers.
func (r *Registry) Universe() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Ticker
	}
	return out
}

// Countries returns the ordered proxy country codes.
func (r *Registry) Countries() []string {
	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Country
	}
	return out
}

// TickerForCountry resolves a country code to its currency.
func (r *Registry) TickerForCountry(code string) (string, error) {
	if t, ok := r.byCtry[strings.ToUpper(code)]; ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: country %s", ErrUnknown, code)
}

// CountryForTicker resolves a currency to its proxy country code.
func (r *Registry) CountryForTicker(ticker string) (string, error) {
	if c, ok := r.byTicker[strings.ToUpper(ticker)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: ticker %s", ErrUnknown, ticker)
}

// HasCountry reports membership without the error allocation; used on the
// per-record hot path of the day aggregator.
func (r *Registry) HasCountry(code string) bool {
	_, ok := r.byCtry[code]
	return ok
}

// Size returns the universe cardinality.
func (r *Registry) Size() int { return len(r.entries) }
