package registry

import "testing"

func TestDefaultBijection(t *testing.T) {
	r := Default()
	if r.Size() != 21 {
		t.Fatalf("unexpected universe size %d", r.Size())
	}
	for _, ccy := range r.Universe() {
		c, err := r.CountryForTicker(ccy)
		if err != nil {
			t.Fatalf("country for %s: %v", ccy, err)
		}
		back, err := r.TickerForCountry(c)
		if err != nil {
			t.Fatalf("ticker for %s: %v", c, err)
		}
		if back != ccy {
			t.Fatalf("bijection broken: %s -> %s -> %s", ccy, c, back)
		}
	}
}

func TestLookupsCaseInsensitive(t *testing.T) {
	r := Default()
	ccy, err := r.TickerForCountry("tur")
	if err != nil || ccy != "TRY" {
		t.Fatalf("expected TRY, got %q err=%v", ccy, err)
	}
}

func TestUnknownLookup(t *testing.T) {
	r := Default()
	if _, err := r.TickerForCountry("XXX"); err == nil {
		t.Fatalf("expected error for unknown country")
	}
	if r.HasCountry("XXX") {
		t.Fatalf("XXX should not be in universe")
	}
}

func TestNewRejectsDuplicates(t *testing.T) {
	_, err := New([]Entry{{"EUR", "EUR"}, {"EUR", "FRA"}})
	if err == nil {
		t.Fatalf("expected duplicate ticker error")
	}
}

func TestUniverseOrderIsStable(t *testing.T) {
	r := Default()
	u := r.Universe()
	if u[0] != "EUR" || u[len(u)-1] != "PEN" {
		t.Fatalf("unexpected universe order: %v", u)
	}
}
