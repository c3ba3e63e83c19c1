package market

import (
	"context"
	"errors"
	"testing"

	"github.com/ordercontext/order-enrichment/internal/enrich"
)

type fakeSource struct {
	points []Point
	err    error

	calls int
	start enrich.Day
	end   enrich.Day
}

func (f *fakeSource) ClosingSeries(ctx context.Context, start, end enrich.Day) ([]Point, error) {
	f.calls++
	f.start, f.end = start, end
	return f.points, f.err
}

func TestPrices_ForwardFill(t *testing.T) {
	src := &fakeSource{points: []Point{
		{Date: "2024-01-01", Close: 100},
		{Date: "2024-01-03", Close: 102},
	}}
	f := NewFetcher(src)

	days := []enrich.Day{"2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"}
	prices := f.Prices(context.Background(), days)

	want := map[enrich.Day]float64{
		"2024-01-01": 100,
		"2024-01-02": 100,
		"2024-01-03": 102,
		"2024-01-04": 102,
	}
	if len(prices) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(prices), prices)
	}
	for day, price := range want {
		if prices[day] != price {
			t.Fatalf("price for %s: want %.1f, got %.1f", day, price, prices[day])
		}
	}
	if src.calls != 1 {
		t.Fatalf("the full range must be fetched in one call, got %d", src.calls)
	}
	if src.start != "2024-01-01" || src.end != "2024-01-04" {
		t.Fatalf("requested range should span min..max, got %s..%s", src.start, src.end)
	}
}

func TestPrices_BeforeFirstEntryAbsent(t *testing.T) {
	src := &fakeSource{points: []Point{{Date: "2024-01-03", Close: 102}}}
	f := NewFetcher(src)

	prices := f.Prices(context.Background(), []enrich.Day{"2024-01-01", "2024-01-03"})
	if _, ok := prices["2024-01-01"]; ok {
		t.Fatalf("a date before the first known price must have no entry")
	}
	if prices["2024-01-03"] != 102 {
		t.Fatalf("direct hit missing: %v", prices)
	}
}

func TestPrices_CarriesFromUnrequestedSeriesDates(t *testing.T) {
	// The series scan is chronological over fetched entries, so a requested
	// date picks up the last price even when that trading day itself was
	// never requested.
	src := &fakeSource{points: []Point{{Date: "2024-01-02", Close: 101}}}
	f := NewFetcher(src)

	prices := f.Prices(context.Background(), []enrich.Day{"2024-01-04"})
	if prices["2024-01-04"] != 101 {
		t.Fatalf("expected carry-forward from unrequested series date, got %v", prices)
	}
}

func TestPrices_SourceFailureAbsorbed(t *testing.T) {
	src := &fakeSource{err: errors.New("boom")}
	f := NewFetcher(src)

	prices := f.Prices(context.Background(), []enrich.Day{"2024-01-01"})
	if len(prices) != 0 {
		t.Fatalf("source failure must degrade to an empty mapping, got %v", prices)
	}
}

func TestPrices_EmptyRequest(t *testing.T) {
	src := &fakeSource{}
	f := NewFetcher(src)

	prices := f.Prices(context.Background(), nil)
	if len(prices) != 0 || src.calls != 0 {
		t.Fatalf("no requested dates should mean no call and no entries")
	}
}
