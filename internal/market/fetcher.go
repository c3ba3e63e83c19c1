// Package market resolves calendar dates to closing prices of an external
// market index, forward-filling dates the exchange was closed.
package market

import (
	"context"
	"log"
	"sort"

	"github.com/ordercontext/order-enrichment/internal/enrich"
)

// Point is one closing price on one trading day.
type Point struct {
	Date  enrich.Day
	Close float64
}

// Source is the external index boundary: one ranged call returning the
// daily closing series, or an error.
type Source interface {
	ClosingSeries(ctx context.Context, start, end enrich.Day) ([]Point, error)
}

// Counter is the minimal metrics hook; prometheus counters satisfy it.
type Counter interface {
	Inc()
}

// Fetcher turns a set of requested dates into a date→price mapping.
type Fetcher struct {
	source   Source
	failures Counter
}

func NewFetcher(source Source) *Fetcher {
	return &Fetcher{source: source}
}

// WithFailureCounter counts absorbed fetch failures.
func (f *Fetcher) WithFailureCounter(c Counter) *Fetcher {
	f.failures = c
	return f
}

// Prices fetches the closing series covering [min(days), max(days)] in one
// call and forward-fills each requested day with the most recent price at or
// before it. Days preceding the first series entry are absent from the
// result. Any source failure is absorbed: the pipeline degrades to dropping
// the affected rows instead of aborting, so an empty map is returned.
func (f *Fetcher) Prices(ctx context.Context, days []enrich.Day) map[enrich.Day]float64 {
	if len(days) == 0 {
		return map[enrich.Day]float64{}
	}

	requested := make([]enrich.Day, 0, len(days))
	seen := make(map[enrich.Day]struct{}, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		requested = append(requested, d)
	}
	sort.Slice(requested, func(i, j int) bool { return requested[i] < requested[j] })

	start, end := requested[0], requested[len(requested)-1]
	series, err := f.source.ClosingSeries(ctx, start, end)
	if err != nil {
		log.Printf("market: fetch %s..%s failed, continuing without prices: %v", start, end, err)
		f.countFailure()
		return map[enrich.Day]float64{}
	}
	if len(series) == 0 {
		log.Printf("market: empty series for %s..%s, continuing without prices", start, end)
		f.countFailure()
		return map[enrich.Day]float64{}
	}

	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })

	// Walk the series and the requested days chronologically together,
	// carrying the last known price forward across gaps.
	prices := make(map[enrich.Day]float64, len(requested))
	var last float64
	have := false
	i := 0
	for _, day := range requested {
		for i < len(series) && series[i].Date <= day {
			last = series[i].Close
			have = true
			i++
		}
		if have {
			prices[day] = last
		}
	}
	return prices
}

func (f *Fetcher) countFailure() {
	if f.failures != nil {
		f.failures.Inc()
	}
}
