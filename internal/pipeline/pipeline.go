// Package pipeline wires the resolver, joiner, fetchers and merger into one
// run over a set of pre-validated inputs.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/geo"
	"github.com/ordercontext/order-enrichment/internal/market"
	"github.com/ordercontext/order-enrichment/internal/metrics"
	"github.com/ordercontext/order-enrichment/internal/weather"
)

// Inputs are the pre-validated collections the pipeline consumes.
type Inputs struct {
	Lines     []enrich.OrderLine
	Orders    []enrich.Order
	Customers []enrich.Customer
	Samples   []geo.Sample
}

// Stats summarizes one run: rows in and out, and where the rest went.
type Stats struct {
	CoordinatesResolved int              `json:"coordinatesResolved"`
	Join                enrich.JoinStats `json:"join"`
	DroppedBadTimestamp int              `json:"droppedBadTimestamp"`
	DroppedNoMarket     int              `json:"droppedNoMarket"`
	DroppedNoWeather    int              `json:"droppedNoWeather"`
	RecordsOut          int              `json:"recordsOut"`
}

// Result is the output of one run.
type Result struct {
	Records []enrich.EnrichedOrder
	Stats   Stats
}

// Pipeline holds the collaborators of one enrichment run. The fetchers are
// injected so tests can stand in fake sources for the external boundaries.
type Pipeline struct {
	resolver *geo.Resolver
	merger   *enrich.Merger
	market   *market.Fetcher
	weather  *weather.Fetcher
	metrics  *metrics.Registry
}

// New builds a pipeline. All collaborators are required except metrics;
// a missing one is a structural failure, not a degradation.
func New(resolver *geo.Resolver, merger *enrich.Merger, marketFetcher *market.Fetcher, weatherFetcher *weather.Fetcher, reg *metrics.Registry) (*Pipeline, error) {
	if resolver == nil {
		return nil, fmt.Errorf("pipeline: coordinate resolver is required")
	}
	if merger == nil {
		return nil, fmt.Errorf("pipeline: merger is required")
	}
	if marketFetcher == nil {
		return nil, fmt.Errorf("pipeline: market fetcher is required")
	}
	if weatherFetcher == nil {
		return nil, fmt.Errorf("pipeline: weather fetcher is required")
	}
	return &Pipeline{
		resolver: resolver,
		merger:   merger,
		market:   marketFetcher,
		weather:  weatherFetcher,
		metrics:  reg,
	}, nil
}

// Run executes one full enrichment pass: resolve coordinates, join, fetch
// both external series, merge. Rows lost to data availability or quality
// vanish silently; only structural problems return an error.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (Result, error) {
	if in.Orders == nil || in.Lines == nil || in.Customers == nil || in.Samples == nil {
		return Result{}, fmt.Errorf("pipeline: all input collections must be present")
	}

	started := time.Now()
	var stats Stats

	coords := p.resolver.Resolve(in.Samples)
	stats.CoordinatesResolved = len(coords)

	joined, joinStats := enrich.Join(in.Lines, in.Orders, in.Customers, coords)
	stats.Join = joinStats

	localized, tzDropped := p.merger.Localize(joined)
	stats.DroppedBadTimestamp = len(tzDropped)

	purchaseDays := make([]enrich.Day, 0, len(localized))
	weatherReqs := make([]weather.Request, 0, len(localized))
	for _, row := range localized {
		purchaseDays = append(purchaseDays, row.PurchaseDay)
		weatherReqs = append(weatherReqs, weather.Request{
			Latitude:  row.DeliveryLatitude,
			Longitude: row.DeliveryLongitude,
			Date:      row.DeliveredDay,
		})
	}

	// The two fetchers operate on disjoint key spaces; order between them
	// does not affect the result.
	prices := p.market.Prices(ctx, purchaseDays)
	readings := p.weather.Readings(ctx, weatherReqs)

	outcomes := p.merger.Merge(localized, prices, readings)
	for _, o := range outcomes {
		switch {
		case !o.Dropped:
		case o.Reason == enrich.DropNoMarket:
			stats.DroppedNoMarket++
		case o.Reason == enrich.DropNoWeather:
			stats.DroppedNoWeather++
		}
	}

	records := enrich.Kept(outcomes)
	stats.RecordsOut = len(records)
	p.observe(stats)

	log.Printf("pipeline: %d lines -> %d joined rows -> %d enriched records in %s",
		joinStats.LinesIn, joinStats.RowsOut, len(records), time.Since(started).Round(time.Millisecond))
	return Result{Records: records, Stats: stats}, nil
}

func (p *Pipeline) observe(stats Stats) {
	if p.metrics == nil {
		return
	}
	p.metrics.RunsTotal.Inc()
	p.metrics.RowsJoined.Add(float64(stats.Join.RowsOut))
	p.metrics.RowsEnriched.Add(float64(stats.RecordsOut))
	p.metrics.RowsDropped.WithLabelValues("no_order").Add(float64(stats.Join.LinesDroppedNoOrder))
	p.metrics.RowsDropped.WithLabelValues("no_zip").Add(float64(stats.Join.RowsDroppedNoZip))
	p.metrics.RowsDropped.WithLabelValues("no_coordinate").Add(float64(stats.Join.RowsDroppedNoCoord))
	p.metrics.RowsDropped.WithLabelValues(string(enrich.DropBadTimestamp)).Add(float64(stats.DroppedBadTimestamp))
	p.metrics.RowsDropped.WithLabelValues(string(enrich.DropNoMarket)).Add(float64(stats.DroppedNoMarket))
	p.metrics.RowsDropped.WithLabelValues(string(enrich.DropNoWeather)).Add(float64(stats.DroppedNoWeather))
}
