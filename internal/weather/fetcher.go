// Package weather resolves (coordinate, date) pairs to daily mean
// temperature and precipitation from an external archive, batching requests
// by coordinate and retrying each batch with a fixed-delay policy.
package weather

import (
	"context"
	"log"
	"sort"
	"time"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/geo"
)

// Series is the archive response for one coordinate: three slices aligned
// by index, one entry per day.
type Series struct {
	Dates            []enrich.Day
	MeanTemperature  []float64
	PrecipitationSum []float64
}

// Source is the external archive boundary: one ranged daily call per
// coordinate, or an error after the transport's own resilience is spent.
type Source interface {
	DailySeries(ctx context.Context, lat, lon float64, start, end enrich.Day, timeZone string) (Series, error)
}

// Request asks for the reading at one coordinate on one date.
type Request struct {
	Latitude  float64
	Longitude float64
	Date      enrich.Day
}

// RetryPolicy bounds how often a coordinate batch is re-attempted. The
// delay is fixed between attempts, matching the archive's rate behavior.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy retries each batch up to three times, five seconds apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}

// Counter is the minimal metrics hook; prometheus counters satisfy it.
type Counter interface {
	Inc()
}

// Fetcher batches requests by coordinate and issues one ranged call per
// distinct coordinate, sequentially.
type Fetcher struct {
	source   Source
	policy   RetryPolicy
	bounds   geo.Bounds
	timeZone string

	attempts      Counter
	groupsSkipped Counter
	groupsFailed  Counter

	// sleep is swapped out in tests to avoid wall-clock delays.
	sleep func(time.Duration)
}

func NewFetcher(source Source, policy RetryPolicy, bounds geo.Bounds, timeZone string) *Fetcher {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	return &Fetcher{
		source:   source,
		policy:   policy,
		bounds:   bounds,
		timeZone: timeZone,
		sleep:    time.Sleep,
	}
}

// WithCounters attaches metrics hooks for call attempts, skipped groups and
// exhausted groups. Any of them may be nil.
func (f *Fetcher) WithCounters(attempts, groupsSkipped, groupsFailed Counter) *Fetcher {
	f.attempts = attempts
	f.groupsSkipped = groupsSkipped
	f.groupsFailed = groupsFailed
	return f
}

func inc(c Counter) {
	if c != nil {
		c.Inc()
	}
}

type coordKey struct {
	lat, lon float64
}

// Readings resolves the requested pairs. Coordinates outside the legal
// bounds are skipped without any call. A batch whose retries are exhausted
// contributes no entries; the shrinkage is partial failure, never an error.
// Only dates present both in the response and in the original request set
// for that coordinate are recorded.
func (f *Fetcher) Readings(ctx context.Context, requests []Request) map[enrich.WeatherKey]enrich.WeatherReading {
	groups := make(map[coordKey]map[enrich.Day]struct{})
	for _, req := range requests {
		key := coordKey{lat: req.Latitude, lon: req.Longitude}
		dates, ok := groups[key]
		if !ok {
			dates = make(map[enrich.Day]struct{})
			groups[key] = dates
		}
		dates[req.Date] = struct{}{}
	}

	// Stable call order keeps runs reproducible and logs readable.
	keys := make([]coordKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].lat != keys[j].lat {
			return keys[i].lat < keys[j].lat
		}
		return keys[i].lon < keys[j].lon
	})

	readings := make(map[enrich.WeatherKey]enrich.WeatherReading)
	for _, key := range keys {
		if !f.bounds.Contains(key.lat, key.lon) {
			log.Printf("weather: skipping out-of-range coordinate (%f, %f)", key.lat, key.lon)
			inc(f.groupsSkipped)
			continue
		}

		dates := groups[key]
		start, end := dateRange(dates)
		series, err := f.fetchWithRetry(ctx, key, start, end)
		if err != nil {
			log.Printf("weather: giving up on (%f, %f) after %d attempts: %v", key.lat, key.lon, f.policy.MaxAttempts, err)
			inc(f.groupsFailed)
			continue
		}

		for i, date := range series.Dates {
			if _, wanted := dates[date]; !wanted {
				continue
			}
			if i >= len(series.MeanTemperature) || i >= len(series.PrecipitationSum) {
				break
			}
			readings[enrich.WeatherKey{Latitude: key.lat, Longitude: key.lon, Date: date}] = enrich.WeatherReading{
				MeanTemperature:  series.MeanTemperature[i],
				PrecipitationSum: series.PrecipitationSum[i],
			}
		}
	}
	return readings
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, key coordKey, start, end enrich.Day) (Series, error) {
	var lastErr error
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		inc(f.attempts)
		series, err := f.source.DailySeries(ctx, key.lat, key.lon, start, end, f.timeZone)
		if err == nil {
			return series, nil
		}
		lastErr = err
		log.Printf("weather: attempt %d/%d for (%f, %f) failed: %v", attempt, f.policy.MaxAttempts, key.lat, key.lon, err)
		if attempt < f.policy.MaxAttempts {
			f.sleep(f.policy.Delay)
		}
	}
	return Series{}, lastErr
}

func dateRange(dates map[enrich.Day]struct{}) (start, end enrich.Day) {
	first := true
	for d := range dates {
		if first {
			start, end = d, d
			first = false
			continue
		}
		if d < start {
			start = d
		}
		if d > end {
			end = d
		}
	}
	return start, end
}
