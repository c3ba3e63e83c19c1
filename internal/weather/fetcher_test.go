package weather

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/geo"
)

type call struct {
	lat, lon   float64
	start, end enrich.Day
	timeZone   string
}

type fakeSource struct {
	calls    []call
	failures int // fail this many leading attempts
	series   Series
}

func (f *fakeSource) DailySeries(ctx context.Context, lat, lon float64, start, end enrich.Day, timeZone string) (Series, error) {
	f.calls = append(f.calls, call{lat: lat, lon: lon, start: start, end: end, timeZone: timeZone})
	if len(f.calls) <= f.failures {
		return Series{}, errors.New("upstream unavailable")
	}
	return f.series, nil
}

func newTestFetcher(src Source) (*Fetcher, *[]time.Duration) {
	f := NewFetcher(src, RetryPolicy{MaxAttempts: 3, Delay: 5 * time.Second}, geo.DefaultBounds, "America/Sao_Paulo")
	var slept []time.Duration
	f.sleep = func(d time.Duration) { slept = append(slept, d) }
	return f, &slept
}

func TestReadings_BatchesByCoordinate(t *testing.T) {
	src := &fakeSource{series: Series{
		Dates:            []enrich.Day{"2017-05-18", "2017-05-19", "2017-05-20"},
		MeanTemperature:  []float64{21.0, 21.5, 22.5},
		PrecipitationSum: []float64{0.0, 1.2, 0.0},
	}}
	f, _ := newTestFetcher(src)

	readings := f.Readings(context.Background(), []Request{
		{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-18"},
		{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-20"},
	})

	if len(src.calls) != 1 {
		t.Fatalf("two dates at one coordinate must issue exactly one call, got %d", len(src.calls))
	}
	c := src.calls[0]
	if c.start != "2017-05-18" || c.end != "2017-05-20" {
		t.Fatalf("call must cover the union date range, got %s..%s", c.start, c.end)
	}
	if c.timeZone != "America/Sao_Paulo" {
		t.Fatalf("time zone must be forwarded, got %q", c.timeZone)
	}

	if len(readings) != 2 {
		t.Fatalf("expected entries for the two requested dates only, got %d", len(readings))
	}
	got := readings[enrich.WeatherKey{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-20"}]
	if got.MeanTemperature != 22.5 || got.PrecipitationSum != 0.0 {
		t.Fatalf("unexpected reading: %+v", got)
	}
	// 2017-05-19 was in the response but never requested.
	if _, ok := readings[enrich.WeatherKey{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-19"}]; ok {
		t.Fatalf("unrequested dates must not be recorded")
	}
}

func TestReadings_RetriesThenSucceeds(t *testing.T) {
	src := &fakeSource{
		failures: 2,
		series: Series{
			Dates:            []enrich.Day{"2017-05-20"},
			MeanTemperature:  []float64{22.5},
			PrecipitationSum: []float64{0.0},
		},
	}
	f, slept := newTestFetcher(src)

	readings := f.Readings(context.Background(), []Request{
		{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-20"},
	})

	if len(src.calls) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(src.calls))
	}
	if len(readings) != 1 {
		t.Fatalf("success on the third attempt must yield full data, got %d entries", len(readings))
	}
	if len(*slept) != 2 {
		t.Fatalf("expected a fixed delay between attempts only, got %d sleeps", len(*slept))
	}
	for _, d := range *slept {
		if d != 5*time.Second {
			t.Fatalf("delay must be fixed at 5s, got %s", d)
		}
	}
}

func TestReadings_RetriesExhausted(t *testing.T) {
	src := &fakeSource{failures: 3}
	f, _ := newTestFetcher(src)

	readings := f.Readings(context.Background(), []Request{
		{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-20"},
		{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-21"},
	})

	if len(src.calls) != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", len(src.calls))
	}
	if len(readings) != 0 {
		t.Fatalf("an exhausted coordinate group must yield no entries, got %d", len(readings))
	}
}

func TestReadings_InvalidCoordinateSkipped(t *testing.T) {
	src := &fakeSource{series: Series{
		Dates:            []enrich.Day{"2017-05-20"},
		MeanTemperature:  []float64{22.5},
		PrecipitationSum: []float64{0.0},
	}}
	f, _ := newTestFetcher(src)

	readings := f.Readings(context.Background(), []Request{
		{Latitude: 95, Longitude: 10, Date: "2017-05-20"},
		{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-20"},
	})

	if len(src.calls) != 1 {
		t.Fatalf("the out-of-range group must issue no calls, got %d", len(src.calls))
	}
	if src.calls[0].lat != -23.56 {
		t.Fatalf("only the valid coordinate should be fetched, got %f", src.calls[0].lat)
	}
	if len(readings) != 1 {
		t.Fatalf("expected one entry, got %d", len(readings))
	}
}

func TestReadings_DistinctCoordinatesDistinctCalls(t *testing.T) {
	src := &fakeSource{series: Series{
		Dates:            []enrich.Day{"2017-05-20"},
		MeanTemperature:  []float64{22.5},
		PrecipitationSum: []float64{0.0},
	}}
	f, _ := newTestFetcher(src)

	f.Readings(context.Background(), []Request{
		{Latitude: -23.56, Longitude: -46.65, Date: "2017-05-20"},
		{Latitude: -22.90, Longitude: -43.17, Date: "2017-05-20"},
	})

	if len(src.calls) != 2 {
		t.Fatalf("two distinct coordinates must issue two calls, got %d", len(src.calls))
	}
}
