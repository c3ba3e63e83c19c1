package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/market"
)

const defaultIndexChartURL = "https://query1.finance.yahoo.com"

// IndexChart implements market.Source against a Yahoo-style chart endpoint,
// returning the daily closing series of one index symbol.
type IndexChart struct {
	baseURL string
	symbol  string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewIndexChart(client *http.Client, baseURL, symbol string) *IndexChart {
	if baseURL == "" {
		baseURL = defaultIndexChartURL
	}
	return &IndexChart{
		baseURL: baseURL,
		symbol:  symbol,
		client:  client,
		circuit: newBreaker("index-chart"),
	}
}

func (c *IndexChart) ClosingSeries(ctx context.Context, start, end enrich.Day) ([]market.Point, error) {
	startTime, err := start.Time()
	if err != nil {
		return nil, fmt.Errorf("parse start date: %w", err)
	}
	endTime, err := end.Time()
	if err != nil {
		return nil, fmt.Errorf("parse end date: %w", err)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("period1", fmt.Sprintf("%d", startTime.Unix()))
		// period2 is exclusive; extend one day so the end date is covered.
		values.Set("period2", fmt.Sprintf("%d", endTime.AddDate(0, 0, 1).Unix()))
		values.Set("interval", "1d")
		u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(c.symbol), values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequest(ctx, c.client, c.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error *struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		} `json:"chart"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode chart payload: %w", err)
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("chart error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 || len(payload.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart payload has no result for %s", c.symbol)
	}

	result := payload.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	points := make([]market.Point, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		points = append(points, market.Point{
			Date:  enrich.DayOf(time.Unix(ts, 0).UTC()),
			Close: *closes[i],
		})
	}
	return points, nil
}
