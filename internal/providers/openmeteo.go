package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/weather"
)

const defaultOpenMeteoArchiveURL = "https://archive-api.open-meteo.com/v1/archive"

// OpenMeteoArchive implements weather.Source against the Open-Meteo
// historical archive. One call covers one coordinate and a date range.
type OpenMeteoArchive struct {
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoArchive builds the client. baseURL may be empty to use the
// public archive endpoint; tests point it at a local server.
func NewOpenMeteoArchive(client *http.Client, baseURL string) *OpenMeteoArchive {
	if baseURL == "" {
		baseURL = defaultOpenMeteoArchiveURL
	}
	return &OpenMeteoArchive{
		baseURL: baseURL,
		client:  client,
		circuit: newBreaker("openmeteo-archive"),
	}
}

func (a *OpenMeteoArchive) DailySeries(ctx context.Context, lat, lon float64, start, end enrich.Day, timeZone string) (weather.Series, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
		values.Set("start_date", string(start))
		values.Set("end_date", string(end))
		values.Set("daily", "temperature_2m_mean,precipitation_sum")
		values.Set("timezone", timeZone)
		return http.NewRequest(http.MethodGet, fmt.Sprintf("%s?%s", a.baseURL, values.Encode()), nil)
	}

	resp, err := doRequest(ctx, a.client, a.circuit, buildRequest)
	if err != nil {
		return weather.Series{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Daily struct {
			Time              []string   `json:"time"`
			Temperature2mMean []*float64 `json:"temperature_2m_mean"`
			PrecipitationSum  []*float64 `json:"precipitation_sum"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Series{}, fmt.Errorf("decode archive payload: %w", err)
	}
	if len(payload.Daily.Time) == 0 {
		return weather.Series{}, fmt.Errorf("archive payload has no daily block")
	}

	var series weather.Series
	for i, day := range payload.Daily.Time {
		if i >= len(payload.Daily.Temperature2mMean) || i >= len(payload.Daily.PrecipitationSum) {
			break
		}
		temp := payload.Daily.Temperature2mMean[i]
		precip := payload.Daily.PrecipitationSum[i]
		if temp == nil || precip == nil {
			// The archive reports nulls for days it has not backfilled yet.
			continue
		}
		series.Dates = append(series.Dates, enrich.Day(day))
		series.MeanTemperature = append(series.MeanTemperature, *temp)
		series.PrecipitationSum = append(series.PrecipitationSum, *precip)
	}
	return series, nil
}
