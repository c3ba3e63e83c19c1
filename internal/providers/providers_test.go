package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOpenMeteoArchive_DailySeries(t *testing.T) {
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"latitude":   r.URL.Query().Get("latitude"),
			"start_date": r.URL.Query().Get("start_date"),
			"end_date":   r.URL.Query().Get("end_date"),
			"daily":      r.URL.Query().Get("daily"),
			"timezone":   r.URL.Query().Get("timezone"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"daily":{"time":["2017-05-19","2017-05-20"],"temperature_2m_mean":[21.5,22.5],"precipitation_sum":[1.2,null]}}`))
	}))
	defer srv.Close()

	client := NewOpenMeteoArchive(srv.Client(), srv.URL)
	series, err := client.DailySeries(context.Background(), -23.56, -46.65, "2017-05-19", "2017-05-20", "America/Sao_Paulo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotQuery["daily"] != "temperature_2m_mean,precipitation_sum" {
		t.Fatalf("both daily metrics must be requested, got %q", gotQuery["daily"])
	}
	if gotQuery["timezone"] != "America/Sao_Paulo" {
		t.Fatalf("time zone must be sent, got %q", gotQuery["timezone"])
	}
	if gotQuery["start_date"] != "2017-05-19" || gotQuery["end_date"] != "2017-05-20" {
		t.Fatalf("unexpected date range: %v", gotQuery)
	}

	// The null precipitation day is not usable and must be skipped.
	if len(series.Dates) != 1 || series.Dates[0] != "2017-05-19" {
		t.Fatalf("expected only the fully populated day, got %v", series.Dates)
	}
	if series.MeanTemperature[0] != 21.5 || series.PrecipitationSum[0] != 1.2 {
		t.Fatalf("unexpected values: %+v", series)
	}
}

func TestOpenMeteoArchive_ServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewOpenMeteoArchive(srv.Client(), srv.URL)
	if _, err := client.DailySeries(context.Background(), -23.56, -46.65, "2017-05-19", "2017-05-20", "UTC"); err == nil {
		t.Fatalf("5xx must surface as an error for the retry policy to see")
	}
}

func TestIndexChart_ClosingSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// 2024-01-02 14:30 UTC and 2024-01-03 14:30 UTC open timestamps.
		w.Write([]byte(`{"chart":{"result":[{"timestamp":[1704205800,1704292200],"indicators":{"quote":[{"close":[4742.83,null]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	client := NewIndexChart(srv.Client(), srv.URL, "^GSPC")
	points, err := client.ClosingSeries(context.Background(), "2024-01-02", "2024-01-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("null closes must be skipped, got %d points", len(points))
	}
	if points[0].Date != "2024-01-02" || points[0].Close != 4742.83 {
		t.Fatalf("unexpected point: %+v", points[0])
	}
}

func TestIndexChart_ChartErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`))
	}))
	defer srv.Close()

	client := NewIndexChart(srv.Client(), srv.URL, "^NOPE")
	if _, err := client.ClosingSeries(context.Background(), "2024-01-02", "2024-01-03"); err == nil {
		t.Fatalf("an explicit chart error must surface")
	}
}
