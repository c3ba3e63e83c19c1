package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ordercontext/order-enrichment/internal/enrich"
)

// CSVSink writes the enriched records to one flat CSV file, replacing any
// previous run's output.
type CSVSink struct {
	path string
}

func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path}
}

var csvHeader = []string{
	"order_id",
	"seller_id",
	"purchase_timestamp",
	"delivered_timestamp",
	"total_order_value",
	"market_sentiment",
	"delivery_latitude",
	"delivery_longitude",
	"mean_temperature",
	"precipitation_sum",
}

func (s *CSVSink) Write(ctx context.Context, records []enrich.EnrichedOrder) error {
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create %s: %w", s.path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []string{
			rec.OrderID,
			rec.SellerID,
			rec.PurchaseTS.Format(time.RFC3339),
			rec.DeliveredTS.Format(time.RFC3339),
			rec.TotalOrderValue.String(),
			formatFloat(rec.MarketSentiment),
			formatFloat(rec.DeliveryLatitude),
			formatFloat(rec.DeliveryLongitude),
			formatFloat(rec.MeanTemperature),
			formatFloat(rec.PrecipitationSum),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return f.Sync()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
