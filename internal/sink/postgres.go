package sink

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ordercontext/order-enrichment/internal/enrich"
)

// PostgresSink batch-upserts enriched records keyed by (order_id, seller_id).
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

const upsertQuery = `INSERT INTO enriched_orders
(order_id, seller_id, purchase_ts, delivered_ts, total_order_value, market_sentiment,
 delivery_latitude, delivery_longitude, mean_temperature, precipitation_sum, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,NOW())
ON CONFLICT (order_id, seller_id) DO UPDATE
SET purchase_ts = EXCLUDED.purchase_ts,
    delivered_ts = EXCLUDED.delivered_ts,
    total_order_value = EXCLUDED.total_order_value,
    market_sentiment = EXCLUDED.market_sentiment,
    delivery_latitude = EXCLUDED.delivery_latitude,
    delivery_longitude = EXCLUDED.delivery_longitude,
    mean_temperature = EXCLUDED.mean_temperature,
    precipitation_sum = EXCLUDED.precipitation_sum,
    updated_at = NOW()`

func (s *PostgresSink) Write(ctx context.Context, records []enrich.EnrichedOrder) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertQuery,
			rec.OrderID, rec.SellerID, rec.PurchaseTS, rec.DeliveredTS,
			rec.TotalOrderValue, rec.MarketSentiment,
			rec.DeliveryLatitude, rec.DeliveryLongitude,
			rec.MeanTemperature, rec.PrecipitationSum)
	}

	res := s.pool.SendBatch(ctx, batch)
	defer res.Close()

	for range records {
		if _, err := res.Exec(); err != nil {
			return err
		}
	}
	return nil
}
