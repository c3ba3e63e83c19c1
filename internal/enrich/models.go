package enrich

import (
	"time"

	"github.com/shopspring/decimal"
)

// Day is a calendar date in ISO format (2006-01-02). ISO dates compare
// lexicographically in chronological order, so Day values can be ordered
// and min/maxed as plain strings.
type Day string

const dayLayout = "2006-01-02"

// DayOf returns the calendar date of t in t's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(dayLayout))
}

// Time returns the midnight UTC instant of the day.
func (d Day) Time() (time.Time, error) {
	return time.Parse(dayLayout, string(d))
}

// OrderLine is a single line item of a marketplace order.
// Unique key: (OrderID, LineNo).
type OrderLine struct {
	OrderID      string
	LineNo       int
	ProductID    string
	SellerID     string
	Price        decimal.Decimal
	FreightValue decimal.Decimal
}

// Order is a fulfilled marketplace order. Upstream cleaning guarantees
// Status is terminal and OrderID is unique.
type Order struct {
	OrderID     string
	CustomerID  string
	PurchaseTS  time.Time
	DeliveredTS time.Time
	Status      string
}

// Customer links an order to a delivery zip prefix.
type Customer struct {
	CustomerID string
	ZipPrefix  string
}

// JoinedOrder is one row per order×seller pair produced by the relational
// join, before external enrichment. Zip and coordinate attachment come from
// left joins, so their presence is tracked explicitly.
type JoinedOrder struct {
	OrderID         string
	SellerID        string
	CustomerID      string
	PurchaseTS      time.Time
	DeliveredTS     time.Time
	TotalOrderValue decimal.Decimal

	ZipPrefix string
	HasZip    bool

	DeliveryLatitude  float64
	DeliveryLongitude float64
	HasCoordinate     bool
}

// EnrichedOrder is the final analytical record. Every field is mandatory;
// records that cannot fill all of them are discarded, never nulled.
type EnrichedOrder struct {
	OrderID           string          `json:"orderId"`
	SellerID          string          `json:"sellerId"`
	PurchaseTS        time.Time       `json:"purchaseTimestamp"`  // UTC
	DeliveredTS       time.Time       `json:"deliveredTimestamp"` // UTC
	TotalOrderValue   decimal.Decimal `json:"totalOrderValue"`
	MarketSentiment   float64         `json:"marketSentiment"`
	DeliveryLatitude  float64         `json:"deliveryLatitude"`
	DeliveryLongitude float64         `json:"deliveryLongitude"`
	MeanTemperature   float64         `json:"meanTemperature"`
	PrecipitationSum  float64         `json:"precipitationSum"`
}

// WeatherKey identifies one weather lookup: a delivery coordinate and the
// calendar date of delivery.
type WeatherKey struct {
	Latitude  float64
	Longitude float64
	Date      Day
}

// WeatherReading holds the daily metrics attached to a record.
type WeatherReading struct {
	MeanTemperature  float64
	PrecipitationSum float64
}

// DropReason explains why a record vanished during enrichment. The external
// contract only surfaces kept records; reasons exist so the loss is testable
// and countable.
type DropReason string

const (
	DropBadTimestamp DropReason = "bad_timestamp"
	DropNoMarket     DropReason = "no_market_price"
	DropNoWeather    DropReason = "no_weather_reading"
)

// Outcome is the per-record result of the merge stage.
type Outcome struct {
	Record  EnrichedOrder
	Dropped bool
	Reason  DropReason
}

// Kept filters outcomes down to the surviving records.
func Kept(outcomes []Outcome) []EnrichedOrder {
	records := make([]EnrichedOrder, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Dropped {
			records = append(records, o.Record)
		}
	}
	return records
}
