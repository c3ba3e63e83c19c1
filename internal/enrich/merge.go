package enrich

import (
	"fmt"
	"time"
)

// Merger attaches the two external mappings to the joined rows. Market
// prices are looked up by the purchase date, weather readings by the
// delivered date; the asymmetry is intentional and must not be unified.
type Merger struct {
	loc *time.Location
}

// NewMerger loads the named zone used to interpret the wall-clock order
// timestamps. An unknown zone is a structural failure.
func NewMerger(timeZone string) (*Merger, error) {
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", timeZone, err)
	}
	return &Merger{loc: loc}, nil
}

// Localized is a joined row whose timestamps have been resolved to UTC
// instants, with the derived calendar dates used as enrichment keys.
type Localized struct {
	JoinedOrder
	PurchaseUTC  time.Time
	DeliveredUTC time.Time
	PurchaseDay  Day
	DeliveredDay Day
}

// Localize interprets both order timestamps as wall-clock times in the
// configured zone and converts them to UTC. Rows whose timestamps are
// ambiguous or nonexistent under the zone's transition rules are returned
// in dropped, mirroring how unresolvable values remove a record entirely.
func (m *Merger) Localize(rows []JoinedOrder) (out []Localized, dropped []Outcome) {
	out = make([]Localized, 0, len(rows))
	for _, row := range rows {
		purchase, ok := resolveWall(row.PurchaseTS, m.loc)
		if !ok {
			dropped = append(dropped, Outcome{Dropped: true, Reason: DropBadTimestamp})
			continue
		}
		delivered, ok := resolveWall(row.DeliveredTS, m.loc)
		if !ok {
			dropped = append(dropped, Outcome{Dropped: true, Reason: DropBadTimestamp})
			continue
		}
		out = append(out, Localized{
			JoinedOrder:  row,
			PurchaseUTC:  purchase,
			DeliveredUTC: delivered,
			PurchaseDay:  DayOf(purchase.UTC()),
			DeliveredDay: DayOf(delivered.UTC()),
		})
	}
	return out, dropped
}

// Merge performs the exact-key lookups and builds the final records. A row
// missing either lookup is discarded in full, never partially enriched.
func (m *Merger) Merge(rows []Localized, prices map[Day]float64, readings map[WeatherKey]WeatherReading) []Outcome {
	outcomes := make([]Outcome, 0, len(rows))
	for _, row := range rows {
		price, ok := prices[row.PurchaseDay]
		if !ok {
			outcomes = append(outcomes, Outcome{Dropped: true, Reason: DropNoMarket})
			continue
		}
		reading, ok := readings[WeatherKey{
			Latitude:  row.DeliveryLatitude,
			Longitude: row.DeliveryLongitude,
			Date:      row.DeliveredDay,
		}]
		if !ok {
			outcomes = append(outcomes, Outcome{Dropped: true, Reason: DropNoWeather})
			continue
		}
		outcomes = append(outcomes, Outcome{Record: EnrichedOrder{
			OrderID:           row.OrderID,
			SellerID:          row.SellerID,
			PurchaseTS:        row.PurchaseUTC,
			DeliveredTS:       row.DeliveredUTC,
			TotalOrderValue:   row.TotalOrderValue,
			MarketSentiment:   price,
			DeliveryLatitude:  row.DeliveryLatitude,
			DeliveryLongitude: row.DeliveryLongitude,
			MeanTemperature:   reading.MeanTemperature,
			PrecipitationSum:  reading.PrecipitationSum,
		}})
	}
	return outcomes
}

// resolveWall maps the wall-clock fields of t onto loc and returns the UTC
// instant. It reports false when that wall clock does not exist in loc (DST
// gap) or occurs twice (DST fold), since neither has a single resolution.
func resolveWall(t time.Time, loc *time.Location) (time.Time, bool) {
	lt := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	if !sameWall(lt, t) {
		// time.Date normalized the fields: the wall clock fell in a gap.
		return time.Time{}, false
	}
	if sameWallIn(lt.Add(-time.Hour), lt, loc) || sameWallIn(lt.Add(time.Hour), lt, loc) {
		// An instant one hour away shows the same local wall clock: the
		// clock was set back across this time and the reading is ambiguous.
		return time.Time{}, false
	}
	return lt.UTC(), true
}

func sameWall(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day() &&
		a.Hour() == b.Hour() && a.Minute() == b.Minute() && a.Second() == b.Second()
}

func sameWallIn(a, b time.Time, loc *time.Location) bool {
	return sameWall(a.In(loc), b.In(loc))
}
