package enrich

import (
	"sort"

	"github.com/ordercontext/order-enrichment/internal/geo"
)

// JoinStats counts the rows silently lost at each join step. Referential
// gaps are expected here and are never surfaced as errors.
type JoinStats struct {
	LinesIn             int `json:"linesIn"`
	LinesDroppedNoOrder int `json:"linesDroppedNoOrder"`
	RowsAggregated      int `json:"rowsAggregated"`
	RowsDroppedNoZip    int `json:"rowsDroppedNoZip"`
	RowsDroppedNoCoord  int `json:"rowsDroppedNoCoord"`
	RowsOut             int `json:"rowsOut"`
}

type groupKey struct {
	orderID    string
	sellerID   string
	customerID string
	purchase   int64
	delivered  int64
}

// Join resolves each order line to one aggregated row per order×seller pair
// with an attached delivery coordinate.
//
// Steps: inner-join lines to orders on order_id, sum price+freight grouped by
// (order, seller, customer, purchase ts, delivered ts), left-join customers
// for the zip prefix, left-join coordinates, then drop rows missing any
// required field. Output is ordered by (order, seller) so repeated runs over
// the same inputs produce identical sequences.
func Join(lines []OrderLine, orders []Order, customers []Customer, coords map[string]geo.Coordinate) ([]JoinedOrder, JoinStats) {
	stats := JoinStats{LinesIn: len(lines)}

	ordersByID := make(map[string]Order, len(orders))
	for _, o := range orders {
		ordersByID[o.OrderID] = o
	}
	zipByCustomer := make(map[string]string, len(customers))
	for _, c := range customers {
		zipByCustomer[c.CustomerID] = c.ZipPrefix
	}

	type group struct {
		row JoinedOrder
	}
	groups := make(map[groupKey]*group)

	for _, line := range lines {
		order, ok := ordersByID[line.OrderID]
		if !ok {
			stats.LinesDroppedNoOrder++
			continue
		}
		key := groupKey{
			orderID:    line.OrderID,
			sellerID:   line.SellerID,
			customerID: order.CustomerID,
			purchase:   order.PurchaseTS.UnixNano(),
			delivered:  order.DeliveredTS.UnixNano(),
		}
		g, ok := groups[key]
		if !ok {
			g = &group{row: JoinedOrder{
				OrderID:     line.OrderID,
				SellerID:    line.SellerID,
				CustomerID:  order.CustomerID,
				PurchaseTS:  order.PurchaseTS,
				DeliveredTS: order.DeliveredTS,
			}}
			groups[key] = g
		}
		g.row.TotalOrderValue = g.row.TotalOrderValue.Add(line.Price).Add(line.FreightValue)
	}
	stats.RowsAggregated = len(groups)

	rows := make([]JoinedOrder, 0, len(groups))
	for _, g := range groups {
		row := g.row
		if zip, ok := zipByCustomer[row.CustomerID]; ok {
			row.ZipPrefix = zip
			row.HasZip = true
			if coord, ok := coords[zip]; ok {
				row.DeliveryLatitude = coord.Latitude
				row.DeliveryLongitude = coord.Longitude
				row.HasCoordinate = true
			}
		}
		if !row.HasZip {
			stats.RowsDroppedNoZip++
			continue
		}
		if !row.HasCoordinate {
			stats.RowsDroppedNoCoord++
			continue
		}
		if row.OrderID == "" || row.SellerID == "" ||
			row.PurchaseTS.IsZero() || row.DeliveredTS.IsZero() {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].OrderID != rows[j].OrderID {
			return rows[i].OrderID < rows[j].OrderID
		}
		return rows[i].SellerID < rows[j].SellerID
	})
	stats.RowsOut = len(rows)
	return rows, stats
}
