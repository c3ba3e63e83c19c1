// Package ingest loads and cleans the raw CSV datasets. The pipeline core
// only sees the validated collections this package produces: required
// columns non-null, duplicate primary keys removed, unfulfilled orders
// filtered, per-sample coordinates range-checked.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/geo"
)

const (
	OrderLinesFile      = "order_lines.csv"
	OrdersFile          = "orders.csv"
	CustomersFile       = "customers.csv"
	LocationSamplesFile = "location_samples.csv"

	timestampLayout = "2006-01-02 15:04:05"
	statusFulfilled = "delivered"
)

// Loader reads the four input datasets from one directory.
type Loader struct {
	dir    string
	bounds geo.Bounds
}

func NewLoader(dir string, bounds geo.Bounds) *Loader {
	return &Loader{dir: dir, bounds: bounds}
}

// Load reads and cleans all datasets. Missing files or malformed CSV are
// structural failures; individual bad rows are dropped with a log line.
func (l *Loader) Load() (lines []enrich.OrderLine, orders []enrich.Order, customers []enrich.Customer, samples []geo.Sample, err error) {
	if lines, err = l.OrderLines(); err != nil {
		return nil, nil, nil, nil, err
	}
	if orders, err = l.Orders(); err != nil {
		return nil, nil, nil, nil, err
	}
	if customers, err = l.Customers(); err != nil {
		return nil, nil, nil, nil, err
	}
	if samples, err = l.LocationSamples(); err != nil {
		return nil, nil, nil, nil, err
	}
	return lines, orders, customers, samples, nil
}

// OrderLines loads the order line dataset. Required columns: order_id,
// line_no, product_id, seller_id, price, freight_value. Duplicate
// (order_id, line_no) pairs keep the first occurrence.
func (l *Loader) OrderLines() ([]enrich.OrderLine, error) {
	rows, err := l.readAll(OrderLinesFile, []string{"order_id", "line_no", "product_id", "seller_id", "price", "freight_value"})
	if err != nil {
		return nil, err
	}

	type lineKey struct {
		orderID string
		lineNo  int
	}
	seen := make(map[lineKey]struct{}, len(rows))
	lines := make([]enrich.OrderLine, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		lineNo, err := strconv.Atoi(row["line_no"])
		if err != nil {
			dropped++
			continue
		}
		price, err := decimal.NewFromString(row["price"])
		if err != nil {
			dropped++
			continue
		}
		freight, err := decimal.NewFromString(row["freight_value"])
		if err != nil {
			dropped++
			continue
		}
		if row["order_id"] == "" || row["product_id"] == "" || row["seller_id"] == "" {
			dropped++
			continue
		}
		key := lineKey{orderID: row["order_id"], lineNo: lineNo}
		if _, ok := seen[key]; ok {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		lines = append(lines, enrich.OrderLine{
			OrderID:      row["order_id"],
			LineNo:       lineNo,
			ProductID:    row["product_id"],
			SellerID:     row["seller_id"],
			Price:        price,
			FreightValue: freight,
		})
	}
	logCleaned(OrderLinesFile, len(rows), dropped)
	return lines, nil
}

// Orders loads the order dataset, keeping only fulfilled orders with both
// timestamps present. Duplicate order_id keeps the first occurrence.
func (l *Loader) Orders() ([]enrich.Order, error) {
	rows, err := l.readAll(OrdersFile, []string{"order_id", "customer_id", "purchase_timestamp", "delivered_timestamp", "status"})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	orders := make([]enrich.Order, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		if row["order_id"] == "" || row["customer_id"] == "" || row["status"] != statusFulfilled {
			dropped++
			continue
		}
		purchase, err := time.Parse(timestampLayout, row["purchase_timestamp"])
		if err != nil {
			dropped++
			continue
		}
		delivered, err := time.Parse(timestampLayout, row["delivered_timestamp"])
		if err != nil {
			dropped++
			continue
		}
		if _, ok := seen[row["order_id"]]; ok {
			dropped++
			continue
		}
		seen[row["order_id"]] = struct{}{}
		orders = append(orders, enrich.Order{
			OrderID:     row["order_id"],
			CustomerID:  row["customer_id"],
			PurchaseTS:  purchase,
			DeliveredTS: delivered,
			Status:      row["status"],
		})
	}
	logCleaned(OrdersFile, len(rows), dropped)
	return orders, nil
}

// Customers loads the customer dataset, dropping rows without an id or zip
// prefix.
func (l *Loader) Customers() ([]enrich.Customer, error) {
	rows, err := l.readAll(CustomersFile, []string{"customer_id", "zip_prefix"})
	if err != nil {
		return nil, err
	}

	customers := make([]enrich.Customer, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		if row["customer_id"] == "" || row["zip_prefix"] == "" {
			dropped++
			continue
		}
		customers = append(customers, enrich.Customer{
			CustomerID: row["customer_id"],
			ZipPrefix:  row["zip_prefix"],
		})
	}
	logCleaned(CustomersFile, len(rows), dropped)
	return customers, nil
}

// LocationSamples loads the positional samples, checking each sample's
// coordinates against the bounds and cleaning the city name.
func (l *Loader) LocationSamples() ([]geo.Sample, error) {
	rows, err := l.readAll(LocationSamplesFile, []string{"zip_prefix", "latitude", "longitude", "city", "state"})
	if err != nil {
		return nil, err
	}

	samples := make([]geo.Sample, 0, len(rows))
	dropped := 0
	for _, row := range rows {
		lat, err := strconv.ParseFloat(row["latitude"], 64)
		if err != nil {
			dropped++
			continue
		}
		lon, err := strconv.ParseFloat(row["longitude"], 64)
		if err != nil {
			dropped++
			continue
		}
		if row["zip_prefix"] == "" || !l.bounds.Contains(lat, lon) {
			dropped++
			continue
		}
		samples = append(samples, geo.Sample{
			ZipPrefix: row["zip_prefix"],
			Latitude:  lat,
			Longitude: lon,
			City:      CleanString(row["city"]),
			State:     row["state"],
		})
	}
	logCleaned(LocationSamplesFile, len(rows), dropped)
	return samples, nil
}

// readAll reads a headed CSV file into column-keyed rows. The required
// columns must all appear in the header.
func (l *Loader) readAll(name string, required []string) ([]map[string]string, error) {
	path := filepath.Join(l.dir, name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing required column %q", name, col)
		}
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		row := make(map[string]string, len(index))
		for col, i := range index {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func logCleaned(name string, in, dropped int) {
	log.Printf("ingest: %s cleaned %d -> %d rows", name, in, in-dropped)
}
