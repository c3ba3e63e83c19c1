package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ordercontext/order-enrichment/internal/geo"
)

func TestCleanString(t *testing.T) {
	cases := map[string]string{
		"São Paulo":         "sao paulo",
		"  RIBEIRÃO PRETO ": "ribeirao preto",
		"brasília":          "brasilia",
		"niterói":           "niteroi",
	}
	for in, want := range cases {
		if got := CleanString(in); got != want {
			t.Fatalf("CleanString(%q) = %q, want %q", in, got, want)
		}
	}
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoader_OrdersCleaning(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, OrdersFile,
		"order_id,customer_id,purchase_timestamp,delivered_timestamp,status\n"+
			"o1,c1,2017-05-10 14:00:00,2017-05-20 09:30:00,delivered\n"+
			"o1,c1,2017-05-10 14:00:00,2017-05-20 09:30:00,delivered\n"+ // duplicate key
			"o2,c2,2017-05-11 10:00:00,2017-05-21 08:00:00,shipped\n"+ // not fulfilled
			"o3,c3,not-a-date,2017-05-21 08:00:00,delivered\n") // bad timestamp

	l := NewLoader(dir, geo.DefaultBounds)
	orders, err := l.Orders()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected only the first valid delivered order, got %d", len(orders))
	}
	if orders[0].OrderID != "o1" {
		t.Fatalf("unexpected order: %+v", orders[0])
	}
}

func TestLoader_LocationSamplesValidation(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, LocationSamplesFile,
		"zip_prefix,latitude,longitude,city,state\n"+
			"01310,-23.56,-46.65,São Paulo,SP\n"+
			"01310,notanumber,-46.65,São Paulo,SP\n"+
			"01310,99.0,-46.65,São Paulo,SP\n") // out of range

	l := NewLoader(dir, geo.DefaultBounds)
	samples, err := l.LocationSamples()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("expected one valid sample, got %d", len(samples))
	}
	if samples[0].City != "sao paulo" {
		t.Fatalf("city should be cleaned, got %q", samples[0].City)
	}
}

func TestLoader_MissingColumnIsStructural(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, CustomersFile, "customer_id\nc1\n")

	l := NewLoader(dir, geo.DefaultBounds)
	if _, err := l.Customers(); err == nil {
		t.Fatalf("missing required column must fail the load")
	}
}

func TestLoader_MissingFileIsStructural(t *testing.T) {
	l := NewLoader(t.TempDir(), geo.DefaultBounds)
	if _, _, _, _, err := l.Load(); err == nil {
		t.Fatalf("missing input files must fail the load")
	}
}
