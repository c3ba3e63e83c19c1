// Package sink hands the enriched record set to an output collaborator.
// The pipeline core is indifferent to the serialization format.
package sink

import (
	"context"

	"github.com/ordercontext/order-enrichment/internal/enrich"
)

// Sink persists one ordered set of enriched records.
type Sink interface {
	Write(ctx context.Context, records []enrich.EnrichedOrder) error
}
