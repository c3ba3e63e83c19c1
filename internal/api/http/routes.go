package httpapi

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/ordercontext/order-enrichment/internal/enrich"
	"github.com/ordercontext/order-enrichment/internal/store"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, runs *store.MemoryStore) {
	v1 := app.Group("/api/v1")

	v1.Get("/runs", func(c *fiber.Ctx) error {
		history := runs.History()
		summaries := make([]fiber.Map, 0, len(history))
		for _, run := range history {
			summaries = append(summaries, fiber.Map{
				"startedAt": run.StartedAt,
				"duration":  run.Duration.String(),
				"records":   len(run.Records),
				"stats":     run.Stats,
			})
		}
		return c.JSON(fiber.Map{"runs": summaries})
	})

	v1.Get("/runs/latest", func(c *fiber.Ctx) error {
		run, err := runs.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no enrichment run has completed yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read run history")
		}

		return c.JSON(fiber.Map{
			"startedAt": run.StartedAt,
			"duration":  run.Duration.String(),
			"records":   len(run.Records),
			"stats":     run.Stats,
		})
	})

	v1.Get("/orders/enriched", func(c *fiber.Ctx) error {
		var req enrichedQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		run, err := runs.Latest()
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no enrichment run has completed yet")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read run history")
		}

		records := filterRecords(run.Records, req.SellerID, req.Limit)
		return c.JSON(fiber.Map{
			"startedAt": run.StartedAt,
			"total":     len(run.Records),
			"returned":  len(records),
			"records":   records,
		})
	})
}

// enrichedQuery holds query parameters for the enriched-orders endpoint.
type enrichedQuery struct {
	SellerID string
	Limit    int `validate:"gte=1,lte=1000"`
}

func (q *enrichedQuery) bind(c *fiber.Ctx) error {
	q.SellerID = c.Query("seller_id")
	q.Limit = 100

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("limit must be an integer")
		}
		q.Limit = limit
	}
	return nil
}

func filterRecords(records []enrich.EnrichedOrder, sellerID string, limit int) []enrich.EnrichedOrder {
	out := make([]enrich.EnrichedOrder, 0, limit)
	for _, rec := range records {
		if sellerID != "" && rec.SellerID != sellerID {
			continue
		}
		out = append(out, rec)
		if len(out) >= limit {
			break
		}
	}
	return out
}
