package middleware

import (
	"strconv"
	"time"

	"happyinvest/internal/metrics"

	"github.com/gofiber/fiber/v2"
)

// RequestMetrics records method, route template, status and latency of every request.
func RequestMetrics(collector metrics.Collector) fiber.Handler {
	if collector == nil {
		collector = metrics.NoopCollector{}
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		path := c.Route().Path
		if path == "" {
			path = "unmatched"
		}
		collector.RecordHTTPRequest(c.Method(), path, strconv.Itoa(status), time.Since(start))
		return err
	}
}
