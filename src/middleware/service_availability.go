package middleware

import (
	"sync/atomic"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ServiceAvailability answers 503 until the simulation reports are published
// and, when a limit is set, while too many requests are in flight.
type ServiceAvailability struct {
	ready                 atomic.Bool
	maxConcurrentRequests int64
	inFlightRequests      atomic.Int64
}

func NewServiceAvailability(maxConcurrentRequests int64) *ServiceAvailability {
	return &ServiceAvailability{maxConcurrentRequests: maxConcurrentRequests}
}

func (sa *ServiceAvailability) SetReady(ready bool) {
	sa.ready.Store(ready)
	if ready {
		log.Info().Msg("Reports published, serving requests")
	}
}

func (sa *ServiceAvailability) IsReady() bool {
	return sa.ready.Load()
}

func (sa *ServiceAvailability) InFlightRequests() int64 {
	return sa.inFlightRequests.Load()
}

func (sa *ServiceAvailability) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// edge case: health check always available
		if c.Path() == "/health" {
			return c.Next()
		}

		if !sa.ready.Load() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "Service unavailable",
				"message": "Simulation still running. Please try again later.",
				"code":    503,
			})
		}

		// claim a slot before checking the limit
		current := sa.inFlightRequests.Add(1)
		defer sa.inFlightRequests.Add(-1)

		// edge case: check server overload if limit is set
		if sa.maxConcurrentRequests > 0 && current > sa.maxConcurrentRequests {
			log.Warn().
				Str("path", c.Path()).
				Int64("current_requests", current-1).
				Int64("max_requests", sa.maxConcurrentRequests).
				Msg("Request rejected: server overload")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":   "Service unavailable",
				"message": "The service is currently overloaded. Please try again later.",
				"code":    503,
			})
		}

		return c.Next()
	}
}
