package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func status(t *testing.T, app *fiber.App, path string) int {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestServiceAvailabilityReadiness(t *testing.T) {
	sa := NewServiceAvailability(0)
	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })
	app.Get("/api", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	assert.Equal(t, http.StatusServiceUnavailable, status(t, app, "/api"))
	assert.Equal(t, http.StatusOK, status(t, app, "/health"))

	sa.SetReady(true)
	assert.True(t, sa.IsReady())
	assert.Equal(t, http.StatusOK, status(t, app, "/api"))
	assert.Equal(t, int64(0), sa.InFlightRequests())
}

func TestServiceAvailabilityOverload(t *testing.T) {
	sa := NewServiceAvailability(1)
	sa.SetReady(true)
	sa.inFlightRequests.Store(1)

	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/api", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	assert.Equal(t, http.StatusServiceUnavailable, status(t, app, "/api"))

	sa.inFlightRequests.Store(0)
	assert.Equal(t, http.StatusOK, status(t, app, "/api"))
}

// TestServiceAvailabilityConcurrentLimit holds admitted requests open while a
// burst arrives and checks the limit is never exceeded.
func TestServiceAvailabilityConcurrentLimit(t *testing.T) {
	const limit, burst = 2, 20
	sa := NewServiceAvailability(limit)
	sa.SetReady(true)

	var active, peak atomic.Int64
	release := make(chan struct{})

	app := fiber.New()
	app.Use(sa.Middleware())
	app.Get("/api", func(c *fiber.Ctx) error {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		<-release
		active.Add(-1)
		return c.SendStatus(fiber.StatusOK)
	})

	var ok, rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < burst; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api", nil), -1)
			if err != nil {
				t.Errorf("request failed: %v", err)
				return
			}
			resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusOK:
				ok.Add(1)
			case http.StatusServiceUnavailable:
				rejected.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool {
		return active.Load()+rejected.Load() == burst
	}, 5*time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(limit))
	assert.GreaterOrEqual(t, ok.Load(), int64(1))
	assert.Equal(t, int64(burst), ok.Load()+rejected.Load())
	assert.Equal(t, int64(0), sa.InFlightRequests())
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(RequestLogger(zerolog.New(&buf), true))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	assert.Equal(t, http.StatusOK, status(t, app, "/ping"))
	assert.Contains(t, buf.String(), `"path":"/ping"`)
	assert.Contains(t, buf.String(), `"status":200`)

	buf.Reset()
	quiet := fiber.New()
	quiet.Use(RequestLogger(zerolog.New(&buf), false))
	quiet.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	assert.Equal(t, http.StatusOK, status(t, quiet, "/ping"))
	assert.Empty(t, buf.String())
}
