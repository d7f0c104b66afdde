package handlers

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"marketsim/src/engine"
	"marketsim/src/models"
	"marketsim/src/recorder"
	"marketsim/src/sim"
)

// ReportHandler serves finished scenario reports. Reports are published once
// and never change afterwards.
type ReportHandler struct {
	StartTime    time.Time
	defaultLimit int
	maxLimit     int

	mu      sync.RWMutex
	reports []*sim.Report
	byName  map[string]*sim.Report
}

func NewReportHandler(defaultLimit, maxLimit int) *ReportHandler {
	return &ReportHandler{
		StartTime:    time.Now(),
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		byName:       make(map[string]*sim.Report),
	}
}

func (h *ReportHandler) Publish(reports []*sim.Report) {
	byName := make(map[string]*sim.Report, len(reports))
	for _, r := range reports {
		byName[r.Scenario.Name] = r
	}

	h.mu.Lock()
	h.reports = reports
	h.byName = byName
	h.mu.Unlock()
}

func (h *ReportHandler) lookup(c *fiber.Ctx) (*sim.Report, error) {
	name := c.Params("name")

	h.mu.RLock()
	report, ok := h.byName[name]
	h.mu.RUnlock()

	if !ok {
		log.Debug().Str("scenario", name).Msg("Scenario not found")
		return nil, c.Status(fiber.StatusNotFound).JSON(models.ErrorResponse{
			Error: "Scenario not found",
		})
	}
	return report, nil
}

// limit reads ?limit=, clamped to the configured maximum.
func (h *ReportHandler) limit(c *fiber.Ctx) (int, bool) {
	raw := c.Query("limit", strconv.Itoa(h.defaultLimit))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, false
	}
	return min(n, h.maxLimit), true
}

func (h *ReportHandler) ListScenarios(c *fiber.Ctx) error {
	h.mu.RLock()
	reports := h.reports
	h.mu.RUnlock()

	resp := models.ScenarioListResponse{Scenarios: make([]models.ScenarioSummary, 0, len(reports))}
	for _, r := range reports {
		resp.Seed = r.Seed
		resp.Scenarios = append(resp.Scenarios, summarize(r))
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ReportHandler) GetScenario(c *fiber.Ctx) error {
	report, err := h.lookup(c)
	if report == nil {
		return err
	}

	resp := models.ScenarioDetailResponse{
		ScenarioSummary: summarize(report),
		Seed:            report.Seed,
		Horizon:         report.Horizon,
		AvgSpread:       report.Metrics.AvgSpread,
		Volatility:      report.Metrics.Volatility,
		LastMid:         report.Metrics.LastMid,
		Events:          report.Events,
		Orders:          report.Orders,
		ElapsedMs:       report.Elapsed.Milliseconds(),
		Agents:          make([]models.AgentSummary, 0, len(report.Agents)),
	}
	for _, a := range report.Agents {
		resp.Agents = append(resp.Agents, models.AgentSummary{
			ID:        a.ID,
			Kind:      a.Kind,
			Inventory: a.Inventory,
			Balance:   a.Balance.StringFixed(2),
		})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// GetSnapshots returns the most recent L1 samples, oldest first.
func (h *ReportHandler) GetSnapshots(c *fiber.Ctx) error {
	report, err := h.lookup(c)
	if report == nil {
		return err
	}
	limit, ok := h.limit(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid limit parameter",
		})
	}

	rows := tail(report.L1, limit)
	resp := models.SnapshotsResponse{
		Scenario:  report.Scenario.Name,
		Total:     len(report.L1),
		Snapshots: make([]models.SnapshotRow, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Snapshots = append(resp.Snapshots, snapshotRow(row))
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// GetTrades returns the most recent trades, oldest first.
func (h *ReportHandler) GetTrades(c *fiber.Ctx) error {
	report, err := h.lookup(c)
	if report == nil {
		return err
	}
	limit, ok := h.limit(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse{
			Error: "Invalid limit parameter",
		})
	}

	trades := tail(report.Trades, limit)
	resp := models.TradesResponse{
		Scenario: report.Scenario.Name,
		Total:    len(report.Trades),
		Trades:   make([]models.TradeInfo, 0, len(trades)),
	}
	for _, t := range trades {
		resp.Trades = append(resp.Trades, models.TradeInfo{
			TradeID:       t.ID,
			Timestamp:     t.Timestamp,
			Price:         t.Price,
			Quantity:      t.Quantity,
			BuyerID:       t.BuyerID,
			SellerID:      t.SellerID,
			AggressorSide: string(t.AggressorSide),
		})
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

// GetDepth returns the last L2 sample of the run.
func (h *ReportHandler) GetDepth(c *fiber.Ctx) error {
	report, err := h.lookup(c)
	if report == nil {
		return err
	}

	resp := models.DepthResponse{
		Scenario: report.Scenario.Name,
		Bids:     []models.PriceLevelInfo{},
		Asks:     []models.PriceLevelInfo{},
	}
	if len(report.L2) > 0 {
		last := report.L2[len(report.L2)-1]
		resp.Timestamp = last.Timestamp
		resp.Bids = levels(last.Bids)
		resp.Asks = levels(last.Asks)
	}
	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *ReportHandler) HealthCheck(c *fiber.Ctx) error {
	h.mu.RLock()
	n := len(h.reports)
	h.mu.RUnlock()

	return c.Status(fiber.StatusOK).JSON(models.HealthResponse{
		Status:        "healthy",
		Ready:         n > 0,
		UptimeSeconds: int64(time.Since(h.StartTime).Seconds()),
		Scenarios:     n,
	})
}

func summarize(r *sim.Report) models.ScenarioSummary {
	s := models.ScenarioSummary{
		Name:         r.Scenario.Name,
		Noise:        r.Scenario.Noise,
		MarketMakers: r.Scenario.MarketMakers,
		Momentum:     r.Scenario.Momentum,
		TradeCount:   r.Metrics.TradeCount,
		Volume:       r.Metrics.Volume,
	}
	if r.Metrics.HasVWAP {
		vwap := r.Metrics.VWAP
		s.VWAP = &vwap
	}
	return s
}

// snapshotRow maps an empty side to null; +Inf has no JSON encoding.
func snapshotRow(row recorder.L1Row) models.SnapshotRow {
	out := models.SnapshotRow{
		Timestamp: row.Timestamp,
		MidPrice:  row.MidPrice,
		Spread:    row.Spread,
	}
	if row.HasBid {
		bid := row.BestBid
		out.BestBid = &bid
	}
	if row.HasAsk {
		ask := row.BestAsk
		out.BestAsk = &ask
	}
	return out
}

func levels(in []engine.Level) []models.PriceLevelInfo {
	out := make([]models.PriceLevelInfo, 0, len(in))
	for _, l := range in {
		out = append(out, models.PriceLevelInfo{Price: l.Price, Quantity: l.Quantity})
	}
	return out
}

func tail[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
