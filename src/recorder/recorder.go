// Package recorder samples the book during a run and keeps the executed
// trades, then derives session metrics from both.
package recorder

import (
	"math"

	"github.com/shopspring/decimal"

	"marketsim/src/engine"
)

// L1Row is a top-of-book sample.
type L1Row struct {
	Timestamp float64
	engine.Snapshot
}

// L2Row is a depth sample of the best resting orders per side.
type L2Row struct {
	Timestamp float64
	Bids      []engine.Level
	Asks      []engine.Level
}

// Metrics summarises a finished session.
type Metrics struct {
	VWAP       float64
	HasVWAP    bool // false when nothing traded
	AvgSpread  float64
	Volatility float64 // stddev of log returns of the sampled mid
	TradeCount int
	Volume     int64
	LastMid    float64
}

type Recorder struct {
	depthLevels int
	l1          []L1Row
	l2          []L2Row
	trades      []engine.Trade
}

func New(depthLevels int) *Recorder {
	if depthLevels < 1 {
		depthLevels = 1
	}
	return &Recorder{depthLevels: depthLevels}
}

// RecordSnapshot samples L1 and L2 from e at simulation time ts.
func (r *Recorder) RecordSnapshot(e *engine.MatchingEngine, ts float64) L1Row {
	row := L1Row{Timestamp: ts, Snapshot: e.Snapshot()}
	r.l1 = append(r.l1, row)

	bids, asks := e.Depth(r.depthLevels)
	r.l2 = append(r.l2, L2Row{Timestamp: ts, Bids: bids, Asks: asks})
	return row
}

// Collect drains the engine tape into the recorder and returns the drained
// batch so the caller can settle fills.
func (r *Recorder) Collect(e *engine.MatchingEngine) []engine.Trade {
	batch := e.Tape().Drain()
	r.trades = append(r.trades, batch...)
	return batch
}

func (r *Recorder) L1() []L1Row {
	return r.l1
}

func (r *Recorder) L2() []L2Row {
	return r.l2
}

func (r *Recorder) Trades() []engine.Trade {
	return r.trades
}

// LastDepth returns the most recent depth sample.
func (r *Recorder) LastDepth() (L2Row, bool) {
	if len(r.l2) == 0 {
		return L2Row{}, false
	}
	return r.l2[len(r.l2)-1], true
}

func (r *Recorder) Metrics() Metrics {
	m := Metrics{TradeCount: len(r.trades)}

	notional := decimal.Zero
	for _, t := range r.trades {
		m.Volume += t.Quantity
		notional = notional.Add(decimal.NewFromFloat(t.Price).Mul(decimal.NewFromInt(t.Quantity)))
	}
	if m.Volume > 0 {
		m.VWAP, _ = notional.Div(decimal.NewFromInt(m.Volume)).Round(6).Float64()
		m.HasVWAP = true
	}

	if len(r.l1) > 0 {
		var spreadSum float64
		for _, row := range r.l1 {
			spreadSum += row.Spread
		}
		m.AvgSpread = spreadSum / float64(len(r.l1))
		m.LastMid = r.l1[len(r.l1)-1].MidPrice
	}

	m.Volatility = volatility(r.l1)
	return m
}

// volatility is the sample standard deviation of log returns between
// consecutive mids. Fewer than two returns yields zero.
func volatility(rows []L1Row) float64 {
	returns := make([]float64, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].MidPrice, rows[i].MidPrice
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss / float64(len(returns)-1))
}
