package sim

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"marketsim/src/agents"
	"marketsim/src/config"
	"marketsim/src/engine"
	"marketsim/src/recorder"
)

// Report is the immutable outcome of one scenario run.
type Report struct {
	Scenario config.Scenario
	Seed     int64
	Horizon  float64
	Metrics  recorder.Metrics
	L1       []recorder.L1Row
	L2       []recorder.L2Row
	Trades   []engine.Trade
	Agents   []AgentSummary
	Events   int
	Orders   int
	Elapsed  time.Duration
}

type AgentSummary struct {
	ID        string
	Kind      string
	Inventory int64
	Balance   decimal.Decimal
}

func (r *Runner) report(elapsed time.Duration) *Report {
	rep := &Report{
		Scenario: r.scenario,
		Seed:     r.opts.Seed,
		Horizon:  r.opts.Horizon,
		Metrics:  r.rec.Metrics(),
		L1:       r.rec.L1(),
		L2:       r.rec.L2(),
		Trades:   r.rec.Trades(),
		Events:   r.sched.Processed(),
		Orders:   r.engine.OrderCount(),
		Elapsed:  elapsed,
	}

	for _, a := range r.agents {
		summary := AgentSummary{ID: a.ID()}
		switch v := a.(type) {
		case *agents.MarketMaker:
			summary.Kind, summary.Inventory, summary.Balance = "market_maker", v.Inventory(), v.Balance()
		case *agents.NoiseTrader:
			summary.Kind, summary.Inventory, summary.Balance = "noise", v.Inventory(), v.Balance()
		case *agents.MomentumTrader:
			summary.Kind, summary.Inventory, summary.Balance = "momentum", v.Inventory(), v.Balance()
		}
		rep.Agents = append(rep.Agents, summary)
	}
	return rep
}

// RunAll runs every scenario concurrently. Each run owns its engine,
// scheduler and random streams, so results match a sequential run. Reports
// come back in scenario order.
func RunAll(ctx context.Context, scenarios []config.Scenario, opts Options) ([]*Report, error) {
	reports := make([]*Report, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)

	for i, sc := range scenarios {
		g.Go(func() error {
			runner, err := NewRunner(sc, opts)
			if err != nil {
				return err
			}
			rep, err := runner.Run(ctx)
			if err != nil {
				return err
			}
			reports[i] = rep
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
