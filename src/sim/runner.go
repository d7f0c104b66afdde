// Package sim wires the engine, the scheduler, a population of agents and the
// recorder into one deterministic scenario run.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog"

	"marketsim/src/agents"
	"marketsim/src/config"
	"marketsim/src/engine"
	"marketsim/src/recorder"
	"marketsim/src/scheduler"
)

const (
	noiseSigma     = 0.5
	momentumWindow = 50
	// simulated seconds between context checks
	runChunk = 60.0
)

var ErrNoAgents = errors.New("scenario has no agents")

type Options struct {
	Seed           int64
	Horizon        float64
	ArrivalRate    float64
	RecordInterval float64
	WarmupSteps    int
	DepthLevels    int
	FairValue      float64
	FairValueSigma float64
	DefaultMid     float64
	DefaultSpread  float64
	MarketMaker    agents.MarketMakerConfig
	Logger         zerolog.Logger
}

func DefaultOptions() Options {
	return Options{
		Seed:           42,
		Horizon:        3600,
		ArrivalRate:    15,
		RecordInterval: 1,
		WarmupSteps:    100,
		DepthLevels:    5,
		FairValue:      100,
		FairValueSigma: 0.0005,
		DefaultMid:     100,
		DefaultSpread:  0.05,
		MarketMaker:    agents.DefaultMarketMakerConfig(),
		Logger:         zerolog.Nop(),
	}
}

func OptionsFromConfig(cfg *config.Config, log zerolog.Logger) Options {
	opts := DefaultOptions()
	opts.Seed = cfg.Sim.Seed
	opts.Horizon = cfg.Sim.Horizon
	opts.ArrivalRate = cfg.Sim.ArrivalRate
	opts.RecordInterval = cfg.Sim.RecordInterval
	opts.WarmupSteps = cfg.Sim.WarmupSteps
	opts.DepthLevels = cfg.Sim.DepthLevels
	opts.FairValue = cfg.Sim.FairValue
	opts.FairValueSigma = cfg.Sim.FairValueSigma
	opts.DefaultMid = cfg.Engine.DefaultMid
	opts.DefaultSpread = cfg.Engine.DefaultSpread
	opts.Logger = log
	return opts
}

// Runner executes one scenario. A Runner is single use.
type Runner struct {
	scenario config.Scenario
	opts     Options
	log      zerolog.Logger

	engine *engine.MatchingEngine
	sched  *scheduler.Scheduler
	rec    *recorder.Recorder
	fv     *agents.FairValueProcess
	rng    *rand.Rand

	agents []agents.Agent
	byID   map[string]agents.Agent
	makers []*agents.MarketMaker

	err error
}

func NewRunner(scenario config.Scenario, opts Options) (*Runner, error) {
	if scenario.Noise+scenario.MarketMakers+scenario.Momentum == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAgents, scenario.Name)
	}

	log := opts.Logger.With().Str("scenario", scenario.Name).Logger()
	seed := uint64(opts.Seed)

	r := &Runner{
		scenario: scenario,
		opts:     opts,
		log:      log,
		engine: engine.NewMatchingEngine(engine.Config{
			DefaultMid:    opts.DefaultMid,
			DefaultSpread: opts.DefaultSpread,
			Seed:          opts.Seed,
			Logger:        &log,
		}),
		sched: scheduler.New().WithLogger(log),
		rec:   recorder.New(opts.DepthLevels),
		fv:    agents.NewFairValueProcess(opts.FairValue, 0, opts.FairValueSigma, rand.New(rand.NewPCG(seed, 1))),
		rng:   rand.New(rand.NewPCG(seed, 0)),
		byID:  make(map[string]agents.Agent),
	}

	// each agent draws from its own stream so adding one kind does not
	// perturb the others
	stream := uint64(2)
	next := func() *rand.Rand {
		stream++
		return rand.New(rand.NewPCG(seed, stream))
	}

	for i := 0; i < scenario.Noise; i++ {
		r.add(agents.NewNoiseTrader(fmt.Sprintf("NT_%d", i), noiseSigma, next()))
	}
	for i := 0; i < scenario.MarketMakers; i++ {
		mm := agents.NewMarketMaker(fmt.Sprintf("MM_%d", i), opts.MarketMaker, next())
		r.makers = append(r.makers, mm)
		r.add(mm)
	}
	for i := 0; i < scenario.Momentum; i++ {
		r.add(agents.NewMomentumTrader(fmt.Sprintf("MOM_%d", i), momentumWindow, next()))
	}

	return r, nil
}

func (r *Runner) add(a agents.Agent) {
	r.agents = append(r.agents, a)
	r.byID[a.ID()] = a
}

// Engine exposes the engine for inspection after a run.
func (r *Runner) Engine() *engine.MatchingEngine {
	return r.engine
}

// Run warms the book up, schedules the background and recording loops and
// drives the scheduler to the horizon. It checks ctx between chunks of
// simulated time.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	started := time.Now()
	r.log.Info().
		Int("noise", r.scenario.Noise).
		Int("market_makers", r.scenario.MarketMakers).
		Int("momentum", r.scenario.Momentum).
		Int64("seed", r.opts.Seed).
		Msg("Scenario starting")

	r.warmup()
	if r.err != nil {
		return nil, r.err
	}

	if err := r.sched.Schedule(0, r.step); err != nil {
		return nil, err
	}
	if err := r.sched.Schedule(r.opts.RecordInterval, r.recordTick); err != nil {
		return nil, err
	}

	for t := 0.0; t < r.opts.Horizon; {
		if err := ctx.Err(); err != nil {
			r.log.Warn().Float64("sim_time", r.sched.Now()).Msg("Scenario interrupted")
			return nil, err
		}
		t = min(t+runChunk, r.opts.Horizon)
		r.sched.RunUntil(t)
		if r.err != nil {
			r.log.Error().Err(r.err).Float64("sim_time", r.sched.Now()).Msg("Scenario failed")
			return nil, r.err
		}
	}
	r.settle()

	if err := r.engine.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", r.scenario.Name, err)
	}

	report := r.report(time.Since(started))
	r.log.Info().
		Int("trades", report.Metrics.TradeCount).
		Int64("volume", report.Metrics.Volume).
		Float64("vwap", report.Metrics.VWAP).
		Float64("avg_spread", report.Metrics.AvgSpread).
		Float64("volatility", report.Metrics.Volatility).
		Int("events", report.Events).
		Dur("elapsed", report.Elapsed).
		Msg("Scenario finished")
	return report, nil
}

// warmup lets random market makers seed the book with quotes before the
// clock starts. Cancels are skipped so the quotes accumulate.
func (r *Runner) warmup() {
	if len(r.makers) == 0 {
		return
	}
	for i := 0; i < r.opts.WarmupSteps && r.err == nil; i++ {
		mm := r.makers[r.rng.IntN(len(r.makers))]
		for _, intent := range mm.Act(r.engine.Snapshot(), 0) {
			if intent.Type == engine.IntentCancel {
				continue
			}
			r.submit(intent)
		}
	}
	r.settle()
	r.log.Debug().Int("orders", r.engine.OrderCount()).Msg("Warmup done")
}

// step is the self-rescheduling background loop: settle fills, let one
// random agent act, then come back after an exponential delay.
func (r *Runner) step() {
	delay := r.rng.ExpFloat64() / r.opts.ArrivalRate
	fairValue := r.fv.Step(delay)

	r.settle()

	agent := r.agents[r.rng.IntN(len(r.agents))]
	for _, intent := range agent.Act(r.engine.Snapshot(), fairValue) {
		r.submit(intent)
		if r.err != nil {
			return
		}
	}

	if err := r.sched.Schedule(delay, r.step); err != nil {
		r.err = err
	}
}

func (r *Runner) recordTick() {
	r.rec.RecordSnapshot(r.engine, r.sched.Now())
	if err := r.sched.Schedule(r.opts.RecordInterval, r.recordTick); err != nil {
		r.err = err
	}
}

func (r *Runner) submit(intent engine.Intent) {
	if _, err := r.engine.Submit(intent, r.sched.Now()); err != nil {
		r.err = fmt.Errorf("agent %s: %w", intent.AgentID, err)
	}
}

// settle hands every trade on the engine tape to the two counterparties.
func (r *Runner) settle() {
	for _, trade := range r.rec.Collect(r.engine) {
		if buyer, ok := r.byID[trade.BuyerID]; ok {
			buyer.OnFill(trade)
		}
		if trade.SellerID == trade.BuyerID {
			continue
		}
		if seller, ok := r.byID[trade.SellerID]; ok {
			seller.OnFill(trade)
		}
	}
}
