package agents

import (
	"math"
	"math/rand/v2"
)

// FairValueProcess is a geometric Brownian motion for the latent value that
// noise traders quote around.
type FairValueProcess struct {
	value float64
	mu    float64
	sigma float64
	rng   *rand.Rand
}

func NewFairValueProcess(initial, mu, sigma float64, rng *rand.Rand) *FairValueProcess {
	return &FairValueProcess{value: initial, mu: mu, sigma: sigma, rng: rng}
}

// Step advances the process by dt simulated seconds and returns the new value.
func (p *FairValueProcess) Step(dt float64) float64 {
	if dt <= 0 {
		return p.value
	}
	dW := p.rng.NormFloat64() * math.Sqrt(dt)
	p.value *= math.Exp((p.mu-0.5*p.sigma*p.sigma)*dt + p.sigma*dW)
	return p.value
}

func (p *FairValueProcess) Value() float64 {
	return p.value
}
