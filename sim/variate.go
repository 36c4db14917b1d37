package sim

import (
	"math"
	"math/rand"
)

// DelaySampler is the random-variate service. Given a rate and a stream it
// returns a non-negative delay. Every inspector and workstation passes its own
// stream so draws are never shared between them.
type DelaySampler interface {
	Delay(rate float64, stream *rand.Rand) float64
}

// ExponentialSampler draws exponential delays by inverting the CDF:
// delay = -ln(1-U) / rate with U uniform on [0,1).
type ExponentialSampler struct{}

// Delay implements DelaySampler. Panics if rate <= 0.
func (ExponentialSampler) Delay(rate float64, stream *rand.Rand) float64 {
	if rate <= 0 {
		panic("ExponentialSampler.Delay: rate must be positive")
	}
	return -math.Log(1-stream.Float64()) / rate
}

// FixedSampler returns 1/rate for every draw. Useful for reasoning about
// event order in tests and dry runs.
type FixedSampler struct{}

// Delay implements DelaySampler.
func (FixedSampler) Delay(rate float64, _ *rand.Rand) float64 {
	return 1 / rate
}
