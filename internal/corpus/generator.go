package corpus

import (
	"math/rand/v2"

	"netsentry/internal/model"
)

// wellKnownPorts is the normal traffic profile's service port pool.
var wellKnownPorts = [...]float64{80, 443, 22, 53, 3389}

// Options control the synthetic corpus. Zero values select the trainer
// defaults: 1000 samples, 3% anomalous, seed 42.
type Options struct {
	Samples       int
	Contamination float64
	Seed          uint64
}

// Generate fabricates a training corpus. Normal points are short-lived
// connections of ordinary size on well-known ports (duration N(15,5) clipped
// at 1, size N(1500,200) clipped at 500); anomalous points are long and
// oversized on high ephemeral ports (duration U(100,500), size U(5000,15000),
// port U(1024,65535)). The combined set is shuffled.
func Generate(opts Options) []model.FeatureVector {
	if opts.Samples <= 0 {
		opts.Samples = 1000
	}
	if opts.Contamination <= 0 {
		opts.Contamination = 0.03
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	normal := int(float64(opts.Samples) * (1 - opts.Contamination))
	anomalous := int(float64(opts.Samples) * opts.Contamination)

	out := make([]model.FeatureVector, 0, normal+anomalous)
	for i := 0; i < normal; i++ {
		out = append(out, model.FeatureVector{
			Duration: clipMin(rng.NormFloat64()*5+15, 1),
			Size:     clipMin(rng.NormFloat64()*200+1500, 500),
			Port:     wellKnownPorts[rng.IntN(len(wellKnownPorts))],
		})
	}
	for i := 0; i < anomalous; i++ {
		out = append(out, model.FeatureVector{
			Duration: 100 + rng.Float64()*400,
			Size:     5000 + rng.Float64()*10000,
			Port:     float64(1024 + rng.IntN(65535-1024)),
		})
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

func clipMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}
