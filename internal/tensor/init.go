package tensor

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// GlorotUniform fills m from U(-l, l) with l = sqrt(6 / (fanIn + fanOut)).
// The same seed always produces the same matrix.
func GlorotUniform(m *Mat, fanIn, fanOut int, seed uint64) {
	limit := math.Sqrt(6.0 / float64(fanIn+fanOut))
	FillUniform(m.Data, -limit, limit, seed)
}

// FillUniform fills x from U(lo, hi) using a PCG stream keyed by seed.
func FillUniform(x []float32, lo, hi float64, seed uint64) {
	dist := distuv.Uniform{
		Min: lo,
		Max: hi,
		Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15),
	}
	for i := range x {
		x[i] = float32(dist.Rand())
	}
}
