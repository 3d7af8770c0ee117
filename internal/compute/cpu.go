package compute

import (
	"math"
	"runtime"

	"github.com/san-kum/hadron/internal/dynamo"
)

// serialThreshold is the particle count below which the symmetric serial
// loop beats spawning workers.
const serialThreshold = 64

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

func (c *CPUBackend) Name() string { return "cpu" }

func (c *CPUBackend) PairForces(pos, masses []float64, dim int, attraction, power float64, acc []float64) {
	if attraction == 0 {
		return
	}
	n := len(masses)
	if n < serialThreshold || c.workers <= 1 {
		pairSerial(pos, masses, dim, attraction, power, acc)
		return
	}
	c.pairParallel(pos, masses, dim, attraction, power, acc)
}

func pairSerial(pos, masses []float64, dim int, attraction, power float64, acc []float64) {
	n := len(masses)
	var v [3]float64

	for i := 0; i < n; i++ {
		pi := pos[i*dim : i*dim+dim]
		for j := i + 1; j < n; j++ {
			pj := pos[j*dim : j*dim+dim]

			d2 := 0.0
			for k := 0; k < dim; k++ {
				v[k] = pj[k] - pi[k]
				d2 += v[k] * v[k]
			}
			if d2 == 0 {
				continue
			}
			f := attraction * math.Pow(math.Sqrt(d2), power-1)

			for k := 0; k < dim; k++ {
				acc[i*dim+k] += v[k] * f * masses[j]
				acc[j*dim+k] -= v[k] * f * masses[i]
			}
		}
	}
}

// pairParallel splits rows between workers. Each worker visits all j for
// its own rows, so writes to acc never overlap.
func (c *CPUBackend) pairParallel(pos, masses []float64, dim int, attraction, power float64, acc []float64) {
	n := len(masses)
	minChunk := (n + c.workers - 1) / c.workers

	dynamo.ParallelFor(n, minChunk, func(start, end int) {
		var v [3]float64
		for i := start; i < end; i++ {
			pi := pos[i*dim : i*dim+dim]
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				pj := pos[j*dim : j*dim+dim]

				d2 := 0.0
				for k := 0; k < dim; k++ {
					v[k] = pj[k] - pi[k]
					d2 += v[k] * v[k]
				}
				if d2 == 0 {
					continue
				}
				f := attraction * math.Pow(math.Sqrt(d2), power-1) * masses[j]

				for k := 0; k < dim; k++ {
					acc[i*dim+k] += v[k] * f
				}
			}
		}
	})
}
