package compute

// Backend accumulates pairwise power law accelerations.
//
// pos holds n points of dim components each. For every pair (i, j) with
// separation v = p_j - p_i and distance d > 0 the backend adds
// v * attraction * d^(power-1) * m_j to acc_i and the opposite term scaled
// by m_i to acc_j. acc is not cleared.
type Backend interface {
	Name() string
	PairForces(pos, masses []float64, dim int, attraction, power float64, acc []float64)
}

// Default returns the backend engines use when none is configured.
func Default() Backend {
	return NewCPUBackend()
}
