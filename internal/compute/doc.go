// Package compute provides the pairwise force kernel used by the local
// engine.
//
// The CPU backend runs a symmetric serial loop for small particle counts
// and a row-partitioned parallel loop otherwise:
//
//	backend := compute.Default()
//	backend.PairForces(pos, masses, dim, attraction, power, acc)
package compute
