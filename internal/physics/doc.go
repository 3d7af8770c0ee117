// Package physics provides the force law integrated by the local engine.
//
// [ForceField] implements [dynamo.System] over the engine's flat particle
// buffer and delegates the O(n^2) pair term to a [compute.Backend]:
//
//	field := physics.NewForceField(2, masses, bonds)
//	field.Coefficients = physics.Coefficients{Viscosity: 10, ParticleAttraction: -1, ParticlePower: -2}
//	field.Derive(y, dy)
package physics
