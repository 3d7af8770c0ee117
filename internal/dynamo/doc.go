// Package dynamo provides the primitives shared by the particle model and
// its engines:
//
//   - [State]: flat float64 vector (positions, velocities, engine state)
//   - [System]: first order ODE evaluated in place
//   - [Integrator]: adaptive stepper returning the step actually taken
//   - sentinel errors and [EngineError]
//   - [ParallelFor]: chunked parallel loop
//
// # Example
//
//	field := physics.NewForceField(2, masses, links)
//	solver := integrators.NewAdaptiveEuler()
//	taken, err := solver.Step(field, y, 0.01, 50)
//
// Values in this package carry no synchronization; callers that share a
// [State] between goroutines guard it themselves.
package dynamo
