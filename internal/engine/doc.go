// Package engine connects a particle model to a simulation engine through
// a fixed four operation contract ([Native]): Start, Sync, StepCount and
// Stop over flat buffers of fixed-layout records.
//
// [Bridge] owns the buffers and the engine handle on the model side and
// implements the fixed-particle override: particles the caller marks as
// fixed are dictated by the caller on every Sync, all others are read back
// from the engine.
//
// Two engines are provided: [Local], a pure Go engine running one goroutine
// per run, and [Library], which loads an existing native engine from a
// shared library.
//
//	native := engine.NewLocal(engine.LocalOptions{})
//	bridge := engine.NewBridge(native, 2, log)
//	if err := bridge.Start(snapshot); err != nil { ... }
//	out, err := bridge.Sync(fixed, overrides)
package engine
