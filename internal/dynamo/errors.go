package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model, bridge and engine operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrNilParticle indicates a nil particle was passed to the model.
	ErrNilParticle = errors.New("dynamo: nil particle")

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = errors.New("dynamo: parameter out of valid bounds")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("dynamo: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates a vector whose length is not the model dimension.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	ErrInvalidDimension = errors.New("dynamo: dimension must be 1, 2 or 3")

	ErrSelfLink          = errors.New("dynamo: link endpoints must differ")
	ErrDuplicateLink     = errors.New("dynamo: particles are already linked")
	ErrDuplicateParticle = errors.New("dynamo: particle already in model")
	ErrNotFound          = errors.New("dynamo: not found")

	// ErrActive is returned for topology changes while the engine runs.
	ErrActive = errors.New("dynamo: model is active")

	// ErrTooManyLinks indicates more links than distinct particle pairs.
	ErrTooManyLinks = errors.New("dynamo: link count exceeds available pairs")

	ErrBufferMismatch = errors.New("dynamo: buffer size mismatch")
	ErrEmptySnapshot  = errors.New("dynamo: links without particles")
	ErrEngineActive   = errors.New("dynamo: engine already started")
	ErrEngineFailure  = errors.New("dynamo: engine failure")
)

// EngineError wraps a failure reported by the engine with the operation
// that produced it.
type EngineError struct {
	Op      string
	Wrapped error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Wrapped)
}

func (e *EngineError) Unwrap() error {
	return e.Wrapped
}
