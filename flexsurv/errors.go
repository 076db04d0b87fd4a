package flexsurv

import "errors"

var (
	// ErrInvalidKnots indicates a knot triple that is not strictly
	// positive and strictly increasing.
	ErrInvalidKnots = errors.New("flexsurv: invalid knot configuration")

	// ErrNonPositiveTime indicates an event or censoring time that is
	// not strictly positive.  The models operate on log time, so zero
	// and negative times cannot be fit.
	ErrNonPositiveTime = errors.New("flexsurv: event times must be strictly positive")

	// ErrSchemaMismatch indicates that the regressor specification or a
	// provided parameter vector does not match the parameter-group
	// schema declared by the model.
	ErrSchemaMismatch = errors.New("flexsurv: design does not match model schema")

	// ErrNonConvergence indicates that the optimizer failed to meet its
	// convergence tolerance within its iteration budget.  The fit may be
	// retried with different starting values; an unconverged point is
	// never returned silently.
	ErrNonConvergence = errors.New("flexsurv: optimization did not converge")
)
