// Package statmodel provides shared infrastructure for fitting statistical
// models to data using maximum likelihood.  A model plugs into the package
// by satisfying the RegFitter interface, which exposes the log-likelihood,
// its gradient (score), and its Hessian.  The package produces parameter
// estimates with standard errors, Z-scores, and p-values derived from the
// observed information matrix.
package statmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dtype is the numeric type used for all data values.
type Dtype = float64

// HessType indicates the type of a Hessian matrix for a log-likelihood.
type HessType int

// ObsHess (observed Hessian) and ExpHess (expected Hessian) are the two
// types of log-likelihood Hessian matrices.
const (
	ObsHess HessType = iota
	ExpHess
)

// Parameter is the parameter of a model.
type Parameter interface {

	// GetCoeff returns the packed coefficient vector.  The returned
	// value is a reference, so changes to it propagate to the
	// parameter itself.
	GetCoeff() []float64

	// SetCoeff sets the packed coefficient vector.
	SetCoeff([]float64)

	// Clone creates a deep copy of the Parameter.
	Clone() Parameter
}

// RegFitter is a regression model that can be fit to data by maximizing a
// log-likelihood.
type RegFitter interface {

	// NumParams returns the number of parameters in the model.
	NumParams() int

	// NumObs returns the number of observations in the data set.
	NumObs() int

	// ParamNames returns a label for every element of the packed
	// parameter vector.
	ParamNames() []string

	// LogLike returns the log-likelihood at the given parameter value.
	LogLike(Parameter) float64

	// Score fills the second argument with the gradient of the
	// log-likelihood at the given parameter value.
	Score(Parameter, []float64)

	// Hessian fills the last argument with the vectorized Hessian of
	// the log-likelihood at the given parameter value.
	Hessian(Parameter, HessType, []float64)
}

// BaseResults contains the results of fitting a model to data.  Model
// packages embed it in their own results types.
type BaseResults struct {
	model   RegFitter
	loglike float64
	params  []float64
	xnames  []string
	vcov    []float64
	stderr  []float64
	zscores []float64
	pvalues []float64
}

// NewBaseResults returns a BaseResults for the given fitted model.  The
// params slice is retained, not copied; callers must pass a frozen copy.
func NewBaseResults(model RegFitter, loglike float64, params []float64, xnames []string, vcov []float64) BaseResults {
	return BaseResults{
		model:   model,
		loglike: loglike,
		params:  params,
		xnames:  xnames,
		vcov:    vcov,
	}
}

// Model returns the model that was fit to produce these results.
func (rslt *BaseResults) Model() RegFitter {
	return rslt.model
}

// Names returns the labels of the model parameters.
func (rslt *BaseResults) Names() []string {
	return rslt.xnames
}

// Params returns the point estimates of the model parameters.
func (rslt *BaseResults) Params() []float64 {
	return rslt.params
}

// LogLike returns the maximized log-likelihood value.
func (rslt *BaseResults) LogLike() float64 {
	return rslt.loglike
}

// VCov returns the sampling variance/covariance matrix of the parameter
// estimates, vectorized to one dimension.  It is nil if no covariance
// matrix is available.
func (rslt *BaseResults) VCov() []float64 {
	return rslt.vcov
}

// ensureStats fills in the standard errors, Z-scores, and p-values.  It is
// a no-op if they have already been computed or if no covariance matrix is
// available.
func (rslt *BaseResults) ensureStats() {

	if rslt.vcov == nil || rslt.stderr != nil {
		return
	}

	p := rslt.model.NumParams()
	rslt.stderr = make([]float64, p)
	rslt.zscores = make([]float64, p)
	rslt.pvalues = make([]float64, p)

	for i := 0; i < p; i++ {
		rslt.stderr[i] = math.Sqrt(rslt.vcov[i*p+i])
		rslt.zscores[i] = rslt.params[i] / rslt.stderr[i]
		rslt.pvalues[i] = 2 * normcdf(-math.Abs(rslt.zscores[i]))
	}
}

// StdErr returns the standard errors of the parameter estimates, or nil if
// no covariance matrix is available.
func (rslt *BaseResults) StdErr() []float64 {
	rslt.ensureStats()
	return rslt.stderr
}

// ZScores returns the parameter estimates divided by their standard errors,
// or nil if no covariance matrix is available.
func (rslt *BaseResults) ZScores() []float64 {
	rslt.ensureStats()
	return rslt.zscores
}

// PValues returns two-sided p-values for the null hypothesis that each
// parameter's population value is zero, or nil if no covariance matrix is
// available.
func (rslt *BaseResults) PValues() []float64 {
	rslt.ensureStats()
	return rslt.pvalues
}

func normcdf(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt(2))
}

// GetVcov returns the sampling variance/covariance matrix of the parameter
// estimates, obtained by inverting the negated Hessian of the
// log-likelihood at the given parameter value.
func GetVcov(model RegFitter, params Parameter) ([]float64, error) {

	nvar := model.NumParams()
	hess := make([]float64, nvar*nvar)
	model.Hessian(params, ObsHess, hess)

	hmat := mat.NewDense(nvar, nvar, hess)
	vcov := make([]float64, nvar*nvar)
	vmat := mat.NewDense(nvar, nvar, vcov)

	if err := vmat.Inverse(hmat); err != nil {
		return nil, fmt.Errorf("statmodel: cannot invert Hessian: %v", err)
	}
	vmat.Scale(-1, vmat)

	return vcov, nil
}
