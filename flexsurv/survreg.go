package flexsurv

import (
	"errors"
	"fmt"
	"log"
	"math"
	"os"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/CamDavidsonPilon/lifelines-replications/statmodel"
)

// SurvParameter contains a packed parameter value for a parametric
// survival regression model.
type SurvParameter struct {
	coeff []float64
}

// GetCoeff returns the packed coefficient vector.
func (p *SurvParameter) GetCoeff() []float64 {
	return p.coeff
}

// SetCoeff sets the packed coefficient vector.
func (p *SurvParameter) SetCoeff(x []float64) {
	p.coeff = x
}

// Clone returns a deep copy of the parameter value.
func (p *SurvParameter) Clone() statmodel.Parameter {
	q := make([]float64, len(p.coeff))
	copy(q, p.coeff)
	return &SurvParameter{q}
}

// SurvRegConfig defines configuration parameters for a parametric survival
// regression.
type SurvRegConfig struct {

	// A logger to which logging information is written
	Log *log.Logger

	// Start contains starting values for the packed parameter vector.
	// If nil, the model's own initial point is used.
	Start []float64

	// EntryVar is the name of a variable holding entry (left
	// truncation) times.  If an empty string, all subjects enter
	// observation at time zero.
	EntryVar string

	// OptMethod is the Gonum optimization method used to fit the model.
	OptMethod optimize.Method

	// OptSettings configures the Gonum optimization routine.
	OptSettings *optimize.Settings
}

// DefaultSurvRegConfig returns a default configuration for a parametric
// survival regression.
func DefaultSurvRegConfig() *SurvRegConfig {

	return &SurvRegConfig{
		OptMethod: &optimize.BFGS{
			Linesearcher: &optimize.MoreThuente{},
		},
	}
}

// SurvReg fits a parametric cumulative hazard model to right censored,
// optionally left truncated survival data by maximum likelihood.  Each
// subject with an observed event contributes log h(T) - H(T) to the
// log-likelihood and each censored subject contributes -H(T); a subject
// with a positive entry time e additionally contributes +H(e), which
// conditions on survival to the entry time.  Ties between event and
// censoring times need no special handling since the likelihood is fully
// parametric.
type SurvReg struct {

	// The model being fit
	model HazardModel

	// The resolved covariate columns per parameter group
	des *design

	// The data to which the model is fit
	data statmodel.Dataset

	// Event/censoring times and status indicators
	time   []statmodel.Dtype
	status []statmodel.Dtype

	// Log event times, precomputed
	lt []float64

	// Log entry times for subjects with positive entry times; hasEntry
	// marks which subjects are left truncated.
	lte      []float64
	hasEntry []bool

	// Packed coefficient labels
	xnames []string

	// Starting values
	start []float64

	// Scratch buffers reused across likelihood evaluations
	eta  [][]float64
	etai []float64
	gh   []float64
	ghe  []float64
	gl   []float64

	// Optimization settings and method
	optsettings *optimize.Settings
	optmethod   optimize.Method

	log *log.Logger
}

// NewSurvReg returns a SurvReg value that fits the given hazard model to
// the data.  The time and status arguments name dataset columns holding
// the event/censoring times and the event indicators; the regressors map
// dataset columns to the model's parameter groups.
func NewSurvReg(data statmodel.Dataset, time, status string, reg Regressors, model HazardModel, config *SurvRegConfig) (*SurvReg, error) {

	if config == nil {
		config = DefaultSurvRegConfig()
	}

	tcol := data.Col(time)
	if tcol == nil {
		return nil, fmt.Errorf("flexsurv: time variable '%s' not found in dataset", time)
	}
	scol := data.Col(status)
	if scol == nil {
		return nil, fmt.Errorf("flexsurv: status variable '%s' not found in dataset", status)
	}

	des, err := buildDesign(model, data, reg)
	if err != nil {
		return nil, err
	}

	for i, t := range tcol {
		if t <= 0 {
			return nil, fmt.Errorf("%w: time %v at observation %d", ErrNonPositiveTime, t, i)
		}
	}
	for i, s := range scol {
		if s != 0 && s != 1 {
			return nil, fmt.Errorf("flexsurv: status variable '%s' has value %v at observation %d, must be 0 or 1",
				status, s, i)
		}
	}

	nobs := data.NumObs()
	lt := make([]float64, nobs)
	for i, t := range tcol {
		lt[i] = math.Log(float64(t))
	}

	var lte []float64
	var hasEntry []bool
	if config.EntryVar != "" {
		ecol := data.Col(config.EntryVar)
		if ecol == nil {
			return nil, fmt.Errorf("flexsurv: entry variable '%s' not found in dataset", config.EntryVar)
		}
		lte = make([]float64, nobs)
		hasEntry = make([]bool, nobs)
		for i, e := range ecol {
			if e < 0 {
				return nil, fmt.Errorf("flexsurv: entry time %v at observation %d is negative", e, i)
			}
			if e >= tcol[i] {
				return nil, fmt.Errorf("flexsurv: entry time %v at observation %d is not before the event/censoring time %v",
					e, i, tcol[i])
			}
			if e > 0 {
				hasEntry[i] = true
				lte[i] = math.Log(float64(e))
			}
		}
	}

	start := des.start(model)
	if config.Start != nil {
		if len(config.Start) != len(start) {
			return nil, fmt.Errorf("%w: starting vector has %d parameters, model has %d",
				ErrSchemaMismatch, len(config.Start), len(start))
		}
		copy(start, config.Start)
	}

	ng := len(des.groups)
	eta := make([][]float64, ng)
	for g := range eta {
		eta[g] = make([]float64, nobs)
	}

	sr := &SurvReg{
		model:       model,
		des:         des,
		data:        data,
		time:        tcol,
		status:      scol,
		lt:          lt,
		lte:         lte,
		hasEntry:    hasEntry,
		xnames:      des.paramNames(),
		start:       start,
		eta:         eta,
		etai:        make([]float64, ng),
		gh:          make([]float64, ng),
		ghe:         make([]float64, ng),
		gl:          make([]float64, ng),
		optsettings: config.OptSettings,
		optmethod:   config.OptMethod,
		log:         config.Log,
	}

	return sr, nil
}

// NumObs returns the number of observations in the data set.
func (sr *SurvReg) NumObs() int {
	return len(sr.time)
}

// NumParams returns the number of model parameters.
func (sr *SurvReg) NumParams() int {
	return sr.des.numParams()
}

// ParamNames returns the labels of the packed parameter vector.
func (sr *SurvReg) ParamNames() []string {
	return sr.xnames
}

// Model returns the hazard model being fit.
func (sr *SurvReg) Model() HazardModel {
	return sr.model
}

// LogLike returns the censored-data log-likelihood at the given parameter
// value.
func (sr *SurvReg) LogLike(param statmodel.Parameter) float64 {

	coeff := param.GetCoeff()
	sr.des.linpred(coeff, sr.eta)

	ng := len(sr.des.groups)
	var ll float64

	for i := range sr.time {

		for g := 0; g < ng; g++ {
			sr.etai[g] = sr.eta[g][i]
		}

		if sr.status[i] == 1 {
			ll += sr.model.LogHaz(sr.etai, sr.lt[i])
		}
		ll -= sr.model.CumHaz(sr.etai, sr.lt[i])

		if sr.hasEntry != nil && sr.hasEntry[i] {
			ll += sr.model.CumHaz(sr.etai, sr.lte[i])
		}
	}

	return ll
}

// Score fills the score vector with the gradient of the log-likelihood at
// the given parameter value.
func (sr *SurvReg) Score(param statmodel.Parameter, score []float64) {

	for j := range score {
		score[j] = 0
	}

	coeff := param.GetCoeff()
	sr.des.linpred(coeff, sr.eta)

	ng := len(sr.des.groups)

	for i := range sr.time {

		for g := 0; g < ng; g++ {
			sr.etai[g] = sr.eta[g][i]
		}

		ev := sr.status[i] == 1
		if ev {
			sr.model.LogHazGrad(sr.etai, sr.lt[i], sr.gl)
		}
		sr.model.CumHazGrad(sr.etai, sr.lt[i], sr.gh)

		trunc := sr.hasEntry != nil && sr.hasEntry[i]
		if trunc {
			sr.model.CumHazGrad(sr.etai, sr.lte[i], sr.ghe)
		}

		k := 0
		for g := 0; g < ng; g++ {
			w := -sr.gh[g]
			if ev {
				w += sr.gl[g]
			}
			if trunc {
				w += sr.ghe[g]
			}
			for j := range sr.des.cols[g] {
				score[k] += w * sr.des.x(g, j, i)
				k++
			}
		}
	}
}

// Hessian fills hess with the vectorized Hessian of the log-likelihood at
// the given parameter value.  The Hessian is the numeric Jacobian of the
// analytic score, so only the observed Hessian is available; the HessType
// argument is ignored.
func (sr *SurvReg) Hessian(param statmodel.Parameter, ht statmodel.HessType, hess []float64) {

	nvar := sr.NumParams()
	jac := mat.NewDense(nvar, nvar, hess)

	fd.Jacobian(jac, func(y, x []float64) {
		sr.Score(&SurvParameter{x}, y)
	}, param.GetCoeff(), &fd.JacobianSettings{
		Formula: fd.Central,
	})

	// Symmetrize; the numeric Jacobian of the score is not exactly
	// symmetric.
	for i := 0; i < nvar; i++ {
		for j := 0; j < i; j++ {
			v := (hess[i*nvar+j] + hess[j*nvar+i]) / 2
			hess[i*nvar+j] = v
			hess[j*nvar+i] = v
		}
	}
}

// failMessage prints information that can help diagnose optimization failures.
func (sr *SurvReg) failMessage(optrslt *optimize.Result) {

	os.Stderr.WriteString("Current point and gradient:\n")
	for j, x := range optrslt.X {
		g := math.NaN()
		if optrslt.Gradient != nil {
			g = optrslt.Gradient[j]
		}
		os.Stderr.WriteString(fmt.Sprintf("%16.8f %16.8f %s\n", x, g, sr.xnames[j]))
	}

	var e, pe float64
	var mt float64
	for i := range sr.time {
		e += float64(sr.status[i])
		mt += float64(sr.time[i])
		if sr.hasEntry != nil && sr.hasEntry[i] {
			pe++
		}
	}
	n := float64(len(sr.time))
	os.Stderr.WriteString(fmt.Sprintf("\n%.0f observations, %.0f events, mean time %.3f\n", n, e, mt/n))
	if pe > 0 {
		os.Stderr.WriteString(fmt.Sprintf("%.0f observations have positive entry times\n", pe))
	}
}

func negative(x []float64) {
	for i := range x {
		x[i] *= -1
	}
}

// stalledAtOptimum reports whether a failed optimization in fact stopped at
// a stationary point of the log-likelihood.  The More-Thuente line search
// cannot always move once the objective is flat to within its tolerance,
// and reports an error from a point that is already the maximum.  A stall
// counts as converged when the score there is negligible; the score scales
// with the number of observations, so the threshold does too.
func (sr *SurvReg) stalledAtOptimum(err error, x []float64) bool {

	if !errors.Is(err, optimize.ErrNoProgress) && !errors.Is(err, optimize.ErrLinesearcherFailure) {
		return false
	}

	grad := make([]float64, len(x))
	sr.Score(&SurvParameter{x}, grad)

	return floats.Norm(grad, math.Inf(1)) < 1e-6*float64(sr.NumObs())
}

// Fit estimates the model parameters by maximum likelihood and returns the
// fitted results.  A failure to converge is returned as an error wrapping
// ErrNonConvergence; an unconverged point is never returned as a result.
// A line search that stalls at a point where the score is negligible is
// treated as converged.
func (sr *SurvReg) Fit() (*SurvResults, error) {

	p := optimize.Problem{
		Func: func(x []float64) float64 {
			return -sr.LogLike(&SurvParameter{x})
		},
		Grad: func(grad, x []float64) {
			sr.Score(&SurvParameter{x}, grad)
			negative(grad)
		},
	}

	if sr.optsettings == nil {
		sr.optsettings = &optimize.Settings{
			GradientThreshold: 1e-5,
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-12,
				Iterations: 100,
			},
		}
	}

	start := make([]float64, len(sr.start))
	copy(start, sr.start)

	optrslt, err := optimize.Minimize(p, start, sr.optsettings, sr.optmethod)
	if err == nil {
		err = optrslt.Status.Err()
	}
	if err != nil {
		if optrslt == nil {
			return nil, fmt.Errorf("%w: %v", ErrNonConvergence, err)
		}
		if !sr.stalledAtOptimum(err, optrslt.X) {
			sr.failMessage(optrslt)
			return nil, fmt.Errorf("%w: %v", ErrNonConvergence, err)
		}
	}

	if sr.log != nil {
		sr.log.Printf("%s model converged in %d iterations, loglike=%f",
			sr.model.Name(), optrslt.Stats.MajorIterations, -optrslt.F)
	}

	param := make([]float64, len(optrslt.X))
	copy(param, optrslt.X)

	vcov, _ := statmodel.GetVcov(sr, &SurvParameter{param})

	results := &SurvResults{
		BaseResults: statmodel.NewBaseResults(sr, -optrslt.F, param, sr.xnames, vcov),
		model:       sr.model,
		des:         sr.des,
	}

	return results, nil
}

// SurvResults describes a fitted parametric survival regression model.  It
// is an immutable snapshot of the model, its knots, the design schema, and
// the converged parameter vector, usable afterward only for prediction and
// reporting.
type SurvResults struct {
	statmodel.BaseResults

	model HazardModel
	des   *design
}

// SurvSummary summarizes a fitted parametric survival regression model.
type SurvSummary struct {
	sr      *SurvReg
	results *SurvResults
}

// Summary displays a summary table of the model results.
func (rslt *SurvResults) Summary() *SurvSummary {

	return &SurvSummary{
		sr:      rslt.Model().(*SurvReg),
		results: rslt,
	}
}

// String returns a string representation of a summary table for the model.
func (ss *SurvSummary) String() string {

	sr := ss.sr

	var e, pe int
	for i := range sr.time {
		e += int(sr.status[i])
		if sr.hasEntry != nil && sr.hasEntry[i] {
			pe++
		}
	}

	sum := &statmodel.SummaryTable{
		Title: "Parametric survival regression analysis",
		Top: []string{
			fmt.Sprintf("Model:         %s", sr.model.Name()),
			fmt.Sprintf("Sample size:   %d", sr.NumObs()),
			fmt.Sprintf("Events:        %d", e),
			fmt.Sprintf("Log-likelihood: %.4f", ss.results.LogLike()),
		},
	}

	if kn, ok := sr.model.(interface{ Knots() Knots }); ok {
		sum.Top = append(sum.Top, fmt.Sprintf("Knots:         %v", kn.Knots()))
	}

	par := ss.results.Params()
	se := ss.results.StdErr()

	if se != nil {
		var lcb, ucb []float64
		for j := range par {
			lcb = append(lcb, par[j]-2*se[j])
			ucb = append(ucb, par[j]+2*se[j])
		}
		sum.ColNames = []string{"Parameter", "Coefficient", "SE", "LCB", "UCB", "Z-score", "P-value"}
		sum.Cols = [][]string{
			ss.results.Names(),
			statmodel.FloatCol(par),
			statmodel.FloatCol(se),
			statmodel.FloatCol(lcb),
			statmodel.FloatCol(ucb),
			statmodel.FloatCol(ss.results.ZScores()),
			statmodel.FloatCol(ss.results.PValues()),
		}
	} else {
		sum.ColNames = []string{"Parameter", "Coefficient"}
		sum.Cols = [][]string{
			ss.results.Names(),
			statmodel.FloatCol(par),
		}
		sum.Msg = append(sum.Msg, "Standard errors are unavailable (Hessian could not be inverted)")
	}

	if pe > 0 {
		sum.Msg = append(sum.Msg, fmt.Sprintf("%d observations have positive entry times", pe))
	}

	return sum.String()
}
