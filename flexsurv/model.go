package flexsurv

import "math"

// Parameter group labels shared by the models.  BetaGroup is the
// regression group whose width follows the design; the phi groups carry
// the shape of the baseline hazard and are single-column.
const (
	BetaGroup = "beta_"
	Phi1Group = "phi1_"
	Phi2Group = "phi2_"
)

// HazardModel is a parametric cumulative hazard surface on the log time
// scale.  An implementation is stateless apart from its fixed knot
// configuration.  The surface is evaluated through the per-group linear
// predictors eta, ordered as returned by Groups; the fitting engine maps
// coefficients and covariates to eta and chains the returned gradients
// through the covariate values.
//
// Every implementation must return a strictly positive cumulative hazard
// for all finite eta and lt, and must be continuously differentiable in
// both arguments, since the likelihood requires the time derivative of the
// cumulative hazard and the optimizer requires the parameter gradient.
type HazardModel interface {

	// Name identifies the model in summary output.
	Name() string

	// Groups returns the parameter group labels in canonical order.
	// The first group is always BetaGroup.
	Groups() []string

	// Start returns the initial value for every coefficient in the
	// given group.
	Start(group string) float64

	// CumHaz returns the cumulative hazard at log time lt.
	CumHaz(eta []float64, lt float64) float64

	// LogHaz returns the log of the hazard function, the time
	// derivative of the cumulative hazard.  It is -Inf where the
	// hazard implied by eta is not positive.
	LogHaz(eta []float64, lt float64) float64

	// CumHazGrad fills grad with the partial derivatives of CumHaz
	// with respect to each element of eta.
	CumHazGrad(eta []float64, lt float64, grad []float64)

	// LogHazGrad fills grad with the partial derivatives of LogHaz
	// with respect to each element of eta.
	LogHazGrad(eta []float64, lt float64, grad []float64)
}

// softplus computes log(1+exp(x)) without overflowing for large x.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

func expit(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// PHSpline is the spline-based proportional hazards model.  The log
// cumulative hazard is the sum of the covariate linear predictor, a linear
// term in log time, and a restricted cubic spline term:
//
//	H(t|x) = exp(x'beta) * exp(phi1*log(t) + phi2*B(log(t)))
//
// The exponential link makes the cumulative hazard strictly positive by
// construction, so the optimizer needs no positivity constraint.
type PHSpline struct {
	knots         Knots
	lk0, lk1, lk2 float64
}

// NewPHSpline returns a proportional hazards spline model with the given
// knots.  The knots are validated and log-transformed once here.
func NewPHSpline(knots Knots) (*PHSpline, error) {
	if err := knots.validate(); err != nil {
		return nil, err
	}
	m := &PHSpline{knots: knots}
	m.lk0, m.lk1, m.lk2 = knots.logs()
	return m, nil
}

// Knots returns the knot locations on the natural time scale.
func (m *PHSpline) Knots() Knots {
	return m.knots
}

// Name identifies the model in summary output.
func (m *PHSpline) Name() string {
	return "PH spline"
}

// Groups returns the parameter group labels.
func (m *PHSpline) Groups() []string {
	return []string{BetaGroup, Phi1Group, Phi2Group}
}

// Start returns the initial coefficient value for a group: zero for the
// covariate effects and the spline curvature, and a mild Weibull-like
// slope for phi1, so the fit starts near a proportional hazards Weibull
// model.
func (m *PHSpline) Start(group string) float64 {
	if group == Phi1Group {
		return 0.1
	}
	return 0
}

// CumHaz returns the cumulative hazard at log time lt.
func (m *PHSpline) CumHaz(eta []float64, lt float64) float64 {
	b := Basis(lt, m.lk1, m.lk0, m.lk2)
	return math.Exp(eta[0] + eta[1]*lt + eta[2]*b)
}

// LogHaz returns the log hazard at log time lt.
func (m *PHSpline) LogHaz(eta []float64, lt float64) float64 {
	b := Basis(lt, m.lk1, m.lk0, m.lk2)
	bp := BasisDeriv(lt, m.lk1, m.lk0, m.lk2)
	psi := eta[1] + eta[2]*bp
	if psi <= 0 {
		return math.Inf(-1)
	}
	return eta[0] + eta[1]*lt + eta[2]*b + math.Log(psi) - lt
}

// CumHazGrad fills grad with the partial derivatives of CumHaz with
// respect to eta.
func (m *PHSpline) CumHazGrad(eta []float64, lt float64, grad []float64) {
	b := Basis(lt, m.lk1, m.lk0, m.lk2)
	h := math.Exp(eta[0] + eta[1]*lt + eta[2]*b)
	grad[0] = h
	grad[1] = h * lt
	grad[2] = h * b
}

// LogHazGrad fills grad with the partial derivatives of LogHaz with
// respect to eta.
func (m *PHSpline) LogHazGrad(eta []float64, lt float64, grad []float64) {
	b := Basis(lt, m.lk1, m.lk0, m.lk2)
	bp := BasisDeriv(lt, m.lk1, m.lk0, m.lk2)
	psi := eta[1] + eta[2]*bp
	grad[0] = 1
	grad[1] = lt + 1/psi
	grad[2] = b + bp/psi
}

// POSpline is the spline-based proportional odds model.  It shares the
// spline term of PHSpline but maps the linear predictor to the cumulative
// hazard through a softplus rather than an exponential:
//
//	H(t|x) = log(1 + exp(x'beta + phi1*log(t) + phi2*B(log(t))))
//
// Under this link, exp(H)-1 is the cumulative odds of failure by time t,
// and covariates act multiplicatively on those odds rather than on the
// hazard rate.  The softplus is strictly positive for all finite inputs.
type POSpline struct {
	knots         Knots
	lk0, lk1, lk2 float64
}

// NewPOSpline returns a proportional odds spline model with the given
// knots.  The knots are validated and log-transformed once here.
func NewPOSpline(knots Knots) (*POSpline, error) {
	if err := knots.validate(); err != nil {
		return nil, err
	}
	m := &POSpline{knots: knots}
	m.lk0, m.lk1, m.lk2 = knots.logs()
	return m, nil
}

// Knots returns the knot locations on the natural time scale.
func (m *POSpline) Knots() Knots {
	return m.knots
}

// Name identifies the model in summary output.
func (m *POSpline) Name() string {
	return "PO spline"
}

// Groups returns the parameter group labels.
func (m *POSpline) Groups() []string {
	return []string{BetaGroup, Phi1Group, Phi2Group}
}

// Start returns the initial coefficient value for a group.
func (m *POSpline) Start(group string) float64 {
	if group == Phi1Group {
		return 0.1
	}
	return 0
}

func (m *POSpline) z(eta []float64, lt float64) float64 {
	b := Basis(lt, m.lk1, m.lk0, m.lk2)
	return eta[0] + eta[1]*lt + eta[2]*b
}

// CumHaz returns the cumulative hazard at log time lt.
func (m *POSpline) CumHaz(eta []float64, lt float64) float64 {
	return softplus(m.z(eta, lt))
}

// LogHaz returns the log hazard at log time lt.
func (m *POSpline) LogHaz(eta []float64, lt float64) float64 {
	bp := BasisDeriv(lt, m.lk1, m.lk0, m.lk2)
	psi := eta[1] + eta[2]*bp
	if psi <= 0 {
		return math.Inf(-1)
	}
	return -softplus(-m.z(eta, lt)) + math.Log(psi) - lt
}

// CumHazGrad fills grad with the partial derivatives of CumHaz with
// respect to eta.
func (m *POSpline) CumHazGrad(eta []float64, lt float64, grad []float64) {
	b := Basis(lt, m.lk1, m.lk0, m.lk2)
	s := expit(eta[0] + eta[1]*lt + eta[2]*b)
	grad[0] = s
	grad[1] = s * lt
	grad[2] = s * b
}

// LogHazGrad fills grad with the partial derivatives of LogHaz with
// respect to eta.
func (m *POSpline) LogHazGrad(eta []float64, lt float64, grad []float64) {
	b := Basis(lt, m.lk1, m.lk0, m.lk2)
	bp := BasisDeriv(lt, m.lk1, m.lk0, m.lk2)
	psi := eta[1] + eta[2]*bp
	c := expit(-(eta[0] + eta[1]*lt + eta[2]*b))
	grad[0] = c
	grad[1] = c*lt + 1/psi
	grad[2] = c*b + bp/psi
}

// AltWeibull is a two-parameter Weibull model in the same parameterization
// as the spline models but without the spline term:
//
//	H(t|x) = exp(x'beta) * exp(phi1*log(t))
//
// It is the no-curvature baseline that PHSpline approaches as phi2 goes to
// zero.
type AltWeibull struct{}

// NewAltWeibull returns the alternative Weibull parameterization.
func NewAltWeibull() *AltWeibull {
	return &AltWeibull{}
}

// Name identifies the model in summary output.
func (m *AltWeibull) Name() string {
	return "Alt Weibull"
}

// Groups returns the parameter group labels.
func (m *AltWeibull) Groups() []string {
	return []string{BetaGroup, Phi1Group}
}

// Start returns the initial coefficient value for a group.
func (m *AltWeibull) Start(group string) float64 {
	if group == Phi1Group {
		return 0.1
	}
	return 0
}

// CumHaz returns the cumulative hazard at log time lt.
func (m *AltWeibull) CumHaz(eta []float64, lt float64) float64 {
	return math.Exp(eta[0] + eta[1]*lt)
}

// LogHaz returns the log hazard at log time lt.
func (m *AltWeibull) LogHaz(eta []float64, lt float64) float64 {
	if eta[1] <= 0 {
		return math.Inf(-1)
	}
	return eta[0] + eta[1]*lt + math.Log(eta[1]) - lt
}

// CumHazGrad fills grad with the partial derivatives of CumHaz with
// respect to eta.
func (m *AltWeibull) CumHazGrad(eta []float64, lt float64, grad []float64) {
	h := math.Exp(eta[0] + eta[1]*lt)
	grad[0] = h
	grad[1] = h * lt
}

// LogHazGrad fills grad with the partial derivatives of LogHaz with
// respect to eta.
func (m *AltWeibull) LogHazGrad(eta []float64, lt float64, grad []float64) {
	grad[0] = 1
	grad[1] = lt + 1/eta[1]
}
