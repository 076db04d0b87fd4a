package flexsurv

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/CamDavidsonPilon/lifelines-replications/statmodel"
)

func survData1() statmodel.Dataset {

	da := [][]statmodel.Dtype{
		{0.5, 1, 1.5, 2, 3, 4.2, 0.8, 2.5, 3.6, 1.2},
		{1, 1, 0, 1, 0, 1, 1, 0, 1, 1},
		{4, 2, 5, 6, 6, 5, 4, 3, 3, 5},
		{3, 2, 2, 0, 5, 4, 5, 6, 5, 4},
		{0, 0.2, 0, 0.5, 1, 0, 0, 0, 1.5, 0},
	}
	names := []string{"time", "status", "x1", "x2", "entry"}

	return statmodel.NewDataset(da, names)
}

func weibullRegressors() Regressors {
	return Regressors{
		BetaGroup: {"x1", "x2"},
		Phi1Group: {Intercept},
	}
}

func splineRegressors() Regressors {
	return Regressors{
		BetaGroup: {"x1", "x2"},
		Phi1Group: {Intercept},
		Phi2Group: {Intercept},
	}
}

func singleObs(time, status float64) statmodel.Dataset {
	da := [][]statmodel.Dtype{{time}, {status}, {1.5}}
	return statmodel.NewDataset(da, []string{"time", "status", "x"})
}

// A censored observation contributes exactly -H(T) to the log-likelihood.
func TestLogLikeCensored(t *testing.T) {

	data := singleObs(2, 0)
	reg := Regressors{BetaGroup: {"x"}, Phi1Group: {Intercept}}

	sr, err := NewSurvReg(data, "time", "status", reg, NewAltWeibull(), nil)
	if err != nil {
		t.Fatal(err)
	}

	coeff := []float64{0.3, 0.7}
	ll := sr.LogLike(&SurvParameter{coeff})

	want := -math.Exp(0.3*1.5 + 0.7*math.Log(2))
	if math.Abs(ll-want) > 1e-12 {
		t.Errorf("censored log-likelihood is %v, expected %v", ll, want)
	}
}

// An observed event contributes log h(T) - H(T).
func TestLogLikeEvent(t *testing.T) {

	data := singleObs(2, 1)
	reg := Regressors{BetaGroup: {"x"}, Phi1Group: {Intercept}}

	sr, err := NewSurvReg(data, "time", "status", reg, NewAltWeibull(), nil)
	if err != nil {
		t.Fatal(err)
	}

	coeff := []float64{0.3, 0.7}
	ll := sr.LogLike(&SurvParameter{coeff})

	lt := math.Log(2.0)
	eta := 0.3 * 1.5
	logh := eta + 0.7*lt + math.Log(0.7) - lt
	want := logh - math.Exp(eta+0.7*lt)

	if math.Abs(ll-want) > 1e-12 {
		t.Errorf("event log-likelihood is %v, expected %v", ll, want)
	}
}

// A positive entry time adds back the cumulative hazard at entry,
// conditioning on survival to that point.
func TestLogLikeTruncated(t *testing.T) {

	da := [][]statmodel.Dtype{{2}, {0}, {1.5}, {0.5}}
	data := statmodel.NewDataset(da, []string{"time", "status", "x", "entry"})
	reg := Regressors{BetaGroup: {"x"}, Phi1Group: {Intercept}}

	config := DefaultSurvRegConfig()
	config.EntryVar = "entry"

	sr, err := NewSurvReg(data, "time", "status", reg, NewAltWeibull(), config)
	if err != nil {
		t.Fatal(err)
	}

	coeff := []float64{0.3, 0.7}
	ll := sr.LogLike(&SurvParameter{coeff})

	eta := 0.3 * 1.5
	want := -math.Exp(eta+0.7*math.Log(2)) + math.Exp(eta+0.7*math.Log(0.5))

	if math.Abs(ll-want) > 1e-12 {
		t.Errorf("truncated log-likelihood is %v, expected %v", ll, want)
	}
}

// The engine's likelihood assembly agrees with summing the model's own
// hazard values over the data set.
func TestLogLikeMatchesModel(t *testing.T) {

	data := survData1()
	model, err := NewPHSpline(DefaultKnots)
	if err != nil {
		t.Fatal(err)
	}

	sr, err := NewSurvReg(data, "time", "status", splineRegressors(), model, nil)
	if err != nil {
		t.Fatal(err)
	}

	coeff := []float64{0.1, -0.05, 1.2, 0.05}
	ll := sr.LogLike(&SurvParameter{coeff})

	time := data.Col("time")
	status := data.Col("status")
	x1 := data.Col("x1")
	x2 := data.Col("x2")

	var want float64
	for i := range time {
		eta := []float64{0.1*x1[i] - 0.05*x2[i], 1.2, 0.05}
		lt := math.Log(time[i])
		if status[i] == 1 {
			want += model.LogHaz(eta, lt)
		}
		want -= model.CumHaz(eta, lt)
	}

	if math.Abs(ll-want) > 1e-10 {
		t.Errorf("engine log-likelihood %v, direct evaluation %v", ll, want)
	}
}

func TestSurvRegErrors(t *testing.T) {

	model := NewAltWeibull()

	// Non-positive time
	da := [][]statmodel.Dtype{{1, 0, 2}, {1, 1, 0}, {1, 2, 3}}
	data := statmodel.NewDataset(da, []string{"time", "status", "x"})
	reg := Regressors{BetaGroup: {"x"}, Phi1Group: {Intercept}}
	if _, err := NewSurvReg(data, "time", "status", reg, model, nil); !errors.Is(err, ErrNonPositiveTime) {
		t.Errorf("expected ErrNonPositiveTime, got %v", err)
	}

	// Invalid status value
	da = [][]statmodel.Dtype{{1, 2, 3}, {1, 2, 0}, {1, 2, 3}}
	data = statmodel.NewDataset(da, []string{"time", "status", "x"})
	if _, err := NewSurvReg(data, "time", "status", reg, model, nil); err == nil {
		t.Error("expected error for status value outside {0,1}")
	}

	data = survData1()

	// Missing parameter group
	bad := Regressors{BetaGroup: {"x1"}}
	if _, err := NewSurvReg(data, "time", "status", bad, model, nil); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch for missing group, got %v", err)
	}

	// Group unknown to the model
	bad = Regressors{BetaGroup: {"x1"}, Phi1Group: {Intercept}, Phi2Group: {Intercept}}
	if _, err := NewSurvReg(data, "time", "status", bad, model, nil); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch for unknown group, got %v", err)
	}

	// Regressor not in the dataset
	bad = Regressors{BetaGroup: {"nope"}, Phi1Group: {Intercept}}
	if _, err := NewSurvReg(data, "time", "status", bad, model, nil); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch for unknown regressor, got %v", err)
	}

	// Shape group with more than one regressor
	bad = Regressors{BetaGroup: {"x1"}, Phi1Group: {"x1", "x2"}}
	if _, err := NewSurvReg(data, "time", "status", bad, model, nil); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch for wide shape group, got %v", err)
	}

	// Starting vector of the wrong length
	config := DefaultSurvRegConfig()
	config.Start = []float64{0, 0}
	if _, err := NewSurvReg(data, "time", "status", weibullRegressors(), model, config); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch for bad start vector, got %v", err)
	}

	// Entry after event time
	da = [][]statmodel.Dtype{{1, 2}, {1, 0}, {1, 2}, {0, 2.5}}
	data = statmodel.NewDataset(da, []string{"time", "status", "x", "entry"})
	config = DefaultSurvRegConfig()
	config.EntryVar = "entry"
	reg = Regressors{BetaGroup: {"x"}, Phi1Group: {Intercept}}
	if _, err := NewSurvReg(data, "time", "status", reg, model, config); err == nil {
		t.Error("expected error for entry time after event time")
	}
}

func TestParamLayout(t *testing.T) {

	data := survData1()
	model, err := NewPOSpline(DefaultKnots)
	if err != nil {
		t.Fatal(err)
	}

	sr, err := NewSurvReg(data, "time", "status", splineRegressors(), model, nil)
	if err != nil {
		t.Fatal(err)
	}

	if sr.NumParams() != 4 {
		t.Errorf("NumParams is %d, expected 4", sr.NumParams())
	}
	if sr.NumObs() != 10 {
		t.Errorf("NumObs is %d, expected 10", sr.NumObs())
	}

	want := []string{"beta_x1", "beta_x2", "phi1_", "phi2_"}
	got := sr.ParamNames()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("parameter name %d is %q, expected %q", i, got[i], want[i])
		}
	}
}

func TestFitAndPredict(t *testing.T) {

	data := survData1()
	model := NewAltWeibull()

	sr, err := NewSurvReg(data, "time", "status", weibullRegressors(), model, nil)
	if err != nil {
		t.Fatal(err)
	}

	rslt, err := sr.Fit()
	if err != nil {
		t.Fatal(err)
	}

	par := rslt.Params()
	times := []float64{0.5, 1, 2, 4}

	ch, err := rslt.PredictCumHaz(map[string][]float64{BetaGroup: {2, 3}}, times)
	if err != nil {
		t.Fatal(err)
	}

	for i, tm := range times {
		eta := []float64{par[0]*2 + par[1]*3, par[2]}
		want := model.CumHaz(eta, math.Log(tm))
		if math.Abs(ch[i]-want) > 1e-12 {
			t.Errorf("predicted cumulative hazard %v at t=%v, expected %v", ch[i], tm, want)
		}
		if !(ch[i] > 0) {
			t.Errorf("predicted cumulative hazard %v at t=%v is not positive", ch[i], tm)
		}
	}

	hz, err := rslt.PredictHazard(map[string][]float64{BetaGroup: {2, 3}}, times)
	if err != nil {
		t.Fatal(err)
	}
	for i := range hz {
		if !(hz[i] > 0) {
			t.Errorf("predicted hazard %v at t=%v is not positive", hz[i], times[i])
		}
	}

	sp, err := rslt.PredictSurvival(map[string][]float64{BetaGroup: {2, 3}}, times)
	if err != nil {
		t.Fatal(err)
	}
	for i := range sp {
		if math.Abs(sp[i]-math.Exp(-ch[i])) > 1e-12 {
			t.Errorf("survival %v at t=%v does not match exp(-H)", sp[i], times[i])
		}
	}

	// Wrong covariate row width
	if _, err := rslt.PredictCumHaz(map[string][]float64{BetaGroup: {2}}, times); !errors.Is(err, ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch for short covariate row, got %v", err)
	}

	// Non-positive prediction time
	if _, err := rslt.PredictCumHaz(map[string][]float64{BetaGroup: {2, 3}}, []float64{0}); !errors.Is(err, ErrNonPositiveTime) {
		t.Errorf("expected ErrNonPositiveTime for t=0, got %v", err)
	}

	smry := rslt.Summary().String()
	if !strings.Contains(smry, "Alt Weibull") {
		t.Errorf("summary does not mention the model name:\n%s", smry)
	}
	if !strings.Contains(smry, "beta_x1") {
		t.Errorf("summary does not list the parameters:\n%s", smry)
	}
}
