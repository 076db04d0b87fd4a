package flexsurv

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// predEta computes the per-group linear predictors for a single new
// covariate row.  The covs map holds, per parameter group, the regressor
// values in the group's declared order.  A group may be omitted if all of
// its regressors are intercepts, which is the usual case for the shape
// groups.
func (rslt *SurvResults) predEta(covs map[string][]float64) ([]float64, error) {

	des := rslt.des
	coeff := rslt.Params()

	eta := make([]float64, len(des.groups))
	k := 0

	for g, gname := range des.groups {

		row, ok := covs[gname]
		if ok && len(row) != len(des.cols[g]) {
			return nil, fmt.Errorf("%w: group '%s' expects %d covariate values, got %d",
				ErrSchemaMismatch, gname, len(des.cols[g]), len(row))
		}

		for j := range des.cols[g] {
			x := 1.0
			if ok {
				x = row[j]
			} else if des.cols[g][j] != nil {
				return nil, fmt.Errorf("%w: covariate values for group '%s' are required",
					ErrSchemaMismatch, gname)
			}
			eta[g] += coeff[k] * x
			k++
		}
	}

	return eta, nil
}

// PredictCumHaz returns the predicted cumulative hazard at each time in
// times for a new covariate row.  All times must be strictly positive.
func (rslt *SurvResults) PredictCumHaz(covs map[string][]float64, times []float64) ([]float64, error) {

	eta, err := rslt.predEta(covs)
	if err != nil {
		return nil, err
	}

	ch := make([]float64, len(times))
	for i, t := range times {
		if t <= 0 {
			return nil, fmt.Errorf("%w: prediction time %v", ErrNonPositiveTime, t)
		}
		ch[i] = rslt.model.CumHaz(eta, math.Log(t))
	}

	return ch, nil
}

// PredictHazard returns the predicted hazard rate at each time in times
// for a new covariate row.  All times must be strictly positive.
func (rslt *SurvResults) PredictHazard(covs map[string][]float64, times []float64) ([]float64, error) {

	eta, err := rslt.predEta(covs)
	if err != nil {
		return nil, err
	}

	hz := make([]float64, len(times))
	for i, t := range times {
		if t <= 0 {
			return nil, fmt.Errorf("%w: prediction time %v", ErrNonPositiveTime, t)
		}
		hz[i] = math.Exp(rslt.model.LogHaz(eta, math.Log(t)))
	}

	return hz, nil
}

// PredictSurvival returns the predicted survival probability at each time
// in times for a new covariate row, using S(t) = exp(-H(t)).
func (rslt *SurvResults) PredictSurvival(covs map[string][]float64, times []float64) ([]float64, error) {

	ch, err := rslt.PredictCumHaz(covs, times)
	if err != nil {
		return nil, err
	}
	for i := range ch {
		ch[i] = math.Exp(-ch[i])
	}
	return ch, nil
}

// HazardPlotter plots predicted hazard curves.
type HazardPlotter struct {
	plt    *plot.Plot
	nlines int

	width  vg.Length
	height vg.Length
}

// NewHazardPlotter returns a default HazardPlotter.
func NewHazardPlotter() *HazardPlotter {

	plt := plot.New()
	plt.X.Label.Text = "Time"
	plt.Y.Label.Text = "Hazard"

	return &HazardPlotter{
		plt:    plt,
		width:  4,
		height: 4,
	}
}

// Width sets the width of the plot in inches.
func (hp *HazardPlotter) Width(w float64) *HazardPlotter {
	hp.width = vg.Length(w)
	return hp
}

// Height sets the height of the plot in inches.
func (hp *HazardPlotter) Height(h float64) *HazardPlotter {
	hp.height = vg.Length(h)
	return hp
}

// Add adds a hazard curve to the plot.
func (hp *HazardPlotter) Add(times, hazard []float64, label string) *HazardPlotter {

	pts := make(plotter.XYs, len(times))
	for i := range times {
		pts[i].X = times[i]
		pts[i].Y = hazard[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		panic(err)
	}
	line.Color = plotutil.Color(hp.nlines)
	hp.nlines++

	hp.plt.Add(line)
	hp.plt.Legend.Add(label, line)

	return hp
}

// GetPlotStruct returns the plotting structure for this plot.
func (hp *HazardPlotter) GetPlotStruct() *plot.Plot {
	return hp.plt
}

// Save writes the plot to the given file.
func (hp *HazardPlotter) Save(fname string) error {
	return hp.plt.Save(hp.width*vg.Inch, hp.height*vg.Inch, fname)
}
