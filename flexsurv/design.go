package flexsurv

import (
	"fmt"

	"github.com/CamDavidsonPilon/lifelines-replications/statmodel"
)

// Intercept is the regressor name denoting an implicit column of ones; it
// does not need to be present in the dataset.
const Intercept = "1"

// Regressors maps a parameter group label to the names of the dataset
// columns whose coefficients make up that group, for example
//
//	Regressors{"beta_": {"medium", "poor"}, "phi1_": {"1"}, "phi2_": {"1"}}
//
// Every group declared by the model must be present.  The shape groups
// (phi1_, phi2_) must contain exactly one regressor, usually the
// intercept.
type Regressors map[string][]string

// design holds the covariate columns resolved for each parameter group of
// a model.  A nil column denotes the implicit intercept.
type design struct {
	groups []string
	names  [][]string
	cols   [][][]statmodel.Dtype
	nobs   int
}

// buildDesign resolves the regressors against the dataset, following the
// parameter-group schema declared by the model.
func buildDesign(model HazardModel, data statmodel.Dataset, reg Regressors) (*design, error) {

	groups := model.Groups()

	for g := range reg {
		found := false
		for _, h := range groups {
			if g == h {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: model %s has no parameter group '%s'",
				ErrSchemaMismatch, model.Name(), g)
		}
	}

	des := &design{
		groups: groups,
		nobs:   data.NumObs(),
	}

	for _, g := range groups {

		vnames, ok := reg[g]
		if !ok {
			return nil, fmt.Errorf("%w: parameter group '%s' is missing from the regressors",
				ErrSchemaMismatch, g)
		}
		if len(vnames) == 0 {
			return nil, fmt.Errorf("%w: parameter group '%s' has no regressors",
				ErrSchemaMismatch, g)
		}
		if g != BetaGroup && len(vnames) != 1 {
			return nil, fmt.Errorf("%w: parameter group '%s' must have exactly one regressor, got %d",
				ErrSchemaMismatch, g, len(vnames))
		}

		var names []string
		var cols [][]statmodel.Dtype
		for _, vn := range vnames {
			if vn == Intercept {
				names = append(names, g)
				cols = append(cols, nil)
				continue
			}
			col := data.Col(vn)
			if col == nil {
				return nil, fmt.Errorf("%w: regressor '%s' for group '%s' not found in dataset",
					ErrSchemaMismatch, vn, g)
			}
			names = append(names, g+vn)
			cols = append(cols, col)
		}

		des.names = append(des.names, names)
		des.cols = append(des.cols, cols)
	}

	return des, nil
}

// numParams returns the total number of coefficients across all groups.
func (d *design) numParams() int {
	n := 0
	for _, c := range d.cols {
		n += len(c)
	}
	return n
}

// paramNames returns the packed coefficient labels, group by group.
func (d *design) paramNames() []string {
	var na []string
	for _, v := range d.names {
		na = append(na, v...)
	}
	return na
}

// x returns the value of regressor j of group g at observation i.
func (d *design) x(g, j, i int) float64 {
	col := d.cols[g][j]
	if col == nil {
		return 1
	}
	return float64(col[i])
}

// linpred fills eta[g][i] with the linear predictor of each group at each
// observation, given the packed coefficient vector.
func (d *design) linpred(coeff []float64, eta [][]float64) {

	k := 0
	for g := range d.groups {
		eg := eta[g]
		for i := range eg {
			eg[i] = 0
		}
		for j := range d.cols[g] {
			c := coeff[k]
			k++
			col := d.cols[g][j]
			if col == nil {
				for i := range eg {
					eg[i] += c
				}
				continue
			}
			for i := range eg {
				eg[i] += c * float64(col[i])
			}
		}
	}
}

// start returns the packed initial coefficient vector for the model.
func (d *design) start(model HazardModel) []float64 {
	v := make([]float64, 0, d.numParams())
	for g, name := range d.groups {
		s := model.Start(name)
		for range d.cols[g] {
			v = append(v, s)
		}
	}
	return v
}
