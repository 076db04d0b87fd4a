// This script replicates the flexible parametric survival analysis of
// Royston and Parmar (Statistics in Medicine, 2002), using the German
// Breast Cancer Study Group data.  Subjects are binned into three
// prognostic groups by the terciles of a published prognostic index,
// then spline-based and Weibull cumulative hazard models are fit to
// recurrence-free survival time with the group indicators as covariates.

package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"

	"github.com/CamDavidsonPilon/lifelines-replications/flexsurv"
	"github.com/CamDavidsonPilon/lifelines-replications/statmodel"
)

func readData() statmodel.Dataset {

	fid, err := os.Open("gbsg.csv")
	if err != nil {
		panic(err)
	}
	defer fid.Close()

	rd := csv.NewReader(fid)

	names, err := rd.Read()
	if err != nil {
		panic(err)
	}

	da := make([][]float64, len(names))

	for {
		row, err := rd.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}

		for j := range row {
			v, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				panic(err)
			}
			da[j] = append(da[j], v)
		}
	}

	return statmodel.NewDataset(da, names)
}

// prognosticIndex computes the prognostic index of Sauerbrei and Royston
// for each subject.
func prognosticIndex(data statmodel.Dataset) []float64 {

	age := data.Col("age")
	grade := data.Col("grade")
	nodes := data.Col("nodes")
	progRecp := data.Col("prog_recp")
	hormone := data.Col("hormone")

	lp := make([]float64, data.NumObs())
	for i := range lp {
		a := age[i] / 50
		g := 0.0
		if grade[i] >= 2 {
			g = 1
		}
		lp[i] = 1.79*math.Pow(a, -2) - 8.02*math.Pow(a, -0.5) + 0.5*g -
			1.98*math.Exp(-0.12*nodes[i]) - 0.058*math.Sqrt(progRecp[i]+1) -
			0.394*hormone[i]
	}

	return lp
}

// buildDataset bins the prognostic index at its terciles and returns a
// dataset with the survival time in years, the event indicator, and
// indicator columns for the medium and poor prognosis groups.
func buildDataset(data statmodel.Dataset) statmodel.Dataset {

	lp := prognosticIndex(data)

	srt := make([]float64, len(lp))
	copy(srt, lp)
	sort.Float64s(srt)
	q1 := stat.Quantile(1.0/3, stat.Empirical, srt, nil)
	q2 := stat.Quantile(2.0/3, stat.Empirical, srt, nil)

	rectime := data.Col("rectime")
	censrec := data.Col("censrec")

	n := data.NumObs()
	time := make([]float64, n)
	status := make([]float64, n)
	medium := make([]float64, n)
	poor := make([]float64, n)

	for i := 0; i < n; i++ {
		time[i] = rectime[i] / 365
		status[i] = censrec[i]
		if lp[i] > q2 {
			poor[i] = 1
		} else if lp[i] > q1 {
			medium[i] = 1
		}
	}

	return statmodel.NewDataset([][]float64{time, status, medium, poor},
		[]string{"time", "status", "medium", "poor"})
}

func fit(data statmodel.Dataset, model flexsurv.HazardModel) *flexsurv.SurvResults {

	reg := flexsurv.Regressors{
		flexsurv.BetaGroup: {"medium", "poor"},
		flexsurv.Phi1Group: {flexsurv.Intercept},
	}
	if _, ok := model.(*flexsurv.AltWeibull); !ok {
		reg[flexsurv.Phi2Group] = []string{flexsurv.Intercept}
	}

	sr, err := flexsurv.NewSurvReg(data, "time", "status", reg, model, nil)
	if err != nil {
		panic(err)
	}

	result, err := sr.Fit()
	if err != nil {
		panic(err)
	}

	fmt.Printf("%v\n\n", result.Summary())
	return result
}

func plotHazards(result *flexsurv.SurvResults, fname string) {

	times := make([]float64, 100)
	for i := range times {
		times[i] = 0.05 + 7*float64(i)/99
	}

	groups := map[string][]float64{
		"Good":   {0, 0},
		"Medium": {1, 0},
		"Poor":   {0, 1},
	}

	hp := flexsurv.NewHazardPlotter().Width(5).Height(4)
	for _, label := range []string{"Good", "Medium", "Poor"} {
		hz, err := result.PredictHazard(
			map[string][]float64{flexsurv.BetaGroup: groups[label]}, times)
		if err != nil {
			panic(err)
		}
		hp.Add(times, hz, label)
	}

	if err := hp.Save(fname); err != nil {
		panic(err)
	}
}

func main() {

	data := buildDataset(readData())

	phModel, err := flexsurv.NewPHSpline(flexsurv.DefaultKnots)
	if err != nil {
		panic(err)
	}
	poModel, err := flexsurv.NewPOSpline(flexsurv.DefaultKnots)
	if err != nil {
		panic(err)
	}

	fit(data, flexsurv.NewAltWeibull())
	poResult := fit(data, poModel)
	phResult := fit(data, phModel)

	plotHazards(phResult, "hazard_ph.png")
	plotHazards(poResult, "hazard_po.png")
}
