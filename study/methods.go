package study

import (
	"errors"
	"fmt"
	"math"

	fet "github.com/glycerine/golang-fisher-exact"
	"github.com/montanaflynn/stats"
	"github.com/tokenme/probab/dst"
	"gonum.org/v1/gonum/stat"

	"github.com/carbocation/urinestudy/classify"
)

// MinPairs is the fewest paired numeric values MethodComparison will fit.
const MinPairs = 3

var ErrTooFewPairs = errors.New("too few paired numeric values")

// Agreement compares two analyzers on the tubes where both reported a plain
// number. Y is regressed on X; bias is Y minus X.
type Agreement struct {
	Ratio classify.Ratio
	X, Y  classify.Analyzer

	N         int
	Pearson   float64
	Slope     float64
	Intercept float64

	MeanBias   float64
	MedianBias float64
	BiasSD     float64
	// Bland-Altman 95% limits of agreement.
	LowerLimit float64
	UpperLimit float64

	// BandPairs counts tubes where both analyzers gave a valid category,
	// whether or not the value carried a comparator.
	BandPairs int
	BandAgree int
	Kappa     float64

	// Bowker's test of symmetry over the band confusion matrix; with two
	// bands it reduces to McNemar's test. P is NaN when no tube is discordant.
	SymmetryChi2 float64
	SymmetryDF   int
	SymmetryP    float64

	// Two-sided Fisher exact p-value for association between the two
	// analyzers' normal versus abnormal calls.
	FisherP float64
}

func (a Agreement) String() string {
	return fmt.Sprintf("%s %s vs %s: n=%d r=%.3f slope=%.3f intercept=%.3f bias=%.3f (median %.3f, LoA %.3f..%.3f) band agreement %d/%d kappa=%.3f symmetry p=%.3g fisher p=%.3g",
		a.Ratio.Display(), a.Y.Display(), a.X.Display(), a.N, a.Pearson, a.Slope, a.Intercept,
		a.MeanBias, a.MedianBias, a.LowerLimit, a.UpperLimit, a.BandAgree, a.BandPairs, a.Kappa, a.SymmetryP, a.FisherP)
}

// PercentAgreement is BandAgree over BandPairs, or NaN without pairs.
func (a Agreement) PercentAgreement() float64 {
	if a.BandPairs == 0 {
		return math.NaN()
	}

	return 100 * float64(a.BandAgree) / float64(a.BandPairs)
}

// MethodComparison fits y against x for one ratio.
func (r *Result) MethodComparison(ratio classify.Ratio, x, y classify.Analyzer) (Agreement, error) {
	out := Agreement{Ratio: ratio, X: x, Y: y}

	var xs, ys, diffs []float64
	var confusion [classify.NumBands][classify.NumBands]int

	for _, row := range r.Rows {
		mx, my := row.Measure[x][ratio], row.Measure[y][ratio]
		if mx.Numeric() && my.Numeric() {
			xs = append(xs, mx.Value)
			ys = append(ys, my.Value)
			diffs = append(diffs, my.Value-mx.Value)
		}

		bx, by := row.Status[x][ratio], row.Status[y][ratio]
		if bx.Valid() && by.Valid() {
			confusion[bx][by]++
			out.BandPairs++
			if bx == by {
				out.BandAgree++
			}
		}
	}

	out.Kappa = cohenKappa(confusion, out.BandPairs)
	out.SymmetryChi2, out.SymmetryDF, out.SymmetryP = bowker(confusion)
	out.FisherP = fisherNormal(confusion, out.BandPairs)

	out.N = len(xs)
	if out.N < MinPairs {
		return out, fmt.Errorf("%s %s vs %s: %w (%d, need %d)", ratio.Display(), y.Display(), x.Display(), ErrTooFewPairs, out.N, MinPairs)
	}

	out.Pearson = stat.Correlation(xs, ys, nil)
	out.Intercept, out.Slope = stat.LinearRegression(xs, ys, nil, false)
	out.MeanBias, out.BiasSD = stat.MeanStdDev(diffs, nil)
	out.LowerLimit = out.MeanBias - 1.96*out.BiasSD
	out.UpperLimit = out.MeanBias + 1.96*out.BiasSD

	median, err := stats.LoadRawData(diffs).Median()
	if err != nil {
		return out, err
	}
	out.MedianBias = median

	return out, nil
}

// MethodComparisons runs every analyzer pair for ratio. Pairs with too few
// values are returned with only their band agreement filled in.
func (r *Result) MethodComparisons(ratio classify.Ratio) []Agreement {
	var out []Agreement
	for i, x := range classify.Analyzers {
		for _, y := range classify.Analyzers[i+1:] {
			a, err := r.MethodComparison(ratio, x, y)
			if err != nil && !errors.Is(err, ErrTooFewPairs) {
				continue
			}
			out = append(out, a)
		}
	}

	return out
}

// cohenKappa is observed agreement corrected for chance, from the confusion
// matrix of valid bands. It is NaN when there are no pairs and 1 when chance
// agreement is already perfect.
func cohenKappa(confusion [classify.NumBands][classify.NumBands]int, n int) float64 {
	if n == 0 {
		return math.NaN()
	}

	total := float64(n)
	observed, expected := 0.0, 0.0
	for _, b := range classify.Bands {
		observed += float64(confusion[b][b])

		rowSum, colSum := 0, 0
		for _, other := range classify.Bands {
			rowSum += confusion[b][other]
			colSum += confusion[other][b]
		}
		expected += float64(rowSum) * float64(colSum) / total
	}
	observed /= total
	expected /= total

	if expected == 1 {
		return 1
	}

	return (observed - expected) / (1 - expected)
}

// bowker returns the symmetry statistic, its degrees of freedom (the number
// of off-diagonal band pairs with any tubes) and the chi-square p-value.
func bowker(confusion [classify.NumBands][classify.NumBands]int) (chi2 float64, df int, p float64) {
	for i, bi := range classify.Bands {
		for _, bj := range classify.Bands[i+1:] {
			nij, nji := confusion[bi][bj], confusion[bj][bi]
			if nij+nji == 0 {
				continue
			}
			d := float64(nij - nji)
			chi2 += d * d / float64(nij+nji)
			df++
		}
	}

	if df == 0 {
		return 0, 0, math.NaN()
	}

	return chi2, df, 1.0 - dst.ChiSquareCDFAt(int64(df), chi2)
}

// fisherNormal collapses the confusion matrix to normal versus any other
// band and returns the two-sided Fisher exact p-value, or NaN without pairs.
func fisherNormal(confusion [classify.NumBands][classify.NumBands]int, n int) float64 {
	if n == 0 {
		return math.NaN()
	}

	var table [2][2]int
	for _, bx := range classify.Bands {
		for _, by := range classify.Bands {
			table[abnormal(bx)][abnormal(by)] += confusion[bx][by]
		}
	}

	_, _, _, twop := fet.FisherExactTest(table[0][0], table[0][1], table[1][0], table[1][1])

	return twop
}

func abnormal(b classify.Band) int {
	if b == classify.BandNormal {
		return 0
	}

	return 1
}
