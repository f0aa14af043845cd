// Package classifier trains a logistic regression that predicts late
// deliveries from a few numeric order attributes.
package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/k-siddhartha-ai/swiggy-delivery-analysis/internal/dataset"
)

var (
	// ErrMissingColumns is returned when a feature column is absent.
	ErrMissingColumns = errors.New("required columns not found for ML training")
	// ErrInsufficientData is returned when the table is too small to split or
	// the training split holds a single class.
	ErrInsufficientData = errors.New("insufficient data for ML training")
)

// DefaultFeatures are used when Options.Features is empty.
var DefaultFeatures = []string{dataset.ColDistance, dataset.ColPrepTime, dataset.ColRating}

// minRows is the smallest table Train accepts.
const minRows = 4

// Options controls the split and the optimizer.
type Options struct {
	Features []string
	// TestSize is the held-out fraction; 0 means 0.25.
	TestSize float64
	Seed     int64
	// MaxIter bounds the optimizer's major iterations; 0 means 1000.
	MaxIter int
	// C is the inverse L2 strength; 0 means 1.
	C float64
}

func (o Options) withDefaults() Options {
	if len(o.Features) == 0 {
		o.Features = DefaultFeatures
	}
	if o.TestSize <= 0 || o.TestSize >= 1 {
		o.TestSize = 0.25
	}
	if o.MaxIter <= 0 {
		o.MaxIter = 1000
	}
	if o.C <= 0 {
		o.C = 1
	}
	return o
}

// Result is a trained model and its held-out accuracy.
type Result struct {
	Features  []string
	Accuracy  float64
	TrainSize int
	TestSize  int
	// Weights apply to standardized features.
	Weights    []float64
	Intercept  float64
	Iterations int

	means  []float64
	scales []float64
}

// Probability returns the predicted late probability for raw feature values
// given in Features order.
func (r *Result) Probability(x []float64) float64 {
	z := r.Intercept
	for j, v := range x {
		z += r.Weights[j] * (v - r.means[j]) / r.scales[j]
	}
	return sigmoid(z)
}

// Train splits the table with a seeded shuffle, fits on the training part
// and scores accuracy on the rest.
func Train(t *dataset.Table, opt Options) (*Result, error) {
	opt = opt.withDefaults()

	var missing []string
	cols := make([][]float64, len(opt.Features))
	for j, f := range opt.Features {
		if !t.Has(f) {
			missing = append(missing, f)
			continue
		}
		vals, err := t.Numeric(f)
		if err != nil {
			missing = append(missing, f)
			continue
		}
		cols[j] = vals
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	n := t.Len()
	if n < minRows {
		return nil, fmt.Errorf("%w: %d rows, need at least %d", ErrInsufficientData, n, minRows)
	}
	testN := int(math.Ceil(opt.TestSize * float64(n)))
	if testN >= n {
		testN = n - 1
	}
	perm := rand.New(rand.NewSource(opt.Seed)).Perm(n)
	testIdx, trainIdx := perm[:testN], perm[testN:]

	labels := make([]float64, n)
	for i, o := range t.Orders {
		if o.IsLate {
			labels[i] = 1
		}
	}
	if singleClass(labels, trainIdx) {
		return nil, fmt.Errorf("%w: training split holds a single class", ErrInsufficientData)
	}

	res := &Result{
		Features:  append([]string(nil), opt.Features...),
		TrainSize: len(trainIdx),
		TestSize:  len(testIdx),
		means:     make([]float64, len(cols)),
		scales:    make([]float64, len(cols)),
	}
	for j, col := range cols {
		train := pick(col, trainIdx)
		mean, std := stat.MeanStdDev(train, nil)
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		res.means[j], res.scales[j] = mean, std
	}

	x := res.design(cols, trainIdx)
	y := mat.NewVecDense(len(trainIdx), pick(labels, trainIdx))
	if err := res.fit(x, y, opt); err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	correct := 0
	row := make([]float64, len(cols))
	for _, i := range testIdx {
		for j, col := range cols {
			row[j] = col[i]
		}
		if (res.Probability(row) >= 0.5) == (labels[i] == 1) {
			correct++
		}
	}
	res.Accuracy = float64(correct) / float64(len(testIdx))
	return res, nil
}

// design builds the standardized feature matrix for the given rows.
func (r *Result) design(cols [][]float64, idx []int) *mat.Dense {
	x := mat.NewDense(len(idx), len(cols), nil)
	for i, row := range idx {
		for j, col := range cols {
			x.Set(i, j, (col[row]-r.means[j])/r.scales[j])
		}
	}
	return x
}

// fit minimizes mean log-loss plus ||w||²/(2·C·n) with L-BFGS over the
// parameter vector [w..., b].
func (r *Result) fit(x *mat.Dense, y *mat.VecDense, opt Options) error {
	n, p := x.Dims()
	penalty := 1 / (opt.C * float64(n))
	z := mat.NewVecDense(n, nil)
	resid := mat.NewVecDense(n, nil)

	margins := func(params []float64) {
		z.MulVec(x, mat.NewVecDense(p, params[:p]))
		for i := 0; i < n; i++ {
			z.SetVec(i, z.AtVec(i)+params[p])
		}
	}
	problem := optimize.Problem{
		Func: func(params []float64) float64 {
			margins(params)
			var loss float64
			for i := 0; i < n; i++ {
				zi := z.AtVec(i)
				loss += softplus(zi) - y.AtVec(i)*zi
			}
			w := params[:p]
			return loss/float64(n) + penalty*floats.Dot(w, w)/2
		},
		Grad: func(grad, params []float64) {
			margins(params)
			for i := 0; i < n; i++ {
				resid.SetVec(i, sigmoid(z.AtVec(i))-y.AtVec(i))
			}
			gw := mat.NewVecDense(p, grad[:p])
			gw.MulVec(x.T(), resid)
			gw.ScaleVec(1/float64(n), gw)
			gw.AddScaledVec(gw, penalty, mat.NewVecDense(p, params[:p]))
			grad[p] = floats.Sum(resid.RawVector().Data) / float64(n)
		},
	}
	settings := &optimize.Settings{GradientThreshold: 1e-6, MajorIterations: opt.MaxIter}
	res, err := optimize.Minimize(problem, make([]float64, p+1), settings, &optimize.LBFGS{})
	// A line search that stalls near the optimum still leaves the best
	// location found in res.
	if err != nil && (res == nil || floats.HasNaN(res.X)) {
		return fmt.Errorf("optimize: %w", err)
	}
	r.Weights = append([]float64(nil), res.X[:p]...)
	r.Intercept = res.X[p]
	r.Iterations = res.Stats.MajorIterations
	return nil
}

// softplus is log(1+e^z) without overflow.
func softplus(z float64) float64 {
	return math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z)))
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func pick(vals []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = vals[j]
	}
	return out
}

func singleClass(labels []float64, idx []int) bool {
	for _, i := range idx[1:] {
		if labels[i] != labels[idx[0]] {
			return false
		}
	}
	return true
}
