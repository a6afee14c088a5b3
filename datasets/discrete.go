// Package datasets generates deterministic synthetic data sets for tests,
// benchmarks and examples.
package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand/v2"
	"strconv"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Dataset is an integer-coded classification problem ready for Fit.
type Dataset struct {
	// X holds one sample per row.
	X         *mat.Dense
	Y         []int
	Features  []string
	ClassName string
	// States maps every feature and the class to its cardinality.
	States map[string]int
}

// Columns returns X column-major with the class appended as the last row.
func (d *Dataset) Columns() [][]int {
	rows, cols := d.X.Dims()
	out := make([][]int, cols+1)
	for j := 0; j < cols; j++ {
		out[j] = make([]int, rows)
		for i := 0; i < rows; i++ {
			out[j][i] = int(d.X.At(i, j))
		}
	}
	out[cols] = append([]int(nil), d.Y...)
	return out
}

// Subset returns the samples at indices. Features and States are shared.
// indices must not be empty.
func (d *Dataset) Subset(indices []int) *Dataset {
	_, cols := d.X.Dims()
	X := mat.NewDense(len(indices), cols, nil)
	y := make([]int, len(indices))
	for i, idx := range indices {
		X.SetRow(i, d.X.RawRowView(idx))
		y[i] = d.Y[idx]
	}
	return &Dataset{X: X, Y: y, Features: d.Features, ClassName: d.ClassName, States: d.States}
}

// WriteCSV writes the data set with a header row; the class is the last column.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), d.Features...), d.ClassName)
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "datasets: write header")
	}
	rows, cols := d.X.Dims()
	record := make([]string, cols+1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			record[j] = strconv.Itoa(int(d.X.At(i, j)))
		}
		record[cols] = strconv.Itoa(d.Y[i])
		if err := cw.Write(record); err != nil {
			return errors.Wrapf(err, "datasets: write row %d", i)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MakeDiscreteClassification generates nSamples samples of nFeatures
// features with nStates states each. Classes are drawn uniformly. Feature
// 0 copies the class (modulo nStates) and every later feature is its
// predecessor plus one (modulo nStates); each value is replaced by a
// uniform draw with probability noise. The same seed yields the same data.
//
// 使用例:
//
//	ds, err := datasets.MakeDiscreteClassification(150, 4, 3, 3, 0.1, 42)
func MakeDiscreteClassification(nSamples, nFeatures, nClasses, nStates int, noise float64, seed uint64) (*Dataset, error) {
	switch {
	case nSamples <= 0:
		return nil, errors.NewValidationError("n_samples", "must be positive", nSamples)
	case nFeatures <= 0:
		return nil, errors.NewValidationError("n_features", "must be positive", nFeatures)
	case nClasses < 2:
		return nil, errors.NewValidationError("n_classes", "must be at least 2", nClasses)
	case nStates < 2:
		return nil, errors.NewValidationError("n_states", "must be at least 2", nStates)
	case noise < 0 || noise > 1:
		return nil, errors.NewValidationError("noise", "must be in [0, 1]", noise)
	}

	src := rand.NewPCG(seed, seed)
	classDist := distuv.NewCategorical(uniform(nClasses), src)
	stateDist := distuv.NewCategorical(uniform(nStates), src)
	flip := distuv.Bernoulli{P: noise, Src: src}

	X := mat.NewDense(nSamples, nFeatures, nil)
	y := make([]int, nSamples)
	for i := 0; i < nSamples; i++ {
		y[i] = int(classDist.Rand())
		prev := y[i] % nStates
		for j := 0; j < nFeatures; j++ {
			v := prev
			if j > 0 {
				v = (prev + 1) % nStates
			}
			if flip.Rand() == 1 {
				v = int(stateDist.Rand())
			}
			X.Set(i, j, float64(v))
			prev = v
		}
	}

	features := make([]string, nFeatures)
	states := make(map[string]int, nFeatures+1)
	for j := range features {
		features[j] = fmt.Sprintf("f%d", j)
		states[features[j]] = nStates
	}
	states["class"] = nClasses
	return &Dataset{X: X, Y: y, Features: features, ClassName: "class", States: states}, nil
}

func uniform(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
