// Package preprocessing turns continuous attributes into the integer codes
// consumed by the Bayesian network classifiers.
package preprocessing

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Discretizer は連続値の特徴量を離散コードに変換するインターフェース
type Discretizer interface {
	// Fit learns the cut points of every column. y may be nil for
	// unsupervised strategies.
	Fit(X mat.Matrix, y []int) error

	// Transform maps every value to the code of its bin.
	Transform(X mat.Matrix) (*mat.Dense, error)

	// States returns the number of codes of every fitted column.
	States() []int
}

// Strategy はビンの幅の決め方
type Strategy string

const (
	// StrategyUniform は各特徴量の[min, max]を等幅に分割する
	StrategyUniform Strategy = "uniform"
	// StrategyQuantile は各ビンがほぼ同数のサンプルを含むように分割する
	StrategyQuantile Strategy = "quantile"
)

// KBinsDiscretizer はscikit-learn互換のビン分割器
type KBinsDiscretizer struct {
	state *model.StateManager

	// NBins は特徴量ごとのビン数の上限
	NBins int

	// Strategy は分割方法
	Strategy Strategy

	// CutPoints は各特徴量の内部の境界値（昇順、重複なし）
	CutPoints [][]float64
}

// NewKBinsDiscretizer は新しいKBinsDiscretizerを作成する
//
// パラメータ:
//   - nBins: ビン数 (2以上)
//   - strategy: StrategyUniform または StrategyQuantile
//
// 使用例:
//
//	disc := preprocessing.NewKBinsDiscretizer(4, preprocessing.StrategyQuantile)
//	err := disc.Fit(X, nil)
//	codes, err := disc.Transform(X)
func NewKBinsDiscretizer(nBins int, strategy Strategy) *KBinsDiscretizer {
	return &KBinsDiscretizer{
		state:    model.NewStateManager(),
		NBins:    nBins,
		Strategy: strategy,
	}
}

// Fit は訓練データから各特徴量の境界値を計算する。yは使用しない
func (d *KBinsDiscretizer) Fit(X mat.Matrix, _ []int) error {
	if d.NBins < 2 {
		return errors.NewValidationError("n_bins", "must be at least 2", d.NBins)
	}
	if d.Strategy != StrategyUniform && d.Strategy != StrategyQuantile {
		return errors.NewValidationError("strategy", "must be uniform or quantile", d.Strategy)
	}
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("KBinsDiscretizer.Fit", "empty data", errors.ErrEmptyData)
	}

	d.state.Reset()
	cuts := make([][]float64, c)
	column := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(column, j, X)
		if err := errors.CheckNumericalStability("KBinsDiscretizer.Fit", column); err != nil {
			return err
		}
		sorted := append([]float64(nil), column...)
		sort.Float64s(sorted)
		cuts[j] = d.cutPoints(sorted)
	}
	d.CutPoints = cuts
	d.state.SetDimensions(c, r)
	d.state.SetFitted()
	return nil
}

// cutPoints は昇順にソート済みの列から境界値を求める
func (d *KBinsDiscretizer) cutPoints(sorted []float64) []float64 {
	low, high := sorted[0], sorted[len(sorted)-1]
	var candidates []float64
	switch d.Strategy {
	case StrategyUniform:
		candidates = make([]float64, d.NBins+1)
		floats.Span(candidates, low, high)
		candidates = candidates[1:d.NBins]
	case StrategyQuantile:
		for k := 1; k < d.NBins; k++ {
			p := float64(k) / float64(d.NBins)
			candidates = append(candidates, stat.Quantile(p, stat.Empirical, sorted, nil))
		}
	}

	// 最小値以下と重複は捨てる（空のビンを作らない）
	var cuts []float64
	for _, v := range candidates {
		if v <= low || (len(cuts) > 0 && v <= cuts[len(cuts)-1]) {
			continue
		}
		cuts = append(cuts, v)
	}
	return cuts
}

// Transform は各値をビン番号に変換する。訓練範囲外の値は端のビンに入る
func (d *KBinsDiscretizer) Transform(X mat.Matrix) (*mat.Dense, error) {
	if err := d.state.RequireFitted("KBinsDiscretizer", "Transform"); err != nil {
		return nil, err
	}
	r, c := X.Dims()
	if c != len(d.CutPoints) {
		return nil, errors.NewDimensionError("KBinsDiscretizer.Transform", len(d.CutPoints), c, 1)
	}
	result := mat.NewDense(r, c, nil)
	for j := 0; j < c; j++ {
		cuts := d.CutPoints[j]
		for i := 0; i < r; i++ {
			v := X.At(i, j)
			bin := sort.Search(len(cuts), func(k int) bool { return cuts[k] > v })
			result.Set(i, j, float64(bin))
		}
	}
	return result, nil
}

// FitTransform はFitとTransformを続けて実行する
func (d *KBinsDiscretizer) FitTransform(X mat.Matrix, y []int) (*mat.Dense, error) {
	if err := d.Fit(X, y); err != nil {
		return nil, err
	}
	return d.Transform(X)
}

// States は各特徴量のコード数（境界値の数+1）を返す
func (d *KBinsDiscretizer) States() []int {
	states := make([]int, len(d.CutPoints))
	for j, cuts := range d.CutPoints {
		states[j] = len(cuts) + 1
	}
	return states
}
