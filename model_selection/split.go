// Package model_selection provides the splitters used for hold-out
// validation and cross-validation of bayesnet learners.
package model_selection

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Splitter produces train/test index folds from a label vector.
type Splitter interface {
	Split(y []int) ([]Fold, error)
	GetNSplits() int
}

// Fold holds the sample indices of one split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold splits samples into NSplits contiguous folds.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a new k-fold splitter. nSplits below 2 defaults to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int { return kf.NSplits }

// Split generates train/test indices for each fold.
func (kf *KFold) Split(y []int) ([]Fold, error) {
	nSamples := len(y)
	if nSamples < kf.NSplits {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", kf.NSplits)
	}
	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		shuffle(indices, kf.RandomSeed)
	}

	testOf := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for fold := 0; fold < kf.NSplits; fold++ {
		size := foldSize
		if fold < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			testOf[idx] = fold
		}
		current += size
	}
	return buildFolds(kf.NSplits, indices, testOf), nil
}

// StratifiedKFold keeps the class proportions of y in every fold.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a new stratified k-fold splitter. nSplits
// below 2 defaults to 5.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int { return skf.NSplits }

// Split deals the samples of every class round the folds. Classes are
// visited in ascending label order so the result only depends on the seed.
func (skf *StratifiedKFold) Split(y []int) ([]Fold, error) {
	nSamples := len(y)
	if nSamples < skf.NSplits {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", skf.NSplits)
	}

	classIndices := make(map[int][]int)
	for i, label := range y {
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]int, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Ints(labels)

	r := rand.New(rand.NewPCG(skf.RandomSeed, skf.RandomSeed))
	testOf := make([]int, nSamples)
	order := make([]int, 0, nSamples)
	for _, label := range labels {
		indices := classIndices[label]
		if skf.Shuffle {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		nClass := len(indices)
		foldSize := nClass / skf.NSplits
		remainder := nClass % skf.NSplits
		current := 0
		for fold := 0; fold < skf.NSplits; fold++ {
			size := foldSize
			if fold < remainder {
				size++
			}
			for _, idx := range indices[current : current+size] {
				testOf[idx] = fold
			}
			current += size
		}
		order = append(order, indices...)
	}
	sort.Ints(order)
	return buildFolds(skf.NSplits, order, testOf), nil
}

// buildFolds assigns every index in order to the test side of its fold
// and the train side of all others.
func buildFolds(nSplits int, order, testOf []int) []Fold {
	folds := make([]Fold, nSplits)
	for _, idx := range order {
		for fold := range folds {
			if testOf[idx] == fold {
				folds[fold].TestIndices = append(folds[fold].TestIndices, idx)
			} else {
				folds[fold].TrainIndices = append(folds[fold].TrainIndices, idx)
			}
		}
	}
	return folds
}

func shuffle(indices []int, seed uint64) {
	r := rand.New(rand.NewPCG(seed, seed))
	r.Shuffle(len(indices), func(i, j int) {
		indices[i], indices[j] = indices[j], indices[i]
	})
}
