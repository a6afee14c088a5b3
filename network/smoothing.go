package network

import (
	"strings"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// Smoothing selects the pseudo-count added to every CPT cell before
// normalizing.
type Smoothing int

const (
	// SmoothingNone uses raw relative frequencies. Unseen parent
	// configurations produce NaN rows.
	SmoothingNone Smoothing = iota
	// SmoothingOriginal adds 1/n where n is the number of samples.
	SmoothingOriginal
	// SmoothingLaplace adds 1.
	SmoothingLaplace
	// SmoothingCestnik adds 1/numStates of the node (m-estimate with m=1
	// and a uniform prior).
	SmoothingCestnik
)

func (s Smoothing) String() string {
	switch s {
	case SmoothingNone:
		return "NONE"
	case SmoothingOriginal:
		return "ORIGINAL"
	case SmoothingLaplace:
		return "LAPLACE"
	case SmoothingCestnik:
		return "CESTNIK"
	default:
		return "UNKNOWN"
	}
}

// ParseSmoothing parses a smoothing name, case-insensitively.
func ParseSmoothing(s string) (Smoothing, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NONE":
		return SmoothingNone, nil
	case "ORIGINAL":
		return SmoothingOriginal, nil
	case "LAPLACE":
		return SmoothingLaplace, nil
	case "CESTNIK":
		return SmoothingCestnik, nil
	}
	return SmoothingNone, errors.NewValidationError("smoothing", "must be one of NONE, ORIGINAL, LAPLACE, CESTNIK", s)
}

// pseudoCount returns the value every cell of a node's CPT starts from.
func (s Smoothing) pseudoCount(nSamples, numStates int) float64 {
	switch s {
	case SmoothingOriginal:
		return 1 / float64(nSamples)
	case SmoothingLaplace:
		return 1
	case SmoothingCestnik:
		return 1 / float64(numStates)
	default:
		return 0
	}
}
