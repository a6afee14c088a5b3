package bayesnet

import (
	"sort"
	"strings"

	"github.com/YuminosukeSato/bayesnet/classifiers"
	"github.com/YuminosukeSato/bayesnet/core/model"
	"github.com/YuminosukeSato/bayesnet/ensembles"
	"github.com/YuminosukeSato/bayesnet/pkg/errors"
	"github.com/YuminosukeSato/bayesnet/pkg/log"
	"github.com/YuminosukeSato/bayesnet/pkg/telemetry"
)

// Version is the library version reported by the CLI and model summaries.
const Version = "0.3.0"

// Kind identifies a learner.
type Kind string

const (
	KindTAN       Kind = "TAN"
	KindKDB       Kind = "KDB"
	KindSPODE     Kind = "SPODE"
	KindAODE      Kind = "AODE"
	KindBoostAODE Kind = "BoostAODE"
)

var kinds = map[string]Kind{
	"tan":       KindTAN,
	"kdb":       KindKDB,
	"spode":     KindSPODE,
	"aode":      KindAODE,
	"boostaode": KindBoostAODE,
}

// Kinds returns every supported kind in alphabetical order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseKind is case-insensitive and ignores '-' and '_' ("boost-aode" works).
func ParseKind(s string) (Kind, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(strings.TrimSpace(s)))
	if k, ok := kinds[key]; ok {
		return k, nil
	}
	return "", errors.NewValidationError("model", "unknown model kind", s)
}

// Option configures learners built by New.
type Option func(*options)

type options struct {
	logger    log.Logger
	telemetry *telemetry.Metrics
}

// WithLogger sets the logger of the created learner.
func WithLogger(logger log.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTelemetry attaches Prometheus collectors to the created learner.
func WithTelemetry(m *telemetry.Metrics) Option {
	return func(o *options) { o.telemetry = m }
}

type instrumented interface {
	SetLogger(log.Logger)
	SetTelemetry(*telemetry.Metrics)
}

// New creates an unfitted learner of the given kind and applies params
// through SetHyperparameters. SPODE reads its superparent from "parent"
// and defaults to feature 0.
func New(kind Kind, params map[string]any, opts ...Option) (model.StructureLearner, error) {
	var learner model.StructureLearner
	switch kind {
	case KindTAN:
		learner = classifiers.NewTAN()
	case KindKDB:
		learner = classifiers.NewKDB()
	case KindSPODE:
		learner = classifiers.NewSPODE(0)
	case KindAODE:
		learner = ensembles.NewAODE()
	case KindBoostAODE:
		learner = ensembles.NewBoostAODE()
	default:
		return nil, errors.NewValidationError("model", "unknown model kind", string(kind))
	}

	if len(params) > 0 {
		if err := learner.SetHyperparameters(params); err != nil {
			return nil, errors.Wrapf(err, "configure %s", kind)
		}
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if in, ok := learner.(instrumented); ok {
		if o.logger != nil {
			in.SetLogger(o.logger)
		}
		if o.telemetry != nil {
			in.SetTelemetry(o.telemetry)
		}
	}
	return learner, nil
}
