// Package bayesnet provides Bayesian network classifiers for discrete data,
// designed for batch training and in-process inference in Go services.
//
// Every learner builds a directed acyclic graph over the features plus the
// class variable, estimates smoothed conditional probability tables from
// (optionally weighted) samples and predicts by exact variable elimination.
//
// # Classifiers
//
//   - TAN: tree augmented naive Bayes, a maximum spanning tree over the
//     conditional mutual information between features
//   - KDB: k-dependence Bayesian classifier, up to k feature parents per node
//   - SPODE: super-parent one-dependence estimator
//   - AODE: average of one SPODE per feature
//   - BoostAODE: AdaBoost over SPODEs with optional feature selection
//     (CFS, FCBF, IWSS) and convergence checking
//
// # Quick Start
//
//	ds, _ := datasets.MakeDiscreteClassification(150, 4, 3, 3, 0.1, 42)
//
//	clf, err := bayesnet.New(bayesnet.KindKDB, map[string]any{"k": 2})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := clf.Fit(ds.X, ds.Y, ds.Features, ds.ClassName, ds.States, network.SmoothingLaplace); err != nil {
//	    log.Fatal(err)
//	}
//	acc, _ := clf.Score(ds.X, ds.Y)
//	fmt.Printf("accuracy: %.3f\n", acc)
//
// Continuous inputs can be discretized first with
// preprocessing.KBinsDiscretizer and classifiers.NewDiscretized.
//
// # Packages
//
//   - metrics: entropy, mutual information and conditional edge weights
//   - mst: maximum spanning tree used by TAN
//   - network: DAG, CPTs, smoothing and variable elimination
//   - featureselect: CFS, FCBF and IWSS
//   - classifiers: TAN, KDB, SPODE and the discretizing adapter
//   - ensembles: AODE and BoostAODE
//   - model_selection, preprocessing, datasets: data utilities
//   - diagnostics: plots of the boosting history
//   - core/model, core/parallel, pkg/errors, pkg/log, pkg/telemetry: shared infrastructure
//
// The bayesnet command (cmd/bayesnet) fits and scores models from CSV files.
package bayesnet
