package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/bayesnet/pkg/errors"
)

// dataset is an integer-coded table read from CSV with the class split out.
type dataset struct {
	X         *mat.Dense
	y         []int
	features  []string
	className string
	states    map[string]int
}

// readCSVDataset reads a CSV file whose header names the columns. Feature
// order follows the header, with the class column removed.
func readCSVDataset(r io.Reader, md *metadata) (*dataset, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv")
	}
	if len(records) < 2 {
		return nil, errors.New("csv needs a header and at least one sample")
	}

	header := records[0]
	classIdx := -1
	var features []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		header[i] = name
		if name == md.Class {
			classIdx = i
			continue
		}
		features = append(features, name)
	}
	if classIdx < 0 {
		return nil, errors.Newf("class column %q not found in header", md.Class)
	}
	if len(features) == 0 {
		return nil, errors.New("csv has no feature columns")
	}

	rows := records[1:]
	X := mat.NewDense(len(rows), len(features), nil)
	y := make([]int, len(rows))
	maxValue := make(map[string]int, len(header))
	for i, record := range rows {
		if len(record) != len(header) {
			return nil, errors.Newf("line %d: expected %d fields, got %d", i+2, len(header), len(record))
		}
		col := 0
		for j, field := range record {
			v, err := strconv.Atoi(strings.TrimSpace(field))
			if err != nil || v < 0 {
				return nil, errors.Newf("line %d column %q: value %q is not a non-negative integer", i+2, header[j], field)
			}
			maxValue[header[j]] = max(maxValue[header[j]], v)
			if j == classIdx {
				y[i] = v
				continue
			}
			X.Set(i, col, float64(v))
			col++
		}
	}

	states := make(map[string]int, len(header))
	for _, name := range header {
		if s, ok := md.Features[name]; ok {
			states[name] = s
		} else {
			states[name] = maxValue[name] + 1
		}
	}
	return &dataset{X: X, y: y, features: features, className: md.Class, states: states}, nil
}

func readCSVDatasetFromFile(path string, md *metadata) (*dataset, error) {
	if path == "" || path == "-" {
		return readCSVDataset(os.Stdin, md)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening data set at %s", path)
	}
	defer f.Close()
	ds, err := readCSVDataset(f, md)
	if err != nil {
		return nil, errors.Wrapf(err, "reading data set at %s", path)
	}
	return ds, nil
}

// subset returns the rows of ds at indices, sharing features and states.
func (ds *dataset) subset(indices []int) *dataset {
	_, c := ds.X.Dims()
	X := mat.NewDense(len(indices), c, nil)
	y := make([]int, len(indices))
	for i, idx := range indices {
		X.SetRow(i, ds.X.RawRowView(idx))
		y[i] = ds.y[idx]
	}
	return &dataset{X: X, y: y, features: ds.features, className: ds.className, states: ds.states}
}
