package gain_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// ImputeSet Training set for imputation tasks.
//
// Data - partially observed data, shape (DataLength, features), zeros at missing entries
// Mask - same shape as Data. 1 = observed, 0 = missing
// Truth - complete ground truth, used for diagnostics only. May be nil for real-world data
//
type ImputeSet struct {
	Data       *tensor.Dense
	Mask       *tensor.Dense
	Truth      *tensor.Dense
	DataLength int
}

// Batch Slices rows [start; end) out of data, mask and truth. Returned
// tensors are materialized, so they are safe to bind to graph inputs.
func (set *ImputeSet) Batch(start, end int) (x, mask, truth *tensor.Dense, err error) {
	if start < 0 || end > set.DataLength || start >= end {
		return nil, nil, nil, fmt.Errorf("Batch bounds [%d; %d) are out of range for data length %d", start, end, set.DataLength)
	}
	x, err = sliceRows(set.Data, start, end)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "Can't slice data")
	}
	mask, err = sliceRows(set.Mask, start, end)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "Can't slice mask")
	}
	if set.Truth != nil {
		truth, err = sliceRows(set.Truth, start, end)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "Can't slice ground truth")
		}
	}
	return x, mask, truth, nil
}

func sliceRows(d *tensor.Dense, start, end int) (*tensor.Dense, error) {
	view, err := d.Slice(SlicerOneStep{StartIdx: start, EndIdx: end})
	if err != nil {
		return nil, err
	}
	return materializeDense(view)
}

type ReferenceFunction func(float64) float64
type ArgumentFunction func() float64

// GenerateImputeSet Generates synthetic 2-column training set for function
// y(x), scales it to [0,1] and hides entries with probability (1-observedRate).
// Returned scaler restores the original value ranges.
func GenerateImputeSet(numSamples int, xFunc ArgumentFunction, yFunc ReferenceFunction, observedRate float64) (*ImputeSet, *MinMaxScaler, error) {
	dataXAxis := make([]float64, numSamples)
	dataYAxis := make([]float64, numSamples)
	for i := range dataXAxis {
		dataXAxis[i] = xFunc()
		dataYAxis[i] = yFunc(dataXAxis[i])
	}
	inputTensor := tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataXAxis))
	outputTensor := tensor.New(tensor.WithShape(numSamples, 1), tensor.WithBacking(dataYAxis))
	hstack, err := inputTensor.Hstack(outputTensor)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't stack columns")
	}
	scaler := &MinMaxScaler{}
	if err := scaler.Fit(hstack); err != nil {
		return nil, nil, errors.Wrap(err, "Can't fit scaler")
	}
	truth, err := scaler.Transform(hstack)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't scale data")
	}
	amputed, mask, err := AmputeDense(truth, observedRate)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't ampute data")
	}
	return &ImputeSet{
		Data:       amputed,
		Mask:       mask,
		Truth:      truth,
		DataLength: numSamples,
	}, scaler, nil
}
