package gain_go

import (
	"fmt"
	"image/color"
	"time"

	rng "github.com/leesper/go_rng"
	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

var defaultUniform = rng.NewUniformGenerator(time.Now().UnixNano())

// SeedRNG Re-initializes the package RNG with the provided seed. Call it once
// before data generation to reproduce results.
func SeedRNG(seed int64) {
	defaultUniform = rng.NewUniformGenerator(seed)
}

// UniformRandDense Return reference to tensor.Dense filled with pseudo-random float64 values in range [0.0,1.0)
//
// batchSize - Simply batch size
// n - Number of elements in each batch
// Resulting dense will have batchSize*n elements
//
func UniformRandDense(batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = defaultUniform.Float64()
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// FillDense Return reference to tensor.Dense with every element set to the provided value
func FillDense(value float64, batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = value
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// UniformMaskDense Return reference to tensor.Dense where each element is 1 with probability observedRate and 0 otherwise
//
// batchSize - Simply batch size
// n - Number of elements in each batch
// observedRate - probability for element to be observed (=1)
//
func UniformMaskDense(batchSize, n int, observedRate float64) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		if defaultUniform.Float64() < observedRate {
			data[i] = 1.0
		}
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// HintDense Return hint mask for provided mask:
//
//	hints = b.*mask + 0.5*(1-b), b ~ Bernoulli(hintRate)
//
// So the resulting elements are: 1 = known genuine, 0 = known generated, 0.5 = unknown.
func HintDense(mask tensor.Tensor, hintRate float64) (*tensor.Dense, error) {
	maskDense, err := materializeDense(mask)
	if err != nil {
		return nil, errors.Wrap(err, "Can't materialize mask")
	}
	maskData := maskDense.Data().([]float64)
	data := make([]float64, len(maskData))
	for i := range data {
		if defaultUniform.Float64() < hintRate {
			data[i] = maskData[i]
		} else {
			data[i] = 0.5
		}
	}
	return tensor.New(tensor.WithShape(maskDense.Shape()...), tensor.WithBacking(data)), nil
}

// AmputeDense Introduces missingness into complete data: every entry is kept
// with probability observedRate. Returns the data copy with zeroed missing
// entries alongside the corresponding mask.
func AmputeDense(data tensor.Tensor, observedRate float64) (*tensor.Dense, *tensor.Dense, error) {
	dataDense, err := materializeDense(data)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Can't materialize data")
	}
	dataRaw := dataDense.Data().([]float64)
	amputed := make([]float64, len(dataRaw))
	maskRaw := make([]float64, len(dataRaw))
	for i := range dataRaw {
		if defaultUniform.Float64() < observedRate {
			amputed[i] = dataRaw[i]
			maskRaw[i] = 1.0
		}
	}
	amputedDense := tensor.New(tensor.WithShape(dataDense.Shape()...), tensor.WithBacking(amputed))
	maskDense := tensor.New(tensor.WithShape(dataDense.Shape()...), tensor.WithBacking(maskRaw))
	return amputedDense, maskDense, nil
}

// ImputeDense Blends observed data with generated values:
//
//	imputed = mask.*x + (1-mask).*generated
//
func ImputeDense(x, mask, generated tensor.Tensor) (*tensor.Dense, error) {
	xDense, err := materializeDense(x)
	if err != nil {
		return nil, errors.Wrap(err, "Can't materialize data")
	}
	maskDense, err := materializeDense(mask)
	if err != nil {
		return nil, errors.Wrap(err, "Can't materialize mask")
	}
	generatedDense, err := materializeDense(generated)
	if err != nil {
		return nil, errors.Wrap(err, "Can't materialize generated data")
	}
	xRaw := xDense.Data().([]float64)
	maskRaw := maskDense.Data().([]float64)
	generatedRaw := generatedDense.Data().([]float64)
	if len(xRaw) != len(maskRaw) || len(xRaw) != len(generatedRaw) {
		return nil, fmt.Errorf("Data, mask and generated data must have same number of elements, but got %d, %d and %d", len(xRaw), len(maskRaw), len(generatedRaw))
	}
	blended := make([]float64, len(xRaw))
	for i := range blended {
		blended[i] = maskRaw[i]*xRaw[i] + (1.0-maskRaw[i])*generatedRaw[i]
	}
	return tensor.New(tensor.WithShape(xDense.Shape()...), tensor.WithBacking(blended)), nil
}

func materializeDense(t tensor.Tensor) (*tensor.Dense, error) {
	// Views expose the whole backing slice via Data(), so copy them out first
	if view, ok := t.(tensor.View); ok {
		t = view.Materialize()
	}
	dense, ok := t.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Tensor of type %T is not a dense one", t)
	}
	return dense, nil
}

// MinMaxScaler Per-column scaling of 2-D data to range [0,1] and back
type MinMaxScaler struct {
	Min []float64
	Max []float64
}

// Fit Collects per-column minimum and maximum values
func (s *MinMaxScaler) Fit(data tensor.Tensor) error {
	dataDense, err := materializeDense(data)
	if err != nil {
		return errors.Wrap(err, "Can't materialize data")
	}
	if dataDense.Dims() != 2 {
		return fmt.Errorf("Data must have two dimensions, but got %d", dataDense.Dims())
	}
	rows, cols := dataDense.Shape()[0], dataDense.Shape()[1]
	if rows == 0 {
		return fmt.Errorf("Data must have one row atleast")
	}
	raw := dataDense.Data().([]float64)
	s.Min = make([]float64, cols)
	s.Max = make([]float64, cols)
	for j := 0; j < cols; j++ {
		s.Min[j] = raw[j]
		s.Max[j] = raw[j]
	}
	for i := 1; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := raw[i*cols+j]
			if v < s.Min[j] {
				s.Min[j] = v
			}
			if v > s.Max[j] {
				s.Max[j] = v
			}
		}
	}
	return nil
}

// Transform Scales data to [0,1] with previously fitted bounds
func (s *MinMaxScaler) Transform(data tensor.Tensor) (*tensor.Dense, error) {
	return s.apply(data, func(v float64, j int) float64 {
		span := s.Max[j] - s.Min[j]
		if span == 0 {
			return 0
		}
		return (v - s.Min[j]) / span
	})
}

// Inverse Restores original scale of previously transformed data
func (s *MinMaxScaler) Inverse(data tensor.Tensor) (*tensor.Dense, error) {
	return s.apply(data, func(v float64, j int) float64 {
		return v*(s.Max[j]-s.Min[j]) + s.Min[j]
	})
}

func (s *MinMaxScaler) apply(data tensor.Tensor, fn func(v float64, j int) float64) (*tensor.Dense, error) {
	if len(s.Min) == 0 || len(s.Max) == 0 {
		return nil, fmt.Errorf("Scaler must be fitted before use")
	}
	dataDense, err := materializeDense(data)
	if err != nil {
		return nil, errors.Wrap(err, "Can't materialize data")
	}
	if dataDense.Dims() != 2 {
		return nil, fmt.Errorf("Data must have two dimensions, but got %d", dataDense.Dims())
	}
	rows, cols := dataDense.Shape()[0], dataDense.Shape()[1]
	if cols != len(s.Min) {
		return nil, fmt.Errorf("Scaler has been fitted for %d columns, but got %d", len(s.Min), cols)
	}
	raw := dataDense.Data().([]float64)
	out := make([]float64, len(raw))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out[i*cols+j] = fn(raw[i*cols+j], j)
		}
	}
	return tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(out)), nil
}

// SlicerOneStep Just iterator with step size = 1
type SlicerOneStep struct {
	StartIdx, EndIdx int
}

func (s SlicerOneStep) Start() int { return s.StartIdx }
func (s SlicerOneStep) End() int   { return s.EndIdx }
func (s SlicerOneStep) Step() int  { return 1 }

// PlotXY Plot chart for input y(x)
func PlotXY(x, y tensor.Tensor, fname string) error {
	if x.Dims() != 1 {
		return fmt.Errorf("X must have one dimension, but got %d", x.Dims())
	}
	if y.Dims() != 1 {
		return fmt.Errorf("Y(X) must have one dimension, but got %d", x.Dims())
	}
	if x.DataSize() != y.DataSize() {
		return fmt.Errorf("X and Y(X) must have same number of elements, but X has %d elements and Y(X) has %d elements", x.DataSize(), y.DataSize())
	}
	scatterData := make(plotter.XYs, x.DataSize())
	for i := 0; i < x.DataSize(); i++ {
		xval, err := x.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select X-value")
		}
		yval, err := y.At(i)
		if err != nil {
			return errors.Wrap(err, "Can't select Y(x)-value")
		}
		// Do no cast interfaces{} to any type when you are not sure about types
		scatterData[i].X = xval.(float64)
		scatterData[i].Y = yval.(float64)
	}
	scatter, err := plotter.NewScatter(scatterData)
	if err != nil {
		return errors.Wrap(err, "Can't init new scatter")
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 255, B: 128, A: 255}
	p := plot.New()
	p.X.Label.Text = "X"
	p.Y.Label.Text = "Y"
	p.Add(plotter.NewGrid())
	p.Add(scatter)
	// Save the plot to a PNG file.
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// PlotHistogram Plot histogram for provided values
func PlotHistogram(values []float64, bins int, fname string) error {
	if len(values) == 0 {
		return fmt.Errorf("Values must have one element atleast")
	}
	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return errors.Wrap(err, "Can't init new histogram")
	}
	p := plot.New()
	p.Y.Label.Text = "Count"
	p.Add(plotter.NewGrid())
	p.Add(h)
	// Save the plot to a PNG file.
	if err := p.Save(4*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}
