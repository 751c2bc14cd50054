package gain_go

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gorgonia.org/tensor"
)

// PerformanceEntry Diagnostic statistics of a single evaluation:
// reconstruction quality on observed entries, per-entry generation errors on
// missing entries (ground truth required) and distribution of the designated
// test column over the imputed batch.
type PerformanceEntry struct {
	Step int
	Kind TrainerKind

	// ObservedRMSE - root mean squared error between data and imputed batch over observed entries
	ObservedRMSE float64
	// MissingErrors - absolute per-entry generation errors at missing entries, in row-major order. Empty without ground truth
	MissingErrors []float64
	// MissingMAE - mean of MissingErrors
	MissingMAE float64

	TestColumn       int
	TestColumnValues []float64
	TestColumnMean   float64
	TestColumnStdDev float64
	TestColumnMin    float64
	TestColumnMax    float64
	// TestColumnQuartiles - 25th, 50th and 75th percentiles
	TestColumnQuartiles [3]float64

	// ScoreMean - mean discriminator probability (or critic score) over the imputed batch
	ScoreMean float64
}

// MetricsSink Destination for performance entries
type MetricsSink interface {
	Write(entry PerformanceEntry) error
}

// PerformanceLog Computes diagnostic statistics for the batch and writes them
// to the provided sink. Imputation is done with the forward machine only, no
// learnables are touched.
//
// step - training step (or epoch) for labeling
// truth - complete ground truth batch. May be nil: per-entry generation errors are skipped then
// x - partially observed data batch
// mask - mask for data batch. 1 = observed, 0 = missing
// testColumn - index of the designated test column
// sink - destination for the computed entry
//
func (t *GeneratorTrainer) PerformanceLog(step int, truth, x, mask tensor.Tensor, testColumn int, sink MetricsSink) error {
	imputed, err := t.Impute(x, mask)
	if err != nil {
		return errors.Wrap(err, "Can't impute batch")
	}
	entry, err := computePerformance(truth, x, mask, imputed, testColumn)
	if err != nil {
		return errors.Wrap(err, "Can't compute performance statistics")
	}
	entry.Step = step
	entry.Kind = t.kind
	if t.lastScores != nil {
		entry.ScoreMean = stat.Mean(t.lastScores.Data().([]float64), nil)
	}
	if err := sink.Write(entry); err != nil {
		return errors.Wrap(err, "Can't write performance entry")
	}
	return nil
}

func computePerformance(truth, x, mask tensor.Tensor, imputed *tensor.Dense, testColumn int) (PerformanceEntry, error) {
	entry := PerformanceEntry{TestColumn: testColumn}

	xDense, err := materializeDense(x)
	if err != nil {
		return entry, errors.Wrap(err, "Can't materialize data")
	}
	maskDense, err := materializeDense(mask)
	if err != nil {
		return entry, errors.Wrap(err, "Can't materialize mask")
	}
	xRaw := xDense.Data().([]float64)
	maskRaw := maskDense.Data().([]float64)
	imputedRaw := imputed.Data().([]float64)
	if len(xRaw) != len(maskRaw) || len(xRaw) != len(imputedRaw) {
		return entry, fmt.Errorf("Data, mask and imputed batch must have same number of elements, but got %d, %d and %d", len(xRaw), len(maskRaw), len(imputedRaw))
	}

	// Reconstruction error on known values
	sumSquares := 0.0
	observed := 0
	for i := range xRaw {
		if maskRaw[i] == 1.0 {
			diff := xRaw[i] - imputedRaw[i]
			sumSquares += diff * diff
			observed++
		}
	}
	if observed > 0 {
		entry.ObservedRMSE = math.Sqrt(sumSquares / float64(observed))
	}

	// Per-entry generation errors on missing values
	if truth != nil {
		truthDense, err := materializeDense(truth)
		if err != nil {
			return entry, errors.Wrap(err, "Can't materialize ground truth")
		}
		truthRaw := truthDense.Data().([]float64)
		if len(truthRaw) != len(xRaw) {
			return entry, fmt.Errorf("Ground truth must have %d elements, but got %d", len(xRaw), len(truthRaw))
		}
		for i := range truthRaw {
			if maskRaw[i] == 0.0 {
				entry.MissingErrors = append(entry.MissingErrors, math.Abs(truthRaw[i]-imputedRaw[i]))
			}
		}
		if len(entry.MissingErrors) > 0 {
			entry.MissingMAE = stat.Mean(entry.MissingErrors, nil)
		}
	}

	// Distribution of the designated test column
	cols := imputed.Shape()[1]
	if testColumn < 0 || testColumn >= cols {
		return entry, fmt.Errorf("Test column %d is out of range for %d columns", testColumn, cols)
	}
	rows := imputed.Shape()[0]
	entry.TestColumnValues = make([]float64, rows)
	for i := 0; i < rows; i++ {
		entry.TestColumnValues[i] = imputedRaw[i*cols+testColumn]
	}
	entry.TestColumnMean = stat.Mean(entry.TestColumnValues, nil)
	entry.TestColumnStdDev = stat.StdDev(entry.TestColumnValues, nil)
	entry.TestColumnMin = floats.Min(entry.TestColumnValues)
	entry.TestColumnMax = floats.Max(entry.TestColumnValues)
	sorted := make([]float64, rows)
	copy(sorted, entry.TestColumnValues)
	sort.Float64s(sorted)
	entry.TestColumnQuartiles[0] = stat.Quantile(0.25, stat.Empirical, sorted, nil)
	entry.TestColumnQuartiles[1] = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	entry.TestColumnQuartiles[2] = stat.Quantile(0.75, stat.Empirical, sorted, nil)
	return entry, nil
}

// CSVSink Appends one aggregated row per performance entry
type CSVSink struct {
	writer      *csv.Writer
	wroteHeader bool
}

// NewCSVSink Constructor for CSVSink
func NewCSVSink(w io.Writer) *CSVSink {
	return &CSVSink{writer: csv.NewWriter(w)}
}

// Write Appends a row (with a header row on first call)
func (s *CSVSink) Write(entry PerformanceEntry) error {
	if !s.wroteHeader {
		header := []string{"step", "kind", "observed_rmse", "missing_mae", "test_column", "test_column_mean", "test_column_stddev", "test_column_min", "test_column_max", "test_column_q25", "test_column_q50", "test_column_q75", "score_mean"}
		if err := s.writer.Write(header); err != nil {
			return errors.Wrap(err, "Can't write CSV header")
		}
		s.wroteHeader = true
	}
	row := []string{
		fmt.Sprintf("%d", entry.Step),
		entry.Kind.String(),
		fmt.Sprintf("%f", entry.ObservedRMSE),
		fmt.Sprintf("%f", entry.MissingMAE),
		fmt.Sprintf("%d", entry.TestColumn),
		fmt.Sprintf("%f", entry.TestColumnMean),
		fmt.Sprintf("%f", entry.TestColumnStdDev),
		fmt.Sprintf("%f", entry.TestColumnMin),
		fmt.Sprintf("%f", entry.TestColumnMax),
		fmt.Sprintf("%f", entry.TestColumnQuartiles[0]),
		fmt.Sprintf("%f", entry.TestColumnQuartiles[1]),
		fmt.Sprintf("%f", entry.TestColumnQuartiles[2]),
		fmt.Sprintf("%f", entry.ScoreMean),
	}
	if err := s.writer.Write(row); err != nil {
		return errors.Wrap(err, "Can't write CSV row")
	}
	s.writer.Flush()
	return s.writer.Error()
}

// HistogramSink Renders a histogram of the test column values per entry
type HistogramSink struct {
	// Dir - output directory for PNG files
	Dir string
	// Bins - number of histogram bins
	Bins int
}

// Write Renders test_column_<step>.png into Dir
func (s *HistogramSink) Write(entry PerformanceEntry) error {
	bins := s.Bins
	if bins <= 0 {
		bins = 16
	}
	fname := filepath.Join(s.Dir, fmt.Sprintf("test_column_%d.png", entry.Step))
	if err := PlotHistogram(entry.TestColumnValues, bins, fname); err != nil {
		return errors.Wrap(err, "Can't plot test column histogram")
	}
	return nil
}

// MultiSink Broadcasts every entry to all nested sinks
type MultiSink []MetricsSink

// Write Writes the entry to each nested sink, stopping at the first error
func (s MultiSink) Write(entry PerformanceEntry) error {
	for _, sink := range s {
		if err := sink.Write(entry); err != nil {
			return err
		}
	}
	return nil
}
