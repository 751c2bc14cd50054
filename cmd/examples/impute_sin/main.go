package main

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	gain "github.com/tabular-ml/gain-go"
	"gorgonia.org/gorgonia"
)

func generateX() float64 {
	return 2 * math.Pi * rand.Float64()
}

func generateY(x float64) float64 {
	return math.Sin(x)
}

var (
	outputFolder = "./output"
	batchSize    = 32
	features     = 2
	numEpoches   = 300
	evalPrint    = 20
	observedRate = 0.7
	hintRate     = 0.9
	alpha        = 10.0
	testColumn   = 1
)

func main() {
	// Initialize seeds with constant values to reproduce results
	rand.Seed(1337)
	gain.SeedRNG(1337)

	// Prepare synthetic data with missing entries
	trainDataLength := 1024
	trainSet, scaler, err := gain.GenerateImputeSet(trainDataLength, generateX, generateY, observedRate)
	if err != nil {
		panic(err)
	}

	// Extract X and Y(X) values for charts plotting
	slicedXAxis, err := trainSet.Truth.Slice(nil, gorgonia.S(0))
	if err != nil {
		panic(err)
	}
	slicedYAxis, err := trainSet.Truth.Slice(nil, gorgonia.S(1))
	if err != nil {
		panic(err)
	}

	// Plot reference function
	err = gain.PlotXY(slicedXAxis.Materialize(), slicedYAxis.Materialize(), fmt.Sprintf("%s/reference_function.png", outputFolder))
	if err != nil {
		panic(err)
	}

	// Define graph for GAIN feedforward and Generator training
	gainGraph := gorgonia.NewGraph()
	// Define graph for Discriminator training
	trainDiscriminatorGraph := gorgonia.NewGraph()

	// Define Generator on GAIN's evaluation graph
	definedGenerator := defineGenerator(gainGraph)
	// Define Discriminator on its own evaluation graph
	definedDiscriminator := defineDiscriminator(trainDiscriminatorGraph)

	// Solver for Discriminator evaluation graph
	solverDiscriminator := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(batchSize)), gorgonia.WithLearnRate(0.001))
	discriminatorTrainer, err := gain.NewDiscriminatorTrainer(trainDiscriminatorGraph, definedDiscriminator, batchSize, features, solverDiscriminator)
	if err != nil {
		panic(err)
	}
	defer discriminatorTrainer.Close()

	// Solver for GAIN evaluation graph
	solverGenerator := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(batchSize)), gorgonia.WithLearnRate(0.001))
	generatorTrainer, err := gain.NewGeneratorTrainer(gainGraph, definedGenerator, definedDiscriminator, gain.TrainerDiscrimination, batchSize, features, alpha, solverGenerator)
	if err != nil {
		panic(err)
	}
	defer generatorTrainer.Close()

	// Performance log destinations
	csvFile, err := os.Create(fmt.Sprintf("%s/performance.csv", outputFolder))
	if err != nil {
		panic(err)
	}
	defer csvFile.Close()
	sink := gain.MultiSink{
		gain.NewCSVSink(csvFile),
		&gain.HistogramSink{Dir: outputFolder, Bins: 16},
	}

	/* Training process */

	// Define number of batches as
	// baches_num = train_data_num / batch_size
	batches := int(trainDataLength / batchSize)

	// Looping process
	st := time.Now()
	for epoch := 0; epoch < numEpoches; epoch++ {
		// Iterate through batches
		for b := 0; b < batches; b++ {
			start := b * batchSize
			end := start + batchSize
			if end > trainDataLength {
				break
			}

			xVal, maskVal, truthVal, err := trainSet.Batch(start, end)
			if err != nil {
				panic(err)
			}
			hintsVal, err := gain.HintDense(maskVal, hintRate)
			if err != nil {
				panic(err)
			}

			// Impute the batch with current Generator's weights for the Discriminator step
			imputedVal, err := generatorTrainer.Impute(xVal, maskVal)
			if err != nil {
				panic(err)
			}

			// Do training step for Discriminator
			lossDiscriminator, err := discriminatorTrainer.Step(imputedVal, hintsVal, maskVal)
			if err != nil {
				panic(err)
			}

			// Do training step for Generator
			lossGenerator, err := generatorTrainer.Step(xVal, maskVal, hintsVal)
			if err != nil {
				panic(err)
			}

			if epoch%evalPrint == 0 && b == batches-1 {
				fmt.Printf("Epoch %d:\n", epoch)
				fmt.Printf("\tDiscriminator's loss: %v\n", lossDiscriminator)
				fmt.Printf("\tGenerator's loss: %v\n", lossGenerator)
				fmt.Printf("\tTaken time: %v\n", time.Since(st))
				st = time.Now()

				err = generatorTrainer.PerformanceLog(epoch, truthVal, xVal, maskVal, testColumn, sink)
				if err != nil {
					panic(err)
				}
			}
		}
	}

	// Final test of Generator: impute the first batch and restore value ranges
	fmt.Println("Start testing generator after final epoch")
	xVal, maskVal, _, err := trainSet.Batch(0, batchSize)
	if err != nil {
		panic(err)
	}
	imputedVal, err := generatorTrainer.Impute(xVal, maskVal)
	if err != nil {
		panic(err)
	}
	restored, err := scaler.Inverse(imputedVal)
	if err != nil {
		panic(err)
	}
	slicedXAxisImputed, err := restored.Slice(nil, gorgonia.S(0))
	if err != nil {
		panic(err)
	}
	slicedYAxisImputed, err := restored.Slice(nil, gorgonia.S(1))
	if err != nil {
		panic(err)
	}
	err = gain.PlotXY(slicedXAxisImputed.Materialize(), slicedYAxisImputed.Materialize(), fmt.Sprintf("%s/imputed_function_final.png", outputFolder))
	if err != nil {
		panic(err)
	}

	// Persist Generator's weights
	err = definedGenerator.Save(fmt.Sprintf("%s/generator_weights.gob", outputFolder))
	if err != nil {
		panic(err)
	}
}

func defineDiscriminator(g *gorgonia.ExprGraph) *gain.DiscriminatorNet {
	// Input is [imputed ⊕ hints] => 2*features columns; output is per-entry probability => features columns
	dis_shp0 := []int{64, 2 * features}
	dis_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp0[0]), gorgonia.WithName("discriminator_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp0...), gorgonia.WithName("discriminator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	dis_shp1 := []int{32, 64}
	dis_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp1[0]), gorgonia.WithName("discriminator_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp1...), gorgonia.WithName("discriminator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	dis_shp2 := []int{features, 32}
	dis_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, dis_shp2[0]), gorgonia.WithName("discriminator_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dis_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(dis_shp2...), gorgonia.WithName("discriminator_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gain.Discriminator(
		&gain.Layer{
			WeightNode: dis_w0,
			BiasNode:   dis_b0,
			Type:       gain.LayerLinear,
			Activation: gain.Rectify,
		},
		&gain.Layer{
			WeightNode: dis_w1,
			BiasNode:   dis_b1,
			Type:       gain.LayerLinear,
			Activation: gain.Rectify,
		},
		&gain.Layer{
			WeightNode: dis_w2,
			BiasNode:   dis_b2,
			Type:       gain.LayerLinear,
			Activation: gain.Sigmoid,
		},
	)
}

func defineGenerator(g *gorgonia.ExprGraph) *gain.GeneratorNet {
	// Input is [corrupted ⊕ mask] => 2*features columns; output matches data shape => features columns
	gen_shp0 := []int{64, 2 * features}
	gen_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp0[0]), gorgonia.WithName("generator_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp0...), gorgonia.WithName("generator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp1 := []int{32, 64}
	gen_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp1[0]), gorgonia.WithName("generator_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp1...), gorgonia.WithName("generator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	gen_shp2 := []int{features, 32}
	gen_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, gen_shp2[0]), gorgonia.WithName("generator_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	gen_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(gen_shp2...), gorgonia.WithName("generator_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gain.Generator(
		&gain.Layer{
			WeightNode: gen_w0,
			BiasNode:   gen_b0,
			Type:       gain.LayerLinear,
			Activation: gain.Rectify,
		},
		&gain.Layer{
			WeightNode: gen_w1,
			BiasNode:   gen_b1,
			Type:       gain.LayerLinear,
			Activation: gain.Rectify,
		},
		&gain.Layer{
			WeightNode: gen_w2,
			BiasNode:   gen_b2,
			Type:       gain.LayerLinear,
			Activation: gain.Sigmoid,
		},
	)
}
