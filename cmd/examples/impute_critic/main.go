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
	return 4 * rand.Float64()
}

func generateY(x float64) float64 {
	return math.Exp(-x) * math.Cos(2*math.Pi*x)
}

var (
	outputFolder = "./output"
	batchSize    = 32
	features     = 2
	numEpoches   = 300
	evalPrint    = 20
	observedRate = 0.8
	hintRate     = 0.9
	alpha        = 10.0
	testColumn   = 1
	// criticSteps - critic updates per generator update (WGAN convention)
	criticSteps = 3
	clipValue   = 0.01
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

	// Define graph for GAIN feedforward and Generator training
	gainGraph := gorgonia.NewGraph()
	// Define graph for critic training
	trainCriticGraph := gorgonia.NewGraph()

	// Define Generator on GAIN's evaluation graph
	definedGenerator := defineGenerator(gainGraph)
	// Define critic on its own evaluation graph
	definedCritic := defineCritic(trainCriticGraph)

	// Solver for critic evaluation graph. Weight clipping keeps the critic's
	// scores bounded in Wasserstein terms
	solverCritic := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(batchSize)), gorgonia.WithLearnRate(0.0005), gorgonia.WithClip(clipValue))
	criticTrainer, err := gain.NewCriticTrainer(trainCriticGraph, definedCritic, batchSize, features, solverCritic)
	if err != nil {
		panic(err)
	}
	defer criticTrainer.Close()

	// Solver for GAIN evaluation graph
	solverGenerator := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(batchSize)), gorgonia.WithLearnRate(0.001))
	generatorTrainer, err := gain.NewGeneratorTrainer(gainGraph, definedGenerator, definedCritic, gain.TrainerCritic, batchSize, features, alpha, solverGenerator)
	if err != nil {
		panic(err)
	}
	defer generatorTrainer.Close()

	// Performance log destination
	csvFile, err := os.Create(fmt.Sprintf("%s/performance_critic.csv", outputFolder))
	if err != nil {
		panic(err)
	}
	defer csvFile.Close()
	sink := gain.NewCSVSink(csvFile)

	/* Training process */

	batches := int(trainDataLength / batchSize)

	st := time.Now()
	for epoch := 0; epoch < numEpoches; epoch++ {
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

			// Do several training steps for critic per one Generator step
			lossCritic := 0.0
			for c := 0; c < criticSteps; c++ {
				imputedVal, err := generatorTrainer.Impute(xVal, maskVal)
				if err != nil {
					panic(err)
				}
				lossCritic, err = criticTrainer.Step(truthVal, imputedVal, hintsVal)
				if err != nil {
					panic(err)
				}
			}

			// Do training step for Generator
			lossGenerator, err := generatorTrainer.Step(xVal, maskVal, hintsVal)
			if err != nil {
				panic(err)
			}

			if epoch%evalPrint == 0 && b == batches-1 {
				fmt.Printf("Epoch %d:\n", epoch)
				fmt.Printf("\tCritic's loss: %v\n", lossCritic)
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
	slicedXAxis, err := restored.Slice(nil, gorgonia.S(0))
	if err != nil {
		panic(err)
	}
	slicedYAxis, err := restored.Slice(nil, gorgonia.S(1))
	if err != nil {
		panic(err)
	}
	err = gain.PlotXY(slicedXAxis.Materialize(), slicedYAxis.Materialize(), fmt.Sprintf("%s/imputed_critic_final.png", outputFolder))
	if err != nil {
		panic(err)
	}

	// Persist Generator's weights
	err = definedGenerator.Save(fmt.Sprintf("%s/generator_critic_weights.gob", outputFolder))
	if err != nil {
		panic(err)
	}
}

func defineCritic(g *gorgonia.ExprGraph) *gain.DiscriminatorNet {
	// Input is [data ⊕ hints] => 2*features columns; output is per-entry unbounded score
	critic_shp0 := []int{64, 2 * features}
	critic_b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, critic_shp0[0]), gorgonia.WithName("critic_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	critic_w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(critic_shp0...), gorgonia.WithName("critic_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	critic_shp1 := []int{32, 64}
	critic_b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, critic_shp1[0]), gorgonia.WithName("critic_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	critic_w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(critic_shp1...), gorgonia.WithName("critic_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	critic_shp2 := []int{features, 32}
	critic_b2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, critic_shp2[0]), gorgonia.WithName("critic_b2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	critic_w2 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(critic_shp2...), gorgonia.WithName("critic_w2"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))

	return gain.Discriminator(
		&gain.Layer{
			WeightNode: critic_w0,
			BiasNode:   critic_b0,
			Type:       gain.LayerLinear,
			Activation: gain.Rectify,
		},
		&gain.Layer{
			WeightNode: critic_w1,
			BiasNode:   critic_b1,
			Type:       gain.LayerLinear,
			Activation: gain.Rectify,
		},
		&gain.Layer{
			WeightNode: critic_w2,
			BiasNode:   critic_b2,
			Type:       gain.LayerLinear,
			Activation: gain.NoActivation,
		},
	)
}

func defineGenerator(g *gorgonia.ExprGraph) *gain.GeneratorNet {
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
