package gain_go

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
)

const (
	testBatchSize = 4
	testFeatures  = 2
)

func defineTestGenerator(g *gorgonia.ExprGraph) *GeneratorNet {
	w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(8, 2*testFeatures), gorgonia.WithName("generator_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 8), gorgonia.WithName("generator_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(testFeatures, 8), gorgonia.WithName("generator_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, testFeatures), gorgonia.WithName("generator_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	return Generator(
		&Layer{WeightNode: w0, BiasNode: b0, Type: LayerLinear, Activation: Rectify},
		&Layer{WeightNode: w1, BiasNode: b1, Type: LayerLinear, Activation: Sigmoid},
	)
}

func defineTestDiscriminator(g *gorgonia.ExprGraph, name string, activation ActivationFunc) *DiscriminatorNet {
	w0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(8, 2*testFeatures), gorgonia.WithName(name+"_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	b0 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, 8), gorgonia.WithName(name+"_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	w1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(testFeatures, 8), gorgonia.WithName(name+"_w1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	b1 := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, testFeatures), gorgonia.WithName(name+"_b1"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	return Discriminator(
		&Layer{WeightNode: w0, BiasNode: b0, Type: LayerLinear, Activation: Rectify},
		&Layer{WeightNode: w1, BiasNode: b1, Type: LayerLinear, Activation: activation},
	)
}

func TestNewGAINStructure(t *testing.T) {
	gainGraph := gorgonia.NewGraph()
	disGraph := gorgonia.NewGraph()
	definedGenerator := defineTestGenerator(gainGraph)
	definedDiscriminator := defineTestDiscriminator(disGraph, "discriminator", Sigmoid)

	definedGAIN, err := NewGAIN(gainGraph, definedGenerator, definedDiscriminator)
	require.NoError(t, err)
	assert.Len(t, definedGAIN.modifiedDiscriminator.private.Layers, 2)
	assert.Len(t, definedGAIN.GeneratorLearnables(), 4)
	assert.Len(t, definedGAIN.Learnables(), 4)
	for i, l := range definedGAIN.modifiedDiscriminator.private.Layers {
		original := definedDiscriminator.private.Layers[i]
		require.NotNil(t, l.WeightNode)
		assert.True(t, l.WeightNode.Shape().Eq(original.WeightNode.Shape()))
		assert.Equal(t, original.WeightNode.Name()+"_gain", l.WeightNode.Name())
	}
}

func TestGeneratorTrainerStepAndImpute(t *testing.T) {
	SeedRNG(1337)
	gainGraph := gorgonia.NewGraph()
	disGraph := gorgonia.NewGraph()
	definedGenerator := defineTestGenerator(gainGraph)
	definedDiscriminator := defineTestDiscriminator(disGraph, "discriminator", Sigmoid)

	solver := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(testBatchSize)), gorgonia.WithLearnRate(0.001))
	trainer, err := NewGeneratorTrainer(gainGraph, definedGenerator, definedDiscriminator, TrainerDiscrimination, testBatchSize, testFeatures, 1.0, solver)
	require.NoError(t, err)
	defer trainer.Close()

	x := UniformRandDense(testBatchSize, testFeatures)
	mask := UniformMaskDense(testBatchSize, testFeatures, 0.5)
	hints, err := HintDense(mask, 0.9)
	require.NoError(t, err)

	loss, err := trainer.Step(x, mask, hints)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsInf(loss, 0))

	imputed, err := trainer.Impute(x, mask)
	require.NoError(t, err)
	assert.Equal(t, []int{testBatchSize, testFeatures}, []int(imputed.Shape()))

	// Observed entries must survive imputation untouched
	xRaw := x.Data().([]float64)
	maskRaw := mask.Data().([]float64)
	imputedRaw := imputed.Data().([]float64)
	for i := range maskRaw {
		if maskRaw[i] == 1.0 {
			assert.InDelta(t, xRaw[i], imputedRaw[i], 1e-9)
		} else {
			// Hidden entries come from the sigmoid-activated generator
			assert.GreaterOrEqual(t, imputedRaw[i], 0.0)
			assert.LessOrEqual(t, imputedRaw[i], 1.0)
		}
	}
}

func TestFrozenDiscriminatorSharesWeights(t *testing.T) {
	SeedRNG(1337)
	gainGraph := gorgonia.NewGraph()
	disGraph := gorgonia.NewGraph()
	definedGenerator := defineTestGenerator(gainGraph)
	definedDiscriminator := defineTestDiscriminator(disGraph, "discriminator", Sigmoid)

	solverGenerator := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(testBatchSize)), gorgonia.WithLearnRate(0.001))
	generatorTrainer, err := NewGeneratorTrainer(gainGraph, definedGenerator, definedDiscriminator, TrainerDiscrimination, testBatchSize, testFeatures, 1.0, solverGenerator)
	require.NoError(t, err)
	defer generatorTrainer.Close()

	solverDiscriminator := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(testBatchSize)), gorgonia.WithLearnRate(0.001))
	discriminatorTrainer, err := NewDiscriminatorTrainer(disGraph, definedDiscriminator, testBatchSize, testFeatures, solverDiscriminator)
	require.NoError(t, err)
	defer discriminatorTrainer.Close()

	imputed := UniformRandDense(testBatchSize, testFeatures)
	mask := UniformMaskDense(testBatchSize, testFeatures, 0.5)
	hints, err := HintDense(mask, 0.9)
	require.NoError(t, err)
	_, err = discriminatorTrainer.Step(imputed, hints, mask)
	require.NoError(t, err)

	// Solver updates on the discriminator's own graph must be visible on the
	// copy placed onto the generator's graph
	copied := generatorTrainer.GAIN().modifiedDiscriminator.private.Layers
	for i, l := range definedDiscriminator.private.Layers {
		expected := l.WeightNode.Value().Data().([]float64)
		got := copied[i].WeightNode.Value().Data().([]float64)
		assert.InDeltaSlice(t, expected, got, 0, "layer %d weights diverged", i)
	}
}

func TestGeneratorTrainerWithCritic(t *testing.T) {
	SeedRNG(1337)
	gainGraph := gorgonia.NewGraph()
	criticGraph := gorgonia.NewGraph()
	definedGenerator := defineTestGenerator(gainGraph)
	definedCritic := defineTestDiscriminator(criticGraph, "critic", NoActivation)

	solver := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(testBatchSize)), gorgonia.WithLearnRate(0.001))
	trainer, err := NewGeneratorTrainer(gainGraph, definedGenerator, definedCritic, TrainerCritic, testBatchSize, testFeatures, 0, solver)
	require.NoError(t, err)
	defer trainer.Close()

	x := UniformRandDense(testBatchSize, testFeatures)
	mask := UniformMaskDense(testBatchSize, testFeatures, 0.5)
	hints, err := HintDense(mask, 0.9)
	require.NoError(t, err)

	loss, err := trainer.Step(x, mask, hints)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsInf(loss, 0))
}

func TestDiscriminatorTrainerStep(t *testing.T) {
	SeedRNG(1337)
	disGraph := gorgonia.NewGraph()
	definedDiscriminator := defineTestDiscriminator(disGraph, "discriminator", Sigmoid)

	solver := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(testBatchSize)), gorgonia.WithLearnRate(0.001))
	trainer, err := NewDiscriminatorTrainer(disGraph, definedDiscriminator, testBatchSize, testFeatures, solver)
	require.NoError(t, err)
	defer trainer.Close()

	imputed := UniformRandDense(testBatchSize, testFeatures)
	mask := UniformMaskDense(testBatchSize, testFeatures, 0.5)
	hints, err := HintDense(mask, 0.9)
	require.NoError(t, err)

	loss, err := trainer.Step(imputed, hints, mask)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
	assert.Greater(t, loss, 0.0)
}

func TestCriticTrainerStep(t *testing.T) {
	SeedRNG(1337)
	criticGraph := gorgonia.NewGraph()
	definedCritic := defineTestDiscriminator(criticGraph, "critic", NoActivation)

	solver := gorgonia.NewRMSPropSolver(gorgonia.WithBatchSize(float64(testBatchSize)), gorgonia.WithLearnRate(0.001), gorgonia.WithClip(0.01))
	trainer, err := NewCriticTrainer(criticGraph, definedCritic, testBatchSize, testFeatures, solver)
	require.NoError(t, err)
	defer trainer.Close()

	real := UniformRandDense(testBatchSize, testFeatures)
	fake := UniformRandDense(testBatchSize, testFeatures)
	hints := FillDense(0.5, testBatchSize, testFeatures)

	loss, err := trainer.Step(real, fake, hints)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))
}

func TestGAINFwdRequiresGeneratorFeedforward(t *testing.T) {
	gainGraph := gorgonia.NewGraph()
	disGraph := gorgonia.NewGraph()
	definedGenerator := defineTestGenerator(gainGraph)
	definedDiscriminator := defineTestDiscriminator(disGraph, "discriminator", Sigmoid)

	definedGAIN, err := NewGAIN(gainGraph, definedGenerator, definedDiscriminator)
	require.NoError(t, err)

	x := gorgonia.NewMatrix(gainGraph, gorgonia.Float64, gorgonia.WithShape(testBatchSize, testFeatures), gorgonia.WithName("x"))
	mask := gorgonia.NewMatrix(gainGraph, gorgonia.Float64, gorgonia.WithShape(testBatchSize, testFeatures), gorgonia.WithName("mask"))
	hints := gorgonia.NewMatrix(gainGraph, gorgonia.Float64, gorgonia.WithShape(testBatchSize, testFeatures), gorgonia.WithName("hints"))
	assert.Error(t, definedGAIN.Fwd(x, mask, hints, testBatchSize))
}
