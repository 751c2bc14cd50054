package gain_go

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func definePersistNetwork(g *gorgonia.ExprGraph, rows, cols int) *Network {
	w := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(rows, cols), gorgonia.WithName("persist_w0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	b := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(1, rows), gorgonia.WithName("persist_b0"), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	return &Network{
		Name: "persist_network",
		Layers: []*Layer{
			{WeightNode: w, BiasNode: b, Type: LayerLinear, Activation: NoActivation},
		},
	}
}

func TestSaveLoadWeightsRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.gob")

	source := definePersistNetwork(gorgonia.NewGraph(), 4, 3)
	require.NoError(t, source.SaveWeights(path))

	target := definePersistNetwork(gorgonia.NewGraph(), 4, 3)
	require.NoError(t, target.LoadWeights(path))

	sourceLearnables := source.Learnables()
	targetLearnables := target.Learnables()
	require.Len(t, targetLearnables, len(sourceLearnables))
	for i := range sourceLearnables {
		expected := sourceLearnables[i].Value().(*tensor.Dense).Data().([]float64)
		got := targetLearnables[i].Value().(*tensor.Dense).Data().([]float64)
		assert.InDeltaSlice(t, expected, got, 1e-12)
	}
}

func TestLoadWeightsMissingFile(t *testing.T) {
	net := definePersistNetwork(gorgonia.NewGraph(), 4, 3)
	assert.Error(t, net.LoadWeights(filepath.Join(t.TempDir(), "nonexistent.gob")))
}

func TestLoadWeightsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weights.gob")

	source := definePersistNetwork(gorgonia.NewGraph(), 4, 3)
	require.NoError(t, source.SaveWeights(path))

	target := definePersistNetwork(gorgonia.NewGraph(), 2, 3)
	assert.Error(t, target.LoadWeights(path))
}

func TestGeneratorSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generator.gob")

	g1 := gorgonia.NewGraph()
	source := defineTestGenerator(g1)
	require.NoError(t, source.Save(path))

	g2 := gorgonia.NewGraph()
	target := defineTestGenerator(g2)
	require.NoError(t, target.Load(path))

	sourceLearnables := source.Learnables()
	targetLearnables := target.Learnables()
	require.Len(t, targetLearnables, len(sourceLearnables))
	for i := range sourceLearnables {
		expected := sourceLearnables[i].Value().(*tensor.Dense).Data().([]float64)
		got := targetLearnables[i].Value().(*tensor.Dense).Data().([]float64)
		assert.InDeltaSlice(t, expected, got, 1e-12)
	}
}
