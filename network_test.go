package gain_go

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestNetworkFwdSingleSample(t *testing.T) {
	g := gorgonia.NewGraph()
	w := matrixNode(t, g, "w0", 2, 3, []float64{1, 0, 0, 0, 1, 0})
	b := matrixNode(t, g, "b0", 1, 2, []float64{0.5, -0.5})
	net := &Network{
		Name: "test_network",
		Layers: []*Layer{
			{WeightNode: w, BiasNode: b, Type: LayerLinear, Activation: NoActivation},
		},
	}
	input := matrixNode(t, g, "input", 1, 3, []float64{1, 2, 3})
	require.NoError(t, net.Fwd(input, 1))
	require.NotNil(t, net.Out())

	var outVal gorgonia.Value
	gorgonia.Read(net.Out(), &outVal)
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	out := outVal.(*tensor.Dense).Data().([]float64)
	assert.InDeltaSlice(t, []float64{1.5, 1.5}, out, 1e-9)
}

func TestNetworkFwdBatched(t *testing.T) {
	g := gorgonia.NewGraph()
	w := matrixNode(t, g, "w0", 2, 3, []float64{1, 0, 0, 0, 1, 0})
	b := matrixNode(t, g, "b0", 1, 2, []float64{0.5, -0.5})
	net := &Network{
		Name: "test_network",
		Layers: []*Layer{
			{WeightNode: w, BiasNode: b, Type: LayerLinear, Activation: NoActivation},
		},
	}
	input := matrixNode(t, g, "input", 2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, net.Fwd(input, 2))

	var outVal gorgonia.Value
	gorgonia.Read(net.Out(), &outVal)
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	out := outVal.(*tensor.Dense).Data().([]float64)
	assert.InDeltaSlice(t, []float64{1.5, 1.5, 4.5, 4.5}, out, 1e-9)
}

func TestNetworkFwdReshape(t *testing.T) {
	g := gorgonia.NewGraph()
	net := &Network{
		Name: "test_network",
		Layers: []*Layer{
			{Type: LayerReshape, ReshapeDims: []int{2, 2}, Activation: NoActivation},
		},
	}
	input := matrixNode(t, g, "input", 1, 4, []float64{1, 2, 3, 4})
	require.NoError(t, net.Fwd(input, 1))

	var outVal gorgonia.Value
	gorgonia.Read(net.Out(), &outVal)
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	out := outVal.(*tensor.Dense)
	assert.Equal(t, []int{2, 2}, []int(out.Shape()))
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4}, out.Data().([]float64), 1e-9)
}

func TestNetworkFwdDropout(t *testing.T) {
	g := gorgonia.NewGraph()
	net := &Network{
		Name: "test_network",
		Layers: []*Layer{
			// Zero drop probability keeps the layer deterministic
			{Type: LayerDropout, Probability: 0.0, Activation: NoActivation},
		},
	}
	input := matrixNode(t, g, "input", 2, 3, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, net.Fwd(input, 2))

	var outVal gorgonia.Value
	gorgonia.Read(net.Out(), &outVal)
	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	require.NoError(t, vm.RunAll())

	out := outVal.(*tensor.Dense)
	assert.Equal(t, []int{2, 3}, []int(out.Shape()))
	assert.InDeltaSlice(t, []float64{1, 2, 3, 4, 5, 6}, out.Data().([]float64), 1e-9)
}

func TestNetworkLearnables(t *testing.T) {
	g := gorgonia.NewGraph()
	w := matrixNode(t, g, "w0", 2, 3, []float64{1, 0, 0, 0, 1, 0})
	b := matrixNode(t, g, "b0", 1, 2, []float64{0.5, -0.5})
	net := &Network{
		Layers: []*Layer{
			{WeightNode: w, BiasNode: b, Type: LayerLinear, Activation: NoActivation},
			{Type: LayerFlatten, Activation: NoActivation},
		},
	}
	assert.Len(t, net.Learnables(), 2)
}

func TestNetworkFwdNoLayers(t *testing.T) {
	g := gorgonia.NewGraph()
	input := matrixNode(t, g, "input", 1, 3, []float64{1, 2, 3})
	net := &Network{}
	assert.Error(t, net.Fwd(input, 1))
}

func TestNetworkFwdNilWeights(t *testing.T) {
	g := gorgonia.NewGraph()
	input := matrixNode(t, g, "input", 1, 3, []float64{1, 2, 3})
	net := &Network{
		Layers: []*Layer{
			{Type: LayerLinear, Activation: NoActivation},
		},
	}
	assert.Error(t, net.Fwd(input, 1))
}
