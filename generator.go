package gain_go

import (
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// GeneratorNet Abstraction for generator part of GAIN.
//
// The body is a simple neural network mapping the concatenated
// [corrupted data, mask] matrix of shape (batch, 2*features) to an imputation
// candidate of shape (batch, features). Hidden entries of the data are
// replaced with noise before the concatenation:
//
//	corrupted = mask.*x + (1-mask).*noise
//
type GeneratorNet struct {
	private *Network
}

// Generator Constructor for GeneratorNet
func Generator(Layers ...*Layer) *GeneratorNet {
	return &GeneratorNet{private: &Network{
		Name:   "generator",
		Layers: Layers,
	}}
}

// Out Returns reference to output node
func (net *GeneratorNet) Out() *gorgonia.Node {
	return net.private.out
}

// Learnables Returns learnables nodes
func (net *GeneratorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// Fwd Initializates feedforward for provided data, mask and noise nodes.
//
// x - Data node of shape (batch, features), values scaled to [0,1]
// mask - Mask node of same shape as x. 1 = observed, 0 = missing
// noise - Noise node of same shape as x. Should be `Let` with uniform [0,1) draws each step
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *GeneratorNet) Fwd(x, mask, noise *gorgonia.Node, batchSize int) error {
	corrupted, err := corruptNode(x, mask, noise)
	if err != nil {
		return errors.Wrap(err, "[Generator]")
	}
	gorgonia.WithName("generator_corrupted")(corrupted)
	input, err := gorgonia.Concat(1, corrupted, mask)
	if err != nil {
		return errors.Wrap(err, "[Generator] Can't concatenate corrupted data and mask")
	}
	gorgonia.WithName("generator_concat_input")(input)
	if err := net.private.Fwd(input, batchSize); err != nil {
		return errors.Wrap(err, "[Generator]")
	}
	return nil
}

// Save Dumps body's weights. See Network.SaveWeights
func (net *GeneratorNet) Save(path string) error {
	return net.private.SaveWeights(path)
}

// Load Restores body's weights. See Network.LoadWeights
func (net *GeneratorNet) Load(path string) error {
	return net.private.LoadWeights(path)
}

// corruptNode Builds mask.*x + (1-mask).*noise
func corruptNode(x, mask, noise *gorgonia.Node) (*gorgonia.Node, error) {
	observed, err := gorgonia.HadamardProd(mask, x)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (mask.*x)")
	}
	missing, err := missingnessNode(mask)
	if err != nil {
		return nil, err
	}
	hidden, err := gorgonia.HadamardProd(missing, noise)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do ((1-mask).*noise)")
	}
	corrupted, err := gorgonia.Add(observed, hidden)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (observed+hidden)")
	}
	return corrupted, nil
}

// missingnessNode Builds (1-mask)
func missingnessNode(mask *gorgonia.Node) (*gorgonia.Node, error) {
	onesTensor := gorgonia.NewTensor(mask.Graph(), mask.Dtype(), mask.Dims(), gorgonia.WithShape(mask.Shape()...), gorgonia.WithInit(gorgonia.Ones()))
	missing, err := gorgonia.Sub(onesTensor, mask)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-mask)")
	}
	return missing, nil
}
