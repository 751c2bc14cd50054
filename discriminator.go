package gain_go

import (
	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// DiscriminatorNet Abstraction for discriminator (or critic) part of GAIN. It's simple neural network actually.
//
// The discriminator receives the concatenated [imputed data, hints] matrix of
// shape (batch, 2*features) and predicts, per entry, the probability that the
// entry is genuine. A critic has the same input contract but an unbounded
// output score.
//
type DiscriminatorNet struct {
	private *Network
}

// Discriminator Constructor for DiscriminatorNet
func Discriminator(Layers ...*Layer) *DiscriminatorNet {
	return &DiscriminatorNet{private: &Network{
		Name:   "discriminator",
		Layers: Layers,
	}}
}

// Out Returns reference to output node
func (net *DiscriminatorNet) Out() *gorgonia.Node {
	return net.private.out
}

// Learnables Returns learnables nodes
func (net *DiscriminatorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// Fwd Initializates feedforward for provided input
//
// input - Input node of shape (batch, 2*features)
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *DiscriminatorNet) Fwd(input *gorgonia.Node, batchSize int) error {
	if err := net.private.Fwd(input, batchSize); err != nil {
		return errors.Wrap(err, "[Discriminator]")
	}
	return nil
}

// FwdWithHints Concatenates data and hints along feature axis and initializates feedforward
//
// data - Data node of shape (batch, features)
// hints - Hint mask node of same shape as data. 1 = known genuine, 0 = known generated, 0.5 = unknown
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *DiscriminatorNet) FwdWithHints(data, hints *gorgonia.Node, batchSize int) error {
	input, err := gorgonia.Concat(1, data, hints)
	if err != nil {
		return errors.Wrap(err, "[Discriminator] Can't concatenate data and hints")
	}
	if err := net.Fwd(input, batchSize); err != nil {
		return err
	}
	return nil
}

// Save Dumps body's weights. See Network.SaveWeights
func (net *DiscriminatorNet) Save(path string) error {
	return net.private.SaveWeights(path)
}

// Load Restores body's weights. See Network.LoadWeights
func (net *DiscriminatorNet) Load(path string) error {
	return net.private.LoadWeights(path)
}
