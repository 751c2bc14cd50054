package gain_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// GAIN Generative Adversarial Imputation Network.
//
// generatorPart - reference to Generator
// discriminatorPart - reference to Discriminator (or critic)
// modifiedDiscriminator - copy of structure of Discriminator which learnables would be ignored during the training process
//
// The modified discriminator's weight nodes are created with the same
// underlying values as the original ones, so solver steps done on the
// discriminator's own graph are immediately visible on the GAIN graph.
//
type GAIN struct {
	generatorPart     *GeneratorNet
	discriminatorPart *DiscriminatorNet

	modifiedDiscriminator *DiscriminatorNet

	out           *gorgonia.Node
	imputed       *gorgonia.Node
	learnables    gorgonia.Nodes
	learnablesGen gorgonia.Nodes
}

// NewGAIN Constructor for GAIN
//
// g - graph holding the generator (the discriminator copy will be placed onto it)
// definedGenerator - Generator. Its Fwd must be initializated before calling GAIN.Fwd
// definedDiscriminator - Discriminator or critic defined on its own training graph
//
func NewGAIN(g *gorgonia.ExprGraph, definedGenerator *GeneratorNet, definedDiscriminator *DiscriminatorNet) (*GAIN, error) {
	definedGAIN := GAIN{
		generatorPart:     definedGenerator,
		discriminatorPart: definedDiscriminator,
		modifiedDiscriminator: &DiscriminatorNet{private: &Network{
			Name:   "gain_discriminator",
			Layers: make([]*Layer, len(definedDiscriminator.private.Layers)),
		}},
		learnablesGen: definedGenerator.Learnables(),
		learnables:    definedGenerator.Learnables(),
	}
	// Discriminator part for GAIN
	for i, l := range definedDiscriminator.private.Layers {
		definedGAIN.modifiedDiscriminator.private.Layers[i] = &Layer{
			Activation:  l.Activation,
			Type:        l.Type,
			Probability: l.Probability,
			ReshapeDims: l.ReshapeDims,
		}
		if l.WeightNode == nil && !noWeightsAllowed(l.Type) {
			return nil, fmt.Errorf("Discriminator's Layer %d has nil weight node", i)
		}
		if l.WeightNode != nil {
			definedGAIN.modifiedDiscriminator.private.Layers[i].WeightNode = gorgonia.NewTensor(g, gorgonia.Float64, l.WeightNode.Dims(), gorgonia.WithShape(l.WeightNode.Shape()...), gorgonia.WithName(l.WeightNode.Name()+"_gain"), gorgonia.WithValue(l.WeightNode.Value()))
		}
		if l.BiasNode != nil {
			definedGAIN.modifiedDiscriminator.private.Layers[i].BiasNode = gorgonia.NewTensor(g, gorgonia.Float64, l.BiasNode.Dims(), gorgonia.WithShape(l.BiasNode.Shape()...), gorgonia.WithName(l.BiasNode.Name()+"_gain"), gorgonia.WithValue(l.BiasNode.Value()))
		}
	}
	return &definedGAIN, nil
}

// Out Returns reference to output node (discriminator scores over the imputed batch)
func (net *GAIN) Out() *gorgonia.Node {
	return net.out
}

// GeneratorOut Returns reference to output node of generator part
func (net *GAIN) GeneratorOut() *gorgonia.Node {
	return net.generatorPart.Out()
}

// ImputedOut Returns reference to the imputation node: mask.*x + (1-mask).*generated
func (net *GAIN) ImputedOut() *gorgonia.Node {
	return net.imputed
}

// Learnables Returns learnables nodes
func (net *GAIN) Learnables() gorgonia.Nodes {
	return net.learnables
}

// GeneratorLearnables Returns learnables nodes of generator part
func (net *GAIN) GeneratorLearnables() gorgonia.Nodes {
	return net.learnablesGen
}

// Fwd Initializates feedforward through the frozen discriminator part of GAIN
//
// x - Data node of shape (batch, features)
// mask - Mask node of same shape as x. 1 = observed, 0 = missing
// hints - Hint mask node of same shape as x
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
// Note: generator part must be feedforwarded already, since its output is blended here
//
func (net *GAIN) Fwd(x, mask, hints *gorgonia.Node, batchSize int) error {
	if net.generatorPart.Out() == nil {
		return fmt.Errorf("GAIN's generator part must be feedforwarded before GAIN itself")
	}
	if len(net.modifiedDiscriminator.private.Layers) == 0 {
		return fmt.Errorf("GAIN must have one layer in Discriminator part atleast")
	}
	imputed, err := blendNode(x, mask, net.generatorPart.Out())
	if err != nil {
		return errors.Wrap(err, "[GAIN] Can't blend generated data with ground truth")
	}
	gorgonia.WithName("gain_imputed")(imputed)
	net.imputed = imputed

	if err := net.modifiedDiscriminator.FwdWithHints(imputed, hints, batchSize); err != nil {
		return errors.Wrap(err, "[GAIN]")
	}
	net.out = net.modifiedDiscriminator.Out()
	return nil
}

// blendNode Builds mask.*x + (1-mask).*generated
func blendNode(x, mask, generated *gorgonia.Node) (*gorgonia.Node, error) {
	observed, err := gorgonia.HadamardProd(mask, x)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (mask.*x)")
	}
	missing, err := missingnessNode(mask)
	if err != nil {
		return nil, err
	}
	filled, err := gorgonia.HadamardProd(missing, generated)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do ((1-mask).*generated)")
	}
	imputed, err := gorgonia.Add(observed, filled)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (observed+filled)")
	}
	return imputed, nil
}
