package gain_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// TrainerKind Selects the adversarial objective for the generator
type TrainerKind uint16

const (
	// TrainerDiscrimination - negative log-likelihood of discriminator scores weighted by missingness
	TrainerDiscrimination = TrainerKind(iota)
	// TrainerCritic - negative mean critic score
	TrainerCritic
)

func (kind TrainerKind) String() string {
	switch kind {
	case TrainerDiscrimination:
		return "discrimination"
	case TrainerCritic:
		return "critic"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(kind))
	}
}

// GeneratorTrainer One-step training driver for the generator part of GAIN.
//
// Owns the expression graph wiring: input nodes, generator feedforward, the
// frozen discriminator copy, the loss and the gradients w.r.t. generator
// learnables only. Each Step draws fresh noise, runs a single forward/backward
// pass and applies one solver update.
type GeneratorTrainer struct {
	kind     TrainerKind
	gainPart *GAIN

	x     *gorgonia.Node
	mask  *gorgonia.Node
	hints *gorgonia.Node
	noise *gorgonia.Node

	batchSize int
	features  int

	fwdVM   gorgonia.VM
	trainVM gorgonia.VM
	solver  gorgonia.Solver

	costVal    gorgonia.Value
	imputedVal gorgonia.Value
	scoreVal   gorgonia.Value

	lastScores *tensor.Dense
}

// NewGeneratorTrainer Constructor for GeneratorTrainer
//
// g - expression graph to place generator and the frozen discriminator copy onto
// definedGenerator - Generator (feedforward must NOT be initializated yet)
// definedDiscriminator - Discriminator or critic defined on its own training graph
// kind - adversarial objective to use
// batchSize - batch size
// features - number of data columns
// alpha - weight of the supervised reconstruction term. Zero disables it
// solver - solver applied to generator learnables
//
func NewGeneratorTrainer(g *gorgonia.ExprGraph, definedGenerator *GeneratorNet, definedDiscriminator *DiscriminatorNet, kind TrainerKind, batchSize, features int, alpha float64, solver gorgonia.Solver) (*GeneratorTrainer, error) {
	t := GeneratorTrainer{
		kind:      kind,
		batchSize: batchSize,
		features:  features,
		solver:    solver,
	}
	t.x = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("gain_x"))
	t.mask = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("gain_mask"))
	t.hints = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("gain_hints"))
	t.noise = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("gain_noise"))

	if err := definedGenerator.Fwd(t.x, t.mask, t.noise, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initializate generator feedforward")
	}
	definedGAIN, err := NewGAIN(g, definedGenerator, definedDiscriminator)
	if err != nil {
		return nil, errors.Wrap(err, "Can't initializate GAIN")
	}
	if err := definedGAIN.Fwd(t.x, t.mask, t.hints, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initializate GAIN feedforward")
	}
	t.gainPart = definedGAIN

	gorgonia.Read(definedGAIN.ImputedOut(), &t.imputedVal)
	gorgonia.Read(definedGAIN.Out(), &t.scoreVal)

	// Forward-only machine is compiled before loss and gradient nodes are
	// placed onto the graph, so imputation runs skip them entirely.
	t.fwdVM = gorgonia.NewTapeMachine(g)

	var cost *gorgonia.Node
	switch kind {
	case TrainerDiscrimination:
		cost, err = GeneratorDiscriminationLoss(definedGAIN.Out(), t.mask)
		if err != nil {
			return nil, errors.Wrap(err, "Can't build discrimination loss")
		}
	case TrainerCritic:
		cost, err = GeneratorCriticLoss(definedGAIN.Out())
		if err != nil {
			return nil, errors.Wrap(err, "Can't build critic loss")
		}
	default:
		return nil, fmt.Errorf("Trainer kind '%d' (uint16) is not handled", kind)
	}
	if alpha > 0 {
		reconstruction, err := MaskedReconstructionLoss(t.x, definedGAIN.GeneratorOut(), t.mask)
		if err != nil {
			return nil, errors.Wrap(err, "Can't build reconstruction loss")
		}
		alphaScalar := gorgonia.NewScalar(g, gorgonia.Float64, gorgonia.WithValue(alpha))
		weighted, err := gorgonia.Mul(alphaScalar, reconstruction)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do (alpha*x)")
		}
		cost, err = gorgonia.Add(cost, weighted)
		if err != nil {
			return nil, errors.Wrap(err, "Can't do (adversarial+alpha*reconstruction)")
		}
	}
	gorgonia.WithName("gain_generator_cost")(cost)
	gorgonia.Read(cost, &t.costVal)

	if _, err := gorgonia.Grad(cost, definedGAIN.GeneratorLearnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't compute gradients w.r.t. generator learnables")
	}
	t.trainVM = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(definedGAIN.GeneratorLearnables()...))
	return &t, nil
}

// GAIN Returns reference to underlying GAIN
func (t *GeneratorTrainer) GAIN() *GAIN {
	return t.gainPart
}

// Kind Returns the adversarial objective kind
func (t *GeneratorTrainer) Kind() TrainerKind {
	return t.kind
}

// Step Does single training step for the generator: draws fresh uniform noise,
// feedforwards the batch through generator and frozen discriminator, computes
// the loss, backpropagates through generator learnables only and applies one
// solver update. Returns the loss value.
//
// x - data batch, shape (batchSize, features), values scaled to [0,1]
// mask - mask for data batch. 1 = observed, 0 = missing
// hints - hint mask for the discriminator
//
func (t *GeneratorTrainer) Step(x, mask, hints tensor.Tensor) (float64, error) {
	if err := t.bindInputs(x, mask, hints); err != nil {
		return 0, err
	}
	if err := t.trainVM.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run training machine")
	}
	if err := t.solver.Step(gorgonia.NodesToValueGrads(t.gainPart.GeneratorLearnables())); err != nil {
		return 0, errors.Wrap(err, "Can't do solver step")
	}
	t.trainVM.Reset()
	return scalarValue(t.costVal)
}

// Impute Feedforwards the batch through the generator (fresh noise at hidden
// entries, unknown hints) and returns the blended result:
//
//	imputed = mask.*x + (1-mask).*generated
//
// No learnables are touched.
func (t *GeneratorTrainer) Impute(x, mask tensor.Tensor) (*tensor.Dense, error) {
	// Hints are irrelevant for the generator path, the forward machine just
	// needs a value. 0.5 means 'unknown' for every entry.
	unknownHints := FillDense(0.5, t.batchSize, t.features)
	if err := t.bindInputs(x, mask, unknownHints); err != nil {
		return nil, err
	}
	if err := t.fwdVM.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run forward machine")
	}
	t.fwdVM.Reset()
	imputed, ok := t.imputedVal.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Imputed value of type %T is not a dense tensor", t.imputedVal)
	}
	scores, ok := t.scoreVal.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Score value of type %T is not a dense tensor", t.scoreVal)
	}
	t.lastScores = scores.Clone().(*tensor.Dense)
	return imputed.Clone().(*tensor.Dense), nil
}

// Close Releases both tape machines
func (t *GeneratorTrainer) Close() error {
	if err := t.fwdVM.Close(); err != nil {
		return err
	}
	return t.trainVM.Close()
}

func (t *GeneratorTrainer) bindInputs(x, mask, hints tensor.Tensor) error {
	if err := gorgonia.Let(t.x, x); err != nil {
		return errors.Wrap(err, "Can't assign data batch")
	}
	if err := gorgonia.Let(t.mask, mask); err != nil {
		return errors.Wrap(err, "Can't assign mask")
	}
	if err := gorgonia.Let(t.hints, hints); err != nil {
		return errors.Wrap(err, "Can't assign hints")
	}
	if err := gorgonia.Let(t.noise, UniformRandDense(t.batchSize, t.features)); err != nil {
		return errors.Wrap(err, "Can't assign noise")
	}
	return nil
}

// DiscriminatorTrainer One-step training driver for the discriminator on its
// own expression graph. The discriminator learns to tell observed entries from
// imputed ones, given the hints.
type DiscriminatorTrainer struct {
	discriminatorPart *DiscriminatorNet

	imputed *gorgonia.Node
	hints   *gorgonia.Node
	mask    *gorgonia.Node

	vm      gorgonia.VM
	solver  gorgonia.Solver
	costVal gorgonia.Value
}

// NewDiscriminatorTrainer Constructor for DiscriminatorTrainer
//
// g - discriminator's own expression graph
// definedDiscriminator - Discriminator (feedforward must NOT be initializated yet)
// batchSize - batch size
// features - number of data columns
// solver - solver applied to discriminator learnables
//
func NewDiscriminatorTrainer(g *gorgonia.ExprGraph, definedDiscriminator *DiscriminatorNet, batchSize, features int, solver gorgonia.Solver) (*DiscriminatorTrainer, error) {
	t := DiscriminatorTrainer{
		discriminatorPart: definedDiscriminator,
		solver:            solver,
	}
	t.imputed = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("discriminator_imputed"))
	t.hints = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("discriminator_hints"))
	t.mask = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("discriminator_mask_target"))

	if err := definedDiscriminator.FwdWithHints(t.imputed, t.hints, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initializate discriminator feedforward")
	}
	cost, err := DiscriminatorHintLoss(definedDiscriminator.Out(), t.mask)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build hint loss")
	}
	gorgonia.WithName("discriminator_cost")(cost)
	gorgonia.Read(cost, &t.costVal)

	if _, err := gorgonia.Grad(cost, definedDiscriminator.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't compute gradients w.r.t. discriminator learnables")
	}
	t.vm = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(definedDiscriminator.Learnables()...))
	return &t, nil
}

// Step Does single training step for the discriminator. Returns the loss value.
//
// imputed - blended batch produced by the generator
// hints - hint mask. 1 = known genuine, 0 = known generated, 0.5 = unknown
// mask - true mask used as the target
//
func (t *DiscriminatorTrainer) Step(imputed, hints, mask tensor.Tensor) (float64, error) {
	if err := gorgonia.Let(t.imputed, imputed); err != nil {
		return 0, errors.Wrap(err, "Can't assign imputed batch")
	}
	if err := gorgonia.Let(t.hints, hints); err != nil {
		return 0, errors.Wrap(err, "Can't assign hints")
	}
	if err := gorgonia.Let(t.mask, mask); err != nil {
		return 0, errors.Wrap(err, "Can't assign mask target")
	}
	if err := t.vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run training machine")
	}
	if err := t.solver.Step(gorgonia.NodesToValueGrads(t.discriminatorPart.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't do solver step")
	}
	t.vm.Reset()
	return scalarValue(t.costVal)
}

// Close Releases the tape machine
func (t *DiscriminatorTrainer) Close() error {
	return t.vm.Close()
}

// CriticTrainer One-step training driver for a Wasserstein-style critic. Real
// and imputed batches are feedforwarded through shared layers on one graph;
// the critic is trained to score real data above imputed data. Keep the
// weights bounded via the solver (e.g. gorgonia.WithClip).
type CriticTrainer struct {
	criticPart *DiscriminatorNet

	real  *gorgonia.Node
	fake  *gorgonia.Node
	hints *gorgonia.Node

	vm      gorgonia.VM
	solver  gorgonia.Solver
	costVal gorgonia.Value
}

// NewCriticTrainer Constructor for CriticTrainer
//
// g - critic's own expression graph
// definedCritic - critic network (feedforward must NOT be initializated yet)
// batchSize - batch size
// features - number of data columns
// solver - solver applied to critic learnables
//
func NewCriticTrainer(g *gorgonia.ExprGraph, definedCritic *DiscriminatorNet, batchSize, features int, solver gorgonia.Solver) (*CriticTrainer, error) {
	t := CriticTrainer{
		criticPart: definedCritic,
		solver:     solver,
	}
	t.real = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("critic_real"))
	t.fake = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("critic_fake"))
	t.hints = gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, features), gorgonia.WithName("critic_hints"))

	if err := definedCritic.FwdWithHints(t.real, t.hints, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initializate critic feedforward [real part]")
	}
	realOut := definedCritic.Out()
	// Second pass shares the layer slice, so both outputs depend on the same weights
	shadow := &DiscriminatorNet{private: &Network{
		Name:   "critic_fake",
		Layers: definedCritic.private.Layers,
	}}
	if err := shadow.FwdWithHints(t.fake, t.hints, batchSize); err != nil {
		return nil, errors.Wrap(err, "Can't initializate critic feedforward [fake part]")
	}
	fakeOut := shadow.Out()

	cost, err := CriticScoreLoss(realOut, fakeOut)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build critic score loss")
	}
	gorgonia.WithName("critic_cost")(cost)
	gorgonia.Read(cost, &t.costVal)

	if _, err := gorgonia.Grad(cost, definedCritic.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't compute gradients w.r.t. critic learnables")
	}
	t.vm = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(definedCritic.Learnables()...))
	return &t, nil
}

// Step Does single training step for the critic. Returns the loss value.
//
// real - complete (or observed) data batch
// fake - blended batch produced by the generator
// hints - hint mask shared by both passes
//
func (t *CriticTrainer) Step(real, fake, hints tensor.Tensor) (float64, error) {
	if err := gorgonia.Let(t.real, real); err != nil {
		return 0, errors.Wrap(err, "Can't assign real batch")
	}
	if err := gorgonia.Let(t.fake, fake); err != nil {
		return 0, errors.Wrap(err, "Can't assign fake batch")
	}
	if err := gorgonia.Let(t.hints, hints); err != nil {
		return 0, errors.Wrap(err, "Can't assign hints")
	}
	if err := t.vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run training machine")
	}
	if err := t.solver.Step(gorgonia.NodesToValueGrads(t.criticPart.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't do solver step")
	}
	t.vm.Reset()
	return scalarValue(t.costVal)
}

// Close Releases the tape machine
func (t *CriticTrainer) Close() error {
	return t.vm.Close()
}

func scalarValue(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("Value has not been evaluated yet")
	}
	scalar, ok := v.Data().(float64)
	if !ok {
		return 0, fmt.Errorf("Value of type %T is not a float64 scalar", v.Data())
	}
	return scalar, nil
}
