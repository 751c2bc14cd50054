package gain_go

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

type LossReduction uint16

const (
	LossReductionSum = LossReduction(iota)
	LossReductionMean
)

// epsilon Keeps log() and denominators away from zero
const epsilon = 1e-8

// MSELoss See ref. https://en.wikipedia.org/wiki/Mean_squared_error
// Default reduction is 'mean'
func MSELoss(a, b *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	sub, err := gorgonia.Sub(a, b)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (A-B)")
	}
	sqr, err := gorgonia.Square(sub)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x^2)")
	}
	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(sqr)
	case LossReductionMean:
		return gorgonia.Mean(sqr)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}

// GeneratorDiscriminationLoss Negative log-likelihood of discriminator scores, weighted by missingness:
//
//	loss = -SUM((1-mask).*log(dOut+eps)) / (SUM(1-mask)+eps)
//
// dOut - discriminator probabilities over the imputed batch
// mask - mask node. 1 = observed, 0 = missing
// Only terms for missing entries contribute: the generator is rewarded for
// fooling the discriminator exactly where it had to invent values.
func GeneratorDiscriminationLoss(dOut, mask *gorgonia.Node) (*gorgonia.Node, error) {
	missing, err := missingnessNode(mask)
	if err != nil {
		return nil, err
	}
	epsScalar := gorgonia.NewScalar(dOut.Graph(), dOut.Dtype(), gorgonia.WithValue(epsilon))
	stabilized, err := gorgonia.Add(dOut, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (dOut+eps)")
	}
	logScores, err := gorgonia.Log(stabilized)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(x)")
	}
	weighted, err := gorgonia.HadamardProd(missing, logScores)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do ((1-mask).*log(x))")
	}
	weightedSum, err := gorgonia.Sum(weighted)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do SUM(x)")
	}
	missingSum, err := gorgonia.Sum(missing)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do SUM(1-mask)")
	}
	missingSumStable, err := gorgonia.Add(missingSum, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (SUM(1-mask)+eps)")
	}
	normalized, err := gorgonia.Div(weightedSum, missingSumStable)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x/y)")
	}
	loss, err := gorgonia.Neg(normalized)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}
	return loss, nil
}

// GeneratorCriticLoss Negative mean critic score over the imputed batch:
//
//	loss = -MEAN(criticOut)
//
func GeneratorCriticLoss(criticOut *gorgonia.Node) (*gorgonia.Node, error) {
	mean, err := gorgonia.Mean(criticOut)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do MEAN(x)")
	}
	loss, err := gorgonia.Neg(mean)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}
	return loss, nil
}

// MaskedReconstructionLoss Mean squared error over observed entries only:
//
//	loss = SUM(mask.*(x-generated)^2) / (SUM(mask)+eps)
//
// Used as the supervised term of the generator objective: the generator should
// reproduce the values it was actually shown.
func MaskedReconstructionLoss(x, generated, mask *gorgonia.Node) (*gorgonia.Node, error) {
	sub, err := gorgonia.Sub(x, generated)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (A-B)")
	}
	sqr, err := gorgonia.Square(sub)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x^2)")
	}
	weighted, err := gorgonia.HadamardProd(mask, sqr)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (mask.*x)")
	}
	weightedSum, err := gorgonia.Sum(weighted)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do SUM(x)")
	}
	maskSum, err := gorgonia.Sum(mask)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do SUM(mask)")
	}
	epsScalar := gorgonia.NewScalar(x.Graph(), x.Dtype(), gorgonia.WithValue(epsilon))
	maskSumStable, err := gorgonia.Add(maskSum, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (SUM(mask)+eps)")
	}
	loss, err := gorgonia.Div(weightedSum, maskSumStable)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x/y)")
	}
	return loss, nil
}

// DiscriminatorHintLoss Binary cross entropy of per-entry discriminator
// probabilities against the true mask:
//
//	loss = -MEAN(mask.*log(dOut+eps) + (1-mask).*log(1-dOut+eps))
//
func DiscriminatorHintLoss(dOut, mask *gorgonia.Node, reduction ...LossReduction) (*gorgonia.Node, error) {
	epsScalar := gorgonia.NewScalar(dOut.Graph(), dOut.Dtype(), gorgonia.WithValue(epsilon))

	// Genuine part: mask.*log(dOut+eps)
	stabilized, err := gorgonia.Add(dOut, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (dOut+eps)")
	}
	logMain, err := gorgonia.Log(stabilized)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(x)")
	}
	hprodMain, err := gorgonia.HadamardProd(mask, logMain)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (mask.*x)")
	}

	// Generated part: (1-mask).*log(1-dOut+eps)
	onesTensor := gorgonia.NewTensor(dOut.Graph(), dOut.Dtype(), dOut.Dims(), gorgonia.WithShape(dOut.Shape()...), gorgonia.WithInit(gorgonia.Ones()))
	inverted, err := gorgonia.Sub(onesTensor, dOut)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-dOut)")
	}
	invertedStable, err := gorgonia.Add(inverted, epsScalar)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (1-dOut+eps)")
	}
	logBin, err := gorgonia.Log(invertedStable)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do log(x)")
	}
	missing, err := missingnessNode(mask)
	if err != nil {
		return nil, err
	}
	hprodBin, err := gorgonia.HadamardProd(missing, logBin)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do ((1-mask).*x)")
	}

	hprod, err := gorgonia.Add(hprodMain, hprodBin)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x+y)")
	}
	neg, err := gorgonia.Neg(hprod)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do -1*x")
	}

	reductionDefault := LossReductionMean
	if len(reduction) != 0 {
		reductionDefault = reduction[0]
	}
	switch reductionDefault {
	case LossReductionSum:
		return gorgonia.Sum(neg)
	case LossReductionMean:
		return gorgonia.Mean(neg)
	default:
		return nil, fmt.Errorf("Reduction type %d is not supported", reductionDefault)
	}
}

// CriticScoreLoss WGAN-style critic objective:
//
//	loss = MEAN(fakeOut) - MEAN(realOut)
//
// Minimizing it pushes real scores up and imputed scores down. Weights should
// be kept bounded by the caller's solver (e.g. gorgonia.WithClip).
func CriticScoreLoss(realOut, fakeOut *gorgonia.Node) (*gorgonia.Node, error) {
	meanReal, err := gorgonia.Mean(realOut)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do MEAN(real)")
	}
	meanFake, err := gorgonia.Mean(fakeOut)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do MEAN(fake)")
	}
	loss, err := gorgonia.Sub(meanFake, meanReal)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x-y)")
	}
	return loss, nil
}
