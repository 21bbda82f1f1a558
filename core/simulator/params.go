package simulator

import (
	"math"
	"math/rand"

	"robot-training-hub/core/models"
)

// Params are the constants of the synthetic training curves
type Params struct {
	BaseLoss      float64
	DecayConstant float64
	LossNoise     float64
	MinLoss       float64

	RewardBase  float64
	RewardSlope float64
	RewardNoise float64
	RewardCap   float64

	AccuracyBase  float64
	AccuracySlope float64
	AccuracyNoise float64
	AccuracyCap   float64
}

// DefaultParams returns the curves used by the dashboard
func DefaultParams() Params {
	return Params{
		BaseLoss:      0.1,
		DecayConstant: 50,
		LossNoise:     0.02,
		MinLoss:       0.001,

		RewardBase:  200,
		RewardSlope: 2,
		RewardNoise: 50,
		RewardCap:   500,

		AccuracyBase:  70,
		AccuracySlope: 0.5,
		AccuracyNoise: 5,
		AccuracyCap:   99,
	}
}

// Metrics derives the values for one epoch. Noise terms are drawn from U[0, noise).
func (p Params) Metrics(epoch int, rng *rand.Rand) models.EpochMetrics {
	e := float64(epoch)
	loss := p.BaseLoss*math.Exp(-e/p.DecayConstant) + rng.Float64()*p.LossNoise
	reward := p.RewardBase + p.RewardSlope*e + rng.Float64()*p.RewardNoise
	accuracy := p.AccuracyBase + p.AccuracySlope*e + rng.Float64()*p.AccuracyNoise

	return models.EpochMetrics{
		Loss:     math.Max(p.MinLoss, loss),
		Reward:   math.Min(p.RewardCap, reward),
		Accuracy: math.Min(p.AccuracyCap, accuracy),
	}
}
