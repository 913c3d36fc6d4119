// Package delaymodel provides estimators for the delay of a frame crossing a
// link or shared medium.
package delaymodel

// A DelayEstimatorInput represents the input of a delay estimator. With zero
// Bytes the estimate is pure propagation delay; the channel models track
// serialization themselves and call with zero Bytes.
type DelayEstimatorInput struct {
	Bytes          int
	BytePerSecond  float64
	DistanceMeters float64
}

// A DelayEstimatorOutput represents the output of a delay estimator.
type DelayEstimatorOutput struct {
	// The estimated delay in seconds.
	DelayInSec float64
}

// DelayEstimator estimates the delay of a frame.
type DelayEstimator interface {
	// Estimate estimates the delay of a frame.
	Estimate(input DelayEstimatorInput) (DelayEstimatorOutput, error)
}

const speedOfLight = 299792458.0

// A ConstantSpeedDelayEstimator propagates at the speed of light over the
// given distance, plus serialization time when Bytes is set.
type ConstantSpeedDelayEstimator struct{}

// Estimate returns distance over c, plus bytes over rate.
func (e *ConstantSpeedDelayEstimator) Estimate(
	input DelayEstimatorInput,
) (DelayEstimatorOutput, error) {
	delay := input.DistanceMeters / speedOfLight
	if input.Bytes > 0 && input.BytePerSecond > 0 {
		delay += float64(input.Bytes) / input.BytePerSecond
	}
	return DelayEstimatorOutput{
		DelayInSec: delay,
	}, nil
}

// A FixedDelayEstimator always returns the configured propagation delay,
// plus serialization time when Bytes is set.
type FixedDelayEstimator struct {
	DelayInSec float64
}

// Estimate returns the fixed delay, plus bytes over rate.
func (e *FixedDelayEstimator) Estimate(
	input DelayEstimatorInput,
) (DelayEstimatorOutput, error) {
	delay := e.DelayInSec
	if input.Bytes > 0 && input.BytePerSecond > 0 {
		delay += float64(input.Bytes) / input.BytePerSecond
	}
	return DelayEstimatorOutput{
		DelayInSec: delay,
	}, nil
}
