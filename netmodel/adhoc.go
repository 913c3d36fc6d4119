package netmodel

import (
	"math"

	"github.com/syifan/clustersim/delaymodel"
	"gitlab.com/akita/akita/v3/sim"
)

// An AdhocChannelModel is the shared wireless medium of one cluster. Frames
// serialize at the channel rate, shared fairly among in-flight frames, and
// then propagate for a delay derived from the sender/receiver distance.
type AdhocChannelModel struct {
	sharedMedium

	estimator delaymodel.DelayEstimator
	positions PositionSource
}

// NewAdhocChannelModel creates a new AdhocChannelModel.
func NewAdhocChannelModel(
	es sim.EventScheduler,
	tt sim.TimeTeller,
	bytePerSecond float64,
	estimator delaymodel.DelayEstimator,
	positions PositionSource,
) *AdhocChannelModel {
	m := &AdhocChannelModel{
		sharedMedium: newSharedMedium(es, tt, bytePerSecond),
		estimator:    estimator,
		positions:    positions,
	}
	m.self = m

	return m
}

// Send admits a message to the channel. The destination port must be attached
// to this channel: clusters never share a medium.
func (m *AdhocChannelModel) Send(msg sim.Msg) *sim.SendError {
	m.mustBeAttached(msg.Meta().Dst)

	propagation := m.propagation(msg.Meta().Src, msg.Meta().Dst)
	m.startFrame(msg, propagation)

	return nil
}

// Handle checks if in-flight frames have arrived.
func (m *AdhocChannelModel) Handle(e sim.Event) error {
	switch e := e.(type) {
	case frameDeliveryEvent:
		return m.handleFrameDeliveryEvent(e)
	default:
		panic("unknown event type")
	}
}

func (m *AdhocChannelModel) propagation(src, dst sim.Port) sim.VTimeInSec {
	now := m.CurrentTime()

	var distance float64
	if m.positions != nil {
		srcX, srcY := m.positions.PositionAt(m.owners[src.Name()], now)
		dstX, dstY := m.positions.PositionAt(m.owners[dst.Name()], now)
		distance = math.Hypot(dstX-srcX, dstY-srcY)
	}

	out, err := m.estimator.Estimate(delaymodel.DelayEstimatorInput{
		DistanceMeters: distance,
	})
	if err != nil {
		panic(err)
	}

	return sim.VTimeInSec(out.DelayInSec)
}
