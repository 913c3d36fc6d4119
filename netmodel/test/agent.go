package main

import (
	"fmt"

	"github.com/syifan/clustersim"
	"gitlab.com/akita/akita/v3/sim"
)

// staticPositions pins every agent to a fixed coordinate.
type staticPositions map[string][2]float64

func (p staticPositions) PositionAt(
	name string,
	now sim.VTimeInSec,
) (float64, float64) {
	xy := p[name]
	return xy[0], xy[1]
}

// An Agent pumps queued messages onto the channel and hands arrivals back to
// the test.
type Agent struct {
	*sim.TickingComponent

	test       *Test
	AgentPorts []sim.Port
	out        *clustersim.PacketMsg
}

// NewAgent creates a new Agent.
func NewAgent(
	engine sim.Engine,
	freq sim.Freq,
	name string,
	numPorts int,
	test *Test,
) *Agent {
	a := &Agent{test: test}
	a.TickingComponent = sim.NewTickingComponent(name, engine, freq, a)

	for i := 0; i < numPorts; i++ {
		port := sim.NewLimitNumMsgPort(a, 4, fmt.Sprintf("%s.Port%d", name, i))
		a.AgentPorts = append(a.AgentPorts, port)
		a.AddPort(fmt.Sprintf("Port%d", i), port)
	}

	return a
}

// Tick sends at most one queued message and drains arrived ones.
func (a *Agent) Tick(now sim.VTimeInSec) bool {
	madeProgress := a.send(now)
	madeProgress = a.recv(now) || madeProgress
	return madeProgress
}

func (a *Agent) send(now sim.VTimeInSec) bool {
	if a.out == nil {
		a.out = a.test.NextMsg(a.Name())
	}
	if a.out == nil {
		return false
	}

	a.out.SendTime = now
	if err := a.AgentPorts[0].Send(a.out); err != nil {
		return false
	}

	a.out = nil
	return true
}

func (a *Agent) recv(now sim.VTimeInSec) bool {
	madeProgress := false

	for _, port := range a.AgentPorts {
		for {
			msg := port.Retrieve(now)
			if msg == nil {
				break
			}

			a.test.RecordReceived(msg.(*clustersim.PacketMsg))
			madeProgress = true
		}
	}

	return madeProgress
}

// A Test generates the message load and verifies every message arrives.
type Test struct {
	agents       []*Agent
	pending      map[string][]*clustersim.PacketMsg
	numGenerated int
	numReceived  int
	bytesMoved   int
}

// NewTest creates a new Test.
func NewTest() *Test {
	return &Test{
		pending: make(map[string][]*clustersim.PacketMsg),
	}
}

// RegisterAgent adds an agent to the test.
func (t *Test) RegisterAgent(a *Agent) {
	t.agents = append(t.agents, a)
}

// GenerateMsgs queues count messages, alternating direction between the
// registered agents.
func (t *Test) GenerateMsgs(count int) {
	for i := 0; i < count; i++ {
		src := t.agents[i%len(t.agents)]
		dst := t.agents[(i+1)%len(t.agents)]

		msg := &clustersim.PacketMsg{
			MsgMeta: sim.MsgMeta{
				ID:           sim.GetIDGenerator().Generate(),
				Src:          src.AgentPorts[0],
				Dst:          dst.AgentPorts[0],
				TrafficBytes: 1472,
			},
			Seq: i,
			App: "smoke",
		}
		t.pending[src.Name()] = append(t.pending[src.Name()], msg)
		t.numGenerated++
	}
}

// NextMsg pops the next queued message for the named agent.
func (t *Test) NextMsg(name string) *clustersim.PacketMsg {
	queue := t.pending[name]
	if len(queue) == 0 {
		return nil
	}

	msg := queue[0]
	t.pending[name] = queue[1:]
	return msg
}

// RecordReceived counts a delivered message.
func (t *Test) RecordReceived(msg *clustersim.PacketMsg) {
	t.numReceived++
	t.bytesMoved += msg.TrafficBytes
}

// MustHaveReceivedAllMsgs panics when any generated message went missing.
func (t *Test) MustHaveReceivedAllMsgs() {
	if t.numReceived != t.numGenerated {
		panic(fmt.Sprintf("received %d of %d messages",
			t.numReceived, t.numGenerated))
	}
}

// ReportBandwidthAchieved prints the achieved goodput.
func (t *Test) ReportBandwidthAchieved(now sim.VTimeInSec) {
	fmt.Printf("Moved %d bytes in %.6f s, %.2f bytes per second\n",
		t.bytesMoved, float64(now), float64(t.bytesMoved)/float64(now))
}
