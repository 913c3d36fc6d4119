package main

import (
	"github.com/syifan/clustersim/delaymodel"
	"github.com/syifan/clustersim/netmodel"
	"github.com/tebeka/atexit"
	"gitlab.com/akita/akita/v3/monitoring"
	"gitlab.com/akita/akita/v3/sim"
)

func main() {
	monitor := monitoring.NewMonitor()

	engine := sim.NewSerialEngine()
	monitor.RegisterEngine(engine)

	freq := sim.Freq(1 * sim.GHz)

	test := NewTest()
	agent1 := NewAgent(engine, freq, "Agent[1]", 1, test)
	agent1.TickLater(0)
	monitor.RegisterComponent(agent1)

	agent2 := NewAgent(engine, freq, "Agent[2]", 1, test)
	agent2.TickLater(0)
	monitor.RegisterComponent(agent2)

	test.RegisterAgent(agent1)
	test.RegisterAgent(agent2)

	test.GenerateMsgs(1000)

	positions := staticPositions{
		"Agent[1]": {0, 0},
		"Agent[2]": {30, 40},
	}
	channel := netmodel.NewAdhocChannelModel(
		engine, engine, 54e6/8,
		&delaymodel.ConstantSpeedDelayEstimator{}, positions,
	)
	channel.PlugInWithOwner(agent1.AgentPorts[0], 1, agent1.Name())
	channel.PlugInWithOwner(agent2.AgentPorts[0], 1, agent2.Name())

	monitor.StartServer()

	err := engine.Run()
	if err != nil {
		panic(err)
	}

	test.MustHaveReceivedAllMsgs()
	test.ReportBandwidthAchieved(engine.CurrentTime())
	atexit.Exit(0)
}
