package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	_ "net/http/pprof"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/syifan/clustersim"
	"github.com/syifan/clustersim/anim"
	"github.com/syifan/clustersim/assembly"
	"github.com/syifan/clustersim/mobility"
	"github.com/syifan/clustersim/results"
	"github.com/syifan/clustersim/simdriver"
	"github.com/syifan/clustersim/traffic"
	"github.com/tebeka/atexit"
	"gitlab.com/akita/akita/v3/monitoring"
	"gitlab.com/akita/akita/v3/sim"
)

var scenarioPath = flag.String("scenario", "",
	"Path to a TOML scenario file, defaults to the built-in two-cluster scenario.")
var stopTime = flag.Float64("stop-time", 0, "Simulation stop time in seconds, overrides the scenario.")
var seed = flag.Int64("seed", -1, "Random seed, overrides the scenario when >= 0.")
var withTraffic = flag.Bool("traffic", false, "Enable the OnOff traffic layer even if the scenario leaves it off.")
var withMonitor = flag.Bool("monitor", false, "Start the akita monitoring server.")
var animPath = flag.String("anim", "", "Write an XML animation trace to this path.")
var snapshotPath = flag.String("snapshot", "", "Write a topology snapshot to this path (.yaml or .json).")
var resultsPath = flag.String("results", "", "Append the run record to this SQLite database.")
var verbose = flag.Bool("v", false, "Enable debug logging.")

func main() {
	flag.Parse()
	setupLogging()

	// Server for pprof
	go func() {
		fmt.Println(http.ListenAndServe("localhost:6060", nil))
	}()

	scenario := loadScenario()

	stop := sim.VTimeInSec(scenario.StopTime)
	if err := simdriver.ValidateStopTime(stop); err != nil {
		fail(err, "invalid stop time")
	}

	engine := sim.NewSerialEngine()
	rng := rand.New(rand.NewSource(scenario.Seed))

	builder, err := assembly.NewBuilder(engine, engine, scenario, rng)
	if err != nil {
		fail(err, "creating builder")
	}

	topo, err := builder.Assemble()
	if err != nil {
		fail(err, "assembling topology")
	}

	if err := assembly.VerifyConnectivity(topo); err != nil {
		fail(err, "verifying topology")
	}

	depths, err := assembly.RoutingDepths(topo)
	if err != nil {
		fail(err, "measuring routing depths")
	}

	log.Info().
		Int("clusters", len(topo.Clusters)).
		Int("nodes", topo.NodeCount()).
		Int("maxDepth", maxDepth(depths)).
		Msg("topology assembled")

	builder.Motion().OnCourseChange(func(
		now sim.VTimeInSec,
		name string,
		pos mobility.Position,
		velocity mobility.Velocity,
	) {
		log.Debug().
			Float64("t", float64(now)).
			Str("node", name).
			Float64("x", pos.X).
			Float64("y", pos.Y).
			Float64("vx", velocity.X).
			Float64("vy", velocity.Y).
			Msg("course change")
	})

	if *withMonitor {
		startMonitor(engine, topo, builder)
	}

	var recorder *anim.Recorder
	if *animPath != "" {
		recorder = setupRecorder(topo, builder)
	}

	var app *traffic.OnOffApp
	var sink *traffic.PacketSink
	if scenario.Traffic.Enabled {
		app, sink, err = setupTraffic(engine, scenario, topo, builder, stop)
		if err != nil {
			fail(err, "setting up traffic")
		}
	}

	driver := simdriver.NewDriver(engine)
	start := time.Now()
	final, err := driver.Run(topo, stop)
	if err != nil {
		fail(err, "running simulation")
	}
	elapsed := time.Since(start)

	fmt.Printf("Clusters, %d\n", len(topo.Clusters))
	fmt.Printf("Nodes, %d\n", topo.NodeCount())
	fmt.Printf("Representatives, %d\n", len(topo.Representatives()))
	fmt.Printf("Simulated time s, %.10f\n", final)
	if app != nil {
		fmt.Printf("Packets sent by %s, %d\n", app.Name(), app.Emitted())
		fmt.Printf("Packets received at %s, %d\n", sink.Node(), sink.Received())
	}
	fmt.Printf("Program Execution time: %s\n", elapsed)

	writeOutputs(scenario, topo, recorder, sink, final, elapsed)

	atexit.Exit(0)
}

func setupLogging() {
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	log.Logger = zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func loadScenario() *clustersim.Scenario {
	var scenario *clustersim.Scenario
	var err error

	if *scenarioPath != "" {
		scenario, err = clustersim.LoadScenario(*scenarioPath)
		if err != nil {
			fail(err, "loading scenario")
		}
	} else {
		scenario = clustersim.DefaultScenario()
	}

	if *stopTime > 0 {
		scenario.StopTime = *stopTime
	}
	if *seed >= 0 {
		scenario.Seed = *seed
	}
	if *withTraffic {
		scenario.Traffic.Enabled = true
	}

	if err := scenario.Validate(); err != nil {
		fail(err, "validating scenario")
	}

	return scenario
}

func startMonitor(
	engine *sim.SerialEngine,
	topo *clustersim.Topology,
	builder *assembly.Builder,
) {
	monitor := monitoring.NewMonitor()
	monitor.RegisterEngine(engine)
	for _, n := range topo.Nodes() {
		monitor.RegisterComponent(builder.Endpoint(n.Name))
	}
	monitor.StartServer()
}

func setupRecorder(
	topo *clustersim.Topology,
	builder *assembly.Builder,
) *anim.Recorder {
	recorder := anim.NewRecorder()
	recorder.AddTopology(topo, builder.Registry(), 0)

	builder.Motion().OnCourseChange(recorder.RecordCourseChange)
	for _, n := range topo.Nodes() {
		builder.Endpoint(n.Name).OnPacket(recorder.RecordPacket)
	}

	return recorder
}

func setupTraffic(
	engine *sim.SerialEngine,
	scenario *clustersim.Scenario,
	topo *clustersim.Topology,
	builder *assembly.Builder,
	stop sim.VTimeInSec,
) (*traffic.OnOffApp, *traffic.PacketSink, error) {
	src, dst, kind, err := pickTrafficPair(topo)
	if err != nil {
		return nil, nil, err
	}

	// Frames emitted too close to the stop time would deliver past it, so
	// the application stops one second early.
	horizon := stop - 1

	app := traffic.NewOnOffApp("OnOff[0]", engine, engine, scenario.Traffic, horizon)
	app.Connect(src.InterfaceOf(kind), dst.InterfaceOf(kind))

	sink := traffic.NewPacketSink(builder.Endpoint(dst.Name))

	app.Start(sim.VTimeInSec(scenario.Traffic.StartSec))

	log.Info().
		Str("src", src.Name).
		Str("dst", dst.Name).
		Str("device", string(kind)).
		Msg("traffic flow connected")

	return app, sink, nil
}

// pickTrafficPair returns two nodes sharing a medium: the first and last
// backbone representatives, or within the only cluster when there is no
// second representative.
func pickTrafficPair(
	topo *clustersim.Topology,
) (*clustersim.Node, *clustersim.Node, clustersim.DeviceKind, error) {
	reps := topo.Representatives()
	if len(reps) >= 2 {
		return reps[0], reps[len(reps)-1], clustersim.DeviceCsma, nil
	}

	members := topo.Clusters[0].Nodes
	if len(members) >= 2 {
		return members[0], members[len(members)-1], clustersim.DeviceAdhocWifi, nil
	}

	return nil, nil, "", fmt.Errorf("traffic needs two nodes on a shared medium")
}

func writeOutputs(
	scenario *clustersim.Scenario,
	topo *clustersim.Topology,
	recorder *anim.Recorder,
	sink *traffic.PacketSink,
	final sim.VTimeInSec,
	elapsed time.Duration,
) {
	if *snapshotPath != "" {
		snap := topo.Snapshot(scenarioLabel(scenario), scenario.Seed)
		if err := snap.WriteToFile(*snapshotPath); err != nil {
			fail(err, "writing snapshot")
		}
		log.Info().Str("path", *snapshotPath).Msg("wrote topology snapshot")
	}

	if recorder != nil {
		if err := recorder.WriteXML(*animPath); err != nil {
			fail(err, "writing animation trace")
		}
		log.Info().
			Str("path", *animPath).
			Int("packets", recorder.NumPackets()).
			Msg("wrote animation trace")
	}

	if *resultsPath != "" {
		saveRun(scenario, topo, sink, final, elapsed)
	}
}

func saveRun(
	scenario *clustersim.Scenario,
	topo *clustersim.Topology,
	sink *traffic.PacketSink,
	final sim.VTimeInSec,
	elapsed time.Duration,
) {
	store, err := results.Open(*resultsPath)
	if err != nil {
		fail(err, "opening results database")
	}
	defer store.Close()

	delivered := 0
	if sink != nil {
		delivered = sink.Received()
	}

	rec := &results.RunRecord{
		Scenario:         scenarioLabel(scenario),
		Seed:             scenario.Seed,
		StopTime:         scenario.StopTime,
		ClusterCount:     len(topo.Clusters),
		NodeCount:        topo.NodeCount(),
		RepIndices:       repIndices(topo),
		PacketsDelivered: delivered,
		FinalTime:        float64(final),
		WallMillis:       elapsed.Milliseconds(),
	}
	if err := store.SaveRun(context.Background(), rec); err != nil {
		fail(err, "saving run record")
	}

	log.Info().Str("run", rec.ID).Str("path", *resultsPath).Msg("saved run record")
}

func scenarioLabel(scenario *clustersim.Scenario) string {
	if *scenarioPath != "" {
		return *scenarioPath
	}
	return scenario.Name
}

func repIndices(topo *clustersim.Topology) string {
	parts := make([]string, 0, len(topo.Clusters))
	for _, c := range topo.Clusters {
		parts = append(parts, strconv.Itoa(c.Representative))
	}
	return strings.Join(parts, ",")
}

func maxDepth(depths map[string]int) int {
	max := 0
	for _, d := range depths {
		if d > max {
			max = d
		}
	}
	return max
}

func fail(err error, msg string) {
	log.Error().Err(err).Msg(msg)
	atexit.Exit(1)
}
