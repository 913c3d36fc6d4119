// Package anim records node placements, course changes, and packet
// deliveries during a run and writes them out as an XML animation trace.
package anim

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/syifan/clustersim"
	"github.com/syifan/clustersim/mobility"
	"gitlab.com/akita/akita/v3/sim"
)

const traceVersion = "clustersim-0.1"

type nodeElem struct {
	XMLName xml.Name `xml:"node"`
	ID      int      `xml:"id,attr"`
	Name    string   `xml:"name,attr"`
	X       float64  `xml:"locX,attr"`
	Y       float64  `xml:"locY,attr"`
}

type positionElem struct {
	XMLName xml.Name `xml:"position"`
	Time    float64  `xml:"t,attr"`
	ID      int      `xml:"id,attr"`
	X       float64  `xml:"x,attr"`
	Y       float64  `xml:"y,attr"`
}

type packetElem struct {
	XMLName xml.Name `xml:"packet"`
	FromID  int      `xml:"fId,attr"`
	ToID    int      `xml:"tId,attr"`
	TxTime  float64  `xml:"txTime,attr"`
	RxTime  float64  `xml:"rxTime,attr"`
	Bytes   int      `xml:"bytes,attr"`
}

type traceDoc struct {
	XMLName   xml.Name `xml:"anim"`
	Version   string   `xml:"ver,attr"`
	Nodes     []nodeElem
	Positions []positionElem
	Packets   []packetElem
}

// A Recorder accumulates animation events. Register every node before the
// run starts, then hand RecordCourseChange to the mobility model and
// RecordPacket to the receiving endpoints.
type Recorder struct {
	ids       map[string]int
	nodes     []nodeElem
	positions []positionElem
	packets   []packetElem
}

func NewRecorder() *Recorder {
	return &Recorder{ids: make(map[string]int)}
}

// AddNode registers a node at its initial position and returns the numeric
// ID assigned to it. IDs are dealt in registration order.
func (r *Recorder) AddNode(name string, x, y float64) int {
	id := len(r.nodes)
	r.ids[name] = id
	r.nodes = append(r.nodes, nodeElem{ID: id, Name: name, X: x, Y: y})
	return id
}

// AddTopology registers every node of the topology at its current position.
func (r *Recorder) AddTopology(
	t *clustersim.Topology,
	positions *mobility.Registry,
	now sim.VTimeInSec,
) {
	for _, n := range t.Nodes() {
		x, y := positions.PositionAt(n.Name, now)
		r.AddNode(n.Name, x, y)
	}
}

// RecordCourseChange appends a position sample for the named node. Nodes
// that were never registered are ignored.
func (r *Recorder) RecordCourseChange(
	now sim.VTimeInSec,
	name string,
	pos mobility.Position,
	velocity mobility.Velocity,
) {
	id, ok := r.ids[name]
	if !ok {
		return
	}

	r.positions = append(r.positions, positionElem{
		Time: float64(now),
		ID:   id,
		X:    pos.X,
		Y:    pos.Y,
	})
}

// RecordPacket appends a packet delivery. The sending and receiving nodes
// are derived from the message's port names.
func (r *Recorder) RecordPacket(now sim.VTimeInSec, msg *clustersim.PacketMsg) {
	from, okFrom := r.ids[nodeOfPort(msg.Meta().Src.Name())]
	to, okTo := r.ids[nodeOfPort(msg.Meta().Dst.Name())]
	if !okFrom || !okTo {
		return
	}

	r.packets = append(r.packets, packetElem{
		FromID: from,
		ToID:   to,
		TxTime: float64(msg.SendTime),
		RxTime: float64(now),
		Bytes:  msg.TrafficBytes,
	})
}

// NumNodes returns the number of registered nodes.
func (r *Recorder) NumNodes() int {
	return len(r.nodes)
}

// NumPositions returns the number of recorded course changes.
func (r *Recorder) NumPositions() int {
	return len(r.positions)
}

// NumPackets returns the number of recorded packet deliveries.
func (r *Recorder) NumPackets() int {
	return len(r.packets)
}

// WriteXML writes the accumulated trace to path.
func (r *Recorder) WriteXML(path string) error {
	doc := traceDoc{
		Version:   traceVersion,
		Nodes:     r.nodes,
		Positions: r.positions,
		Packets:   r.packets,
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal animation trace: %w", err)
	}

	data = append([]byte(xml.Header), data...)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write animation trace: %w", err)
	}

	return nil
}

// nodeOfPort strips the port label from a port name such as "c0n1.WifiPort".
func nodeOfPort(portName string) string {
	if i := strings.IndexByte(portName, '.'); i >= 0 {
		return portName[:i]
	}
	return portName
}
