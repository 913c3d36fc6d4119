package mobility

import (
	"gitlab.com/akita/akita/v3/sim"
)

// A waypoint pins a node to a position at a time. Between consecutive
// waypoints the node moves in a straight line.
type waypoint struct {
	time sim.VTimeInSec
	pos  Position
}

// A Registry keeps the waypoint track of every node and answers the position
// queries of the channel models.
type Registry struct {
	tracks map[string][]waypoint
}

// NewRegistry creates a new Registry.
func NewRegistry() *Registry {
	return &Registry{
		tracks: make(map[string][]waypoint),
	}
}

// Place appends a waypoint to the node's track. Waypoints must arrive in time
// order.
func (r *Registry) Place(name string, now sim.VTimeInSec, pos Position) {
	track := r.tracks[name]
	if len(track) > 0 && track[len(track)-1].time > now {
		panic("waypoints must arrive in time order")
	}

	r.tracks[name] = append(track, waypoint{time: now, pos: pos})
}

// PositionAt interpolates the node's position at the given time. Before the
// first waypoint it returns the first; after the last, the last. Unknown
// nodes sit at the origin.
func (r *Registry) PositionAt(
	name string,
	now sim.VTimeInSec,
) (float64, float64) {
	track := r.tracks[name]
	if len(track) == 0 {
		return 0, 0
	}

	if now <= track[0].time {
		return track[0].pos.X, track[0].pos.Y
	}

	last := track[len(track)-1]
	if now >= last.time {
		return last.pos.X, last.pos.Y
	}

	for i := 1; i < len(track); i++ {
		if now > track[i].time {
			continue
		}

		a, b := track[i-1], track[i]
		if b.time == a.time {
			return b.pos.X, b.pos.Y
		}

		f := float64(now-a.time) / float64(b.time-a.time)
		return a.pos.X + f*(b.pos.X-a.pos.X), a.pos.Y + f*(b.pos.Y-a.pos.Y)
	}

	return last.pos.X, last.pos.Y
}

// Names returns the tracked node names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tracks))
	for name := range r.tracks {
		names = append(names, name)
	}
	return names
}
