package clustersim

import (
	"fmt"
	"net/netip"

	"github.com/BurntSushi/toml"
)

// A Scenario describes one simulation run: how many clusters to build and how
// large they are, which address pools to draw subnets from, channel and
// mobility parameters, and the optional traffic layer. Zero values are filled
// from the reference configuration by DefaultScenario.
type Scenario struct {
	Name         string          `toml:"name"`
	Seed         int64           `toml:"seed"`
	StopTime     float64         `toml:"stop_time"`
	ClusterSizes []int           `toml:"cluster_sizes"`
	Routing      RoutingProtocol `toml:"routing"`

	Addressing AddressingConfig `toml:"addressing"`
	Wireless   WirelessConfig   `toml:"wireless"`
	Backbone   BackboneConfig   `toml:"backbone"`
	Mobility   MobilityConfig   `toml:"mobility"`
	Traffic    TrafficConfig    `toml:"traffic"`
}

// AddressingConfig names the subnet pools. Cluster i draws from pool
// i mod len(ClusterPools); the backbone has its own pool.
type AddressingConfig struct {
	ClusterPools []string `toml:"cluster_pools"`
	BackbonePool string   `toml:"backbone_pool"`
}

// WirelessConfig holds the per-cluster channel parameters.
type WirelessConfig struct {
	DataRateMbps float64 `toml:"data_rate_mbps"`
}

// BackboneConfig holds the backbone bus parameters.
type BackboneConfig struct {
	DataRateBps float64 `toml:"data_rate_bps"`
	DelayMs     float64 `toml:"delay_ms"`
}

// MobilityConfig holds the grid placement and random-direction motion
// parameters. The grid origin of cluster i is (OriginStepX*(i+1),
// OriginStepY*(i+1)). Bounds is xmin, xmax, ymin, ymax.
type MobilityConfig struct {
	OriginStepX float64   `toml:"origin_step_x"`
	OriginStepY float64   `toml:"origin_step_y"`
	DeltaX      float64   `toml:"delta_x"`
	DeltaY      float64   `toml:"delta_y"`
	GridWidth   int       `toml:"grid_width"`
	Bounds      []float64 `toml:"bounds"`
	SpeedMps    float64   `toml:"speed_mps"`
	PauseSec    float64   `toml:"pause_sec"`
}

// TrafficConfig holds the OnOff application parameters. The layer is carried
// by every scenario but stays inactive unless Enabled is set.
type TrafficConfig struct {
	Enabled         bool    `toml:"enabled"`
	PacketSizeBytes int     `toml:"packet_size_bytes"`
	DataRateBps     float64 `toml:"data_rate_bps"`
	OnSec           float64 `toml:"on_sec"`
	OffSec          float64 `toml:"off_sec"`
	StartSec        float64 `toml:"start_sec"`
}

// DefaultScenario returns the reference configuration: two clusters of four
// and three nodes, 54 Mb/s ad hoc channels, a 5 Mb/s backbone bus with 2 ms
// delay, and a 20 second horizon.
func DefaultScenario() *Scenario {
	return &Scenario{
		Name:         "two-cluster",
		Seed:         0,
		StopTime:     20,
		ClusterSizes: []int{4, 3},
		Routing:      RoutingOLSR,
		Addressing: AddressingConfig{
			ClusterPools: []string{
				"192.167.0.0/24",
				"192.168.0.0/24",
				"192.169.0.0/24",
			},
			BackbonePool: "172.16.0.0/24",
		},
		Wireless: WirelessConfig{
			DataRateMbps: 54,
		},
		Backbone: BackboneConfig{
			DataRateBps: 5000000,
			DelayMs:     2,
		},
		Mobility: MobilityConfig{
			OriginStepX: 50,
			OriginStepY: 20,
			DeltaX:      5,
			DeltaY:      10,
			GridWidth:   2,
			Bounds:      []float64{-500, 500, -500, 500},
			SpeedMps:    2,
			PauseSec:    0.2,
		},
		Traffic: TrafficConfig{
			Enabled:         false,
			PacketSizeBytes: 1472,
			DataRateBps:     100000,
			OnSec:           1,
			OffSec:          1,
			StartSec:        3,
		},
	}
}

// LoadScenario reads a TOML scenario file over the defaults, so a file only
// needs to name the values it changes.
func LoadScenario(path string) (*Scenario, error) {
	s := DefaultScenario()
	if _, err := toml.DecodeFile(path, s); err != nil {
		return nil, fmt.Errorf("decode scenario %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return s, nil
}

// Validate checks the configuration errors that must be caught before any
// simulation state is created.
func (s *Scenario) Validate() error {
	if len(s.ClusterSizes) == 0 {
		return fmt.Errorf("no cluster sizes given")
	}
	for i, size := range s.ClusterSizes {
		if size < 1 {
			return fmt.Errorf("cluster %d: size must be >= 1, got %d", i, size)
		}
	}
	if _, err := s.ClusterPoolPrefixes(); err != nil {
		return err
	}
	if _, err := s.BackbonePrefix(); err != nil {
		return err
	}
	if s.Wireless.DataRateMbps <= 0 {
		return fmt.Errorf("wireless data rate must be positive")
	}
	if s.Backbone.DataRateBps <= 0 {
		return fmt.Errorf("backbone data rate must be positive")
	}
	if len(s.Mobility.Bounds) != 4 {
		return fmt.Errorf("mobility bounds must be xmin, xmax, ymin, ymax")
	}
	if s.Mobility.Bounds[0] >= s.Mobility.Bounds[1] ||
		s.Mobility.Bounds[2] >= s.Mobility.Bounds[3] {
		return fmt.Errorf("mobility bounds rectangle is empty")
	}
	if s.Mobility.SpeedMps <= 0 {
		return fmt.Errorf("mobility speed must be positive")
	}
	if s.Traffic.Enabled {
		if s.Traffic.PacketSizeBytes <= 0 {
			return fmt.Errorf("traffic packet size must be positive")
		}
		if s.Traffic.DataRateBps <= 0 {
			return fmt.Errorf("traffic data rate must be positive")
		}
		if s.Traffic.OnSec <= 0 {
			return fmt.Errorf("traffic on duration must be positive")
		}
		if s.Traffic.OffSec < 0 || s.Traffic.StartSec < 0 {
			return fmt.Errorf("traffic timings must not be negative")
		}
	}
	switch s.Routing {
	case RoutingOLSR, RoutingStatic:
	default:
		return fmt.Errorf("unknown routing protocol %q", s.Routing)
	}
	return nil
}

// ClusterPoolPrefixes parses the cluster pool base addresses.
func (s *Scenario) ClusterPoolPrefixes() ([]netip.Prefix, error) {
	if len(s.Addressing.ClusterPools) == 0 {
		return nil, fmt.Errorf("no cluster address pools given")
	}
	prefixes := make([]netip.Prefix, 0, len(s.Addressing.ClusterPools))
	for _, raw := range s.Addressing.ClusterPools {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("cluster pool %q: %w", raw, err)
		}
		prefixes = append(prefixes, p)
	}
	return prefixes, nil
}

// BackbonePrefix parses the backbone pool base address.
func (s *Scenario) BackbonePrefix() (netip.Prefix, error) {
	p, err := netip.ParsePrefix(s.Addressing.BackbonePool)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("backbone pool %q: %w", s.Addressing.BackbonePool, err)
	}
	return p, nil
}

// WirelessBytePerSecond converts the channel rate to bytes per second.
func (s *Scenario) WirelessBytePerSecond() float64 {
	return s.Wireless.DataRateMbps * 1e6 / 8
}

// BackboneBytePerSecond converts the bus rate to bytes per second.
func (s *Scenario) BackboneBytePerSecond() float64 {
	return s.Backbone.DataRateBps / 8
}

// BackboneDelaySec converts the bus delay to seconds.
func (s *Scenario) BackboneDelaySec() float64 {
	return s.Backbone.DelayMs / 1000
}

// TrafficBytePerSecond converts the application rate to bytes per second.
func (s *Scenario) TrafficBytePerSecond() float64 {
	return s.Traffic.DataRateBps / 8
}
