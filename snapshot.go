package clustersim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// A Snapshot is the serializable description of an assembled topology,
// written for observation only; nothing reads it back.
type Snapshot struct {
	Scenario string        `yaml:"scenario" json:"scenario"`
	Seed     int64         `yaml:"seed" json:"seed"`
	Clusters []ClusterDesc `yaml:"clusters" json:"clusters"`
	Backbone BackboneDesc  `yaml:"backbone" json:"backbone"`
}

// A ClusterDesc describes one cluster in a snapshot.
type ClusterDesc struct {
	Index          int        `yaml:"index" json:"index"`
	Size           int        `yaml:"size" json:"size"`
	Subnet         string     `yaml:"subnet" json:"subnet"`
	Representative int        `yaml:"representative" json:"representative"`
	Nodes          []NodeDesc `yaml:"nodes" json:"nodes"`
}

// A NodeDesc describes one node in a snapshot.
type NodeDesc struct {
	Name  string   `yaml:"name" json:"name"`
	Addrs []string `yaml:"addrs" json:"addrs"`
}

// A BackboneDesc describes the backbone in a snapshot.
type BackboneDesc struct {
	Subnet  string   `yaml:"subnet" json:"subnet"`
	Members []string `yaml:"members" json:"members"`
}

// Snapshot captures the topology's structure.
func (t *Topology) Snapshot(scenario string, seed int64) *Snapshot {
	s := &Snapshot{
		Scenario: scenario,
		Seed:     seed,
	}

	for _, c := range t.Clusters {
		cd := ClusterDesc{
			Index:          c.Index,
			Size:           c.Size,
			Subnet:         c.Subnet.String(),
			Representative: c.Representative,
		}
		for _, n := range c.Nodes {
			nd := NodeDesc{Name: n.Name}
			for _, iface := range n.Ifaces {
				nd.Addrs = append(nd.Addrs, iface.Addr.String())
			}
			cd.Nodes = append(cd.Nodes, nd)
		}
		s.Clusters = append(s.Clusters, cd)
	}

	if t.Backbone != nil {
		s.Backbone.Subnet = t.Backbone.Subnet.String()
		for _, rep := range t.Backbone.Reps {
			s.Backbone.Members = append(s.Backbone.Members, rep.Name)
		}
	}

	return s
}

// WriteToFile writes the snapshot as YAML or JSON, chosen by file extension.
func (s *Snapshot) WriteToFile(path string) error {
	var data []byte
	var err error

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	case ".json":
		data, err = json.MarshalIndent(s, "", "  ")
	default:
		return fmt.Errorf("snapshot %s: unsupported extension, want .yaml, .yml, or .json", path)
	}
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
