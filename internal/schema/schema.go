// Package schema parses the declarative input file into the planner's typed
// schema. The file layout follows the established ipam tool format:
//
//	subnet:
//	  backbone: {cidr: 10.0.0.0/16}
//	  edge:     {from: backbone, prefixlen: 20}
//	vlan_pool:
//	  fabric: {start: 100, end: 200}
//	ipam:
//	  node-a:
//	    metadata: {...}
//	    subnet:    {internal: backbone}
//	    vlan_pool: {internal: fabric}
//	    schema:
//	      - {name: mgmt, label: internal, prefixlen: 26}
//	      - {name: vips, from: .mgmt, size: 4}
//
// Mapping order is preserved: subnet declaration order drives derived-pool
// materialization and node order drives entry processing.
package schema

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/martinsuchenak/subnetplan/internal/model"
)

type fileDoc struct {
	Subnet     yaml.Node      `yaml:"subnet"`
	VlanPool   yaml.Node      `yaml:"vlan_pool"`
	Properties map[string]any `yaml:"properties"`
	Ipam       yaml.Node      `yaml:"ipam"`
}

type subnetDoc struct {
	CIDR      string `yaml:"cidr"`
	StartIP   string `yaml:"start_ip"`
	EndIP     string `yaml:"end_ip"`
	From      string `yaml:"from"`
	PrefixLen int    `yaml:"prefixlen"`
}

type vlanPoolDoc struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type nodeDoc struct {
	Metadata map[string]any    `yaml:"metadata"`
	Subnet   map[string]string `yaml:"subnet"`
	VlanPool map[string]string `yaml:"vlan_pool"`
	Schema   []entryDoc        `yaml:"schema"`
}

type entryDoc struct {
	Name      string         `yaml:"name"`
	Label     string         `yaml:"label"`
	PrefixLen int            `yaml:"prefixlen"`
	From      string         `yaml:"from"`
	Size      int            `yaml:"size"`
	Metadata  map[string]any `yaml:"metadata"`
}

// ParseFile reads and parses a schema file.
func ParseFile(path string) (*model.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse parses schema YAML and validates its shape.
func Parse(data []byte) (*model.Schema, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}

	s := &model.Schema{Properties: doc.Properties}

	err := eachMapping(&doc.Subnet, func(name string, value *yaml.Node) error {
		var sd subnetDoc
		if err := value.Decode(&sd); err != nil {
			return fmt.Errorf("subnet %q: %w", name, err)
		}
		if err := validateSubnet(name, sd); err != nil {
			return err
		}
		s.Subnets = append(s.Subnets, model.SubnetDecl{
			Name:      name,
			CIDR:      sd.CIDR,
			StartIP:   sd.StartIP,
			EndIP:     sd.EndIP,
			From:      sd.From,
			PrefixLen: sd.PrefixLen,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachMapping(&doc.VlanPool, func(name string, value *yaml.Node) error {
		var vd vlanPoolDoc
		if err := value.Decode(&vd); err != nil {
			return fmt.Errorf("vlan_pool %q: %w", name, err)
		}
		if vd.End < vd.Start {
			return fmt.Errorf("vlan_pool %q: end %d before start %d", name, vd.End, vd.Start)
		}
		s.VlanPools = append(s.VlanPools, model.VlanPoolDecl{Name: name, Start: vd.Start, End: vd.End})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = eachMapping(&doc.Ipam, func(name string, value *yaml.Node) error {
		var nd nodeDoc
		if err := value.Decode(&nd); err != nil {
			return fmt.Errorf("node %q: %w", name, err)
		}
		node, err := buildNode(name, nd)
		if err != nil {
			return err
		}
		s.Nodes = append(s.Nodes, node)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(s.Nodes) == 0 {
		return nil, errors.New("schema declares no ipam nodes")
	}
	return s, nil
}

func validateSubnet(name string, sd subnetDoc) error {
	switch {
	case sd.CIDR != "" && sd.From != "":
		return fmt.Errorf("subnet %q: cidr and from are mutually exclusive", name)
	case sd.CIDR == "" && sd.From == "":
		return fmt.Errorf("subnet %q: one of cidr or from is required", name)
	case sd.From != "" && sd.PrefixLen == 0:
		return fmt.Errorf("subnet %q: derived subnet needs a prefixlen", name)
	case sd.From != "" && (sd.StartIP != "" || sd.EndIP != ""):
		return fmt.Errorf("subnet %q: start_ip/end_ip only apply to cidr subnets", name)
	}
	return nil
}

func buildNode(name string, nd nodeDoc) (model.Node, error) {
	node := model.Node{
		Name:      name,
		Metadata:  nd.Metadata,
		Subnets:   nd.Subnet,
		VlanPools: nd.VlanPool,
	}

	seen := make(map[string]bool)
	for i, ed := range nd.Schema {
		if ed.Name == "" {
			return model.Node{}, fmt.Errorf("node %q: schema entry %d has no name", name, i)
		}
		if seen[ed.Name] {
			return model.Node{}, fmt.Errorf("node %q: duplicate entry name %q", name, ed.Name)
		}
		seen[ed.Name] = true

		e := model.Entry{
			Node:     name,
			Name:     ed.Name,
			Label:    ed.Label,
			Metadata: ed.Metadata,
			Request: model.Request{
				PrefixLen: ed.PrefixLen,
				From:      ed.From,
				Size:      ed.Size,
			},
		}

		kind, err := e.Request.Kind()
		if err != nil {
			var ue *model.UnsupportedRequestError
			if errors.As(err, &ue) {
				ue.Node, ue.Name = name, ed.Name
			}
			return model.Node{}, err
		}
		if kind == model.RequestSubnet && e.Label == "" {
			return model.Node{}, fmt.Errorf("node %q: entry %q requests a subnet but has no label", name, ed.Name)
		}

		node.Entries = append(node.Entries, e)
	}
	return node, nil
}

// eachMapping walks a YAML mapping in document order. A missing or null
// node is treated as empty.
func eachMapping(n *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if n == nil || n.Kind == 0 || n.Tag == "!!null" {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("expected a mapping, got %s", n.Tag)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}
