// Copyright 2026, Met Office

package config

import (
	"fmt"
	"time"

	"github.com/MetOffice/pp-systems-framework/proto"
)

// Pipeline is the YAML form of a graph description: one entry per node plus
// an ordered edge list. Edge order in the file is significant - it fixes
// each consumer's positional-input order.
type Pipeline struct {
	Nodes []PipelineNode `yaml:"nodes"`
	Edges []PipelineEdge `yaml:"edges"`
}

// PipelineNode is one node's settings. Step + LeadTime form the node key.
type PipelineNode struct {
	Step     string                 `yaml:"step"`
	LeadTime string                 `yaml:"lead_time"` // Go duration syntax: "6h", "90m"
	Call     string                 `yaml:"call"`      // symbolic reference into the step registry
	Args     map[string]interface{} `yaml:"args"`
	Timeout  string                 `yaml:"timeout"` // optional per-node execution bound
}

// PipelineEdge references nodes in their canonical "step@leadtime" form.
type PipelineEdge struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// LoadPipeline reads a pipeline file and returns the edge list and settings
// map ready for graph.Build. Structural graph validation (unknown nodes,
// cycles) is Build's job, not the loader's; step references stay unresolved
// until run time.
func LoadPipeline(path string) ([]proto.Edge, map[proto.NodeKey]proto.NodeSpec, error) {
	var p Pipeline
	if err := Load(path, &p); err != nil {
		return nil, nil, err
	}
	return p.Describe()
}

// Describe converts the YAML form into the engine's graph description.
func (p Pipeline) Describe() ([]proto.Edge, map[proto.NodeKey]proto.NodeSpec, error) {
	settings := make(map[proto.NodeKey]proto.NodeSpec, len(p.Nodes))
	for _, n := range p.Nodes {
		if n.Step == "" {
			return nil, nil, fmt.Errorf("pipeline node with empty step name")
		}
		leadTime, err := time.ParseDuration(n.LeadTime)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: invalid lead_time %q: %s", n.Step, n.LeadTime, err)
		}
		key := proto.NodeKey{Step: n.Step, LeadTime: leadTime}
		if _, ok := settings[key]; ok {
			return nil, nil, fmt.Errorf("duplicate pipeline node %s", key)
		}

		var timeout time.Duration
		if n.Timeout != "" {
			timeout, err = time.ParseDuration(n.Timeout)
			if err != nil {
				return nil, nil, fmt.Errorf("node %s: invalid timeout %q: %s", key, n.Timeout, err)
			}
		}

		settings[key] = proto.NodeSpec{
			Call:    n.Call,
			Args:    normalizeMap(n.Args),
			Timeout: timeout,
		}
	}

	edges := make([]proto.Edge, 0, len(p.Edges))
	for _, e := range p.Edges {
		from, err := proto.ParseNodeKey(e.From)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline edge: %s", err)
		}
		to, err := proto.ParseNodeKey(e.To)
		if err != nil {
			return nil, nil, fmt.Errorf("pipeline edge: %s", err)
		}
		edges = append(edges, proto.Edge{From: from, To: to})
	}
	return edges, settings, nil
}

// normalizeMap rewrites the map[interface{}]interface{} values that yaml.v2
// produces for nested mappings into map[string]interface{}, so node args
// survive JSON marshaling to remote workers.
func normalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprintf("%v", k)] = normalizeValue(val)
		}
		return out
	case map[string]interface{}:
		return normalizeMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
