package graph

import (
	"sort"
)

// Analysis summarizes the topology of a graph
type Analysis struct {
	Blocks int `json:"blocks"`
	Edges  int `json:"edges"`
	// Sources have no input ports, Sinks have no output ports
	Sources []string `json:"sources"`
	Sinks   []string `json:"sinks"`
	// Components are the weakly connected groups of blocks, each sorted
	Components [][]string `json:"components"`
	// Unconnected lists ports without a binding
	Unconnected []PortRef `json:"unconnected"`
}

// Analyze computes sources, sinks, connected components and unconnected ports
func (g *Graph) Analyze() Analysis {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := Analysis{
		Blocks:      len(g.blocks),
		Edges:       len(g.edges),
		Sources:     []string{},
		Sinks:       []string{},
		Components:  [][]string{},
		Unconnected: []PortRef{},
	}

	for _, name := range g.order {
		b := g.blocks[name]
		if len(b.Inputs()) == 0 {
			result.Sources = append(result.Sources, name)
		}
		if len(b.Outputs()) == 0 {
			result.Sinks = append(result.Sinks, name)
		}
		for _, p := range b.Ports() {
			if !p.Connected() {
				result.Unconnected = append(result.Unconnected, PortRef{Block: name, Port: p.Name()})
			}
		}
	}

	result.Components = g.connectedComponentsLocked()
	return result
}

// connectedComponentsLocked treats edges as undirected and returns the
// components ordered by their first block in insertion order.
func (g *Graph) connectedComponentsLocked() [][]string {
	adj := make(map[string][]string)
	for _, e := range g.edges {
		adj[e.From.Block] = append(adj[e.From.Block], e.To.Block)
		adj[e.To.Block] = append(adj[e.To.Block], e.From.Block)
	}

	visited := make(map[string]bool)
	var components [][]string
	for _, name := range g.order {
		if visited[name] {
			continue
		}
		var cluster []string
		stack := []string{name}
		visited[name] = true
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			cluster = append(cluster, n)
			for _, next := range adj[n] {
				if !visited[next] {
					visited[next] = true
					stack = append(stack, next)
				}
			}
		}
		sort.Strings(cluster)
		components = append(components, cluster)
	}
	if components == nil {
		return [][]string{}
	}
	return components
}
