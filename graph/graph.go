package graph

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/c360/sigflow/block"
	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/metric"
)

// PortRef addresses one port of one block, written "block.port"
type PortRef struct {
	Block string `json:"block"`
	Port  string `json:"port"`
}

func (r PortRef) String() string {
	return r.Block + "." + r.Port
}

// ParsePortRef parses "block.port". Block names cannot contain '.', so the
// first dot separates the two.
func ParsePortRef(s string) (PortRef, error) {
	blk, port, ok := strings.Cut(s, ".")
	if !ok || blk == "" || port == "" {
		return PortRef{}, errors.WrapInvalid(
			fmt.Errorf("%w: %q is not of the form block.port", errors.ErrPortNotFound, s),
			"Graph", "ParsePortRef", "parse reference")
	}
	return PortRef{Block: blk, Port: port}, nil
}

// EdgeInfo describes one established binding
type EdgeInfo struct {
	From      PortRef
	To        PortRef
	Broadcast bool
	Edge      block.Edge
}

// Graph holds blocks and their validated port bindings. Topology is built
// before a run and frozen while the run executes.
type Graph struct {
	mu       sync.RWMutex
	blocks   map[string]block.Block
	order    []string
	edges    []EdgeInfo
	capacity int
	metrics  *metric.MetricsRegistry
	logger   *slog.Logger
	frozen   bool
}

// Option configures a Graph
type Option func(*Graph)

// WithEdgeCapacity sets the sample capacity of every edge created afterward
func WithEdgeCapacity(n int) Option {
	return func(g *Graph) {
		g.capacity = n
	}
}

// WithMetrics exports edge buffer metrics to registry
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(g *Graph) {
		g.metrics = registry
	}
}

// WithLogger sets the graph logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// New creates an empty graph
func New(opts ...Option) *Graph {
	g := &Graph{
		blocks:   make(map[string]block.Block),
		capacity: block.DefaultEdgeCapacity,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("component", "graph")
	return g
}

// AddBlock adds a block. Names must be unique within the graph.
func (g *Graph) AddBlock(b block.Block) error {
	if b == nil {
		return errors.WrapInvalid(errors.ErrConfigInvalid, "Graph", "AddBlock", "nil block")
	}
	if err := block.ValidateName(b.Name()); err != nil {
		return errors.Wrap(err, "Graph", "AddBlock", "block name validation")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.mutableLocked("AddBlock"); err != nil {
		return err
	}
	if _, exists := g.blocks[b.Name()]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("%w: block %q", errors.ErrDuplicateName, b.Name()),
			"Graph", "AddBlock", "duplicate block check")
	}

	g.blocks[b.Name()] = b
	g.order = append(g.order, b.Name())
	g.recordTopologyLocked()
	return nil
}

// Block returns a block by name
func (g *Graph) Block(name string) (block.Block, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	b, ok := g.blocks[name]
	return b, ok
}

// Blocks returns every block in insertion order
func (g *Graph) Blocks() []block.Block {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]block.Block, len(g.order))
	for i, name := range g.order {
		out[i] = g.blocks[name]
	}
	return out
}

// Edges returns every binding in creation order
func (g *Graph) Edges() []EdgeInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]EdgeInfo, len(g.edges))
	copy(out, g.edges)
	return out
}

// Connect binds fromBlock.fromPort to toBlock.toPort. A failed call returns a
// *ConnectionError and leaves the topology unchanged.
func (g *Graph) Connect(fromBlock, fromPort, toBlock, toPort string) (block.Edge, error) {
	from := PortRef{Block: fromBlock, Port: fromPort}
	to := PortRef{Block: toBlock, Port: toPort}

	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.mutableLocked("Connect"); err != nil {
		return nil, err
	}
	edges, err := g.linkLocked(from, []PortRef{to}, false)
	if err != nil {
		return nil, err
	}
	return edges[0], nil
}

// ConnectRefs is Connect with "block.port" references
func (g *Graph) ConnectRefs(from, to string) (block.Edge, error) {
	src, err := ParsePortRef(from)
	if err != nil {
		return nil, newConnectionError(PortRef{Block: from}, PortRef{Block: to}, err)
	}
	dst, err := ParsePortRef(to)
	if err != nil {
		return nil, newConnectionError(src, PortRef{Block: to}, err)
	}
	return g.Connect(src.Block, src.Port, dst.Block, dst.Port)
}

// Broadcast binds one producer port to several consumer ports. Every target
// is validated before any edge is created.
func (g *Graph) Broadcast(from PortRef, to ...PortRef) ([]block.Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.mutableLocked("Broadcast"); err != nil {
		return nil, err
	}
	if len(to) == 0 {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: broadcast from %s has no targets", errors.ErrConfigInvalid, from),
			"Graph", "Broadcast", "target check")
	}
	return g.linkLocked(from, to, true)
}

func (g *Graph) linkLocked(from PortRef, to []PortRef, broadcast bool) ([]block.Edge, error) {
	src, err := g.portLocked(from)
	if err != nil {
		return nil, newConnectionError(from, to[0], err)
	}

	dsts := make([]block.Port, len(to))
	seen := make(map[block.Port]bool, len(to))
	for i, ref := range to {
		dst, err := g.portLocked(ref)
		if err != nil {
			return nil, newConnectionError(from, ref, err)
		}
		if seen[dst] {
			return nil, newConnectionError(from, ref,
				fmt.Errorf("%w: %s listed twice", errors.ErrAlreadyConnected, ref))
		}
		seen[dst] = true
		// fan-out inside one Broadcast call is allowed even when src is still free
		if err := block.CheckLink(src, dst, broadcast || i > 0); err != nil {
			return nil, newConnectionError(from, ref, err)
		}
		dsts[i] = dst
	}

	edges := make([]block.Edge, 0, len(dsts))
	for i, dst := range dsts {
		e, err := block.Link(src, dst, block.EdgeConfig{
			Capacity:  g.capacity,
			Metrics:   g.metrics,
			Broadcast: broadcast,
		})
		if err != nil {
			return nil, newConnectionError(from, to[i], err)
		}
		g.edges = append(g.edges, EdgeInfo{From: from, To: to[i], Broadcast: e.Broadcast(), Edge: e})
		edges = append(edges, e)
		g.logger.Debug("connected", "from", from.String(), "to", to[i].String(), "broadcast", broadcast)
	}
	// earlier edges of this producer became broadcast edges
	for i := range g.edges {
		g.edges[i].Broadcast = g.edges[i].Edge.Broadcast()
	}
	g.recordTopologyLocked()
	return edges, nil
}

func (g *Graph) portLocked(ref PortRef) (block.Port, error) {
	b, ok := g.blocks[ref.Block]
	if !ok {
		return nil, fmt.Errorf("%w: block %q is not in the graph", errors.ErrPortNotFound, ref.Block)
	}
	return b.Port(ref.Port)
}

func (g *Graph) mutableLocked(op string) error {
	if g.frozen {
		return errors.WrapInvalid(
			fmt.Errorf("%w: graph topology is frozen", errors.ErrAlreadyStarted), "Graph", op, "topology check")
	}
	return nil
}

func (g *Graph) recordTopologyLocked() {
	if g.metrics != nil && g.metrics.Metrics != nil {
		g.metrics.Metrics.RecordTopology(len(g.blocks), len(g.edges))
	}
}

// Freeze rejects further topology changes. Schedulers call it when a run starts.
func (g *Graph) Freeze() {
	g.mu.Lock()
	g.frozen = true
	g.mu.Unlock()
}

// Frozen reports whether Freeze was called
func (g *Graph) Frozen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.frozen
}

// Validate checks that the graph can run: it has blocks, every block is
// still initialized and every port is bound. All problems are reported together.
func (g *Graph) Validate() error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var result *multierror.Error
	if len(g.blocks) == 0 {
		result = multierror.Append(result,
			fmt.Errorf("%w: graph has no blocks", errors.ErrConfigInvalid))
	}
	for _, name := range g.order {
		b := g.blocks[name]
		if st := b.State(); st != block.StateInitialized {
			result = multierror.Append(result,
				fmt.Errorf("%w: block %q is %s", errors.ErrInvalidTransition, name, st))
		}
		for _, p := range b.Ports() {
			if !p.Connected() {
				result = multierror.Append(result,
					fmt.Errorf("%w: %s port %s.%s is not connected",
						errors.ErrConfigInvalid, p.Direction(), name, p.Name()))
			}
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return errors.WrapInvalid(err, "Graph", "Validate", "graph validation")
	}
	return nil
}
