package block

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/sigflow/errors"
	"github.com/c360/sigflow/tag"
)

// Block is a computation unit. Concrete blocks embed Base, which supplies
// every method of this interface.
type Block interface {
	Name() string
	Type() string
	State() State
	Ports() []Port
	Port(name string) (Port, error)
	Inputs() []Port
	Outputs() []Port
	Capability() Capability
	RequestStop()
	Stats() Stats

	base() *Base
}

// Stats is a snapshot of a block's progress counters
type Stats struct {
	State       State
	Invocations int64
	SamplesIn   int64
	SamplesOut  int64
	TagsIn      int64
	TagsOut     int64
	StartedAt   time.Time
	Err         error
}

// Base carries identity, ports, lifecycle state and the processing strategy
// of a block. Call Init before creating ports.
type Base struct {
	name     string
	typeName string
	logger   *slog.Logger
	deps     Dependencies
	self     Block

	ports   []Port
	byName  map[string]Port
	groups  map[string][]Port
	inputs  []inputPort
	outputs []outputPort

	strategy Strategy
	state    atomic.Int32
	stopReq  atomic.Bool
	invokeMu sync.Mutex

	noForward bool
	merged    tag.Tag
	hasMerged bool

	invocations atomic.Int64
	samplesIn   atomic.Int64
	samplesOut  atomic.Int64
	tagsIn      atomic.Int64
	tagsOut     atomic.Int64

	mu        sync.RWMutex // protects startedAt and err
	startedAt time.Time
	err       error
}

func (b *Base) base() *Base { return b }

// Init sets identity and dependencies. It must run before any port is created.
func (b *Base) Init(name, typeName string, deps Dependencies) {
	b.name = name
	b.typeName = typeName
	b.deps = deps
	b.logger = deps.GetLoggerWithBlock(name).With("type", typeName)
	b.byName = make(map[string]Port)
	b.groups = make(map[string][]Port)
}

// SetStrategy attaches the processing step. It can be called once.
func (b *Base) SetStrategy(s Strategy) error {
	if s == nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: nil strategy", errors.ErrConfigInvalid), "Block", "SetStrategy", b.name)
	}
	if b.strategy != nil {
		return errors.WrapInvalid(
			fmt.Errorf("%w: strategy already set to %s", errors.ErrConfigInvalid, b.strategy.Capability()),
			"Block", "SetStrategy", b.name)
	}
	b.strategy = s
	return nil
}

// DisableTagForwarding stops the merged input tag from being republished on
// the outputs. Blocks that manage tags themselves call it during construction.
func (b *Base) DisableTagForwarding() {
	b.noForward = true
}

// Name returns the block instance name
func (b *Base) Name() string { return b.name }

// Type returns the registered block type
func (b *Base) Type() string { return b.typeName }

// Logger returns the block-scoped logger
func (b *Base) Logger() *slog.Logger {
	if b.logger == nil {
		return slog.Default()
	}
	return b.logger
}

// Dependencies returns what the block was constructed with
func (b *Base) Dependencies() Dependencies { return b.deps }

// State returns the lifecycle state
func (b *Base) State() State { return State(b.state.Load()) }

// Capability returns the strategy capability, CapabilityScalar when unset
func (b *Base) Capability() Capability {
	if b.strategy == nil {
		return CapabilityScalar
	}
	return b.strategy.Capability()
}

// Ports returns every port in creation order
func (b *Base) Ports() []Port {
	out := make([]Port, len(b.ports))
	copy(out, b.ports)
	return out
}

// Inputs returns the consumer ports in creation order
func (b *Base) Inputs() []Port {
	out := make([]Port, len(b.inputs))
	for i, p := range b.inputs {
		out[i] = p
	}
	return out
}

// Outputs returns the producer ports in creation order
func (b *Base) Outputs() []Port {
	out := make([]Port, len(b.outputs))
	for i, p := range b.outputs {
		out[i] = p
	}
	return out
}

// PortGroups returns the names of the dynamically sized port groups
func (b *Base) PortGroups() []string {
	names := make([]string, 0, len(b.groups))
	for n := range b.groups {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Port resolves a port by name. Group members are addressed as "in#2".
func (b *Base) Port(name string) (Port, error) {
	groupName, idx, indexed, err := splitPortName(name)
	if err != nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s: %v", errors.ErrPortNotFound, b.name, name, err),
			"Block", "Port", "parse port name")
	}

	if !indexed {
		if p, ok := b.byName[name]; ok {
			return p, nil
		}
		if _, isGroup := b.groups[name]; isGroup {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %s.%s is a port group, address a member as %s#<n>",
					errors.ErrPortNotFound, b.name, name, name),
				"Block", "Port", "group without index")
		}
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s", errors.ErrPortNotFound, b.name, name),
			"Block", "Port", "lookup")
	}

	group, ok := b.groups[groupName]
	if !ok {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s", errors.ErrPortNotFound, b.name, name),
			"Block", "Port", "lookup group")
	}
	if idx >= len(group) {
		return nil, errors.WrapInvalid(
			fmt.Errorf("%w: %s.%s, %s has %d ports", errors.ErrArityMismatch, b.name, name, groupName, len(group)),
			"Block", "Port", "group index")
	}
	return group[idx], nil
}

// RequestStop asks the block to stop. It is observed on the next invocation.
func (b *Base) RequestStop() {
	b.stopReq.Store(true)
}

// InputTagsPresent reports whether a merged input tag is due at the
// sample or group currently being processed.
func (b *Base) InputTagsPresent() bool {
	return b.hasMerged
}

// MergedInputTag returns the tag due at the current read position, merged
// across all inputs in port order. On a key collision the higher input wins.
func (b *Base) MergedInputTag() tag.Tag {
	if !b.hasMerged {
		return tag.Tag{}
	}
	return b.merged
}

// Err returns the failure that moved the block to StateError
func (b *Base) Err() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.err
}

// Stats returns a snapshot of the progress counters
func (b *Base) Stats() Stats {
	b.mu.RLock()
	started, err := b.startedAt, b.err
	b.mu.RUnlock()
	return Stats{
		State:       b.State(),
		Invocations: b.invocations.Load(),
		SamplesIn:   b.samplesIn.Load(),
		SamplesOut:  b.samplesOut.Load(),
		TagsIn:      b.tagsIn.Load(),
		TagsOut:     b.tagsOut.Load(),
		StartedAt:   started,
		Err:         err,
	}
}

func (b *Base) addPort(p Port, name string) {
	if b.byName == nil {
		b.byName = make(map[string]Port)
		b.groups = make(map[string][]Port)
	}
	b.ports = append(b.ports, p)
	if name != "" {
		b.byName[name] = p
	}
}

func (b *Base) setState(s State) {
	b.state.Store(int32(s))
}

func (b *Base) markStarted() {
	b.mu.Lock()
	b.startedAt = time.Now()
	b.mu.Unlock()
}

func (b *Base) fail(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
	b.finish(StateError)
}

// finish applies a terminal transition: outputs are closed and inputs
// are marked so upstream producers stop writing to them.
func (b *Base) finish(final State) {
	if !CanTransition(b.State(), final) {
		return
	}
	b.setState(final)
	for _, out := range b.outputs {
		out.close()
	}
	for _, in := range b.inputs {
		in.markConsumerDone()
	}
	b.clearMerged()

	if s, ok := b.self.(Stopper); ok {
		s.OnStop(final)
	}

	if final == StateError {
		b.Logger().Error("block failed", "error", b.Err())
	} else {
		b.Logger().Debug("block stopped",
			"samples_in", b.samplesIn.Load(), "samples_out", b.samplesOut.Load())
	}
}

func (b *Base) setMerged(t tag.Tag, ok bool) {
	b.merged = t
	b.hasMerged = ok
}

func (b *Base) clearMerged() {
	b.merged = tag.Tag{}
	b.hasMerged = false
}
