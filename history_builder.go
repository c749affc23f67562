package paramgraph

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// HistoryBuilder walks traversals and records parameter map histories.
// A builder is not safe for concurrent use; create one per analysis.
type HistoryBuilder struct {
	logger            hclog.Logger
	namespaceOverride string

	histories []*History
	scope     Scope
	usage     ScriptUsage
	active    map[string]bool
	// callers holds the slot histories of the calls being visited, innermost
	// last. Writes made there before a call count as written inside it.
	callers []*History
}

// BuilderOption configures a HistoryBuilder.
type BuilderOption func(*HistoryBuilder)

// WithNamespaceOverride makes Module.* names qualify to name at the top level.
func WithNamespaceOverride(name string) BuilderOption {
	return func(b *HistoryBuilder) { b.namespaceOverride = name }
}

// WithBuilderLogger sets the logger used for traversal detail.
func WithBuilderLogger(l hclog.Logger) BuilderOption {
	return func(b *HistoryBuilder) { b.logger = l }
}

// NewHistoryBuilder creates a builder.
func NewHistoryBuilder(opts ...BuilderOption) *HistoryBuilder {
	b := &HistoryBuilder{logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// graphVisit is the per-graph state of one traversal: which history slot each
// parameter map output pin carries, and the slot the Output node ended in.
type graphVisit struct {
	graph  *Graph
	slots  map[PinID]int
	result int
}

// Build returns the history of one Output node, or nil when output is not an
// Output node of g.
func (b *HistoryBuilder) Build(g *Graph, output NodeID) *History {
	n := g.Node(output)
	if n == nil || n.Kind() != KindOutput {
		return nil
	}
	b.histories = nil
	b.scope = nil
	b.callers = nil
	b.active = make(map[string]bool)
	b.usage = n.Data.(*OutputData).Usage
	if b.namespaceOverride != "" {
		b.scope = Scope{{Kind: FrameFunction, Name: b.namespaceOverride}}
	}

	slot := b.buildGraph(g, output)
	historiesBuilt.WithLabelValues(b.usage.String()).Inc()
	b.logger.Trace("built history", "graph", g.ID, "output", output, "slots", len(b.histories))
	if slot < 0 {
		return &History{OutputNode: g.NodeRef(n), Usage: b.usage}
	}
	return b.histories[slot]
}

// BuildParameterMaps builds histories for the Output nodes of g. With limit set
// only output is built; otherwise output comes first, followed by every other
// Output node in handle order. NoNode builds every Output node.
func (b *HistoryBuilder) BuildParameterMaps(g *Graph, output NodeID, limit bool) []*History {
	var targets []NodeID
	if output != NoNode {
		if n := g.Node(output); n != nil && n.Kind() == KindOutput {
			targets = append(targets, output)
		}
	}
	if !limit || output == NoNode {
		for _, n := range g.FindOutputNodes() {
			if n.ID != output {
				targets = append(targets, n.ID)
			}
		}
	}
	out := make([]*History, 0, len(targets))
	for _, id := range targets {
		out = append(out, b.Build(g, id))
	}
	return out
}

// BuildParameterMaps is the entry point used by code generation backends.
func BuildParameterMaps(g *Graph, output NodeID, limitToOutputUsage bool, namespaceOverride string) []*History {
	return NewHistoryBuilder(WithNamespaceOverride(namespaceOverride)).BuildParameterMaps(g, output, limitToOutputUsage)
}

// GetOutputNodeVariables returns the variables written or declared on the
// Output nodes matching usages, in first-seen order and without duplicates.
// With no usages every Output node contributes.
func GetOutputNodeVariables(g *Graph, usages ...ScriptUsage) []Variable {
	b := NewHistoryBuilder()
	var out []Variable
	for _, n := range g.FindOutputNodes(usages...) {
		h := b.Build(g, n.ID)
		declared := n.Data.(*OutputData).Outputs
		for i, v := range h.Variables {
			if v.Type.IsParameterMap() {
				continue
			}
			if !h.IsWritten(i) && !containsEquivalent(declared, v) {
				continue
			}
			if !containsEquivalent(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

func (b *HistoryBuilder) newSlot() int {
	b.histories = append(b.histories, &History{})
	return len(b.histories) - 1
}

func (b *HistoryBuilder) history(slot int) *History {
	if slot < 0 || slot >= len(b.histories) {
		return nil
	}
	return b.histories[slot]
}

func (b *HistoryBuilder) record(g *Graph, p *Pin) PinRecord {
	return PinRecord{Pin: g.PinRef(p), Scope: b.scope.clone()}
}

// written reports whether name of type t was written in h or, for a callee
// history, by any caller before the call.
func (b *HistoryBuilder) written(h *History, name string, t TypeDef) bool {
	if h.IsWritten(h.FindVariable(name, t)) {
		return true
	}
	for _, c := range b.callers {
		if c.IsWritten(c.FindVariable(name, t)) {
			return true
		}
	}
	return false
}

func (b *HistoryBuilder) enter(kind FrameKind, name string) {
	b.scope = append(b.scope, ScopeFrame{Kind: kind, Name: name})
}

func (b *HistoryBuilder) exit() {
	if len(b.scope) > 0 {
		b.scope = b.scope[:len(b.scope)-1]
	}
}

// buildGraph visits the traversal ending at output and returns the slot the
// Output node resolved to, or -1 when g is already being visited higher up.
func (b *HistoryBuilder) buildGraph(g *Graph, output NodeID) int {
	if b.active[g.ID] {
		b.logger.Warn("recursive graph reference skipped", "graph", g.ID, "scope", b.scope.String())
		return -1
	}
	b.active[g.ID] = true
	defer delete(b.active, g.ID)

	v := &graphVisit{graph: g, slots: make(map[PinID]int), result: -1}
	for _, n := range TraversalNodes(g, BuildTraversal(g, output)) {
		if n.Data == nil {
			continue
		}
		n.Data.buildHistory(b, v, n)
	}
	return v.result
}

// slotFor returns the slot carried by the link into p, or a fresh slot when p
// is missing, unlinked or fed by a pin that produced no map.
func (b *HistoryBuilder) slotFor(v *graphVisit, p *Pin) int {
	if p == nil || !p.IsLinked() {
		return b.newSlot()
	}
	if s, ok := v.slots[p.LinkedTo()]; ok {
		return s
	}
	return b.newSlot()
}

func (d *InputData) buildHistory(b *HistoryBuilder, v *graphVisit, n *Node) {
	if !d.Variable.Type.IsParameterMap() {
		return
	}
	slot := b.newSlot()
	for _, p := range v.graph.NodePins(n, DirOutput) {
		v.slots[p.ID] = slot
		b.histories[slot].MapPinHistory = append(b.histories[slot].MapPinHistory, v.graph.PinRef(p))
	}
}

func (d *ParameterMapGetData) buildHistory(b *HistoryBuilder, v *graphVisit, n *Node) {
	g := v.graph
	mapIn := g.MapInputPin(n)
	slot := b.slotFor(v, mapIn)
	h := b.histories[slot]
	if mapIn != nil {
		h.MapPinHistory = append(h.MapPinHistory, g.PinRef(mapIn))
	}

	for _, p := range g.NodePins(n, DirOutput) {
		if p.AddPin || p.IsParameterMap() {
			continue
		}
		variable := NewVariable(p.Type, p.Name)
		written := b.written(h, p.Name, p.Type)
		other := h.FindVariableByName(p.Name)
		i := h.RecordRead(variable, b.record(g, p))

		if other >= 0 && !h.Variables[other].Type.Same(p.Type) {
			h.AddWarning(i, fmt.Sprintf("%s is read as %s but was already seen as %s", p.Name, p.Type, h.Variables[other].Type))
		}

		dp := g.Pin(d.DefaultPinFor(p.ID))
		if dp != nil && dp.IsLinked() {
			h.DefaultPins = append(h.DefaultPins, g.PinRef(dp))
		}
		hasFallback := dp != nil && (dp.IsLinked() || len(dp.Default) > 0)
		if b.usage == UsageParticleSpawn && IsAttribute(variable) && !written && !hasFallback {
			h.AddWarning(i, fmt.Sprintf("attribute %s is read before it is written in a spawn script", p.Name))
		}
		if IsInitialValue(variable) {
			src := InitialValueSource(variable)
			if !b.written(h, src.Name, src.Type) {
				h.AddWarning(i, fmt.Sprintf("%s reads %s, which is never set", p.Name, src.Name))
			}
		}
	}
}

func (*ParameterMapSetData) buildHistory(b *HistoryBuilder, v *graphVisit, n *Node) {
	g := v.graph
	mapIn := g.MapInputPin(n)
	slot := b.slotFor(v, mapIn)
	h := b.histories[slot]
	if mapIn != nil {
		h.MapPinHistory = append(h.MapPinHistory, g.PinRef(mapIn))
	}
	for _, p := range g.NodePins(n, DirInput) {
		if p.AddPin || p.IsParameterMap() {
			continue
		}
		h.RecordWrite(NewVariable(p.Type, p.Name), b.record(g, p))
	}
	if out := g.MapOutputPin(n); out != nil {
		v.slots[out.ID] = slot
	}
}

func (d *OutputData) buildHistory(b *HistoryBuilder, v *graphVisit, n *Node) {
	g := v.graph
	mapIn := g.MapInputPin(n)
	slot := b.slotFor(v, mapIn)
	h := b.histories[slot]
	if mapIn != nil {
		h.MapPinHistory = append(h.MapPinHistory, g.PinRef(mapIn))
		h.OriginalPin = g.PinRef(mapIn)
	}
	for _, p := range g.NodePins(n, DirInput) {
		if p.IsParameterMap() {
			continue
		}
		variable := NewVariable(p.Type, p.Name)
		if p.IsLinked() {
			h.RecordWrite(variable, b.record(g, p))
		} else {
			h.addVariable(variable)
		}
		if h.OriginalPin.IsZero() {
			h.OriginalPin = g.PinRef(p)
		}
	}
	h.OutputNode = g.NodeRef(n)
	h.Usage = d.Usage
	v.result = slot
}

// buildCall records a call to callee: the callee's Output history is built in
// its own slot inside an enter/exit function marker, then merged into the
// slot flowing into the call node.
func (b *HistoryBuilder) buildCall(v *graphVisit, n *Node, functionName string, callee *Script) {
	g := v.graph
	mapIn := g.MapInputPin(n)
	slot := b.slotFor(v, mapIn)
	if mapIn != nil {
		b.histories[slot].MapPinHistory = append(b.histories[slot].MapPinHistory, g.PinRef(mapIn))
	}
	if out := g.MapOutputPin(n); out != nil {
		v.slots[out.ID] = slot
	}

	cg := callee.Graph()
	if cg == nil {
		b.logger.Warn("function call has no callee graph", "node", n.ID, "function", functionName)
		return
	}
	inner := calleeOutputNode(cg)
	if inner == nil {
		b.logger.Debug("callee has no callable output", "graph", cg.ID, "function", functionName)
		return
	}

	b.enter(FrameFunction, functionName)
	b.callers = append(b.callers, b.histories[slot])
	childSlot := b.buildGraph(cg, inner.ID)
	b.callers = b.callers[:len(b.callers)-1]
	b.exit()

	child := b.history(childSlot)
	if child == nil {
		return
	}
	h := b.histories[slot]
	h.Merge(child)
	h.BoundaryLinks = append(h.BoundaryLinks, boundaryLinks(cg, inner, g, n)...)
}

// boundaryLinks pairs the inner Output's pins with the call node's output pins
// by name and type. Parameter map pins pair with each other regardless of name.
func boundaryLinks(inner *Graph, out *Node, outer *Graph, call *Node) []PinLink {
	var links []PinLink
	outerPins := outer.NodePins(call, DirOutput)
	for _, ip := range inner.NodePins(out, DirInput) {
		for _, op := range outerPins {
			if !ip.Type.Same(op.Type) {
				continue
			}
			if ip.IsParameterMap() || ip.Name == op.Name {
				links = append(links, PinLink{Inner: inner.PinRef(ip), Outer: outer.PinRef(op)})
				break
			}
		}
	}
	return links
}
