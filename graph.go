package paramgraph

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// ChangeAction tags a graph change so listeners can tell cosmetic edits from
// edits that invalidate compiled output.
type ChangeAction uint8

const (
	ActionGeneric ChangeAction = iota
	ActionNeedsRecompile
)

func (a ChangeAction) String() string {
	if a == ActionNeedsRecompile {
		return "needs-recompile"
	}
	return "generic"
}

// GraphChangedEvent is delivered to listeners after every Modify.
type GraphChangedEvent struct {
	Graph            *Graph
	Action           ChangeAction
	PreviousChangeID uuid.UUID
}

// Graph owns a set of nodes and their pins. Nodes and pins live in arenas
// indexed by their handles; removed entries leave a nil slot so handles are
// never reused.
//
// Callers must not mutate a Graph while a HistoryBuilder or Compiler is reading it.
type Graph struct {
	ID       string    `json:"id"`
	ChangeID uuid.UUID `json:"change_id"`
	Nodes    []*Node   `json:"nodes"`
	Pins     []*Pin    `json:"pins"`

	listeners    map[int]func(GraphChangedEvent)
	nextListener int
}

// NewGraph creates an empty graph with fresh identifiers.
func NewGraph() *Graph {
	return &Graph{
		ID:       uuid.NewString(),
		ChangeID: uuid.New(),
	}
}

// Node returns the live node for id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id == NoNode || int(id) > len(g.Nodes) {
		return nil
	}
	return g.Nodes[id-1]
}

// Pin returns the live pin for id, or nil.
func (g *Graph) Pin(id PinID) *Pin {
	if id == NoPin || int(id) > len(g.Pins) {
		return nil
	}
	return g.Pins[id-1]
}

// LiveNodes returns every node in handle order.
func (g *Graph) LiveNodes() []*Node {
	out := make([]*Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int {
	c := 0
	for _, n := range g.Nodes {
		if n != nil {
			c++
		}
	}
	return c
}

// NodePins returns the live pins of n in display order, optionally filtered by direction.
func (g *Graph) NodePins(n *Node, dir ...Direction) []*Pin {
	out := make([]*Pin, 0, len(n.Pins))
	for _, id := range n.Pins {
		p := g.Pin(id)
		if p == nil {
			continue
		}
		if len(dir) > 0 && p.Direction != dir[0] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// MapInputPin returns the parameter map input pin of n, or nil.
func (g *Graph) MapInputPin(n *Node) *Pin {
	for _, p := range g.NodePins(n, DirInput) {
		if p.IsParameterMap() {
			return p
		}
	}
	return nil
}

// MapOutputPin returns the parameter map output pin of n, or nil.
func (g *Graph) MapOutputPin(n *Node) *Pin {
	for _, p := range g.NodePins(n, DirOutput) {
		if p.IsParameterMap() {
			return p
		}
	}
	return nil
}

// PinRef builds a cross-graph reference to p.
func (g *Graph) PinRef(p *Pin) PinRef {
	if p == nil {
		return PinRef{Graph: g.ID}
	}
	return PinRef{Graph: g.ID, Node: p.Node, Pin: p.ID}
}

// NodeRef builds a cross-graph reference to n.
func (g *Graph) NodeRef(n *Node) NodeRef {
	if n == nil {
		return NodeRef{Graph: g.ID}
	}
	return NodeRef{Graph: g.ID, Node: n.ID}
}

// OnChanged registers fn to run after every Modify. The returned function removes it.
func (g *Graph) OnChanged(fn func(GraphChangedEvent)) (cancel func()) {
	if g.listeners == nil {
		g.listeners = make(map[int]func(GraphChangedEvent))
	}
	id := g.nextListener
	g.nextListener++
	g.listeners[id] = fn
	return func() { delete(g.listeners, id) }
}

// NotifyGraphChanged regenerates the change id and fires the graph-changed event.
// Every mutating method calls it; callers that edit nodes in place must call it themselves.
func (g *Graph) NotifyGraphChanged(action ChangeAction) {
	prev := g.ChangeID
	g.ChangeID = uuid.New()

	keys := make([]int, 0, len(g.listeners))
	for k := range g.listeners {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	ev := GraphChangedEvent{Graph: g, Action: action, PreviousChangeID: prev}
	for _, k := range keys {
		if fn, ok := g.listeners[k]; ok {
			fn(ev)
		}
	}
}

func (g *Graph) newNode(name string, data NodeData) *Node {
	n := &Node{ID: NodeID(len(g.Nodes) + 1), Name: name, Data: data}
	g.Nodes = append(g.Nodes, n)
	return n
}

func (g *Graph) newPin(n *Node, dir Direction, name string, t TypeDef) *Pin {
	p := &Pin{ID: PinID(len(g.Pins) + 1), Node: n.ID, Direction: dir, Name: name, Type: t}
	g.Pins = append(g.Pins, p)
	n.Pins = append(n.Pins, p.ID)
	return p
}

// newPinBefore creates a pin and places it just before the pin before in n's order.
func (g *Graph) newPinBefore(n *Node, before PinID, dir Direction, name string, t TypeDef) *Pin {
	p := g.newPin(n, dir, name, t)
	if before == NoPin {
		return p
	}
	order := n.Pins[:len(n.Pins)-1]
	out := make([]PinID, 0, len(n.Pins))
	for _, id := range order {
		if id == before {
			out = append(out, p.ID)
		}
		out = append(out, id)
	}
	if len(out) == len(order) {
		out = append(out, p.ID)
	}
	n.Pins = out
	return p
}

func (g *Graph) removePin(p *Pin) {
	g.breakLinks(p)
	if n := g.Node(p.Node); n != nil {
		out := n.Pins[:0]
		for _, id := range n.Pins {
			if id != p.ID {
				out = append(out, id)
			}
		}
		n.Pins = out
	}
	g.Pins[p.ID-1] = nil
}

func (g *Graph) breakLinks(p *Pin) {
	for _, other := range p.Links {
		if op := g.Pin(other); op != nil {
			op.dropLink(p.ID)
		}
	}
	p.Links = nil
}

func (g *Graph) addAddPin(n *Node, dir Direction) *Pin {
	p := g.newPin(n, dir, PinNameAdd, TypeDef{})
	p.AddPin = true
	return p
}

func (g *Graph) addPin(n *Node) *Pin {
	for _, p := range g.NodePins(n) {
		if p.AddPin {
			return p
		}
	}
	return nil
}

// AddInput adds an Input node declaring v. The node has a single output pin.
func (g *Graph) AddInput(v Variable, usage InputUsage) *Node {
	n := g.newNode(v.Name, &InputData{Variable: v, Usage: usage})
	g.newPin(n, DirOutput, v.Name, v.Type)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return n
}

// SetInputFlags marks an Input node as exposed on call sites and as required there.
func (g *Graph) SetInputFlags(id NodeID, exposed, required bool) error {
	n := g.Node(id)
	if n == nil {
		return ErrNodeNotFound
	}
	d, ok := n.Data.(*InputData)
	if !ok {
		return fmt.Errorf("%w: %s is not an input", ErrWrongNodeKind, n.Kind())
	}
	d.Exposed = exposed
	d.Required = required
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}

// AddOutput adds an Output node with one input pin per declared variable.
func (g *Graph) AddOutput(usage ScriptUsage, usageIndex int, outputs ...Variable) *Node {
	data := &OutputData{Usage: usage, UsageIndex: usageIndex, Outputs: append([]Variable(nil), outputs...)}
	n := g.newNode("Output"+usage.String(), data)
	for _, v := range outputs {
		p := g.newPin(n, DirInput, v.Name, v.Type)
		p.Default = v.Default
	}
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return n
}

// AddParameterMapGet adds a Get node reading vars from the map on its Source pin.
// Each variable gets an output pin and a hidden default input pin.
func (g *Graph) AddParameterMapGet(vars ...Variable) *Node {
	data := &ParameterMapGetData{}
	n := g.newNode("MapGet", data)
	g.newPin(n, DirInput, PinNameMapIn, TypeParameterMap)
	add := g.addAddPin(n, DirOutput)
	for _, v := range vars {
		g.addGetVariable(n, data, add.ID, v)
	}
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return n
}

func (g *Graph) addGetVariable(n *Node, data *ParameterMapGetData, before PinID, v Variable) *Pin {
	out := g.newPinBefore(n, before, DirOutput, v.Name, v.Type)
	def := g.newPin(n, DirInput, v.Name, v.Type)
	def.Default = v.Default
	data.Defaults = append(data.Defaults, DefaultPin{Output: out.ID, Input: def.ID})
	return out
}

// AddParameterMapSet adds a Set node writing vars into the map flowing from Source to Dest.
func (g *Graph) AddParameterMapSet(vars ...Variable) *Node {
	n := g.newNode("MapSet", &ParameterMapSetData{})
	g.newPin(n, DirInput, PinNameMapIn, TypeParameterMap)
	for _, v := range vars {
		p := g.newPin(n, DirInput, v.Name, v.Type)
		p.Default = v.Default
	}
	g.addAddPin(n, DirInput)
	g.newPin(n, DirOutput, PinNameMapOut, TypeParameterMap)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return n
}

// AddVariablePin adds a variable pin to a Get or Set node, placed before its add pin.
func (g *Graph) AddVariablePin(nodeID NodeID, v Variable) (PinID, error) {
	n := g.Node(nodeID)
	if n == nil {
		return NoPin, ErrNodeNotFound
	}
	if v.Type.IsParameterMap() {
		return NoPin, fmt.Errorf("%w: %s", ErrReservedPinName, v.Name)
	}
	var before PinID
	if ap := g.addPin(n); ap != nil {
		before = ap.ID
	}
	var p *Pin
	switch d := n.Data.(type) {
	case *ParameterMapGetData:
		p = g.addGetVariable(n, d, before, v)
	case *ParameterMapSetData:
		p = g.newPinBefore(n, before, DirInput, v.Name, v.Type)
		p.Default = v.Default
	default:
		return NoPin, fmt.Errorf("%w: %s cannot take variable pins", ErrWrongNodeKind, n.Kind())
	}
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return p.ID, nil
}

// RenamePin renames a variable pin. On Get nodes the paired default pin follows.
func (g *Graph) RenamePin(pinID PinID, name string) error {
	p := g.Pin(pinID)
	if p == nil {
		return ErrPinNotFound
	}
	if isReservedPinName(name) {
		return fmt.Errorf("%w: %s", ErrReservedPinName, name)
	}
	p.Name = name
	if n := g.Node(p.Node); n != nil {
		if d, ok := n.Data.(*ParameterMapGetData); ok {
			if dp := g.Pin(d.DefaultPinFor(p.ID)); dp != nil {
				dp.Name = name
			}
		}
	}
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}

// SetPinDefault replaces the inline default of an input pin.
func (g *Graph) SetPinDefault(pinID PinID, data []byte) error {
	p := g.Pin(pinID)
	if p == nil {
		return ErrPinNotFound
	}
	p.Default = append([]byte(nil), data...)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}

// RenameNode changes a node's display name. This is a cosmetic edit.
func (g *Graph) RenameNode(id NodeID, name string) error {
	n := g.Node(id)
	if n == nil {
		return ErrNodeNotFound
	}
	n.Name = name
	g.NotifyGraphChanged(ActionGeneric)
	return nil
}

// RemoveNode deletes a node, its pins and every link touching them.
func (g *Graph) RemoveNode(id NodeID) error {
	n := g.Node(id)
	if n == nil {
		return ErrNodeNotFound
	}
	for _, pid := range append([]PinID(nil), n.Pins...) {
		if p := g.Pin(pid); p != nil {
			g.removePin(p)
		}
	}
	g.Nodes[id-1] = nil
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}

// Link connects an output pin to an input pin, in either argument order.
// An input pin that is already linked drops its previous link.
func (g *Graph) Link(a, b PinID) error {
	pa, pb := g.Pin(a), g.Pin(b)
	if pa == nil || pb == nil {
		return ErrPinNotFound
	}
	if pa.Direction == pb.Direction {
		return fmt.Errorf("%w: both pins are %s pins", ErrInvalidLink, pa.Direction)
	}
	if pa.Node == pb.Node {
		return fmt.Errorf("%w: pins belong to the same node", ErrInvalidLink)
	}
	if pa.AddPin || pb.AddPin {
		return fmt.Errorf("%w: cannot link the add pin", ErrInvalidLink)
	}
	out, in := pa, pb
	if out.Direction == DirInput {
		out, in = pb, pa
	}
	if !out.Type.Same(in.Type) {
		return fmt.Errorf("%w: %s -> %s", ErrTypeMismatch, out.Type, in.Type)
	}
	if in.hasLink(out.ID) {
		return nil
	}
	g.breakLinks(in)
	out.Links = append(out.Links, in.ID)
	in.Links = append(in.Links, out.ID)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}

// Unlink removes the link between a and b from both sides.
func (g *Graph) Unlink(a, b PinID) error {
	pa, pb := g.Pin(a), g.Pin(b)
	if pa == nil || pb == nil {
		return ErrPinNotFound
	}
	if !pa.hasLink(b) && !pb.hasLink(a) {
		return nil
	}
	pa.dropLink(b)
	pb.dropLink(a)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}

// BreakPinLinks detaches every link on a pin.
func (g *Graph) BreakPinLinks(id PinID) error {
	p := g.Pin(id)
	if p == nil {
		return ErrPinNotFound
	}
	if !p.IsLinked() {
		return nil
	}
	g.breakLinks(p)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}

// RestoreGraph rebuilds a graph from persisted nodes and pins. Handles keep
// their stored values; gaps become empty slots. Link symmetry is validated.
func RestoreGraph(id string, changeID uuid.UUID, nodes []*Node, pins []*Pin) (*Graph, error) {
	g := &Graph{ID: id, ChangeID: changeID}
	for _, n := range nodes {
		if n.ID == NoNode {
			return nil, fmt.Errorf("%w: node without id", ErrCorruptGraph)
		}
		for int(n.ID) > len(g.Nodes) {
			g.Nodes = append(g.Nodes, nil)
		}
		if g.Nodes[n.ID-1] != nil {
			return nil, fmt.Errorf("%w: duplicate node %d", ErrCorruptGraph, n.ID)
		}
		g.Nodes[n.ID-1] = n
	}
	for _, p := range pins {
		if p.ID == NoPin {
			return nil, fmt.Errorf("%w: pin without id", ErrCorruptGraph)
		}
		for int(p.ID) > len(g.Pins) {
			g.Pins = append(g.Pins, nil)
		}
		if g.Pins[p.ID-1] != nil {
			return nil, fmt.Errorf("%w: duplicate pin %d", ErrCorruptGraph, p.ID)
		}
		g.Pins[p.ID-1] = p
	}
	for _, n := range g.LiveNodes() {
		for _, pid := range n.Pins {
			p := g.Pin(pid)
			if p == nil || p.Node != n.ID {
				return nil, fmt.Errorf("%w: node %d lists foreign pin %d", ErrCorruptGraph, n.ID, pid)
			}
		}
	}
	for _, p := range g.Pins {
		if p == nil {
			continue
		}
		if g.Node(p.Node) == nil {
			return nil, fmt.Errorf("%w: pin %d has no node", ErrCorruptGraph, p.ID)
		}
		if p.Direction == DirInput && len(p.Links) > 1 {
			return nil, fmt.Errorf("%w: input pin %d has %d links", ErrCorruptGraph, p.ID, len(p.Links))
		}
		for _, l := range p.Links {
			op := g.Pin(l)
			if op == nil || !op.hasLink(p.ID) {
				return nil, fmt.Errorf("%w: one-sided link %d -> %d", ErrCorruptGraph, p.ID, l)
			}
		}
	}
	return g, nil
}
