package paramgraph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// FunctionCallData is the payload of a FunctionCall node. Callee is a
// non-owning reference: the callee graph can change or be reloaded at any time,
// which CachedChangeID detects.
type FunctionCallData struct {
	CalleeID string  `json:"callee_id"`
	Callee   *Script `json:"-"`
	// FunctionName is unique within the owning graph and names the Module
	// namespace alias inside the call.
	FunctionName   string    `json:"function_name"`
	CachedChangeID uuid.UUID `json:"cached_change_id"`
}

func (*FunctionCallData) Kind() NodeKind { return KindFunctionCall }

func (d *FunctionCallData) buildHistory(b *HistoryBuilder, v *graphVisit, n *Node) {
	b.buildCall(v, n, d.FunctionName, d.Callee)
}

// IsStale reports whether the callee graph changed since the pins were built.
func (d *FunctionCallData) IsStale() bool {
	cg := d.Callee.Graph()
	return cg != nil && cg.ChangeID != d.CachedChangeID
}

// callData returns the call payload of FunctionCall and Assignment nodes.
func callData(n *Node) *FunctionCallData {
	switch d := n.Data.(type) {
	case *FunctionCallData:
		return d
	case *AssignmentData:
		return &d.Call
	}
	return nil
}

// calleeOutputNode returns the Output node a call into g evaluates.
func calleeOutputNode(g *Graph) *Node {
	nodes := g.FindOutputNodes(UsageFunction, UsageModule, UsageDynamicInput)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// calleeInputs returns the exposed non-map parameter inputs of g in call order.
func calleeInputs(g *Graph) []*InputData {
	opts := FindInputNodesOptions{Sort: true, IncludeParameters: true, FilterDuplicates: true}
	var out []*InputData
	for _, n := range g.FindInputNodes(opts) {
		d := n.Data.(*InputData)
		if d.Exposed && !d.Variable.Type.IsParameterMap() {
			out = append(out, d)
		}
	}
	return out
}

func hasMapInput(g *Graph) bool {
	for _, n := range g.LiveNodes() {
		if d, ok := n.Data.(*InputData); ok && d.Variable.Type.IsParameterMap() {
			return true
		}
	}
	return false
}

// AddFunctionCall adds a node calling callee. The call is refused when callee
// already reaches g, since inlining it would never terminate.
func (g *Graph) AddFunctionCall(callee *Script) (*Node, error) {
	cg := callee.Graph()
	if cg == nil {
		return nil, ErrMissingCallee
	}
	if callee.References(g) {
		return nil, fmt.Errorf("%w: %s reaches graph %s", ErrRecursiveCall, callee.Name, g.ID)
	}
	data := &FunctionCallData{
		CalleeID:     callee.ID,
		Callee:       callee,
		FunctionName: g.uniqueFunctionName(callee.Name),
	}
	n := g.newNode(data.FunctionName, data)
	g.allocateCallPins(n, cg)
	data.CachedChangeID = cg.ChangeID
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return n, nil
}

// uniqueFunctionName returns base, or base with the lowest free three digit suffix.
func (g *Graph) uniqueFunctionName(base string) string {
	base = strings.NewReplacer(".", "_", " ", "_").Replace(base)
	if base == "" {
		base = "Function"
	}
	used := make(map[string]bool)
	for _, n := range g.LiveNodes() {
		if d := callData(n); d != nil {
			used[d.FunctionName] = true
		}
	}
	if !used[base] {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s%03d", base, i)
		if !used[name] {
			return name
		}
	}
}

func (g *Graph) allocateCallPins(n *Node, cg *Graph) {
	if hasMapInput(cg) {
		g.newPin(n, DirInput, PinNameMapIn, TypeParameterMap)
	}
	for _, in := range calleeInputs(cg) {
		g.newPin(n, DirInput, in.Variable.Name, in.Variable.Type)
	}
	if out := calleeOutputNode(cg); out != nil {
		for _, v := range out.Data.(*OutputData).Outputs {
			name := v.Name
			if v.Type.IsParameterMap() {
				name = PinNameMapOut
			}
			g.newPin(n, DirOutput, name, v.Type)
		}
	}
}

// RefreshIfExternalChanged rebuilds the pins of a FunctionCall or Assignment
// node when its callee changed. Pins whose name, type and direction survive keep
// their links and inline defaults. It reports whether the pins were rebuilt.
func (g *Graph) RefreshIfExternalChanged(id NodeID) bool {
	n := g.Node(id)
	if n == nil {
		return false
	}
	d := callData(n)
	if d == nil || !d.IsStale() {
		return false
	}
	g.reallocateCallPins(n, d.Callee.Graph())
	d.CachedChangeID = d.Callee.Graph().ChangeID
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return true
}

// RefreshCallNodes refreshes every stale call node and returns how many changed.
func (g *Graph) RefreshCallNodes() int {
	c := 0
	for _, n := range g.LiveNodes() {
		if g.RefreshIfExternalChanged(n.ID) {
			c++
		}
	}
	return c
}

func (g *Graph) reallocateCallPins(n *Node, cg *Graph) {
	type oldPin struct {
		dir     Direction
		name    string
		typ     TypeDef
		links   []PinID
		def     []byte
		matched bool
	}
	var old []*oldPin
	for _, p := range g.NodePins(n) {
		old = append(old, &oldPin{dir: p.Direction, name: p.Name, typ: p.Type, links: append([]PinID(nil), p.Links...), def: p.Default})
		g.removePin(p)
	}
	n.Pins = nil
	g.allocateCallPins(n, cg)

	for _, p := range g.NodePins(n) {
		for _, op := range old {
			if op.matched || op.dir != p.Direction || op.name != p.Name || !op.typ.Same(p.Type) {
				continue
			}
			op.matched = true
			p.Default = op.def
			for _, l := range op.links {
				other := g.Pin(l)
				if other == nil {
					continue
				}
				if p.Direction == DirInput {
					g.breakLinks(p)
				}
				p.Links = append(p.Links, other.ID)
				other.Links = append(other.Links, p.ID)
			}
			break
		}
	}
}
