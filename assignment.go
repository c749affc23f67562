package paramgraph

import (
	"bytes"
	"fmt"
)

// AssignmentData is the payload of an Assignment node: a function call whose
// callee is a small synthesized Module graph that sets Target.
//
// The internal graph is Input(map) feeding a Get of Module.<base> that hosts the
// default value, and a Set of Target, ending in Output(Module). The node ids
// are kept so regeneration reuses them.
type AssignmentData struct {
	Call         FunctionCallData `json:"call"`
	Target       Variable         `json:"target"`
	DefaultValue []byte           `json:"default_value,omitempty"`

	InputNode  NodeID `json:"-"`
	GetNode    NodeID `json:"-"`
	SetNode    NodeID `json:"-"`
	OutputNode NodeID `json:"-"`
	ValuePin   PinID  `json:"-"`
	TargetPin  PinID  `json:"-"`
}

func (*AssignmentData) Kind() NodeKind { return KindAssignment }

func (d *AssignmentData) buildHistory(b *HistoryBuilder, v *graphVisit, n *Node) {
	b.buildCall(v, n, d.Call.FunctionName, d.Call.Callee)
}

// ValueVariable is the exposed input the assignment reads its value from.
func (d *AssignmentData) ValueVariable() Variable {
	return Variable{Name: NamespaceModule + "." + d.Target.BaseName(), Type: d.Target.Type, Default: d.DefaultValue}
}

const assignmentMapName = "Map"

// GenerateScript creates or updates the internal graph. Running it again with
// an unchanged target reuses every node and pin and leaves the graph untouched.
func (d *AssignmentData) GenerateScript() (*Script, error) {
	if d.Call.Callee == nil || d.Call.Callee.Source == nil {
		d.Call.Callee = NewScript(d.Call.FunctionName, UsageModule, NewSource())
		d.InputNode, d.GetNode, d.SetNode, d.OutputNode = NoNode, NoNode, NoNode, NoNode
	}
	g := d.Call.Callee.Graph()
	mapVar := NewVariable(TypeParameterMap, assignmentMapName)

	in := g.Node(d.InputNode)
	if in == nil {
		in = g.AddInput(mapVar, InputParameter)
		d.InputNode = in.ID
	}
	inPin := g.NodePins(in, DirOutput)[0]

	value := d.ValueVariable()
	get := g.Node(d.GetNode)
	if vp := g.Pin(d.ValuePin); get != nil && (vp == nil || !vp.Type.Same(value.Type)) {
		if err := g.RemoveNode(get.ID); err != nil {
			return nil, fmt.Errorf("paramgraph: generate assignment: %w", err)
		}
		get = nil
	}
	if get == nil {
		get = g.AddParameterMapGet(value)
		d.GetNode = get.ID
		d.ValuePin = g.NodePins(get, DirOutput)[0].ID
	}
	if vp := g.Pin(d.ValuePin); vp.Name != value.Name {
		if err := g.RenamePin(vp.ID, value.Name); err != nil {
			return nil, fmt.Errorf("paramgraph: generate assignment: %w", err)
		}
	}
	getData := get.Data.(*ParameterMapGetData)
	if dp := g.Pin(getData.DefaultPinFor(d.ValuePin)); dp != nil && !bytes.Equal(dp.Default, d.DefaultValue) {
		if err := g.SetPinDefault(dp.ID, d.DefaultValue); err != nil {
			return nil, fmt.Errorf("paramgraph: generate assignment: %w", err)
		}
	}

	set := g.Node(d.SetNode)
	if tp := g.Pin(d.TargetPin); set != nil && (tp == nil || !tp.Type.Same(d.Target.Type)) {
		if err := g.RemoveNode(set.ID); err != nil {
			return nil, fmt.Errorf("paramgraph: generate assignment: %w", err)
		}
		set = nil
	}
	if set == nil {
		set = g.AddParameterMapSet(NewVariable(d.Target.Type, d.Target.Name))
		d.SetNode = set.ID
		for _, p := range g.NodePins(set, DirInput) {
			if !p.IsParameterMap() && !p.AddPin {
				d.TargetPin = p.ID
				break
			}
		}
	}
	if tp := g.Pin(d.TargetPin); tp.Name != d.Target.Name {
		if err := g.RenamePin(tp.ID, d.Target.Name); err != nil {
			return nil, fmt.Errorf("paramgraph: generate assignment: %w", err)
		}
	}

	out := g.Node(d.OutputNode)
	if out == nil {
		out = g.AddOutput(UsageModule, 0, mapVar)
		d.OutputNode = out.ID
	}

	links := [][2]PinID{
		{inPin.ID, g.MapInputPin(get).ID},
		{inPin.ID, g.MapInputPin(set).ID},
		{d.ValuePin, d.TargetPin},
		{g.MapOutputPin(set).ID, g.MapInputPin(out).ID},
	}
	for _, l := range links {
		if err := g.Link(l[0], l[1]); err != nil {
			return nil, fmt.Errorf("paramgraph: generate assignment: %w", err)
		}
	}
	return d.Call.Callee, nil
}

func isReservedPinName(name string) bool {
	return name == PinNameMapIn || name == PinNameMapOut || name == PinNameAdd
}

// AddAssignment adds a node that sets target to the value of its exposed
// Module input, falling back to defaultValue.
func (g *Graph) AddAssignment(target Variable, defaultValue []byte) (*Node, error) {
	if target.Name == "" || isReservedPinName(target.Name) || !target.Type.IsValid() || target.Type.IsParameterMap() {
		return nil, fmt.Errorf("%w: invalid assignment target %q", ErrReservedPinName, target.Name)
	}
	d := &AssignmentData{
		Target:       NewVariable(target.Type, target.Name),
		DefaultValue: append([]byte(nil), defaultValue...),
	}
	d.Call.FunctionName = g.uniqueFunctionName("Assignment")
	callee, err := d.GenerateScript()
	if err != nil {
		return nil, err
	}
	cg := callee.Graph()

	n := g.newNode(d.Call.FunctionName, d)
	g.allocateCallPins(n, cg)
	d.Call.CachedChangeID = cg.ChangeID
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return n, nil
}

// RenameAssignmentTarget renames the variable an Assignment node writes. Get and
// Set pins elsewhere in g that override the old aliased input are renamed too.
func (g *Graph) RenameAssignmentTarget(id NodeID, newName string) error {
	n := g.Node(id)
	if n == nil {
		return ErrNodeNotFound
	}
	d, ok := n.Data.(*AssignmentData)
	if !ok {
		return fmt.Errorf("%w: %s is not an assignment", ErrWrongNodeKind, n.Kind())
	}
	if newName == "" || newName == d.Target.Name {
		return nil
	}

	if isReservedPinName(newName) {
		return fmt.Errorf("%w: %s", ErrReservedPinName, newName)
	}

	oldName := d.Target.Name
	oldAlias := d.Call.FunctionName + "." + d.Target.BaseName()
	d.Target.Name = newName
	newAlias := d.Call.FunctionName + "." + d.Target.BaseName()
	if _, err := d.GenerateScript(); err != nil {
		d.Target.Name = oldName
		return err
	}

	if oldAlias != newAlias {
		for _, other := range g.LiveNodes() {
			switch other.Data.(type) {
			case *ParameterMapGetData, *ParameterMapSetData:
			default:
				continue
			}
			for _, p := range g.NodePins(other) {
				if p.Name == oldAlias && !p.AddPin {
					if err := g.RenamePin(p.ID, newAlias); err != nil {
						return err
					}
				}
			}
		}
	}

	g.RefreshIfExternalChanged(id)
	g.NotifyGraphChanged(ActionNeedsRecompile)
	return nil
}
