package paramgraph

import "fmt"

// NodeID is a stable handle to a node inside one Graph. Zero is never a valid node.
type NodeID uint32

// NoNode is the zero NodeID.
const NoNode NodeID = 0

// IsValid reports whether id refers to a node slot.
func (id NodeID) IsValid() bool { return id != NoNode }

// NodeKind enumerates the closed set of node payloads.
type NodeKind uint8

const (
	KindInput NodeKind = iota + 1
	KindOutput
	KindFunctionCall
	KindAssignment
	KindParameterMapGet
	KindParameterMapSet
	KindEmitter
)

var kindNames = map[NodeKind]string{
	KindInput:           "Input",
	KindOutput:          "Output",
	KindFunctionCall:    "FunctionCall",
	KindAssignment:      "Assignment",
	KindParameterMapGet: "ParameterMapGet",
	KindParameterMapSet: "ParameterMapSet",
	KindEmitter:         "Emitter",
}

func (k NodeKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("NodeKind(%d)", uint8(k))
}

// ParseNodeKind converts a kind name back to its value.
func ParseNodeKind(s string) (NodeKind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("paramgraph: unknown node kind %q", s)
}

// Reserved pin names.
const (
	PinNameMapIn  = "Source"
	PinNameMapOut = "Dest"
	PinNameAdd    = "Add"
)

// NodeData is the kind-specific payload of a Node. The set of implementations is
// closed: every kind lives in this package.
type NodeData interface {
	Kind() NodeKind
	buildHistory(b *HistoryBuilder, v *graphVisit, n *Node)
	compile(cc *compileContext, n *Node) []Value
}

// Node is a vertex of a Graph. Pins lists the node's pins in display order.
type Node struct {
	ID   NodeID   `json:"id"`
	Name string   `json:"name"`
	Data NodeData `json:"-"`
	Pins []PinID  `json:"pins"`
}

// Kind returns the payload kind.
func (n *Node) Kind() NodeKind {
	if n.Data == nil {
		return 0
	}
	return n.Data.Kind()
}

// InputUsage classifies what an Input node reads.
type InputUsage uint8

const (
	// InputParameter is an exposed parameter set by the caller or the user.
	InputParameter InputUsage = iota
	// InputAttribute reads a per-particle attribute directly.
	InputAttribute
	// InputSystemConstant reads an engine-provided constant.
	InputSystemConstant
)

func (u InputUsage) String() string {
	switch u {
	case InputParameter:
		return "Parameter"
	case InputAttribute:
		return "Attribute"
	case InputSystemConstant:
		return "SystemConstant"
	}
	return fmt.Sprintf("InputUsage(%d)", uint8(u))
}

// InputData is the payload of an Input node. It owns its variable.
type InputData struct {
	Variable Variable   `json:"variable"`
	Usage    InputUsage `json:"usage"`
	// Required inputs must be resolved at every call site.
	Required bool `json:"required,omitempty"`
	// Exposed inputs become pins on FunctionCall nodes that call this graph.
	Exposed          bool `json:"exposed,omitempty"`
	CallSortPriority int  `json:"call_sort_priority,omitempty"`
}

func (*InputData) Kind() NodeKind { return KindInput }

// duplicates implements the input dedup policy: parameters compare ignoring
// defaults, every other usage compares fully.
func (d *InputData) duplicates(o *InputData) bool {
	if d.Usage != o.Usage {
		return false
	}
	if d.Usage == InputParameter {
		return d.Variable.Equivalent(o.Variable)
	}
	return d.Variable.Equal(o.Variable)
}

// OutputData is the payload of an Output node. It owns the declared output variables.
type OutputData struct {
	Usage ScriptUsage `json:"usage"`
	// UsageIndex distinguishes event handlers sharing UsageParticleEvent.
	UsageIndex int        `json:"usage_index,omitempty"`
	Outputs    []Variable `json:"outputs"`
}

func (*OutputData) Kind() NodeKind { return KindOutput }

// DefaultPin associates a Get node output pin with the hidden input pin
// holding its fallback value.
type DefaultPin struct {
	Output PinID `json:"output"`
	Input  PinID `json:"input"`
}

// ParameterMapGetData is the payload of a ParameterMapGet node. Variables are
// named by its output pins.
type ParameterMapGetData struct {
	Defaults []DefaultPin `json:"defaults,omitempty"`
}

func (*ParameterMapGetData) Kind() NodeKind { return KindParameterMapGet }

// DefaultPinFor returns the default input pin paired with output pin out.
func (d *ParameterMapGetData) DefaultPinFor(out PinID) PinID {
	for _, dp := range d.Defaults {
		if dp.Output == out {
			return dp.Input
		}
	}
	return NoPin
}

func (d *ParameterMapGetData) isDefaultPin(in PinID) bool {
	for _, dp := range d.Defaults {
		if dp.Input == in {
			return true
		}
	}
	return false
}

// ParameterMapSetData is the payload of a ParameterMapSet node. Variables are
// named by its input pins.
type ParameterMapSetData struct{}

func (*ParameterMapSetData) Kind() NodeKind { return KindParameterMapSet }
