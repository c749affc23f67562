package paramgraph

// PinID is a stable handle to a pin inside one Graph. Zero is never a valid pin.
type PinID uint32

// NoPin is the zero PinID.
const NoPin PinID = 0

// IsValid reports whether id refers to a pin slot.
func (id PinID) IsValid() bool { return id != NoPin }

// Direction of a pin relative to its node.
type Direction uint8

const (
	DirInput Direction = iota
	DirOutput
)

func (d Direction) String() string {
	if d == DirOutput {
		return "output"
	}
	return "input"
}

// Pin is a typed connection point on a node.
// Input pins carry at most one link; output pins may fan out.
type Pin struct {
	ID        PinID     `json:"id"`
	Node      NodeID    `json:"node"`
	Direction Direction `json:"direction"`
	Name      string    `json:"name"`
	Type      TypeDef   `json:"type"`
	Links     []PinID   `json:"links,omitempty"`
	// Default is the inline literal used when an input pin is left unconnected.
	Default []byte `json:"default,omitempty"`
	// AddPin marks the synthetic "add new pin" control pin on Get/Set nodes.
	AddPin bool `json:"add_pin,omitempty"`
}

// IsLinked reports whether the pin has any link.
func (p *Pin) IsLinked() bool { return len(p.Links) > 0 }

// LinkedTo returns the first linked pin, or NoPin.
func (p *Pin) LinkedTo() PinID {
	if len(p.Links) == 0 {
		return NoPin
	}
	return p.Links[0]
}

// IsParameterMap reports whether the pin carries the parameter map.
func (p *Pin) IsParameterMap() bool { return p.Type.IsParameterMap() }

// Variable returns the variable a Get/Set/Output pin names.
func (p *Pin) Variable() Variable {
	return Variable{Name: p.Name, Type: p.Type, Default: p.Default}
}

func (p *Pin) hasLink(other PinID) bool {
	for _, l := range p.Links {
		if l == other {
			return true
		}
	}
	return false
}

func (p *Pin) dropLink(other PinID) {
	out := p.Links[:0]
	for _, l := range p.Links {
		if l != other {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		out = nil
	}
	p.Links = out
}

// PinRef identifies a pin across graphs.
type PinRef struct {
	Graph string `json:"graph"`
	Node  NodeID `json:"node"`
	Pin   PinID  `json:"pin"`
}

// IsZero reports whether the reference is unset.
func (r PinRef) IsZero() bool { return r.Pin == NoPin }

// NodeRef identifies a node across graphs.
type NodeRef struct {
	Graph string `json:"graph"`
	Node  NodeID `json:"node"`
}

// IsZero reports whether the reference is unset.
func (r NodeRef) IsZero() bool { return r.Node == NoNode }

// PinLink pairs a pin inside a called graph with the matching pin on the call node.
type PinLink struct {
	Inner PinRef `json:"inner"`
	Outer PinRef `json:"outer"`
}
