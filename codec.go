package paramgraph

import (
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
)

// MarshalNodeData encodes a node payload. The kind is stored separately.
func MarshalNodeData(d NodeData) ([]byte, error) {
	b, err := sonic.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("paramgraph: encode %s node: %w", d.Kind(), err)
	}
	return b, nil
}

// NewNodeData returns an empty payload of kind.
func NewNodeData(kind NodeKind) (NodeData, error) {
	switch kind {
	case KindInput:
		return &InputData{}, nil
	case KindOutput:
		return &OutputData{}, nil
	case KindFunctionCall:
		return &FunctionCallData{}, nil
	case KindAssignment:
		return &AssignmentData{}, nil
	case KindParameterMapGet:
		return &ParameterMapGetData{}, nil
	case KindParameterMapSet:
		return &ParameterMapSetData{}, nil
	case KindEmitter:
		return &EmitterData{}, nil
	}
	return nil, fmt.Errorf("%w: unknown node kind %d", ErrCorruptGraph, kind)
}

// UnmarshalNodeData decodes a payload written by MarshalNodeData. References to
// other scripts and emitters are left unresolved; see Loader.
func UnmarshalNodeData(kind NodeKind, b []byte) (NodeData, error) {
	d, err := NewNodeData(kind)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return d, nil
	}
	if err := sonic.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("paramgraph: decode %s node: %w", kind, err)
	}
	return d, nil
}

type graphDocument struct {
	ID       string         `json:"id"`
	ChangeID uuid.UUID      `json:"change_id"`
	Nodes    []nodeDocument `json:"nodes"`
	Pins     []*Pin         `json:"pins"`
}

type nodeDocument struct {
	ID   NodeID          `json:"id"`
	Name string          `json:"name"`
	Kind string          `json:"kind"`
	Pins []PinID         `json:"pins"`
	Data json.RawMessage `json:"data,omitempty"`
}

// MarshalGraph encodes g as a self-contained JSON document.
func MarshalGraph(g *Graph) ([]byte, error) {
	doc := graphDocument{ID: g.ID, ChangeID: g.ChangeID}
	for _, n := range g.LiveNodes() {
		nd := nodeDocument{ID: n.ID, Name: n.Name, Kind: n.Kind().String(), Pins: n.Pins}
		if n.Data != nil {
			b, err := MarshalNodeData(n.Data)
			if err != nil {
				return nil, err
			}
			nd.Data = b
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, p := range g.Pins {
		if p != nil {
			doc.Pins = append(doc.Pins, p)
		}
	}
	return sonic.Marshal(doc)
}

// UnmarshalGraph decodes a document written by MarshalGraph.
func UnmarshalGraph(b []byte) (*Graph, error) {
	var doc graphDocument
	if err := sonic.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptGraph, err)
	}
	nodes := make([]*Node, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		kind, err := ParseNodeKind(nd.Kind)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptGraph, err)
		}
		data, err := UnmarshalNodeData(kind, nd.Data)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, &Node{ID: nd.ID, Name: nd.Name, Data: data, Pins: nd.Pins})
	}
	return RestoreGraph(doc.ID, doc.ChangeID, nodes, doc.Pins)
}
