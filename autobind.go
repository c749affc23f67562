package paramgraph

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// BindingOrigin tells where an automatic binding came from.
type BindingOrigin uint8

const (
	BindAttribute BindingOrigin = iota + 1
	BindEngineConstant
)

func (o BindingOrigin) String() string {
	switch o {
	case BindAttribute:
		return "attribute"
	case BindEngineConstant:
		return "engine"
	}
	return "none"
}

// AutoBinding is a compile-time link from an unconnected call pin to a producer
// found in the surrounding context. It is never written into the graph.
type AutoBinding struct {
	Pin      PinRef        `json:"pin"`
	Variable Variable      `json:"variable"`
	Origin   BindingOrigin `json:"origin"`
}

// AutoBinder resolves unconnected inputs against the attributes declared on a
// script's Output nodes, then against engine constants.
type AutoBinder struct {
	attributes []Variable
	constants  *ConstantTable
}

// NewAutoBinder collects the attributes declared by g's Output nodes.
func NewAutoBinder(g *Graph, constants *ConstantTable) *AutoBinder {
	a := &AutoBinder{constants: constants}
	if g == nil {
		return a
	}
	for _, n := range g.FindOutputNodes() {
		for _, v := range n.Data.(*OutputData).Outputs {
			if v.Type.IsParameterMap() || containsEquivalent(a.attributes, v) {
				continue
			}
			a.attributes = append(a.attributes, NewVariable(v.Type, v.Name))
		}
	}
	return a
}

// bindMatches reports whether candidate can feed input. Names must match in
// full, except that an input without a namespace matches on the base name.
func bindMatches(candidate, input Variable) bool {
	if !candidate.Type.Same(input.Type) {
		return false
	}
	if candidate.Name == input.Name {
		return true
	}
	return input.Namespace() == "" && candidate.BaseName() == input.Name
}

// Resolve finds a producer for input. The first match wins.
func (a *AutoBinder) Resolve(input Variable) (Variable, BindingOrigin, bool) {
	for _, v := range a.attributes {
		if bindMatches(v, input) {
			autoBinds.WithLabelValues(BindAttribute.String()).Inc()
			return v, BindAttribute, true
		}
	}
	for _, v := range a.constants.Variables() {
		if bindMatches(v, input) {
			autoBinds.WithLabelValues(BindEngineConstant.String()).Inc()
			return v, BindEngineConstant, true
		}
	}
	autoBinds.WithLabelValues("miss").Inc()
	return Variable{}, 0, false
}

// Suggest returns up to three candidate names close to name, best first.
func (a *AutoBinder) Suggest(name string) []string {
	var names []string
	for _, v := range a.attributes {
		names = append(names, v.Name)
	}
	for _, v := range a.constants.Variables() {
		names = append(names, v.Name)
	}
	base := NewVariable(TypeDef{}, name).BaseName()
	ranks := fuzzy.RankFindFold(base, names)
	sort.Sort(ranks)
	var out []string
	for _, r := range ranks {
		out = append(out, r.Target)
		if len(out) == 3 {
			break
		}
	}
	return out
}
