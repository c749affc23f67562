package paramgraph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mapVar(name string) Variable { return NewVariable(TypeParameterMap, name) }

func link(t *testing.T, g *Graph, a, b PinID) {
	t.Helper()
	require.NoError(t, g.Link(a, b))
}

// pinNamed returns the first pin of n called name.
func pinNamed(t *testing.T, g *Graph, n *Node, name string) *Pin {
	t.Helper()
	for _, p := range g.NodePins(n) {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("node %d has no pin %q", n.ID, name)
	return nil
}

// outPin returns the first non-add output pin of n.
func outPin(g *Graph, n *Node) *Pin {
	for _, p := range g.NodePins(n, DirOutput) {
		if !p.AddPin {
			return p
		}
	}
	return nil
}

// newSizeFunction builds a Function script that copies its exposed Radius
// input into Particles.SpriteSize.
func newSizeFunction(t *testing.T, required bool) *Script {
	t.Helper()
	s := NewScript("Grow", UsageFunction, NewSource())
	g := s.Graph()
	in := g.AddInput(mapVar("Map"), InputParameter)
	radius := g.AddInput(NewVariable(TypeFloat, "Radius"), InputParameter)
	require.NoError(t, g.SetInputFlags(radius.ID, true, required))
	set := g.AddParameterMapSet(NewVariable(TypeFloat, "Particles.SpriteSize"))
	out := g.AddOutput(UsageFunction, 0, mapVar("Map"))
	link(t, g, outPin(g, in).ID, g.MapInputPin(set).ID)
	link(t, g, outPin(g, radius).ID, pinNamed(t, g, set, "Particles.SpriteSize").ID)
	link(t, g, g.MapOutputPin(set).ID, g.MapInputPin(out).ID)
	return s
}

// newCaller builds a script of usage whose map flows from an Input node
// through a call to callee and into the Output node.
func newCaller(t *testing.T, usage ScriptUsage, callee *Script, outputs ...Variable) (*Script, *Node) {
	t.Helper()
	s := NewScript("Caller", usage, NewSource())
	g := s.Graph()
	in := g.AddInput(mapVar("Map"), InputParameter)
	call, err := g.AddFunctionCall(callee)
	require.NoError(t, err)
	require.NotNil(t, g.MapInputPin(call), "callee %s takes no parameter map", callee.Name)
	out := g.AddOutput(usage, 0, append([]Variable{mapVar("Map")}, outputs...)...)
	link(t, g, outPin(g, in).ID, g.MapInputPin(call).ID)
	link(t, g, g.MapOutputPin(call).ID, g.MapInputPin(out).ID)
	return s, call
}
