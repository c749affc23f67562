package paramgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTraversalOrder(t *testing.T) {
	g := NewGraph()
	in := g.AddInput(mapVar("Map"), InputParameter)
	age := g.AddInput(NewVariable(TypeFloat, "Age"), InputParameter)
	unused := g.AddInput(NewVariable(TypeFloat, "Unused"), InputParameter)
	set := g.AddParameterMapSet(NewVariable(TypeFloat, "Particles.Age"))
	out := g.AddOutput(UsageParticleSpawn, 0, mapVar("Map"))
	link(t, g, outPin(g, in).ID, g.MapInputPin(set).ID)
	link(t, g, outPin(g, age).ID, pinNamed(t, g, set, "Particles.Age").ID)
	link(t, g, g.MapOutputPin(set).ID, g.MapInputPin(out).ID)

	order := BuildTraversal(g, out.ID)
	assert.Equal(t, []NodeID{in.ID, age.ID, set.ID, out.ID}, order)
	assert.NotContains(t, order, unused.ID)

	// Every linked producer precedes its consumer.
	pos := map[NodeID]int{}
	for i, id := range order {
		pos[id] = i
	}
	for _, n := range TraversalNodes(g, order) {
		for _, p := range g.NodePins(n, DirInput) {
			if !p.IsLinked() {
				continue
			}
			src := g.Pin(p.LinkedTo())
			assert.Less(t, pos[src.Node], pos[n.ID])
		}
	}
}

func TestBuildTraversalShared(t *testing.T) {
	g := NewGraph()
	rate := g.AddInput(NewVariable(TypeFloat, "Rate"), InputParameter)
	in := g.AddInput(mapVar("Map"), InputParameter)
	set := g.AddParameterMapSet(NewVariable(TypeFloat, "Particles.A"), NewVariable(TypeFloat, "Particles.B"))
	out := g.AddOutput(UsageParticleSpawn, 0, mapVar("Map"))
	link(t, g, outPin(g, in).ID, g.MapInputPin(set).ID)
	link(t, g, outPin(g, rate).ID, pinNamed(t, g, set, "Particles.A").ID)
	link(t, g, outPin(g, rate).ID, pinNamed(t, g, set, "Particles.B").ID)
	link(t, g, g.MapOutputPin(set).ID, g.MapInputPin(out).ID)

	assert.Equal(t, []NodeID{in.ID, rate.ID, set.ID, out.ID}, BuildTraversal(g, out.ID), "shared producers appear once")
}

func TestBuildTraversalCycle(t *testing.T) {
	g := NewGraph()
	s1 := g.AddParameterMapSet()
	s2 := g.AddParameterMapSet()
	out := g.AddOutput(UsageParticleUpdate, 0, mapVar("Map"))
	link(t, g, g.MapOutputPin(s1).ID, g.MapInputPin(s2).ID)
	link(t, g, g.MapOutputPin(s2).ID, g.MapInputPin(s1).ID)
	link(t, g, g.MapOutputPin(s2).ID, g.MapInputPin(out).ID)

	order := BuildTraversal(g, out.ID)
	require.Len(t, order, 3)
	assert.Equal(t, []NodeID{s1.ID, s2.ID, out.ID}, order)
}

func TestBuildTraversalMissing(t *testing.T) {
	g := NewGraph()
	assert.Empty(t, BuildTraversal(g, 7))
	assert.Empty(t, TraversalNodes(g, []NodeID{7}))
}
