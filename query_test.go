package paramgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindOutputNodes(t *testing.T) {
	g := NewGraph()
	e1 := g.AddOutput(UsageParticleEvent, 0, mapVar("Map"))
	spawn := g.AddOutput(UsageParticleSpawn, 0, mapVar("Map"))
	e2 := g.AddOutput(UsageParticleEvent, 1, mapVar("Map"))

	assert.Len(t, g.FindOutputNodes(), 3)
	assert.Equal(t, []*Node{spawn}, g.FindOutputNodes(UsageParticleSpawn))
	assert.Empty(t, g.FindOutputNodes(UsageSystemUpdate))

	n, ok := g.FindOutputNode(UsageParticleEvent, 1)
	require.True(t, ok)
	assert.Equal(t, e2.ID, n.ID)
	n, ok = g.FindOutputNode(UsageParticleEvent, 0)
	require.True(t, ok)
	assert.Equal(t, e1.ID, n.ID)
	_, ok = g.FindOutputNode(UsageParticleEvent, 2)
	assert.False(t, ok)
}

func TestFindInputNodes(t *testing.T) {
	g := NewGraph()
	radius := NewVariable(TypeFloat, "Radius")
	withDefault := radius
	withDefault.SetDefault([]byte{0, 0, 0x80, 0x3f})

	r1 := g.AddInput(withDefault, InputParameter)
	g.AddInput(radius, InputParameter)
	attr := g.AddInput(NewVariable(TypeVec3, "Particles.Position"), InputAttribute)
	g.AddInput(NewVariable(TypeVec3, "Particles.Position"), InputAttribute)
	dt := g.AddInput(NewVariable(TypeFloat, "Engine.DeltaTime"), InputSystemConstant)
	speed := g.AddInput(NewVariable(TypeFloat, "Speed"), InputParameter)
	speed.Data.(*InputData).CallSortPriority = -1

	t.Run("all", func(t *testing.T) {
		assert.Len(t, g.FindInputNodes(DefaultFindInputNodesOptions()), 6)
	})

	t.Run("parameters ignore defaults when deduplicating", func(t *testing.T) {
		opts := FindInputNodesOptions{IncludeParameters: true, FilterDuplicates: true}
		assert.Equal(t, []*Node{r1, speed}, g.FindInputNodes(opts))
	})

	t.Run("attributes compare fully", func(t *testing.T) {
		opts := FindInputNodesOptions{IncludeAttributes: true, FilterDuplicates: true}
		assert.Equal(t, []*Node{attr}, g.FindInputNodes(opts))
	})

	t.Run("sorted by priority then name", func(t *testing.T) {
		opts := DefaultFindInputNodesOptions()
		opts.Sort = true
		opts.FilterDuplicates = true
		got := g.FindInputNodes(opts)
		require.Len(t, got, 4)
		assert.Equal(t, speed.ID, got[0].ID)
		assert.Equal(t, dt.ID, got[1].ID)
		assert.Equal(t, attr.ID, got[2].ID)
		assert.Equal(t, r1.ID, got[3].ID)
	})

	t.Run("nothing selected", func(t *testing.T) {
		got := g.FindInputNodes(FindInputNodesOptions{})
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})
}

func TestFindInputNodesByUsage(t *testing.T) {
	g := NewGraph()
	in := g.AddInput(mapVar("Map"), InputParameter)
	age := g.AddInput(NewVariable(TypeFloat, "Age"), InputParameter)
	g.AddInput(NewVariable(TypeFloat, "Elsewhere"), InputParameter)
	set := g.AddParameterMapSet(NewVariable(TypeFloat, "Particles.Age"))
	g.AddOutput(UsageParticleSpawn, 0, mapVar("Map"))
	update := g.AddOutput(UsageParticleUpdate, 0, mapVar("Map"))
	link(t, g, outPin(g, in).ID, g.MapInputPin(set).ID)
	link(t, g, outPin(g, age).ID, pinNamed(t, g, set, "Particles.Age").ID)
	link(t, g, g.MapOutputPin(set).ID, g.MapInputPin(update).ID)

	opts := DefaultFindInputNodesOptions()
	opts.FilterByUsage = &UsageOccurrence{Usage: UsageParticleUpdate}
	assert.Equal(t, []*Node{in, age}, g.FindInputNodes(opts))

	opts.FilterByUsage = &UsageOccurrence{Usage: UsageParticleUpdate, Occurrence: 3}
	assert.Empty(t, g.FindInputNodes(opts))
}

func TestGetParameters(t *testing.T) {
	g := NewGraph()
	g.AddInput(mapVar("Map"), InputParameter)
	g.AddInput(NewVariable(TypeFloat, "Radius"), InputParameter)
	g.AddInput(NewVariable(TypeFloat, "Radius"), InputParameter)
	g.AddInput(NewVariable(TypeFloat, "Engine.DeltaTime"), InputSystemConstant)
	g.AddOutput(UsageParticleSpawn, 0, mapVar("Map"), NewVariable(TypeVec3, "Particles.Position"))
	g.AddOutput(UsageParticleUpdate, 0, NewVariable(TypeVec3, "Particles.Position"), NewVariable(TypeFloat, "Particles.Age"))

	inputs, outputs := g.GetParameters()
	assert.Equal(t, []Variable{NewVariable(TypeFloat, "Radius")}, inputs)
	assert.Equal(t, []Variable{
		NewVariable(TypeVec3, "Particles.Position"),
		NewVariable(TypeFloat, "Particles.Age"),
	}, outputs)
}
