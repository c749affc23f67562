package paramgraph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGraphHandles(t *testing.T) {
	g := NewGraph()
	a := g.AddInput(NewVariable(TypeFloat, "A"), InputParameter)
	b := g.AddInput(NewVariable(TypeFloat, "B"), InputParameter)
	assert.Equal(t, NodeID(1), a.ID)
	assert.Equal(t, NodeID(2), b.ID)

	require.NoError(t, g.RemoveNode(a.ID))
	assert.Nil(t, g.Node(a.ID))
	assert.Equal(t, 1, g.NodeCount())

	c := g.AddInput(NewVariable(TypeFloat, "C"), InputParameter)
	assert.Equal(t, NodeID(3), c.ID, "handles are never reused")
	assert.Nil(t, g.Node(NoNode))
	assert.Nil(t, g.Node(99))
	assert.ErrorIs(t, g.RemoveNode(a.ID), ErrNodeNotFound)
}

func TestGraphChangeID(t *testing.T) {
	g := NewGraph()
	prev := g.ChangeID
	n := g.AddParameterMapSet(NewVariable(TypeFloat, "Particles.Age"))
	assert.NotEqual(t, prev, g.ChangeID)

	prev = g.ChangeID
	require.NoError(t, g.RenameNode(n.ID, "SetAge"))
	assert.NotEqual(t, prev, g.ChangeID, "cosmetic edits still change the id")

	prev = g.ChangeID
	_ = g.FindOutputNodes()
	_ = BuildTraversal(g, n.ID)
	assert.Equal(t, prev, g.ChangeID, "reads leave the id alone")
}

func TestGraphChangedEvent(t *testing.T) {
	g := NewGraph()
	var got []GraphChangedEvent
	cancel := g.OnChanged(func(ev GraphChangedEvent) { got = append(got, ev) })

	prev := g.ChangeID
	n := g.AddInput(NewVariable(TypeFloat, "A"), InputParameter)
	require.NoError(t, g.RenameNode(n.ID, "Renamed"))
	require.Len(t, got, 2)
	assert.Equal(t, ActionNeedsRecompile, got[0].Action)
	assert.Equal(t, prev, got[0].PreviousChangeID)
	assert.Equal(t, ActionGeneric, got[1].Action)

	cancel()
	g.AddInput(NewVariable(TypeFloat, "B"), InputParameter)
	assert.Len(t, got, 2)
}

func TestLinkRules(t *testing.T) {
	g := NewGraph()
	m1 := g.AddInput(mapVar("Map"), InputParameter)
	m2 := g.AddInput(mapVar("Other"), InputParameter)
	f := g.AddInput(NewVariable(TypeFloat, "F"), InputParameter)
	set := g.AddParameterMapSet(NewVariable(TypeFloat, "Particles.Age"))
	src := g.MapInputPin(set)

	t.Run("type mismatch", func(t *testing.T) {
		assert.ErrorIs(t, g.Link(outPin(g, f).ID, src.ID), ErrTypeMismatch)
	})
	t.Run("same direction", func(t *testing.T) {
		assert.ErrorIs(t, g.Link(outPin(g, m1).ID, outPin(g, m2).ID), ErrInvalidLink)
	})
	t.Run("same node", func(t *testing.T) {
		assert.ErrorIs(t, g.Link(src.ID, g.MapOutputPin(set).ID), ErrInvalidLink)
	})
	t.Run("add pin", func(t *testing.T) {
		assert.ErrorIs(t, g.Link(outPin(g, f).ID, g.addPin(set).ID), ErrInvalidLink)
	})
	t.Run("missing pin", func(t *testing.T) {
		assert.ErrorIs(t, g.Link(src.ID, 999), ErrPinNotFound)
	})

	t.Run("input replaces its link", func(t *testing.T) {
		a, b := outPin(g, m1), outPin(g, m2)
		require.NoError(t, g.Link(src.ID, a.ID), "argument order does not matter")
		require.NoError(t, g.Link(b.ID, src.ID))
		assert.Equal(t, []PinID{b.ID}, src.Links)
		assert.Empty(t, a.Links)
		assert.Equal(t, []PinID{src.ID}, b.Links)
	})

	t.Run("relink is a no-op", func(t *testing.T) {
		prev := g.ChangeID
		require.NoError(t, g.Link(outPin(g, m2).ID, src.ID))
		assert.Equal(t, prev, g.ChangeID)
	})

	t.Run("unlink drops both sides", func(t *testing.T) {
		b := outPin(g, m2)
		require.NoError(t, g.Unlink(b.ID, src.ID))
		assert.False(t, src.IsLinked())
		assert.False(t, b.IsLinked())
	})
}

func TestOutputFanOut(t *testing.T) {
	g := NewGraph()
	in := g.AddInput(mapVar("Map"), InputParameter)
	s1 := g.AddParameterMapSet()
	s2 := g.AddParameterMapSet()
	link(t, g, outPin(g, in).ID, g.MapInputPin(s1).ID)
	link(t, g, outPin(g, in).ID, g.MapInputPin(s2).ID)
	assert.Len(t, outPin(g, in).Links, 2)

	require.NoError(t, g.RemoveNode(s1.ID))
	assert.Equal(t, []PinID{g.MapInputPin(s2).ID}, outPin(g, in).Links)
	require.NoError(t, g.BreakPinLinks(outPin(g, in).ID))
	assert.False(t, g.MapInputPin(s2).IsLinked())
}

func TestVariablePins(t *testing.T) {
	g := NewGraph()
	get := g.AddParameterMapGet(NewVariable(TypeFloat, "Particles.Age"))
	id, err := g.AddVariablePin(get.ID, NewVariable(TypeVec3, "Particles.Position"))
	require.NoError(t, err)

	var names []string
	for _, p := range g.NodePins(get, DirOutput) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Particles.Age", "Particles.Position", PinNameAdd}, names, "variable pins go before the add pin")

	data := get.Data.(*ParameterMapGetData)
	def := g.Pin(data.DefaultPinFor(id))
	require.NotNil(t, def)
	assert.Equal(t, DirInput, def.Direction)

	require.NoError(t, g.RenamePin(id, "Particles.Velocity"))
	assert.Equal(t, "Particles.Velocity", def.Name, "default pin follows its output")

	assert.ErrorIs(t, g.RenamePin(id, PinNameMapIn), ErrReservedPinName)
	_, err = g.AddVariablePin(get.ID, mapVar("Nested"))
	assert.ErrorIs(t, err, ErrReservedPinName)

	in := g.AddInput(NewVariable(TypeFloat, "A"), InputParameter)
	_, err = g.AddVariablePin(in.ID, NewVariable(TypeFloat, "B"))
	assert.ErrorIs(t, err, ErrWrongNodeKind)
}

func TestSetInputFlags(t *testing.T) {
	g := NewGraph()
	in := g.AddInput(NewVariable(TypeFloat, "Radius"), InputParameter)
	require.NoError(t, g.SetInputFlags(in.ID, true, true))
	d := in.Data.(*InputData)
	assert.True(t, d.Exposed)
	assert.True(t, d.Required)

	out := g.AddOutput(UsageModule, 0, mapVar("Map"))
	assert.ErrorIs(t, g.SetInputFlags(out.ID, true, false), ErrWrongNodeKind)
}

func TestRestoreGraph(t *testing.T) {
	g := NewGraph()
	in := g.AddInput(mapVar("Map"), InputParameter)
	out := g.AddOutput(UsageModule, 0, mapVar("Map"))
	link(t, g, outPin(g, in).ID, g.MapInputPin(out).ID)
	require.NoError(t, g.RemoveNode(g.AddInput(NewVariable(TypeFloat, "Gone"), InputParameter).ID))

	restored, err := RestoreGraph(g.ID, g.ChangeID, g.LiveNodes(), livePins(g))
	require.NoError(t, err)
	assert.Equal(t, g.NodeCount(), restored.NodeCount())
	assert.Equal(t, out.ID, restored.Node(out.ID).ID)

	t.Run("one-sided link", func(t *testing.T) {
		pins := []*Pin{
			{ID: 1, Node: 1, Direction: DirOutput, Type: TypeParameterMap, Links: []PinID{2}},
			{ID: 2, Node: 2, Direction: DirInput, Type: TypeParameterMap},
		}
		nodes := []*Node{{ID: 1, Pins: []PinID{1}}, {ID: 2, Pins: []PinID{2}}}
		_, err := RestoreGraph("g", uuid.New(), nodes, pins)
		assert.ErrorIs(t, err, ErrCorruptGraph)
	})

	t.Run("duplicate node", func(t *testing.T) {
		_, err := RestoreGraph("g", uuid.New(), []*Node{{ID: 1}, {ID: 1}}, nil)
		assert.ErrorIs(t, err, ErrCorruptGraph)
	})

	t.Run("foreign pin", func(t *testing.T) {
		pins := []*Pin{{ID: 1, Node: 2, Direction: DirOutput}}
		nodes := []*Node{{ID: 1, Pins: []PinID{1}}, {ID: 2}}
		_, err := RestoreGraph("g", uuid.New(), nodes, pins)
		assert.ErrorIs(t, err, ErrCorruptGraph)
	})
}

func livePins(g *Graph) []*Pin {
	var out []*Pin
	for _, p := range g.Pins {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}
