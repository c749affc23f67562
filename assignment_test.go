package paramgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignmentGraph(t *testing.T) (*Graph, *Node, *AssignmentData) {
	t.Helper()
	g := NewGraph()
	in := g.AddInput(mapVar("Map"), InputParameter)
	n, err := g.AddAssignment(NewVariable(TypeFloat, "Module.Speed"), []byte{0, 0, 0x80, 0x3f})
	require.NoError(t, err)
	out := g.AddOutput(UsageModule, 0, mapVar("Map"))
	link(t, g, outPin(g, in).ID, g.MapInputPin(n).ID)
	link(t, g, g.MapOutputPin(n).ID, g.MapInputPin(out).ID)
	return g, n, n.Data.(*AssignmentData)
}

func TestAddAssignment(t *testing.T) {
	g, n, d := assignmentGraph(t)
	assert.Equal(t, "Assignment", d.Call.FunctionName)
	assert.Equal(t, NewVariable(TypeFloat, "Module.Speed"), d.Target)
	assert.Equal(t, "Module.Speed", d.ValueVariable().Name)

	cg := d.Call.Callee.Graph()
	require.NotNil(t, cg)
	assert.Equal(t, 4, cg.NodeCount())
	assert.Equal(t, KindParameterMapGet, cg.Node(d.GetNode).Kind())
	assert.Equal(t, KindParameterMapSet, cg.Node(d.SetNode).Kind())

	get := cg.Node(d.GetNode).Data.(*ParameterMapGetData)
	assert.Equal(t, []byte{0, 0, 0x80, 0x3f}, cg.Pin(get.DefaultPinFor(d.ValuePin)).Default)
	assert.Equal(t, d.ValuePin, cg.Pin(d.TargetPin).LinkedTo())

	second, err := g.AddAssignment(NewVariable(TypeFloat, "Particles.Mass"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Assignment001", second.Data.(*AssignmentData).Call.FunctionName)

	_, err = g.AddAssignment(mapVar("Nope"), nil)
	assert.ErrorIs(t, err, ErrReservedPinName)

	h := NewHistoryBuilder().Build(g, g.FindOutputNodes(UsageModule)[0].ID)
	i := h.FindVariable("Module.Speed", TypeFloat)
	require.GreaterOrEqual(t, i, 0)
	require.Len(t, h.WriteHistory[i], 1)
	assert.Equal(t, "Assignment.Speed", h.WriteHistory[i][0].QualifiedName("Module.Speed"))
	assert.Equal(t, n.ID, h.BoundaryLinks[0].Outer.Node)
}

func TestGenerateScriptIdempotent(t *testing.T) {
	_, _, d := assignmentGraph(t)
	cg := d.Call.Callee.Graph()

	nodes := []NodeID{d.InputNode, d.GetNode, d.SetNode, d.OutputNode}
	pins := []PinID{d.ValuePin, d.TargetPin}
	changeID := cg.ChangeID
	pinCount := len(cg.Pins)

	again, err := d.GenerateScript()
	require.NoError(t, err)
	assert.Same(t, d.Call.Callee, again)
	assert.Equal(t, nodes, []NodeID{d.InputNode, d.GetNode, d.SetNode, d.OutputNode})
	assert.Equal(t, pins, []PinID{d.ValuePin, d.TargetPin})
	assert.Equal(t, changeID, cg.ChangeID, "an unchanged target leaves the graph untouched")
	assert.Len(t, cg.Pins, pinCount)
}

func TestGenerateScriptTypeChange(t *testing.T) {
	_, _, d := assignmentGraph(t)
	cg := d.Call.Callee.Graph()
	oldSet := d.SetNode

	d.Target.Type = TypeVec3
	_, err := d.GenerateScript()
	require.NoError(t, err)
	assert.NotEqual(t, oldSet, d.SetNode)
	assert.Nil(t, cg.Node(oldSet))
	assert.Equal(t, TypeVec3, cg.Pin(d.TargetPin).Type)
	assert.Equal(t, TypeVec3, cg.Pin(d.ValuePin).Type)
	assert.Equal(t, d.ValuePin, cg.Pin(d.TargetPin).LinkedTo())
	assert.Equal(t, 4, cg.NodeCount())
}

func TestRenameAssignmentTarget(t *testing.T) {
	g, n, d := assignmentGraph(t)

	// A Set elsewhere in the graph overrides the assignment's input.
	override := g.AddParameterMapSet(NewVariable(TypeFloat, "Assignment.Speed"))
	link(t, g, g.FindInputNodes(DefaultFindInputNodesOptions())[0].Pins[0], g.MapInputPin(override).ID)

	prev := g.ChangeID
	require.NoError(t, g.RenameAssignmentTarget(n.ID, "Module.Velocity"))
	assert.NotEqual(t, prev, g.ChangeID)

	cg := d.Call.Callee.Graph()
	assert.Equal(t, "Module.Velocity", cg.Pin(d.TargetPin).Name)
	assert.Equal(t, "Module.Velocity", cg.Pin(d.ValuePin).Name)
	pinNamed(t, g, override, "Assignment.Velocity")
	assert.False(t, d.Call.IsStale())

	out := g.FindOutputNodes(UsageModule)[0]
	assert.True(t, g.MapInputPin(out).IsLinked(), "call pins keep their links")
	assert.Equal(t, g.MapOutputPin(n).ID, g.MapInputPin(out).LinkedTo())

	t.Run("same name", func(t *testing.T) {
		prev := g.ChangeID
		require.NoError(t, g.RenameAssignmentTarget(n.ID, "Module.Velocity"))
		assert.Equal(t, prev, g.ChangeID)
	})
	t.Run("not an assignment", func(t *testing.T) {
		assert.ErrorIs(t, g.RenameAssignmentTarget(out.ID, "X"), ErrWrongNodeKind)
	})
}

func TestGenerateScriptReportsRejectedEdits(t *testing.T) {
	_, _, d := assignmentGraph(t)

	d.Target.Name = PinNameMapOut
	_, err := d.GenerateScript()
	assert.ErrorIs(t, err, ErrReservedPinName)
}

func TestRenameAssignmentTargetReserved(t *testing.T) {
	g, n, d := assignmentGraph(t)
	changeID := g.ChangeID

	assert.ErrorIs(t, g.RenameAssignmentTarget(n.ID, PinNameMapIn), ErrReservedPinName)
	assert.Equal(t, "Module.Speed", d.Target.Name)
	assert.Equal(t, "Module.Speed", d.Call.Callee.Graph().Pin(d.TargetPin).Name)
	assert.Equal(t, changeID, g.ChangeID)

	_, err := g.AddAssignment(NewVariable(TypeFloat, PinNameAdd), nil)
	assert.ErrorIs(t, err, ErrReservedPinName)
}
