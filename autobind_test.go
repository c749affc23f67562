package paramgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAutoBinderResolve(t *testing.T) {
	g := NewGraph()
	g.AddOutput(UsageParticleUpdate, 0,
		mapVar("Map"),
		NewVariable(TypeVec3, "Particles.Position"),
		NewVariable(TypeFloat, "Particles.Age"),
	)
	a := NewAutoBinder(g, DefaultEngineConstants())

	tests := []struct {
		name   string
		input  Variable
		want   string
		origin BindingOrigin
	}{
		{"full attribute name", NewVariable(TypeFloat, "Particles.Age"), "Particles.Age", BindAttribute},
		{"base name", NewVariable(TypeVec3, "Position"), "Particles.Position", BindAttribute},
		{"engine constant", NewVariable(TypeFloat, "DeltaTime"), "Engine.DeltaTime", BindEngineConstant},
		{"full constant name", NewVariable(TypeInt, "Engine.System.TickCount"), "Engine.System.TickCount", BindEngineConstant},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, origin, ok := a.Resolve(tt.input)
			assert.True(t, ok)
			assert.Equal(t, tt.want, v.Name)
			assert.Equal(t, tt.origin, origin)
		})
	}

	misses := []Variable{
		NewVariable(TypeFloat, "Position"),        // wrong type
		NewVariable(TypeFloat, "Module.Age"),      // namespaced names must match in full
		NewVariable(TypeFloat, "Nothing.Like.It"), // no candidate
	}
	for _, in := range misses {
		_, origin, ok := a.Resolve(in)
		assert.False(t, ok, in.String())
		assert.Equal(t, "none", origin.String())
	}
}

func TestAutoBinderSuggest(t *testing.T) {
	a := NewAutoBinder(nil, DefaultEngineConstants())
	got := a.Suggest("Module.DeltaTim")
	assert.NotEmpty(t, got)
	assert.LessOrEqual(t, len(got), 3)
	assert.Contains(t, got, "Engine.DeltaTime")

	assert.Empty(t, NewAutoBinder(nil, nil).Suggest("Anything"))
}

func TestConstantTable(t *testing.T) {
	c := NewConstantTable(
		NewVariable(TypeFloat, "User.B"),
		NewVariable(TypeFloat, "User.A"),
		NewVariable(TypeFloat, "User.B"),
	)
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, "User.A", c.Variables()[0].Name)

	ext := c.With(NewVariable(TypeVec3, "User.Wind"))
	assert.Equal(t, 3, ext.Len())
	assert.Equal(t, 2, c.Len(), "With leaves the receiver alone")

	_, ok := ext.Find("User.Wind", TypeVec3)
	assert.True(t, ok)
	_, ok = ext.Find("User.Wind", TypeFloat)
	assert.False(t, ok)

	var none *ConstantTable
	assert.Equal(t, 0, none.Len())
	assert.Nil(t, none.Variables())
}

func TestDiagnosticsErr(t *testing.T) {
	ds := Diagnostics{
		{Severity: SeverityInfo, Message: "a"},
		{Severity: SeverityError, Message: "b", Node: NodeRef{Graph: "g", Node: 2}},
		{Severity: SeverityWarning, Message: "c"},
		{Severity: SeverityError, Message: "d", Pin: PinRef{Graph: "g", Node: 3, Pin: 4}},
	}
	assert.True(t, ds.HasErrors())
	assert.Len(t, ds.Filter(SeverityWarning), 1)

	err := ds.Err()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "2 errors occurred")
	assert.Contains(t, err.Error(), "error: b (graph g node 2)")
	assert.Contains(t, err.Error(), "pin 4")

	assert.NoError(t, ds[:1].Err())
	assert.False(t, ds[:1].HasErrors())
}
