package paramgraph

import "sort"

// ConstantTable is an immutable set of engine-provided variables. Build one per
// compiler session and share it read-only.
type ConstantTable struct {
	vars []Variable
}

// NewConstantTable builds a table from vars. Later duplicates of a name and
// type are dropped.
func NewConstantTable(vars ...Variable) *ConstantTable {
	t := &ConstantTable{}
	for _, v := range vars {
		if !containsEquivalent(t.vars, v) {
			t.vars = append(t.vars, v)
		}
	}
	sort.SliceStable(t.vars, func(i, j int) bool { return t.vars[i].Less(t.vars[j]) })
	return t
}

// DefaultEngineConstants returns the constants every script can read.
func DefaultEngineConstants() *ConstantTable {
	return NewConstantTable(
		NewVariable(TypeFloat, "Engine.DeltaTime"),
		NewVariable(TypeFloat, "Engine.InverseDeltaTime"),
		NewVariable(TypeFloat, "Engine.Time"),
		NewVariable(TypeFloat, "Engine.RealTime"),
		NewVariable(TypeInt, "Engine.ExecutionCount"),
		NewVariable(TypeVec3, "Engine.Owner.Position"),
		NewVariable(TypeVec3, "Engine.Owner.Velocity"),
		NewVariable(TypeVec3, "Engine.Owner.Scale"),
		NewVariable(TypeQuat, "Engine.Owner.Rotation"),
		NewVariable(TypeFloat, "Engine.Owner.TimeSinceRendered"),
		NewVariable(TypeInt, "Engine.Emitter.NumParticles"),
		NewVariable(TypeFloat, "Engine.Emitter.SpawnCountScale"),
		NewVariable(TypeInt, "Engine.System.NumEmitters"),
		NewVariable(TypeInt, "Engine.System.NumEmittersAlive"),
		NewVariable(TypeFloat, "Engine.System.Age"),
		NewVariable(TypeInt, "Engine.System.TickCount"),
	)
}

// With returns a new table holding t's constants plus extra.
func (t *ConstantTable) With(extra ...Variable) *ConstantTable {
	return NewConstantTable(append(t.Variables(), extra...)...)
}

// Find returns the constant with name and type.
func (t *ConstantTable) Find(name string, typ TypeDef) (Variable, bool) {
	if t == nil {
		return Variable{}, false
	}
	for _, v := range t.vars {
		if v.Name == name && v.Type.Same(typ) {
			return v, true
		}
	}
	return Variable{}, false
}

// Variables returns a copy of the table in name order.
func (t *ConstantTable) Variables() []Variable {
	if t == nil {
		return nil
	}
	return append([]Variable(nil), t.vars...)
}

// Len returns the number of constants.
func (t *ConstantTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.vars)
}
