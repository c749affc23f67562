package paramgraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

// Value is a handle to a chunk in a CompileResult. It is the chunk's index.
type Value int

// InvalidValue stands in for a value that could not be produced.
const InvalidValue Value = -1

// ChunkKind enumerates the symbolic operations a compile emits.
type ChunkKind uint8

const (
	ChunkConstant ChunkKind = iota
	ChunkDefault
	ChunkReadInput
	ChunkReadAttribute
	ChunkReadPrevious
	ChunkReadConstant
	ChunkMapInstance
	ChunkMapGet
	ChunkMapSet
	ChunkCall
	ChunkEmitter
	ChunkWriteOutput
)

var chunkNames = [...]string{
	ChunkConstant:      "constant",
	ChunkDefault:       "default",
	ChunkReadInput:     "read-input",
	ChunkReadAttribute: "read-attribute",
	ChunkReadPrevious:  "read-previous",
	ChunkReadConstant:  "read-constant",
	ChunkMapInstance:   "map-instance",
	ChunkMapGet:        "map-get",
	ChunkMapSet:        "map-set",
	ChunkCall:          "call",
	ChunkEmitter:       "emitter",
	ChunkWriteOutput:   "write-output",
}

func (k ChunkKind) String() string {
	if int(k) < len(chunkNames) {
		return chunkNames[k]
	}
	return fmt.Sprintf("ChunkKind(%d)", uint8(k))
}

// MarshalText encodes the kind by name.
func (k ChunkKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Chunk is one symbolic operation. Variable names are qualified with the
// namespace markers active where the chunk was emitted.
type Chunk struct {
	Kind     ChunkKind `json:"kind"`
	Variable Variable  `json:"variable"`
	Inputs   []Value   `json:"inputs,omitempty"`
	Node     NodeRef   `json:"node"`
}

// CompileResult is the outcome of compiling one script. A failed result still
// carries every chunk, history and diagnostic the pass could produce.
type CompileResult struct {
	ScriptID     string        `json:"script_id"`
	Usage        ScriptUsage   `json:"usage"`
	Histories    []*History    `json:"histories"`
	Chunks       []Chunk       `json:"chunks"`
	AutoBindings []AutoBinding `json:"auto_bindings,omitempty"`
	Diagnostics  Diagnostics   `json:"diagnostics,omitempty"`
	Failed       bool          `json:"failed"`
	ChangeID     uuid.UUID     `json:"change_id"`
}

// Chunk returns the chunk behind v.
func (r *CompileResult) Chunk(v Value) (Chunk, bool) {
	if v < 0 || int(v) >= len(r.Chunks) {
		return Chunk{}, false
	}
	return r.Chunks[v], true
}

// Compiler turns scripts into chunk lists. It holds the session's constant
// table and is safe to reuse across scripts, one at a time.
type Compiler struct {
	constants *ConstantTable
	logger    hclog.Logger
}

// CompilerOption configures a Compiler.
type CompilerOption func(*Compiler)

// WithConstants replaces the engine constant table.
func WithConstants(t *ConstantTable) CompilerOption {
	return func(c *Compiler) { c.constants = t }
}

// WithLogger sets the compiler's logger.
func WithLogger(l hclog.Logger) CompilerOption {
	return func(c *Compiler) { c.logger = l }
}

// NewCompiler creates a compiler with the default engine constants.
func NewCompiler(opts ...CompilerOption) *Compiler {
	c := &Compiler{constants: DefaultEngineConstants(), logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Constants returns the compiler's constant table.
func (c *Compiler) Constants() *ConstantTable { return c.constants }

// CompileIfNeeded compiles s unless it is already synchronized with its graph.
func (c *Compiler) CompileIfNeeded(s *Script) (*CompileResult, bool) {
	if s.IsSynchronized() {
		return nil, false
	}
	return c.Compile(s), true
}

// Compile compiles s from its Output node. Problems are reported as diagnostics
// and never stop the pass. While the source holds a precompile snapshot, the
// snapshot graph and its histories are used instead of the live graph.
func (c *Compiler) Compile(s *Script) *CompileResult {
	start := time.Now()
	res := &CompileResult{ScriptID: s.ID, Usage: s.Usage}
	log := c.logger.With("script", s.Name, "usage", s.Usage.String())

	if s.Source == nil || s.Source.Graph == nil {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{Severity: SeverityError, Message: "script has no source graph"})
		res.Failed = true
		compiles.WithLabelValues(s.Usage.String(), "failed").Inc()
		return res
	}

	g := s.Source.Graph
	changeID := g.ChangeID
	snap := s.Source.Precompiled()
	if snap != nil {
		g = snap.Graph
		changeID = snap.ChangeID
	}

	out := findScriptOutput(g, s.Usage, s.UsageIndex)
	if out == nil {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Severity: SeverityError,
			Message:  fmt.Sprintf("graph has no %s output", s.Usage),
			Node:     NodeRef{Graph: g.ID},
		})
	} else {
		if snap != nil {
			for _, h := range snap.Histories {
				if h.OutputNode.Node == out.ID {
					res.Histories = append(res.Histories, h)
				}
			}
		} else {
			res.Histories = NewHistoryBuilder(WithBuilderLogger(log)).BuildParameterMaps(g, out.ID, true)
		}
		for _, h := range res.Histories {
			for i, ws := range h.Warnings {
				for _, w := range ws {
					d := Diagnostic{Severity: SeverityWarning, Message: w, Node: h.OutputNode}
					if reads := h.ReadHistory[i]; len(reads) > 0 {
						// The read may sit inside a callee graph.
						d.Pin = reads[len(reads)-1].Pin
						d.Node = NodeRef{Graph: d.Pin.Graph, Node: d.Pin.Node}
					}
					res.Diagnostics = append(res.Diagnostics, d)
				}
			}
		}

		cc := &compileContext{
			compiler: c,
			result:   res,
			binder:   NewAutoBinder(g, c.constants),
			active:   make(map[string]bool),
			logger:   log,
		}
		cc.compileGraph(g, out, nil)
	}

	res.Failed = res.Diagnostics.HasErrors()
	res.ChangeID = changeID
	s.SetChangeID(changeID)

	status := "ok"
	if res.Failed {
		status = "failed"
	}
	compiles.WithLabelValues(s.Usage.String(), status).Inc()
	compileDuration.WithLabelValues(s.Usage.String()).Observe(time.Since(start).Seconds())
	log.Debug("compiled script", "chunks", len(res.Chunks), "diagnostics", len(res.Diagnostics), "failed", res.Failed)
	return res
}

// findScriptOutput returns the Output node for usage and index.
func findScriptOutput(g *Graph, usage ScriptUsage, index int) *Node {
	for _, n := range g.FindOutputNodes(usage) {
		if n.Data.(*OutputData).UsageIndex == index {
			return n
		}
	}
	if n, ok := g.FindOutputNode(usage, index); ok {
		return n
	}
	return nil
}

// compileFrame is the state of one graph being compiled, either the script's
// own graph or a callee inlined into it.
type compileFrame struct {
	graph  *Graph
	values map[PinID]Value
	// args binds callee input names to values from the call site.
	args   map[string]Value
	mapArg Value
	inline bool
}

type compileContext struct {
	compiler *Compiler
	result   *CompileResult
	binder   *AutoBinder
	frame    *compileFrame
	scope    Scope
	active   map[string]bool
	logger   hclog.Logger
}

func (cc *compileContext) emit(kind ChunkKind, v Variable, n *Node, inputs ...Value) Value {
	if v.Name != "" {
		v.Name = cc.scope.Qualify(v.Name)
	}
	cc.result.Chunks = append(cc.result.Chunks, Chunk{
		Kind:     kind,
		Variable: v,
		Inputs:   inputs,
		Node:     cc.frame.graph.NodeRef(n),
	})
	return Value(len(cc.result.Chunks) - 1)
}

func (cc *compileContext) report(sev Severity, n *Node, p *Pin, format string, args ...any) {
	d := Diagnostic{Severity: sev, Message: fmt.Sprintf(format, args...), Node: cc.frame.graph.NodeRef(n)}
	if p != nil {
		d.Pin = cc.frame.graph.PinRef(p)
	}
	cc.result.Diagnostics = append(cc.result.Diagnostics, d)
}

// input returns the value feeding p, or InvalidValue when p is unlinked.
func (cc *compileContext) input(p *Pin) Value {
	if p == nil || !p.IsLinked() {
		return InvalidValue
	}
	if v, ok := cc.frame.values[p.LinkedTo()]; ok {
		return v
	}
	return InvalidValue
}

// literal emits the inline default of p, or a zero default when it has none.
func (cc *compileContext) literal(n *Node, p *Pin) Value {
	v := p.Variable()
	if len(p.Default) > 0 {
		return cc.emit(ChunkConstant, v, n)
	}
	return cc.emit(ChunkDefault, v, n)
}

// compileGraph compiles the traversal ending at out within a new frame and
// returns the Output node's values.
func (cc *compileContext) compileGraph(g *Graph, out *Node, frame *compileFrame) []Value {
	if frame == nil {
		frame = &compileFrame{mapArg: InvalidValue}
	}
	frame.graph = g
	frame.values = make(map[PinID]Value)

	parent := cc.frame
	cc.frame = frame
	cc.active[g.ID] = true
	defer func() {
		delete(cc.active, g.ID)
		cc.frame = parent
	}()

	var result []Value
	for _, n := range TraversalNodes(g, BuildTraversal(g, out.ID)) {
		if n.Data == nil {
			cc.report(SeverityError, n, nil, "node %d has no payload", n.ID)
			continue
		}
		vals := n.Data.compile(cc, n)
		i := 0
		for _, p := range g.NodePins(n, DirOutput) {
			if p.AddPin {
				continue
			}
			if i < len(vals) {
				frame.values[p.ID] = vals[i]
			} else {
				frame.values[p.ID] = InvalidValue
			}
			i++
		}
		if n.ID == out.ID {
			result = vals
		}
	}
	return result
}

func (d *InputData) compile(cc *compileContext, n *Node) []Value {
	f := cc.frame
	v := d.Variable
	if v.Type.IsParameterMap() {
		if f.inline && f.mapArg != InvalidValue {
			return []Value{f.mapArg}
		}
		return []Value{cc.emit(ChunkMapInstance, v, n)}
	}
	if f.inline {
		if val, ok := f.args[v.Name]; ok {
			return []Value{val}
		}
	}
	switch d.Usage {
	case InputAttribute:
		return []Value{cc.emit(ChunkReadAttribute, v, n)}
	case InputSystemConstant:
		return []Value{cc.emit(ChunkReadConstant, v, n)}
	}
	return []Value{cc.emit(ChunkReadInput, v, n)}
}

func (d *ParameterMapGetData) compile(cc *compileContext, n *Node) []Value {
	g := cc.frame.graph
	var outs []*Pin
	for _, p := range g.NodePins(n, DirOutput) {
		if !p.AddPin {
			outs = append(outs, p)
		}
	}
	mapVal := cc.input(g.MapInputPin(n))
	if mapVal == InvalidValue {
		cc.report(SeverityError, n, g.MapInputPin(n), "Cannot find parameter map for input")
		vals := make([]Value, len(outs))
		for i := range vals {
			vals[i] = InvalidValue
		}
		return vals
	}
	vals := make([]Value, 0, len(outs))
	for _, p := range outs {
		def := InvalidValue
		if dp := g.Pin(d.DefaultPinFor(p.ID)); dp != nil {
			if dp.IsLinked() {
				def = cc.input(dp)
			} else {
				def = cc.literal(n, dp)
			}
		}
		vals = append(vals, cc.emit(ChunkMapGet, NewVariable(p.Type, p.Name), n, mapVal, def))
	}
	return vals
}

func (*ParameterMapSetData) compile(cc *compileContext, n *Node) []Value {
	g := cc.frame.graph
	mapVal := cc.input(g.MapInputPin(n))
	if mapVal == InvalidValue {
		mapVal = cc.emit(ChunkMapInstance, NewVariable(TypeParameterMap, PinNameMapIn), n)
	}
	for _, p := range g.NodePins(n, DirInput) {
		if p.AddPin || p.IsParameterMap() {
			continue
		}
		val := cc.input(p)
		if val == InvalidValue {
			val = cc.literal(n, p)
		}
		mapVal = cc.emit(ChunkMapSet, NewVariable(p.Type, p.Name), n, mapVal, val)
	}
	return []Value{mapVal}
}

func (d *FunctionCallData) compile(cc *compileContext, n *Node) []Value {
	return cc.compileCall(n, d)
}

func (d *AssignmentData) compile(cc *compileContext, n *Node) []Value {
	return cc.compileCall(n, &d.Call)
}

// compileCall resolves the call's inputs and inlines the callee.
func (cc *compileContext) compileCall(n *Node, call *FunctionCallData) []Value {
	g := cc.frame.graph
	outPins := 0
	for _, p := range g.NodePins(n, DirOutput) {
		if !p.AddPin {
			outPins++
		}
	}
	invalid := func() []Value {
		vals := make([]Value, outPins)
		for i := range vals {
			vals[i] = InvalidValue
		}
		return vals
	}

	cg := call.Callee.Graph()
	if cg == nil {
		cc.report(SeverityError, n, nil, "function %s has no callee script", call.FunctionName)
		return invalid()
	}
	inner := calleeOutputNode(cg)
	if inner == nil {
		cc.report(SeverityError, n, nil, "callee of %s has no Function or Module output", call.FunctionName)
		return invalid()
	}
	if cc.active[cg.ID] {
		cc.report(SeverityError, n, nil, "function %s calls itself", call.FunctionName)
		return invalid()
	}

	frame := &compileFrame{args: make(map[string]Value), mapArg: InvalidValue, inline: true}
	var args []Value
	if mp := g.MapInputPin(n); mp != nil {
		frame.mapArg = cc.input(mp)
		if frame.mapArg == InvalidValue {
			frame.mapArg = cc.emit(ChunkMapInstance, NewVariable(TypeParameterMap, PinNameMapIn), n)
		}
		args = append(args, frame.mapArg)
	}

	for _, in := range calleeInputs(cg) {
		v := in.Variable
		var pin *Pin
		for _, p := range g.NodePins(n, DirInput) {
			if p.Name == v.Name && p.Type.Same(v.Type) {
				pin = p
				break
			}
		}
		if pin == nil {
			cc.report(SeverityError, n, nil, "callee input %s has no pin on %s; the node's pins are out of date", v, call.FunctionName)
			frame.args[v.Name] = InvalidValue
			continue
		}
		val := cc.resolveCallInput(n, pin, in)
		frame.args[v.Name] = val
		args = append(args, val)
	}

	cc.emit(ChunkCall, NewVariable(TypeDef{}, call.FunctionName), n, args...)
	cc.scope = append(cc.scope, ScopeFrame{Kind: FrameFunction, Name: call.FunctionName})
	vals := cc.compileGraph(cg, inner, frame)
	cc.scope = cc.scope[:len(cc.scope)-1]

	for len(vals) < outPins {
		vals = append(vals, InvalidValue)
	}
	return vals[:outPins]
}

// resolveCallInput picks the value for one call pin: its link, then an
// automatic binding, then the pin's inline default, then the callee default.
func (cc *compileContext) resolveCallInput(n *Node, p *Pin, in *InputData) Value {
	g := cc.frame.graph
	if p.IsLinked() {
		return cc.input(p)
	}
	if v, origin, ok := cc.binder.Resolve(in.Variable); ok {
		kind := ChunkReadAttribute
		if origin == BindEngineConstant {
			kind = ChunkReadConstant
		}
		cc.result.AutoBindings = append(cc.result.AutoBindings, AutoBinding{Pin: g.PinRef(p), Variable: v, Origin: origin})
		cc.logger.Trace("auto-bound input", "pin", p.Name, "to", v.Name, "origin", origin.String())
		return cc.emit(kind, v, n)
	}
	if len(p.Default) > 0 {
		return cc.emit(ChunkConstant, p.Variable(), n)
	}
	if in.Required {
		msg := "required input %s is unbound"
		if s := cc.binder.Suggest(in.Variable.Name); len(s) > 0 {
			cc.report(SeverityError, n, p, msg+"; did you mean %s?", in.Variable, strings.Join(s, ", "))
		} else {
			cc.report(SeverityError, n, p, msg, in.Variable)
		}
		return InvalidValue
	}
	if in.Variable.HasDefault() {
		return cc.emit(ChunkConstant, in.Variable, n)
	}
	return cc.emit(ChunkDefault, in.Variable, n)
}

func (d *EmitterData) compile(cc *compileContext, n *Node) []Value {
	g := cc.frame.graph
	mapVal := cc.input(g.MapInputPin(n))
	if mapVal == InvalidValue {
		mapVal = cc.emit(ChunkMapInstance, NewVariable(TypeParameterMap, PinNameMapIn), n)
	}
	if d.Emitter == nil {
		cc.report(SeverityError, n, nil, "emitter %s is not loaded", d.EmitterName)
		return []Value{InvalidValue}
	}
	return []Value{cc.emit(ChunkEmitter, NewVariable(TypeParameterMap, d.EmitterName), n, mapVal)}
}

// compile resolves each Output pin. Unlinked pins of a ParticleUpdate output
// read the attribute's previous frame value; other usages fall back to the
// declared default. Inside an inlined callee no outputs are written.
func (d *OutputData) compile(cc *compileContext, n *Node) []Value {
	g := cc.frame.graph
	pins := g.NodePins(n, DirInput)
	vals := make([]Value, 0, len(pins))
	for _, p := range pins {
		v := p.Variable()
		val := cc.input(p)
		if val == InvalidValue && !p.IsParameterMap() {
			switch {
			case cc.frame.inline:
				val = cc.literal(n, p)
			case d.Usage == UsageParticleUpdate:
				val = cc.emit(ChunkReadPrevious, NewVariable(p.Type, p.Name), n)
			default:
				val = cc.literal(n, p)
				cc.report(SeverityInfo, n, p, "%s uses its default", p.Name)
			}
		}
		if !cc.frame.inline && val != InvalidValue {
			cc.emit(ChunkWriteOutput, v, n, val)
		}
		vals = append(vals, val)
	}
	return vals
}
