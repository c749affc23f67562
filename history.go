package paramgraph

// PinRecord is one ledger entry: the pin where a read or write happened and the
// namespace markers active at that point.
type PinRecord struct {
	Pin   PinRef `json:"pin"`
	Scope Scope  `json:"scope,omitempty"`
}

// QualifiedName resolves the Module and Emitter aliases of name for display.
func (r PinRecord) QualifiedName(name string) string {
	return r.Scope.Qualify(name)
}

// History describes every parameter map variable flowing into one Output node.
// Variables are in first-seen order; the ledgers are parallel to Variables.
type History struct {
	Variables    []Variable    `json:"variables"`
	ReadHistory  [][]PinRecord `json:"read_history"`
	WriteHistory [][]PinRecord `json:"write_history"`
	Warnings     [][]string    `json:"warnings"`

	// DefaultPins lists linked Get default pins, resolved as fallback chains.
	DefaultPins []PinRef `json:"default_pins,omitempty"`
	// MapPinHistory lists every parameter map pin the traversal passed through.
	MapPinHistory []PinRef `json:"map_pin_history,omitempty"`
	// BoundaryLinks pairs pins of called graphs with the call node pins they feed.
	BoundaryLinks []PinLink `json:"boundary_links,omitempty"`

	OriginalPin PinRef      `json:"original_pin"`
	OutputNode  NodeRef     `json:"output_node"`
	Usage       ScriptUsage `json:"usage"`
}

// FindVariable returns the index of the variable with name and type t, or -1.
func (h *History) FindVariable(name string, t TypeDef) int {
	for i, v := range h.Variables {
		if v.Name == name && v.Type.Same(t) {
			return i
		}
	}
	return -1
}

// FindVariableByName returns the index of the first variable called name, or -1.
func (h *History) FindVariableByName(name string) int {
	for i, v := range h.Variables {
		if v.Name == name {
			return i
		}
	}
	return -1
}

func (h *History) addVariable(v Variable) int {
	if i := h.FindVariable(v.Name, v.Type); i >= 0 {
		return i
	}
	h.Variables = append(h.Variables, Variable{Name: v.Name, Type: v.Type, Default: v.Default})
	h.ReadHistory = append(h.ReadHistory, nil)
	h.WriteHistory = append(h.WriteHistory, nil)
	h.Warnings = append(h.Warnings, nil)
	return len(h.Variables) - 1
}

// RecordRead registers v if needed and appends rec to its read ledger.
func (h *History) RecordRead(v Variable, rec PinRecord) int {
	i := h.addVariable(v)
	h.ReadHistory[i] = append(h.ReadHistory[i], rec)
	return i
}

// RecordWrite registers v if needed and appends rec to its write ledger.
func (h *History) RecordWrite(v Variable, rec PinRecord) int {
	i := h.addVariable(v)
	h.WriteHistory[i] = append(h.WriteHistory[i], rec)
	return i
}

// AddWarning attaches msg to the variable at index i.
func (h *History) AddWarning(i int, msg string) {
	if i < 0 || i >= len(h.Warnings) {
		return
	}
	h.Warnings[i] = append(h.Warnings[i], msg)
}

// IsWritten reports whether the variable at index i has at least one write.
func (h *History) IsWritten(i int) bool {
	return i >= 0 && i < len(h.WriteHistory) && len(h.WriteHistory[i]) > 0
}

// Merge appends child into h. Variables already in h (by name and type) get the
// child's ledgers concatenated; new variables are appended with theirs.
// Entries are never deduplicated, so merging the same child twice doubles them.
func (h *History) Merge(child *History) {
	if child == nil {
		return
	}
	for ci, v := range child.Variables {
		i := h.addVariable(v)
		h.ReadHistory[i] = append(h.ReadHistory[i], child.ReadHistory[ci]...)
		h.WriteHistory[i] = append(h.WriteHistory[i], child.WriteHistory[ci]...)
		h.Warnings[i] = append(h.Warnings[i], child.Warnings[ci]...)
	}
	h.DefaultPins = append(h.DefaultPins, child.DefaultPins...)
	h.MapPinHistory = append(h.MapPinHistory, child.MapPinHistory...)
	h.BoundaryLinks = append(h.BoundaryLinks, child.BoundaryLinks...)
}

// WrittenVariables returns the variables with at least one write, in history order.
func (h *History) WrittenVariables() []Variable {
	var out []Variable
	for i, v := range h.Variables {
		if len(h.WriteHistory[i]) > 0 {
			out = append(out, v)
		}
	}
	return out
}

// AllWarnings flattens the per-variable warnings in history order.
func (h *History) AllWarnings() []string {
	var out []string
	for _, w := range h.Warnings {
		out = append(out, w...)
	}
	return out
}
