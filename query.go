package paramgraph

import "sort"

// FindOutputNodes returns the Output nodes whose usage is one of usages, in
// handle order. With no usages every Output node is returned.
func (g *Graph) FindOutputNodes(usages ...ScriptUsage) []*Node {
	out := []*Node{}
	for _, n := range g.LiveNodes() {
		d, ok := n.Data.(*OutputData)
		if !ok {
			continue
		}
		if len(usages) > 0 && !containsUsage(usages, d.Usage) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// FindOutputNode returns the occurrence-th Output node of usage.
func (g *Graph) FindOutputNode(usage ScriptUsage, occurrence int) (*Node, bool) {
	nodes := g.FindOutputNodes(usage)
	if occurrence < 0 || occurrence >= len(nodes) {
		return nil, false
	}
	return nodes[occurrence], true
}

func containsUsage(usages []ScriptUsage, u ScriptUsage) bool {
	for _, x := range usages {
		if x == u {
			return true
		}
	}
	return false
}

// FindInputNodesOptions selects which Input nodes FindInputNodes returns.
type FindInputNodesOptions struct {
	Sort                   bool
	IncludeParameters      bool
	IncludeAttributes      bool
	IncludeSystemConstants bool
	FilterDuplicates       bool
	// FilterByUsage limits the search to nodes reachable from one Output node.
	FilterByUsage *UsageOccurrence
}

// DefaultFindInputNodesOptions includes every usage and nothing else.
func DefaultFindInputNodesOptions() FindInputNodesOptions {
	return FindInputNodesOptions{
		IncludeParameters:      true,
		IncludeAttributes:      true,
		IncludeSystemConstants: true,
	}
}

// FindInputNodes returns Input nodes matching opts. An empty result is valid.
func (g *Graph) FindInputNodes(opts FindInputNodesOptions) []*Node {
	var candidates []*Node
	if opts.FilterByUsage != nil {
		out, ok := g.FindOutputNode(opts.FilterByUsage.Usage, opts.FilterByUsage.Occurrence)
		if !ok {
			return []*Node{}
		}
		candidates = TraversalNodes(g, BuildTraversal(g, out.ID))
	} else {
		candidates = g.LiveNodes()
	}

	result := []*Node{}
	for _, n := range candidates {
		d, ok := n.Data.(*InputData)
		if !ok {
			continue
		}
		switch d.Usage {
		case InputParameter:
			if !opts.IncludeParameters {
				continue
			}
		case InputAttribute:
			if !opts.IncludeAttributes {
				continue
			}
		case InputSystemConstant:
			if !opts.IncludeSystemConstants {
				continue
			}
		}
		if opts.FilterDuplicates && hasDuplicateInput(result, d) {
			continue
		}
		result = append(result, n)
	}

	if opts.Sort {
		sort.SliceStable(result, func(i, j int) bool {
			a := result[i].Data.(*InputData)
			b := result[j].Data.(*InputData)
			if a.CallSortPriority != b.CallSortPriority {
				return a.CallSortPriority < b.CallSortPriority
			}
			return a.Variable.Less(b.Variable)
		})
	}
	return result
}

func hasDuplicateInput(nodes []*Node, d *InputData) bool {
	for _, n := range nodes {
		if n.Data.(*InputData).duplicates(d) {
			return true
		}
	}
	return false
}

// GetParameters returns the exposed parameter inputs and the declared outputs
// of every Output node, each without duplicates.
func (g *Graph) GetParameters() (inputs, outputs []Variable) {
	opts := FindInputNodesOptions{IncludeParameters: true, FilterDuplicates: true, Sort: true}
	for _, n := range g.FindInputNodes(opts) {
		v := n.Data.(*InputData).Variable
		if v.Type.IsParameterMap() {
			continue
		}
		inputs = append(inputs, v)
	}
	for _, n := range g.FindOutputNodes() {
		for _, v := range n.Data.(*OutputData).Outputs {
			if v.Type.IsParameterMap() || containsEquivalent(outputs, v) {
				continue
			}
			outputs = append(outputs, v)
		}
	}
	return inputs, outputs
}

func containsEquivalent(vars []Variable, v Variable) bool {
	for _, x := range vars {
		if x.Equivalent(v) {
			return true
		}
	}
	return false
}
